// Package content turns submitted page content into the HTML stored on a page.
//
// Two entry points exist. Formatter renders a rich-text delta (a JSON array of
// insert operations) and pairs image operations with pre-uploaded files by
// position. Rewriter takes HTML, rewrites <img> sources to stored files and
// normalizes the markup.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"math"
	"strconv"
	"strings"

	"github.com/AnshRaj112/inkwell-backend/internal/apperr"
	"github.com/AnshRaj112/inkwell-backend/internal/storage"
	"github.com/google/uuid"
)

// Result is the output of either pipeline.
type Result struct {
	HTML        string
	ImagePaths  []string
	Diagnostics []Diagnostic
}

// Op is one delta operation.
type Op struct {
	Insert     json.RawMessage        `json:"insert"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

type imageInsert struct {
	Type   string `json:"_type"`
	Source string `json:"source"`
}

// Formatter renders delta operations to HTML.
type Formatter struct {
	store storage.Storage
	// sources resolves the "source" field of image operations.
	sources fs.FS
}

func NewFormatter(store storage.Storage, sources fs.FS) *Formatter {
	return &Formatter{store: store, sources: sources}
}

// Format renders raw, which must be a JSON array of operations. uploaded holds
// stored paths of files uploaded with the request; the n-th image operation is
// rendered with the n-th upload's URL.
func (f *Formatter) Format(ctx context.Context, raw json.RawMessage, journalID string, uploaded []string) (*Result, error) {
	const op = "content.Format"

	ops, err := checkDelta(op, raw, len(uploaded))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var b strings.Builder
	imageIndex := 0
	for i, o := range ops {
		if img, ok := o.image(); ok {
			stored, err := f.copySource(ctx, img.Source, journalID)
			if err != nil {
				return nil, fmt.Errorf("failed to store image %d: %w", imageIndex, err)
			}
			if stored == "" {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{Offset: i, Message: "image source not found: " + img.Source})
			} else {
				res.ImagePaths = append(res.ImagePaths, stored)
			}
			b.WriteString("<img src='" + html.EscapeString(f.store.URL(uploaded[imageIndex])) + "'>")
			imageIndex++
			continue
		}
		if text, ok := o.text(); ok {
			b.WriteString(FormatText(text, o.Attributes))
		}
	}
	res.HTML = b.String()
	return res, nil
}

// CheckDelta validates raw as a delta whose image operations can all be paired
// with one of uploads files. Nothing is stored.
func CheckDelta(raw json.RawMessage, uploads int) error {
	_, err := checkDelta("content.CheckDelta", raw, uploads)
	return err
}

func checkDelta(op string, raw json.RawMessage, uploads int) ([]Op, error) {
	ops, err := decodeOps(raw)
	if err != nil {
		return nil, apperr.Validation(op, "Invalid content format")
	}

	imageOps := 0
	for _, o := range ops {
		if _, ok := o.image(); ok {
			imageOps++
		}
	}
	if imageOps > uploads {
		return nil, apperr.Validation(op, fmt.Sprintf("content has %d images but %d were uploaded", imageOps, uploads))
	}
	return ops, nil
}

func decodeOps(raw json.RawMessage) ([]Op, error) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "[") {
		return nil, fmt.Errorf("content is not a sequence")
	}
	var ops []Op
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, err
	}
	return ops, nil
}

func (o Op) image() (imageInsert, bool) {
	var img imageInsert
	if len(o.Insert) == 0 || o.Insert[0] != '{' {
		return img, false
	}
	if err := json.Unmarshal(o.Insert, &img); err != nil {
		return img, false
	}
	return img, img.Type == "image"
}

func (o Op) text() (string, bool) {
	if len(o.Insert) == 0 || o.Insert[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(o.Insert, &s); err != nil {
		return "", false
	}
	return s, true
}

// copySource stores the image referenced by an operation under the journal's
// folder. A missing source yields "" and no error.
func (f *Formatter) copySource(ctx context.Context, source, journalID string) (string, error) {
	if f.sources == nil || source == "" {
		return "", nil
	}
	name := strings.TrimPrefix(strings.ReplaceAll(source, "\\", "/"), "/")
	if !fs.ValidPath(name) {
		return "", nil
	}
	file, err := f.sources.Open(name)
	if err != nil {
		return "", nil
	}
	defer file.Close()

	key := fmt.Sprintf("uploads/%s/%s.jpg", journalID, uuid.NewString())
	return f.store.Put(ctx, key, file, "image/jpeg")
}

// FormatText escapes text and wraps it according to attributes: a heading or
// paragraph first, then bold, italic, underline, strikethrough, color, size.
func FormatText(text string, attributes map[string]interface{}) string {
	out := html.EscapeString(text)

	if level, ok := headingLevel(attributes["h"]); ok {
		out = fmt.Sprintf("<h%d>%s</h%d>", level, out, level)
	} else {
		out = "<p>" + out + "</p>"
	}

	if has(attributes, "b") {
		out = "<b>" + out + "</b>"
	}
	if has(attributes, "i") {
		out = "<i>" + out + "</i>"
	}
	if has(attributes, "u") {
		out = "<u>" + out + "</u>"
	}
	if has(attributes, "s") {
		out = "<s>" + out + "</s>"
	}
	if has(attributes, "color") {
		out = "<span style='color: " + attrString(attributes["color"]) + "'>" + out + "</span>"
	}
	if has(attributes, "size") {
		out = "<span style='font-size: " + attrString(attributes["size"]) + "px'>" + out + "</span>"
	}
	return out
}

func has(attributes map[string]interface{}, key string) bool {
	v, ok := attributes[key]
	return ok && v != nil
}

func headingLevel(v interface{}) (int, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case int:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if n != math.Trunc(n) || n < 1 || n > 6 {
		return 0, false
	}
	return int(n), true
}

func attrString(v interface{}) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		s = fmt.Sprint(t)
	}
	return html.EscapeString(s)
}
