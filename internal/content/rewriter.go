package content

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/AnshRaj112/inkwell-backend/internal/apperr"
	"github.com/AnshRaj112/inkwell-backend/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Upload is one uploaded file slot. A nil *Upload is an absent slot.
type Upload struct {
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

const notImageMessage = "Uploaded files must be JPEG, PNG, GIF, WebP or BMP images."

var (
	dataURIPattern  = regexp.MustCompile(`(?s)^data:image/([a-zA-Z0-9.+-]+);base64,(.+)$`)
	doubleQuotedSrc = regexp.MustCompile(`src="([^"]*)"`)
	layoutStripper  = strings.NewReplacer("\n", "", "\r", "", "\t", "")
)

// Rewriter rewrites <img> sources in submitted HTML to stored files.
type Rewriter struct {
	store storage.Storage
}

func NewRewriter(store storage.Storage) *Rewriter {
	return &Rewriter{store: store}
}

// RewriteUploads pairs <img> elements with upload slots in document order. A
// present slot is stored and replaces the element's src; the slot index only
// advances on a substitution, so an absent slot is retried by the next image.
func (r *Rewriter) RewriteUploads(ctx context.Context, src, journalID string, uploads []*Upload) (*Result, error) {
	doc, diags := ParseLenient(src)
	res := &Result{Diagnostics: diags}

	slot := 0
	for _, img := range images(doc) {
		if slot >= len(uploads) {
			break
		}
		u := uploads[slot]
		if u == nil {
			continue
		}
		stored, err := StoreUpload(ctx, r.store, u, "uploads/"+journalID)
		if err != nil {
			return nil, fmt.Errorf("failed to store upload %d: %w", slot, err)
		}
		setAttr(img, "src", r.store.URL(stored))
		res.ImagePaths = append(res.ImagePaths, stored)
		slot++
	}

	out, err := renderBody(doc)
	if err != nil {
		return nil, err
	}
	res.HTML = out
	return res, nil
}

// RewriteInline stores every <img> whose src is a base64 data URI and points
// src at the stored file. Other sources are left untouched.
func (r *Rewriter) RewriteInline(ctx context.Context, src, journalID string) (*Result, error) {
	doc, diags := ParseLenient(src)
	res := &Result{Diagnostics: diags}

	for _, img := range images(doc) {
		m := dataURIPattern.FindStringSubmatch(strings.TrimSpace(getAttr(img, "src")))
		if len(m) != 3 || m[1] == "" || m[2] == "" {
			continue
		}
		ext, ok := storage.ImageExtension(m[1])
		if !ok {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Message: "unsupported inline image type: " + m[1]})
			continue
		}
		data, err := decodeBase64(m[2])
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Message: "undecodable inline image: " + err.Error()})
			continue
		}

		key := fmt.Sprintf("uploads/%s/%s.%s", journalID, uuid.NewString(), ext)
		stored, err := r.store.Put(ctx, key, bytes.NewReader(data), storage.ContentTypeForKey(key))
		if err != nil {
			return nil, fmt.Errorf("failed to store inline image: %w", err)
		}
		setAttr(img, "src", r.store.URL(stored))
		res.ImagePaths = append(res.ImagePaths, stored)
	}

	out, err := renderBody(doc)
	if err != nil {
		return nil, err
	}
	res.HTML = out
	return res, nil
}

// HasInlineImages reports whether src references base64 image data.
func HasInlineImages(src string) bool {
	return strings.Contains(src, "data:image/")
}

// StoreUpload persists u under folder with a generated name. The extension
// comes from the declared image type, or from the sniffed bytes when the
// declared type is not a raster image; the client's file name is ignored.
func StoreUpload(ctx context.Context, store storage.Storage, u *Upload, folder string) (string, error) {
	rc, err := u.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer rc.Close()

	contentType := u.ContentType
	ext, ok := storage.ImageExtension(contentType)
	var body io.Reader = rc
	if !ok {
		head := make([]byte, 512)
		n, err := io.ReadFull(rc, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		contentType = http.DetectContentType(head[:n])
		if ext, ok = storage.ImageExtension(contentType); !ok {
			return "", apperr.Validation("content.StoreUpload", notImageMessage)
		}
		body = io.MultiReader(bytes.NewReader(head[:n]), rc)
	}

	key := strings.TrimRight(folder, "/") + "/" + uuid.NewString() + "." + ext
	return store.Put(ctx, key, body, storage.ContentTypeForKey(key))
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	return data, err
}

func images(doc *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

// renderBody serializes the children of <body>, dropping the wrapper the parser
// adds, then single-quotes src attributes and strips layout whitespace.
func renderBody(doc *html.Node) (string, error) {
	body := findBody(doc)
	if body == nil {
		return "", nil
	}
	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("failed to render html: %w", err)
		}
	}
	out := doubleQuotedSrc.ReplaceAllString(buf.String(), "src='$1'")
	return layoutStripper.Replace(out), nil
}
