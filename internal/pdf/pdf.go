// Package pdf renders journals to print-ready PDF files on a 6x9 inch page.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// PageWidth and PageHeight are in points (6x9 inches).
	PageWidth  = 432.0
	PageHeight = 648.0

	margin       = 36.0
	bodySize     = 11.0
	titleSize    = 18.0
	lineFactor   = 1.35
	fontFamily   = "Helvetica"
	maxImageSize = 10 << 20
)

// Page is one journal page to render.
type Page struct {
	CreatedAt time.Time
	HTML      string
}

// Journal is the input of the interior document.
type Journal struct {
	Title string
	Pages []Page
}

// ImageLoader returns the bytes and content type of an <img> source.
type ImageLoader func(ctx context.Context, src string) ([]byte, string, error)

// Renderer builds interior and cover documents.
type Renderer struct {
	load ImageLoader
}

// NewRenderer returns a renderer that loads images with load. A nil loader
// renders documents without images.
func NewRenderer(load ImageLoader) *Renderer {
	return &Renderer{load: load}
}

// HTTPImageLoader fetches absolute http(s) image sources with client.
func HTTPImageLoader(client *http.Client) ImageLoader {
	return func(ctx context.Context, src string) ([]byte, string, error) {
		if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
			return nil, "", fmt.Errorf("unsupported image source %q", src)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, "", err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("fetch %s: status %d", src, resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
		if err != nil {
			return nil, "", err
		}
		return data, resp.Header.Get("Content-Type"), nil
	}
}

func newDocument(title string) *fpdf.Fpdf {
	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: PageWidth, Ht: PageHeight},
	})
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, margin)
	doc.SetTitle(title, true)
	doc.SetCreator("inkwell", true)
	return doc
}

// Interior renders the title followed by every page, each starting on a new
// sheet. It returns the document and its page count.
func (r *Renderer) Interior(ctx context.Context, j Journal) ([]byte, int, error) {
	doc := newDocument(j.Title)
	w := &writer{doc: doc, tr: doc.UnicodeTranslatorFromDescriptor(""), ctx: ctx, load: r.load}

	doc.AddPage()
	w.title(j.Title)
	for i, p := range j.Pages {
		if i > 0 {
			doc.AddPage()
		}
		w.style = baseStyle()
		w.apply()
		doc.SetTextColor(110, 110, 110)
		doc.SetFontSize(9)
		doc.CellFormat(0, 9*lineFactor, p.CreatedAt.Format("2006-01-02 15:04:05"), "", 1, "L", false, 0, "")
		w.apply()

		body := strings.NewReplacer(`\n`, "", `\r`, "").Replace(p.HTML)
		if err := w.html(body); err != nil {
			return nil, 0, err
		}
	}

	out, err := output(doc)
	if err != nil {
		return nil, 0, err
	}
	return out, doc.PageCount(), nil
}

// Cover renders a single page carrying the title.
func (r *Renderer) Cover(ctx context.Context, title string) ([]byte, error) {
	doc := newDocument(title)
	w := &writer{doc: doc, tr: doc.UnicodeTranslatorFromDescriptor("")}
	doc.AddPage()
	w.title(title)
	return output(doc)
}

func output(doc *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type style struct {
	bold, italic, underline bool
	size                    float64
	r, g, b                 int
}

func baseStyle() style { return style{size: bodySize} }

func (s style) fontStyle() string {
	out := ""
	if s.bold {
		out += "B"
	}
	if s.italic {
		out += "I"
	}
	if s.underline {
		out += "U"
	}
	return out
}

type writer struct {
	doc   *fpdf.Fpdf
	tr    func(string) string
	ctx   context.Context
	load  ImageLoader
	style style
	n     int // registered images
}

func (w *writer) apply() {
	w.doc.SetFont(fontFamily, w.style.fontStyle(), w.style.size)
	w.doc.SetTextColor(w.style.r, w.style.g, w.style.b)
}

func (w *writer) lineHeight() float64 { return w.style.size * lineFactor }

func (w *writer) title(t string) {
	w.doc.SetFont(fontFamily, "B", titleSize)
	w.doc.SetTextColor(0, 0, 0)
	w.doc.MultiCell(0, titleSize*lineFactor, w.tr(t), "", "C", false)
	w.doc.Ln(titleSize * 0.8)
}

// newline moves to the start of the next line unless already there.
func (w *writer) newline() {
	if w.doc.GetX() > margin+0.5 {
		w.doc.Ln(w.lineHeight())
	}
}

func (w *writer) html(src string) error {
	nodes, err := html.ParseFragment(strings.NewReader(src), &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body})
	if err != nil {
		return fmt.Errorf("failed to parse page content: %w", err)
	}
	for _, n := range nodes {
		w.node(n)
	}
	w.newline()
	return w.doc.Error()
}

var headingSizes = map[atom.Atom]float64{
	atom.H1: 20, atom.H2: 17, atom.H3: 15, atom.H4: 13, atom.H5: 12, atom.H6: 11,
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Blockquote: true,
	atom.Ul: true, atom.Ol: true, atom.Pre: true,
}

func (w *writer) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		text := strings.Join(strings.Fields(n.Data), " ")
		if text == "" {
			return
		}
		if strings.HasPrefix(n.Data, " ") || strings.HasPrefix(n.Data, "\t") {
			text = " " + text
		}
		if strings.HasSuffix(n.Data, " ") || strings.HasSuffix(n.Data, "\t") {
			text += " "
		}
		w.apply()
		w.doc.Write(w.lineHeight(), w.tr(text))
		return
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.node(c)
		}
		return
	}

	switch n.DataAtom {
	case atom.Br:
		w.doc.Ln(w.lineHeight())
		return
	case atom.Img:
		w.image(attr(n, "src"))
		return
	case atom.Script, atom.Style, atom.Head:
		return
	}

	saved := w.style
	block := blockElements[n.DataAtom]
	if size, ok := headingSizes[n.DataAtom]; ok {
		block = true
		w.style.bold = true
		w.style.size = size
	}
	switch n.DataAtom {
	case atom.B, atom.Strong:
		w.style.bold = true
	case atom.I, atom.Em:
		w.style.italic = true
	case atom.U:
		w.style.underline = true
	}
	w.inlineStyle(attr(n, "style"))

	if block {
		w.newline()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c)
	}
	if block {
		w.newline()
	}
	w.style = saved
	w.apply()
}

// inlineStyle honors the color and font-size declarations the content
// formatter emits.
func (w *writer) inlineStyle(decl string) {
	for _, part := range strings.Split(decl, ";") {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "color":
			if r, g, b, ok := parseColor(v); ok {
				w.style.r, w.style.g, w.style.b = r, g, b
			}
		case "font-size":
			if px, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64); err == nil && px > 0 && px < 200 {
				w.style.size = px * 0.75
			}
		}
	}
}

func (w *writer) image(src string) {
	if w.load == nil || src == "" {
		return
	}
	data, contentType, err := w.load(w.ctx, src)
	if err != nil {
		return
	}
	imageType := imageTypeFor(contentType, src)
	if imageType == "" {
		return
	}

	w.n++
	name := fmt.Sprintf("img%d", w.n)
	opts := fpdf.ImageOptions{ImageType: imageType, ReadDpi: true}
	info := w.doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if w.doc.Err() || info == nil {
		// skip images fpdf cannot decode instead of failing the document
		w.doc.ClearError()
		return
	}

	maxW := PageWidth - 2*margin
	width := info.Width()
	if width <= 0 || width > maxW {
		width = maxW
	}
	w.newline()
	w.doc.ImageOptions(name, margin, -1, width, 0, true, opts, 0, "")
}

func imageTypeFor(contentType, src string) string {
	ct := strings.ToLower(contentType)
	s := strings.ToLower(src)
	switch {
	case strings.Contains(ct, "png") || strings.HasSuffix(s, ".png"):
		return "PNG"
	case strings.Contains(ct, "jpeg") || strings.Contains(ct, "jpg") ||
		strings.HasSuffix(s, ".jpg") || strings.HasSuffix(s, ".jpeg"):
		return "JPG"
	case strings.Contains(ct, "gif") || strings.HasSuffix(s, ".gif"):
		return "GIF"
	}
	return ""
}

var namedColors = map[string][3]int{
	"black": {0, 0, 0}, "white": {255, 255, 255}, "red": {255, 0, 0},
	"green": {0, 128, 0}, "blue": {0, 0, 255}, "gray": {128, 128, 128},
	"grey": {128, 128, 128}, "orange": {255, 165, 0}, "purple": {128, 0, 128},
	"yellow": {255, 255, 0},
}

// parseColor accepts #rgb, #rrggbb, rgb(r, g, b) and a few color names.
func parseColor(v string) (int, int, int, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if c, ok := namedColors[v]; ok {
		return c[0], c[1], c[2], true
	}
	if strings.HasPrefix(v, "#") {
		hex := v[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return 0, 0, 0, false
		}
		n, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return 0, 0, 0, false
		}
		return int(n >> 16 & 0xff), int(n >> 8 & 0xff), int(n & 0xff), true
	}
	if strings.HasPrefix(v, "rgb(") && strings.HasSuffix(v, ")") {
		parts := strings.Split(v[4:len(v)-1], ",")
		if len(parts) != 3 {
			return 0, 0, 0, false
		}
		var rgb [3]int
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || n < 0 || n > 255 {
				return 0, 0, 0, false
			}
			rgb[i] = n
		}
		return rgb[0], rgb[1], rgb[2], true
	}
	return 0, 0, 0, false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
