package pdf

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestInteriorOnePagePerJournalPage(t *testing.T) {
	r := NewRenderer(nil)
	j := Journal{
		Title: "Summer Trip",
		Pages: []Page{
			{CreatedAt: time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC), HTML: `<h1>Day one</h1><p>Arrived \nlate</p>`},
			{CreatedAt: time.Date(2024, 7, 2, 9, 0, 0, 0, time.UTC), HTML: `<span style='color: #c00'><b><p>Café</p></b></span>`},
		},
	}

	out, pages, err := r.Interior(context.Background(), j)
	if err != nil {
		t.Fatalf("interior: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a pdf: %q", out[:8])
	}
	if pages != 2 {
		t.Fatalf("expected 2 pages, got %d", pages)
	}
}

func TestInteriorLongPageFlows(t *testing.T) {
	var body bytes.Buffer
	for i := 0; i < 200; i++ {
		body.WriteString("<p>A line of journal text that keeps going.</p>")
	}
	_, pages, err := NewRenderer(nil).Interior(context.Background(), Journal{Title: "Long", Pages: []Page{{HTML: body.String()}}})
	if err != nil {
		t.Fatalf("interior: %v", err)
	}
	if pages < 2 {
		t.Fatalf("expected the page to flow onto more sheets, got %d", pages)
	}
}

func TestInteriorEmbedsImages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/a.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	r := NewRenderer(HTTPImageLoader(srv.Client()))
	html := "<p>pic</p><img src='" + srv.URL + "/a.png'><img src='" + srv.URL + "/missing.png'>"
	withImage, _, err := r.Interior(context.Background(), Journal{Title: "Pics", Pages: []Page{{HTML: html}}})
	if err != nil {
		t.Fatalf("interior: %v", err)
	}
	without, _, err := NewRenderer(nil).Interior(context.Background(), Journal{Title: "Pics", Pages: []Page{{HTML: html}}})
	if err != nil {
		t.Fatalf("interior: %v", err)
	}
	if len(withImage) <= len(without) {
		t.Fatalf("image not embedded: %d <= %d bytes", len(withImage), len(without))
	}
}

func TestCover(t *testing.T) {
	out, err := NewRenderer(nil).Cover(context.Background(), "Summer Trip")
	if err != nil {
		t.Fatalf("cover: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a pdf")
	}
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in      string
		r, g, b int
		ok      bool
	}{
		{"#ff8000", 255, 128, 0, true},
		{"#c00", 204, 0, 0, true},
		{"rgb(1, 2, 3)", 1, 2, 3, true},
		{"Red", 255, 0, 0, true},
		{"#12345", 0, 0, 0, false},
		{"rgb(1,2)", 0, 0, 0, false},
		{"chartreuse-ish", 0, 0, 0, false},
	}
	for _, c := range cases {
		r, g, b, ok := parseColor(c.in)
		if ok != c.ok || r != c.r || g != c.g || b != c.b {
			t.Fatalf("parseColor(%q) = %d,%d,%d,%v", c.in, r, g, b, ok)
		}
	}
}
