package content

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/AnshRaj112/inkwell-backend/internal/apperr"
	"github.com/AnshRaj112/inkwell-backend/internal/storage"
)

func upload(name, body string) *Upload {
	return &Upload{
		Filename:    name,
		ContentType: "image/png",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func TestRewriteUploadsReplacesInOrder(t *testing.T) {
	store := storage.NewMemory("https://files.test")
	r := NewRewriter(store)

	src := "<p>A</p>\n<img src=\"x.png\">\t<img src='y.png'>"
	res, err := r.RewriteUploads(context.Background(), src, "j1", []*Upload{upload("one.png", "one"), upload("two.png", "two")})
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if len(res.ImagePaths) != 2 {
		t.Fatalf("expected two stored paths, got %v", res.ImagePaths)
	}
	want := fmt.Sprintf("<p>A</p><img src='%s'/><img src='%s'/>", store.URL(res.ImagePaths[0]), store.URL(res.ImagePaths[1]))
	if res.HTML != want {
		t.Fatalf("unexpected html:\n got %q\nwant %q", res.HTML, want)
	}
	for i, body := range []string{"one", "two"} {
		if !strings.HasPrefix(res.ImagePaths[i], "uploads/j1/") || !strings.HasSuffix(res.ImagePaths[i], ".png") {
			t.Fatalf("unexpected key %q", res.ImagePaths[i])
		}
		if data, _ := store.Get(res.ImagePaths[i]); string(data) != body {
			t.Fatalf("slot %d stored %q, want %q", i, data, body)
		}
	}
}

func TestRewriteUploadsAdvancesOnlyOnSubstitution(t *testing.T) {
	store := storage.NewMemory("https://files.test")
	r := NewRewriter(store)
	src := `<img src="a.png"><img src="b.png">`

	res, err := r.RewriteUploads(context.Background(), src, "j", []*Upload{upload("one.png", "one")})
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if len(res.ImagePaths) != 1 || !strings.Contains(res.HTML, "src='b.png'") {
		t.Fatalf("expected only the first image replaced, got %q", res.HTML)
	}

	res, err = r.RewriteUploads(context.Background(), src, "j", []*Upload{nil, upload("two.png", "two")})
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if len(res.ImagePaths) != 0 {
		t.Fatalf("absent first slot must not be skipped over, got %v", res.ImagePaths)
	}
	if res.HTML != `<img src='a.png'/><img src='b.png'/>` {
		t.Fatalf("unexpected html %q", res.HTML)
	}
}

func TestRewriteInlineDecodesDataURIs(t *testing.T) {
	store := storage.NewMemory("https://files.test")
	r := NewRewriter(store)

	src := `<p>Hi</p><img src='data:image/png;base64,AAAA'><img src="https://example.com/a.png"><img src="data:image/png;base64,"><img src="data:image/gif;base64,@@@">`
	res, err := r.RewriteInline(context.Background(), src, "j9")
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if len(res.ImagePaths) != 1 {
		t.Fatalf("expected one decoded image, got %v", res.ImagePaths)
	}
	stored := res.ImagePaths[0]
	if !strings.HasPrefix(stored, "uploads/j9/") || !strings.HasSuffix(stored, ".png") {
		t.Fatalf("unexpected key %q", stored)
	}
	if data, _ := store.Get(stored); string(data) != "\x00\x00\x00" {
		t.Fatalf("unexpected decoded bytes %q", data)
	}
	want := fmt.Sprintf(`<p>Hi</p><img src='%s'/><img src='https://example.com/a.png'/><img src='data:image/png;base64,'/><img src='data:image/gif;base64,@@@'/>`, store.URL(stored))
	if res.HTML != want {
		t.Fatalf("unexpected html:\n got %q\nwant %q", res.HTML, want)
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("expected a diagnostic for the undecodable payload, got %v", res.Diagnostics)
	}
}

func TestRewriteExtractsBodyOnly(t *testing.T) {
	r := NewRewriter(storage.NewMemory("https://files.test"))
	res, err := r.RewriteInline(context.Background(), "<html><head><title>t</title></head><body><div>a &amp; b</div></body></html>", "j")
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if res.HTML != "<div>a &amp; b</div>" {
		t.Fatalf("unexpected html %q", res.HTML)
	}
}

func TestParseLenientDiagnostics(t *testing.T) {
	_, diags := ParseLenient("<div><span>x</div></em>")
	if len(diags) != 2 {
		t.Fatalf("expected two diagnostics, got %v", diags)
	}
	if !strings.Contains(diags[0].Message, "<span> closed by </div>") {
		t.Fatalf("unexpected first diagnostic %v", diags[0])
	}
	if !strings.Contains(diags[1].Message, "stray </em>") {
		t.Fatalf("unexpected second diagnostic %v", diags[1])
	}

	if _, diags := ParseLenient("<p>a<p>b<img src=x><br/>"); len(diags) != 0 {
		t.Fatalf("expected no diagnostics for valid html, got %v", diags)
	}
	if _, diags := ParseLenient("<div><b>x"); len(diags) != 2 {
		t.Fatalf("expected unclosed diagnostics, got %v", diags)
	}
}

func TestStoreUploadIgnoresClientFilename(t *testing.T) {
	store := storage.NewMemory("https://files.test")
	ctx := context.Background()
	pngHeader := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"

	declared := upload("evil.html", "<script>alert(1)</script>")
	stored, err := StoreUpload(ctx, store, declared, "uploads/j")
	if err != nil {
		t.Fatalf("declared png: %v", err)
	}
	if !strings.HasSuffix(stored, ".png") {
		t.Fatalf("stored as %q, want .png extension", stored)
	}

	sniffed := upload("evil.html", pngHeader)
	sniffed.ContentType = "application/octet-stream"
	stored, err = StoreUpload(ctx, store, sniffed, "uploads/j")
	if err != nil {
		t.Fatalf("sniffed png: %v", err)
	}
	data, _ := store.Get(stored)
	if !strings.HasSuffix(stored, ".png") || string(data) != pngHeader {
		t.Fatalf("stored %q with %q", stored, data)
	}

	page := upload("evil.html", "<html><script>alert(1)</script></html>")
	page.ContentType = "text/html"
	if _, err := StoreUpload(ctx, store, page, "uploads/j"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for html upload, got %v", err)
	}
	for _, k := range store.Keys() {
		if strings.HasSuffix(k, ".html") {
			t.Fatalf("html file stored at %q", k)
		}
	}
}

func TestRewriteUploadsRejectsNonImage(t *testing.T) {
	store := storage.NewMemory("https://files.test")
	page := upload("evil.html", "<html></html>")
	page.ContentType = "text/html"

	_, err := NewRewriter(store).RewriteUploads(context.Background(), `<img src="x">`, "j", []*Upload{page})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.Keys()) != 0 {
		t.Fatalf("stored %v", store.Keys())
	}
}

func TestRewriteInlineSkipsSVG(t *testing.T) {
	store := storage.NewMemory("https://files.test")
	src := `<img src="data:image/svg+xml;base64,PHN2Zz48L3N2Zz4=">`

	res, err := NewRewriter(store).RewriteInline(context.Background(), src, "j")
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if len(res.ImagePaths) != 0 || len(store.Keys()) != 0 || len(res.Diagnostics) == 0 {
		t.Fatalf("svg stored: paths %v diags %v", res.ImagePaths, res.Diagnostics)
	}
}
