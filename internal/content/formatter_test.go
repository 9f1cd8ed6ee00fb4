package content

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/AnshRaj112/inkwell-backend/internal/apperr"
	"github.com/AnshRaj112/inkwell-backend/internal/storage"
)

func TestFormatTextWrapOrder(t *testing.T) {
	cases := []struct {
		text  string
		attrs map[string]interface{}
		want  string
	}{
		{"plain", nil, "<p>plain</p>"},
		{"a<b", map[string]interface{}{"h": float64(2), "b": true, "color": "red"}, "<span style='color: red'><b><h2>a&lt;b</h2></b></span>"},
		{"x", map[string]interface{}{"h": float64(7)}, "<p>x</p>"},
		{"x", map[string]interface{}{"h": "3"}, "<h3>x</h3>"},
		{"x", map[string]interface{}{"h": 2.5}, "<p>x</p>"},
		{"x", map[string]interface{}{"i": true, "u": true, "s": true}, "<s><u><i><p>x</p></i></u></s>"},
		{"x", map[string]interface{}{"size": float64(14)}, "<span style='font-size: 14px'><p>x</p></span>"},
		{"x", map[string]interface{}{"b": nil}, "<p>x</p>"},
		{"x", map[string]interface{}{"color": "red' onclick='x"}, "<span style='color: red&#39; onclick=&#39;x'><p>x</p></span>"},
	}
	for _, c := range cases {
		if got := FormatText(c.text, c.attrs); got != c.want {
			t.Fatalf("FormatText(%q, %v) = %q, want %q", c.text, c.attrs, got, c.want)
		}
	}
}

func TestFormatPairsImagesByPosition(t *testing.T) {
	store := storage.NewMemory("https://files.test/storage")
	sources := fstest.MapFS{"tmp/a.jpg": &fstest.MapFile{Data: []byte("jpeg-bytes")}}
	f := NewFormatter(store, sources)

	raw := json.RawMessage(`[
		{"insert":"Hello","attributes":{"b":true}},
		{"insert":{"_type":"image","source":"tmp/a.jpg"}},
		{"insert":{"_type":"image","source":"tmp/missing.jpg"}},
		{"insert":42}
	]`)
	uploaded := []string{"journal/u1.jpg", "journal/u2.jpg"}

	res, err := f.Format(context.Background(), raw, "j1", uploaded)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	want := "<b><p>Hello</p></b>" +
		"<img src='https://files.test/storage/journal/u1.jpg'>" +
		"<img src='https://files.test/storage/journal/u2.jpg'>"
	if res.HTML != want {
		t.Fatalf("unexpected html:\n got %q\nwant %q", res.HTML, want)
	}
	if len(res.ImagePaths) != 1 || !strings.HasPrefix(res.ImagePaths[0], "uploads/j1/") {
		t.Fatalf("unexpected image paths %v", res.ImagePaths)
	}
	if data, ok := store.Get(res.ImagePaths[0]); !ok || string(data) != "jpeg-bytes" {
		t.Fatalf("source not copied: %q %v", data, ok)
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("expected one diagnostic for the missing source, got %v", res.Diagnostics)
	}
}

func TestFormatNImagesProduceNTags(t *testing.T) {
	store := storage.NewMemory("https://files.test")
	f := NewFormatter(store, nil)

	for n := 0; n <= 4; n++ {
		var ops []string
		var uploaded []string
		for i := 0; i < n; i++ {
			ops = append(ops, `{"insert":"t"}`, `{"insert":{"_type":"image","source":"s"}}`)
			uploaded = append(uploaded, "journal/"+string(rune('a'+i))+".png")
		}
		res, err := f.Format(context.Background(), json.RawMessage("["+strings.Join(ops, ",")+"]"), "j", uploaded)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if got := strings.Count(res.HTML, "<img "); got != n {
			t.Fatalf("n=%d: expected %d img tags, got %d in %q", n, n, got, res.HTML)
		}
		rest := res.HTML
		for _, u := range uploaded {
			idx := strings.Index(rest, "<img src='"+store.URL(u)+"'>")
			if idx == -1 {
				t.Fatalf("n=%d: %s missing or out of order in %q", n, u, res.HTML)
			}
			rest = rest[idx+1:]
		}
	}
}

func TestFormatRejectsNonSequence(t *testing.T) {
	store := storage.NewMemory("https://files.test")
	sources := fstest.MapFS{"a.jpg": &fstest.MapFile{Data: []byte("x")}}
	f := NewFormatter(store, sources)

	for _, raw := range []string{`{"insert":{"_type":"image","source":"a.jpg"}}`, `"<p>x</p>"`, `null`, `[{"insert":`} {
		_, err := f.Format(context.Background(), json.RawMessage(raw), "j", []string{"journal/a.jpg"})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("expected validation error for %s, got %v", raw, err)
		}
	}
	if keys := store.Keys(); len(keys) != 0 {
		t.Fatalf("expected nothing stored, got %v", keys)
	}
}

func TestFormatRejectsMissingUploadsBeforeStoring(t *testing.T) {
	store := storage.NewMemory("https://files.test")
	sources := fstest.MapFS{"a.jpg": &fstest.MapFile{Data: []byte("x")}}
	f := NewFormatter(store, sources)

	raw := json.RawMessage(`[{"insert":{"_type":"image","source":"a.jpg"}},{"insert":{"_type":"image","source":"a.jpg"}}]`)
	_, err := f.Format(context.Background(), raw, "j", []string{"journal/only.jpg"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if keys := store.Keys(); len(keys) != 0 {
		t.Fatalf("expected nothing stored, got %v", keys)
	}
}
