package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/AnshRaj112/inkwell-backend/internal/content"
	"github.com/google/uuid"
)

// form is a request body read either as JSON or as multipart/url-encoded form.
type form struct {
	values map[string]json.RawMessage
	files  *multipart.Form
}

func isMultipart(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "multipart/form-data"
}

// parseForm reads the body; maxBytes bounds multipart uploads.
func parseForm(r *http.Request, maxBytes int64) (*form, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	f := &form{values: map[string]json.RawMessage{}}

	switch mt {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return nil, err
		}
		f.files = r.MultipartForm
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				f.values[k] = formValue(k, v[0])
			}
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		for k, v := range r.PostForm {
			if len(v) > 0 {
				f.values[k] = formValue(k, v[0])
			}
		}
	default:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &f.values); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

// formValue encodes a form field as JSON. A content field that is itself a
// JSON array is kept as an array so it reaches the delta formatter.
func formValue(key, v string) json.RawMessage {
	if key == "content" {
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") && json.Valid([]byte(trimmed)) {
			return json.RawMessage(trimmed)
		}
	}
	raw, _ := json.Marshal(v)
	return raw
}

func (f *form) raw(key string) json.RawMessage { return f.values[key] }

// string returns a field as text; numbers and booleans are returned as written.
func (f *form) string(key string) string {
	raw, ok := f.values[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

// first returns the first non-empty field among keys.
func (f *form) first(keys ...string) string {
	for _, k := range keys {
		if v := f.string(k); v != "" {
			return v
		}
	}
	return ""
}

func (f *form) uuid(key string) uuid.UUID {
	id, err := uuid.Parse(f.string(key))
	if err != nil {
		return uuid.Nil
	}
	return id
}

var indexedField = regexp.MustCompile(`^(.+)\[(\d+)\]$`)

// uploads returns the files of field in slot order. Files sent as field[N]
// land at index N with missing indexes left nil; field and field[] are
// appended in the order received.
func (f *form) uploads(field string) []*content.Upload {
	if f.files == nil {
		return nil
	}

	indexed := map[int]*multipart.FileHeader{}
	var appended []*multipart.FileHeader
	for key, headers := range f.files.File {
		if len(headers) == 0 {
			continue
		}
		switch {
		case key == field || key == field+"[]":
			appended = append(appended, headers...)
		default:
			m := indexedField.FindStringSubmatch(key)
			if m == nil || m[1] != field {
				continue
			}
			if n, err := strconv.Atoi(m[2]); err == nil && n < 100 {
				indexed[n] = headers[0]
			}
		}
	}

	var out []*content.Upload
	if len(indexed) > 0 {
		keys := make([]int, 0, len(indexed))
		for k := range indexed {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		out = make([]*content.Upload, keys[len(keys)-1]+1)
		for _, k := range keys {
			out[k] = uploadFromHeader(indexed[k])
		}
	}
	for _, h := range appended {
		out = append(out, uploadFromHeader(h))
	}
	return out
}

func (f *form) upload(field string) *content.Upload {
	if f.files == nil {
		return nil
	}
	headers := f.files.File[field]
	if len(headers) == 0 {
		return nil
	}
	return uploadFromHeader(headers[0])
}

func uploadFromHeader(h *multipart.FileHeader) *content.Upload {
	if h == nil || h.Size == 0 {
		return nil
	}
	return &content.Upload{
		Filename:    h.Filename,
		ContentType: h.Header.Get("Content-Type"),
		Open:        func() (io.ReadCloser, error) { return h.Open() },
	}
}
