package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/AnshRaj112/inkwell-backend/internal/apperr"
	"github.com/AnshRaj112/inkwell-backend/internal/content"
	"github.com/AnshRaj112/inkwell-backend/internal/models"
	"github.com/AnshRaj112/inkwell-backend/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const filesBaseURL = "https://files.test/storage"

func newJournalService(t *testing.T) (*JournalService, *memStore, *storage.Memory) {
	t.Helper()
	store := newMemStore()
	files := storage.NewMemory(filesBaseURL)
	sources := fstest.MapFS{"tmp/photo.jpg": &fstest.MapFile{Data: []byte("jpeg")}}
	return NewJournalService(store, files, sources, nil, zap.NewNop()), store, files
}

func upload(name string, data []byte) *content.Upload {
	return &content.Upload{
		Filename:    name,
		ContentType: "image/png",
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func htmlContent(s string) json.RawMessage {
	raw, _ := json.Marshal(s)
	return raw
}

func createJournal(t *testing.T, svc *JournalService, userID uuid.UUID, title string) *models.JournalWithPage {
	t.Helper()
	out, err := svc.CreateJournal(context.Background(), userID, CreateJournalInput{
		Title:        title,
		Content:      htmlContent("<p>" + title + "</p>"),
		ReminderType: "daily",
		ReminderTime: "08:30",
	})
	if err != nil {
		t.Fatalf("create journal %q: %v", title, err)
	}
	return out
}

func TestCreateJournalInlineImage(t *testing.T) {
	svc, _, files := newJournalService(t)
	userID := uuid.New()

	out, err := svc.CreateJournal(context.Background(), userID, CreateJournalInput{
		Title:        "Trip",
		Content:      htmlContent("<p>Hi</p><img src='data:image/png;base64,AAAA'>"),
		ReminderType: "weekly",
		ReminderTime: "21:00",
		Images:       []*content.Upload{upload("file1.png", []byte("png"))},
	})
	if err != nil {
		t.Fatalf("create journal: %v", err)
	}

	if strings.Contains(out.Page.Content, "data:") {
		t.Fatalf("data url left in content: %q", out.Page.Content)
	}
	if len(out.Images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(out.Images))
	}
	img := out.Images[0]
	if !strings.HasPrefix(img.Path, "uploads/"+out.ID.String()+"/") || !strings.HasSuffix(img.Path, ".png") {
		t.Fatalf("unexpected image path %q", img.Path)
	}
	if !strings.Contains(out.Page.Content, "src='"+files.URL(img.Path)+"'") {
		t.Fatalf("content %q does not reference %q", out.Page.Content, files.URL(img.Path))
	}
	if data, ok := files.Get(img.Path); !ok || !bytes.Equal(data, []byte{0, 0, 0}) {
		t.Fatalf("decoded image not stored: %v %v", data, ok)
	}
	if img.PageID != out.Page.ID {
		t.Fatalf("image linked to %s, want page %s", img.PageID, out.Page.ID)
	}
	if out.Notification == nil || out.Notification.Type != models.ReminderWeekly || out.Notification.Time != "21:00" {
		t.Fatalf("unexpected notification %+v", out.Notification)
	}
}

func TestCreateJournalDeltaContent(t *testing.T) {
	svc, _, files := newJournalService(t)

	raw := json.RawMessage(`[
		{"insert":"Day one","attributes":{"h":1}},
		{"insert":{"_type":"image","source":"tmp/photo.jpg"}}
	]`)
	out, err := svc.CreateJournal(context.Background(), uuid.New(), CreateJournalInput{
		Title:        "Delta",
		Content:      raw,
		ReminderType: "monthly",
		ReminderTime: "07:05",
		Images:       []*content.Upload{upload("a.png", []byte("a"))},
	})
	if err != nil {
		t.Fatalf("create journal: %v", err)
	}

	var uploaded string
	for _, k := range files.Keys() {
		if strings.HasPrefix(k, "journal/") {
			uploaded = k
		}
	}
	if uploaded == "" {
		t.Fatalf("upload not stored under journal/: %v", files.Keys())
	}
	want := "<h1>Day one</h1><img src='" + files.URL(uploaded) + "'>"
	if out.Page.Content != want {
		t.Fatalf("content = %q, want %q", out.Page.Content, want)
	}
	if len(out.Images) != 1 || !strings.HasPrefix(out.Images[0].Path, "uploads/"+out.ID.String()+"/") {
		t.Fatalf("unexpected images %+v", out.Images)
	}
}

func TestCreateJournalValidation(t *testing.T) {
	svc, store, files := newJournalService(t)
	base := CreateJournalInput{Title: "T", Content: htmlContent("<p>x</p>"), ReminderType: "daily", ReminderTime: "10:00"}

	cases := []struct {
		name   string
		mutate func(*CreateJournalInput)
	}{
		{"missing title", func(in *CreateJournalInput) { in.Title = "  " }},
		{"missing content", func(in *CreateJournalInput) { in.Content = nil }},
		{"bad reminder type", func(in *CreateJournalInput) { in.ReminderType = "hourly" }},
		{"bad reminder time", func(in *CreateJournalInput) { in.ReminderTime = "24:00" }},
		{"content not text or delta", func(in *CreateJournalInput) { in.Content = json.RawMessage(`{"insert":"x"}`) }},
		{"malformed delta with files", func(in *CreateJournalInput) {
			in.Content = json.RawMessage(`[1]`)
			in.Images = []*content.Upload{upload("a.png", []byte("a"))}
		}},
		{"delta image without upload", func(in *CreateJournalInput) {
			in.Content = json.RawMessage(`[{"insert":{"_type":"image","source":"tmp/photo.jpg"}}]`)
		}},
		{"html upload", func(in *CreateJournalInput) {
			page := upload("evil.html", []byte("<html><script>alert(1)</script></html>"))
			page.ContentType = "text/html"
			in.Content = htmlContent(`<p>x</p><img src="x">`)
			in.Images = []*content.Upload{page}
		}},
	}
	for _, tc := range cases {
		in := base
		tc.mutate(&in)
		_, err := svc.CreateJournal(context.Background(), uuid.New(), in)
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
	if len(store.st.journals) != 0 || len(files.Keys()) != 0 {
		t.Fatalf("validation failures left state behind: %d journals, files %v", len(store.st.journals), files.Keys())
	}
}

func TestCreateJournalRollsBackOnPageFailure(t *testing.T) {
	svc, store, _ := newJournalService(t)
	boom := errors.New("insert page failed")
	store.failCreatePage = boom

	_, err := svc.CreateJournal(context.Background(), uuid.New(), CreateJournalInput{
		Title: "Lost", Content: htmlContent("<p>x</p>"), ReminderType: "daily", ReminderTime: "09:00",
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the page error, got %v", err)
	}
	if len(store.st.journals) != 0 || len(store.st.notifications) != 0 || len(store.st.pages) != 0 {
		t.Fatalf("rollback left journals=%d notifications=%d pages=%d",
			len(store.st.journals), len(store.st.notifications), len(store.st.pages))
	}
}

func TestCreatePageOwnership(t *testing.T) {
	svc, store, _ := newJournalService(t)
	owner := uuid.New()
	j := createJournal(t, svc, owner, "Mine")

	_, err := svc.CreatePage(context.Background(), uuid.New(), CreatePageInput{JournalID: j.ID, Content: htmlContent("<p>x</p>")})
	if !apperr.Is(err, apperr.KindAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if len(store.st.pages) != 1 {
		t.Fatalf("foreign page was created")
	}

	out, err := svc.CreatePage(context.Background(), owner, CreatePageInput{
		JournalID: j.ID,
		Content:   htmlContent("<img src='old.png'><img src='keep.png'>"),
		Images:    []*content.Upload{nil, upload("n.png", []byte("n"))},
	})
	if err != nil {
		t.Fatalf("create page: %v", err)
	}
	if out.Notification == nil || out.Notification.ID != j.Notification.ID {
		t.Fatalf("existing notification not returned: %+v", out.Notification)
	}
	if len(out.Images) != 0 || !strings.Contains(out.Page.Content, "src='old.png'") {
		t.Fatalf("absent first slot should stop pairing: %q %+v", out.Page.Content, out.Images)
	}
}

func TestToggleArchiveTwiceRestoresState(t *testing.T) {
	svc, _, _ := newJournalService(t)
	ctx := context.Background()
	userID := uuid.New()
	j := createJournal(t, svc, userID, "Toggle")

	archived, err := svc.ToggleArchive(ctx, userID, j.ID)
	if err != nil || !archived {
		t.Fatalf("first toggle = %v, %v", archived, err)
	}
	if list, _ := svc.ListArchivedJournals(ctx, userID); len(list) != 1 {
		t.Fatalf("archived list has %d journals", len(list))
	}
	archived, err = svc.ToggleArchive(ctx, userID, j.ID)
	if err != nil || archived {
		t.Fatalf("second toggle = %v, %v", archived, err)
	}
	if list, _ := svc.ListJournals(ctx, userID); len(list) != 1 || list[0].Archived {
		t.Fatalf("journal not restored to active list: %+v", list)
	}

	if _, err := svc.ToggleArchive(ctx, uuid.New(), j.ID); !apperr.Is(err, apperr.KindAccessDenied) {
		t.Fatalf("expected access denied for foreign toggle, got %v", err)
	}
}

func TestDeleteJournalNotOwnedChangesNothing(t *testing.T) {
	svc, store, _ := newJournalService(t)
	ctx := context.Background()
	owner := uuid.New()
	j := createJournal(t, svc, owner, "Keep")

	err := svc.DeleteJournal(ctx, uuid.New(), j.ID)
	if !apperr.Is(err, apperr.KindAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if store.st.journals[j.ID].DeletedAt != nil {
		t.Fatalf("journal was deleted by another user")
	}
	if err := svc.DeleteJournal(ctx, owner, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeletedJournalLeavesBothListings(t *testing.T) {
	svc, _, _ := newJournalService(t)
	ctx := context.Background()
	userID := uuid.New()
	active := createJournal(t, svc, userID, "Active")
	archived := createJournal(t, svc, userID, "Archived")
	if _, err := svc.ToggleArchive(ctx, userID, archived.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	for _, id := range []uuid.UUID{active.ID, archived.ID} {
		if err := svc.DeleteJournal(ctx, userID, id); err != nil {
			t.Fatalf("delete: %v", err)
		}
	}
	if list, _ := svc.ListJournals(ctx, userID); len(list) != 0 {
		t.Fatalf("active list still has %d journals", len(list))
	}
	if list, _ := svc.ListArchivedJournals(ctx, userID); len(list) != 0 {
		t.Fatalf("archived list still has %d journals", len(list))
	}
	if _, err := svc.ListPages(ctx, userID, active.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for deleted journal pages, got %v", err)
	}
}

func TestListingsAndSearch(t *testing.T) {
	svc, _, _ := newJournalService(t)
	ctx := context.Background()
	userID := uuid.New()
	first := createJournal(t, svc, userID, "Summer Trip")
	createJournal(t, svc, userID, "Groceries")
	createJournal(t, svc, uuid.New(), "Trip of someone else")

	if _, err := svc.CreatePage(ctx, userID, CreatePageInput{JournalID: first.ID, Content: htmlContent("<p>later</p>")}); err != nil {
		t.Fatalf("create page: %v", err)
	}

	list, err := svc.ListJournals(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Title != "Groceries" || list[1].Title != "Summer Trip" {
		t.Fatalf("unexpected listing order: %+v", list)
	}
	if list[1].FirstPage == nil || list[1].FirstPage.Content != "<p>Summer Trip</p>" {
		t.Fatalf("listing should carry the earliest page: %+v", list[1].FirstPage)
	}

	found, err := svc.SearchJournals(ctx, userID, "trip")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].ID != first.ID {
		t.Fatalf("unexpected search result: %+v", found)
	}

	pages, err := svc.ListPages(ctx, userID, first.ID)
	if err != nil {
		t.Fatalf("list pages: %v", err)
	}
	if len(pages.Pages) != 2 || pages.Pages[0].Content != "<p>later</p>" {
		t.Fatalf("pages not newest first: %+v", pages.Pages)
	}
	if _, err := svc.ListPages(ctx, uuid.New(), first.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for foreign journal, got %v", err)
	}
}

func TestGetAndDeletePage(t *testing.T) {
	svc, _, _ := newJournalService(t)
	ctx := context.Background()
	owner := uuid.New()
	j := createJournal(t, svc, owner, "Pages")

	detail, err := svc.GetPage(ctx, owner, j.Page.ID)
	if err != nil || detail.ID != j.Page.ID {
		t.Fatalf("get page: %+v %v", detail, err)
	}
	if _, err := svc.GetPage(ctx, uuid.New(), j.Page.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for foreign page, got %v", err)
	}
	if err := svc.DeletePage(ctx, uuid.New(), j.Page.ID); !apperr.Is(err, apperr.KindAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if err := svc.DeletePage(ctx, owner, j.Page.ID); err != nil {
		t.Fatalf("delete page: %v", err)
	}
	if _, err := svc.GetPage(ctx, owner, j.Page.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
