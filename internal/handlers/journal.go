package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/AnshRaj112/inkwell-backend/internal/middleware"
	"github.com/AnshRaj112/inkwell-backend/internal/models"
	"github.com/AnshRaj112/inkwell-backend/internal/printvendor"
	"github.com/AnshRaj112/inkwell-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JournalAPI is the journal service as seen by the HTTP layer.
type JournalAPI interface {
	CreateJournal(ctx context.Context, userID uuid.UUID, in services.CreateJournalInput) (*models.JournalWithPage, error)
	CreatePage(ctx context.Context, userID uuid.UUID, in services.CreatePageInput) (*models.JournalWithPage, error)
	ListJournals(ctx context.Context, userID uuid.UUID) ([]models.JournalPreview, error)
	ListArchivedJournals(ctx context.Context, userID uuid.UUID) ([]models.JournalPreview, error)
	ListPages(ctx context.Context, userID, journalID uuid.UUID) (*models.JournalPages, error)
	GetPage(ctx context.Context, userID, pageID uuid.UUID) (*models.PageDetail, error)
	ToggleArchive(ctx context.Context, userID, journalID uuid.UUID) (bool, error)
	SearchJournals(ctx context.Context, userID uuid.UUID, title string) ([]models.JournalPreview, error)
	DeleteJournal(ctx context.Context, userID, journalID uuid.UUID) error
	DeletePage(ctx context.Context, userID, pageID uuid.UUID) error
}

type ExportAPI interface {
	GeneratePDF(ctx context.Context, userID, journalID uuid.UUID) (*services.ExportResult, error)
}

type PrintAPI interface {
	CreatePrintJob(ctx context.Context, userID, journalID uuid.UUID) (*printvendor.Response, error)
	ListPrintJobs(ctx context.Context, userID, journalID uuid.UUID) ([]models.PrintJobRecord, error)
}

// JournalHandler serves journals, pages and their exports.
type JournalHandler struct {
	journals       JournalAPI
	exports        ExportAPI
	prints         PrintAPI
	maxUploadBytes int64
	log            *zap.Logger
}

func NewJournalHandler(journals JournalAPI, exports ExportAPI, prints PrintAPI, maxUploadBytes int64, log *zap.Logger) *JournalHandler {
	return &JournalHandler{journals: journals, exports: exports, prints: prints, maxUploadBytes: maxUploadBytes, log: log}
}

// pathID parses a UUID URL parameter. A malformed id answers 404 since no
// such resource can exist.
func pathID(w http.ResponseWriter, r *http.Request, name, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respond(w, http.StatusNotFound, resource+" not found", nil)
		return uuid.Nil, false
	}
	return id, true
}

func currentUser(r *http.Request) uuid.UUID {
	id, _ := middleware.UserID(r.Context())
	return id
}

// CreateJournal handles POST /api/journals.
func (h *JournalHandler) CreateJournal(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r, h.maxUploadBytes)
	if err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	out, err := h.journals.CreateJournal(r.Context(), currentUser(r), services.CreateJournalInput{
		Title:        f.string("title"),
		Content:      f.raw("content"),
		ReminderType: f.first("reminder_type", "type"),
		ReminderTime: f.first("reminder_time", "time"),
		Images:       f.uploads("images"),
	})
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusCreated, "Journal created", out)
}

// CreatePage handles POST /api/pages.
func (h *JournalHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r, h.maxUploadBytes)
	if err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	journalID := f.uuid("journal_id")
	if journalID == uuid.Nil {
		respond(w, http.StatusUnprocessableEntity, "journal_id is required", nil)
		return
	}

	out, err := h.journals.CreatePage(r.Context(), currentUser(r), services.CreatePageInput{
		JournalID:    journalID,
		Content:      f.raw("content"),
		ReminderType: f.first("reminder_type", "type"),
		ReminderTime: f.first("reminder_time", "time"),
		Images:       f.uploads("images"),
	})
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusCreated, "Page created", out)
}

func (h *JournalHandler) ListJournals(w http.ResponseWriter, r *http.Request) {
	out, err := h.journals.ListJournals(r.Context(), currentUser(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Journals retrieved", out)
}

func (h *JournalHandler) ListArchivedJournals(w http.ResponseWriter, r *http.Request) {
	out, err := h.journals.ListArchivedJournals(r.Context(), currentUser(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Archived journals retrieved", out)
}

// ToggleArchive handles POST /api/journals/archive with a journal_id field.
func (h *JournalHandler) ToggleArchive(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r, h.maxUploadBytes)
	if err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	journalID := f.uuid("journal_id")
	if journalID == uuid.Nil {
		respond(w, http.StatusUnprocessableEntity, "journal_id is required", nil)
		return
	}

	archived, err := h.journals.ToggleArchive(r.Context(), currentUser(r), journalID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Archive state updated", map[string]bool{"archive": archived})
}

func (h *JournalHandler) SearchJournals(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		respond(w, http.StatusUnprocessableEntity, "title is required", nil)
		return
	}
	out, err := h.journals.SearchJournals(r.Context(), currentUser(r), title)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Journals retrieved", out)
}

func (h *JournalHandler) DeleteJournal(w http.ResponseWriter, r *http.Request) {
	journalID, ok := pathID(w, r, "journalID", "Journal")
	if !ok {
		return
	}
	if err := h.journals.DeleteJournal(r.Context(), currentUser(r), journalID); err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Journal deleted", nil)
}

// ListPages handles GET /api/pages?journal=<id>.
func (h *JournalHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	journalID, err := uuid.Parse(r.URL.Query().Get("journal"))
	if err != nil {
		respond(w, http.StatusNotFound, "Journal not found", nil)
		return
	}
	out, err := h.journals.ListPages(r.Context(), currentUser(r), journalID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Pages retrieved", out)
}

func (h *JournalHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pathID(w, r, "pageID", "Page")
	if !ok {
		return
	}
	out, err := h.journals.GetPage(r.Context(), currentUser(r), pageID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Page retrieved", out)
}

func (h *JournalHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pathID(w, r, "pageID", "Page")
	if !ok {
		return
	}
	if err := h.journals.DeletePage(r.Context(), currentUser(r), pageID); err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Page deleted", nil)
}

// GeneratePDF handles GET /api/journals/{journalID}/pdf.
func (h *JournalHandler) GeneratePDF(w http.ResponseWriter, r *http.Request) {
	journalID, ok := pathID(w, r, "journalID", "Journal")
	if !ok {
		return
	}
	out, err := h.exports.GeneratePDF(r.Context(), currentUser(r), journalID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "PDF generated", out)
}

// CreatePrintJob relays the vendor's reply body unchanged, vendor errors
// included.
func (h *JournalHandler) CreatePrintJob(w http.ResponseWriter, r *http.Request) {
	journalID, ok := pathID(w, r, "journalID", "Journal")
	if !ok {
		return
	}
	resp, err := h.prints.CreatePrintJob(r.Context(), currentUser(r), journalID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(resp.Body)
}

func (h *JournalHandler) ListPrintJobs(w http.ResponseWriter, r *http.Request) {
	journalID, ok := pathID(w, r, "journalID", "Journal")
	if !ok {
		return
	}
	out, err := h.prints.ListPrintJobs(r.Context(), currentUser(r), journalID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Print jobs retrieved", out)
}
