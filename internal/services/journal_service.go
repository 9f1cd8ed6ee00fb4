package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"regexp"
	"strings"

	"github.com/AnshRaj112/inkwell-backend/internal/apperr"
	"github.com/AnshRaj112/inkwell-backend/internal/content"
	"github.com/AnshRaj112/inkwell-backend/internal/models"
	"github.com/AnshRaj112/inkwell-backend/internal/repository"
	"github.com/AnshRaj112/inkwell-backend/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxTitleLength = 255
	// delta uploads are stored here before the formatter pairs them
	deltaUploadFolder = "journal"
)

var reminderTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// CreateJournalInput is a new journal with its first page.
type CreateJournalInput struct {
	Title        string
	Content      json.RawMessage
	ReminderType string
	ReminderTime string
	Images       []*content.Upload
}

// CreatePageInput appends a page to an existing journal. The reminder fields
// are optional and only used when the journal has no notification yet.
type CreatePageInput struct {
	JournalID    uuid.UUID
	Content      json.RawMessage
	ReminderType string
	ReminderTime string
	Images       []*content.Upload
}

// JournalService assembles pages and answers journal queries. Every method
// takes the caller's user id; ownership is checked against it.
type JournalService struct {
	store     repository.Store
	files     storage.Storage
	formatter *content.Formatter
	rewriter  *content.Rewriter
	cache     *Cache
	log       *zap.Logger
}

// NewJournalService wires the content pipelines to files. sources resolves
// image operation sources in delta content; cache may be nil.
func NewJournalService(store repository.Store, files storage.Storage, sources fs.FS, cache *Cache, log *zap.Logger) *JournalService {
	return &JournalService{
		store:     store,
		files:     files,
		formatter: content.NewFormatter(files, sources),
		rewriter:  content.NewRewriter(files),
		cache:     cache,
		log:       log,
	}
}

func (in CreateJournalInput) validate() error {
	const op = "services.CreateJournal"
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return apperr.Validation(op, "The title field is required.")
	}
	if len(title) > maxTitleLength {
		return apperr.Validation(op, "The title may not be greater than 255 characters.")
	}
	if isEmptyContent(in.Content) {
		return apperr.Validation(op, "The content field is required.")
	}
	if !models.ReminderType(in.ReminderType).Valid() {
		return apperr.Validation(op, "The reminder type must be daily, weekly or monthly.")
	}
	if !reminderTimePattern.MatchString(in.ReminderTime) {
		return apperr.Validation(op, "The reminder time must match the format HH:MM.")
	}
	return nil
}

func (in CreatePageInput) validate() error {
	const op = "services.CreatePage"
	if in.JournalID == uuid.Nil {
		return apperr.Validation(op, "The journal id field is required.")
	}
	if isEmptyContent(in.Content) {
		return apperr.Validation(op, "The content field is required.")
	}
	if in.ReminderType == "" && in.ReminderTime == "" {
		return nil
	}
	if !models.ReminderType(in.ReminderType).Valid() {
		return apperr.Validation(op, "The reminder type must be daily, weekly or monthly.")
	}
	if !reminderTimePattern.MatchString(in.ReminderTime) {
		return apperr.Validation(op, "The reminder time must match the format HH:MM.")
	}
	return nil
}

func isEmptyContent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte(`""`))
}

// CreateJournal creates a journal, its notification and its first page in one
// transaction.
func (s *JournalService) CreateJournal(ctx context.Context, userID uuid.UUID, in CreateJournalInput) (*models.JournalWithPage, error) {
	const op = "services.CreateJournal"
	if err := in.validate(); err != nil {
		return nil, err
	}

	var out *models.JournalWithPage
	err := s.store.WithTx(ctx, func(tx repository.Repository) error {
		journal, err := tx.CreateJournal(ctx, userID, strings.TrimSpace(in.Title))
		if err != nil {
			return err
		}
		notification, err := tx.CreateNotification(ctx, journal.ID, models.ReminderType(in.ReminderType), in.ReminderTime)
		if err != nil {
			return err
		}
		out, err = s.assemble(ctx, tx, journal, in.Content, in.Images)
		if err != nil {
			return err
		}
		out.Notification = notification
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.invalidateListings(ctx, userID)
	return out, nil
}

// CreatePage appends a page to one of the caller's journals.
func (s *JournalService) CreatePage(ctx context.Context, userID uuid.UUID, in CreatePageInput) (*models.JournalWithPage, error) {
	const op = "services.CreatePage"
	if err := in.validate(); err != nil {
		return nil, err
	}

	var out *models.JournalWithPage
	err := s.store.WithTx(ctx, func(tx repository.Repository) error {
		journal, err := tx.GetJournal(ctx, in.JournalID)
		if err != nil {
			return err
		}
		if journal.UserID != userID {
			return apperr.AccessDenied(op)
		}

		notification, err := tx.GetNotification(ctx, journal.ID)
		if err != nil {
			return err
		}
		if notification == nil && in.ReminderType != "" {
			notification, err = tx.CreateNotification(ctx, journal.ID, models.ReminderType(in.ReminderType), in.ReminderTime)
			if err != nil {
				return err
			}
		}

		out, err = s.assemble(ctx, tx, journal, in.Content, in.Images)
		if err != nil {
			return err
		}
		out.Notification = notification
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.invalidateListings(ctx, userID)
	return out, nil
}

// assemble renders raw through the matching pipeline and creates the page and
// its image rows on tx.
func (s *JournalService) assemble(ctx context.Context, tx repository.Repository, journal *models.Journal, raw json.RawMessage, uploads []*content.Upload) (*models.JournalWithPage, error) {
	res, err := s.render(ctx, journal.ID.String(), raw, uploads)
	if err != nil {
		return nil, err
	}
	for _, d := range res.Diagnostics {
		s.log.Debug("content diagnostic",
			zap.String("journal_id", journal.ID.String()),
			zap.Int("offset", d.Offset),
			zap.String("message", d.Message),
		)
	}

	page, err := tx.CreatePage(ctx, journal.ID, res.HTML)
	if err != nil {
		return nil, err
	}

	images := make([]models.Image, 0, len(res.ImagePaths))
	for _, p := range res.ImagePaths {
		img, err := tx.CreateImage(ctx, page.ID, p)
		if err != nil {
			return nil, err
		}
		img.URL = s.files.URL(img.Path)
		images = append(images, *img)
	}

	return &models.JournalWithPage{Journal: *journal, Page: page, Images: images}, nil
}

// render picks the pipeline by content shape: a JSON array is a delta for the
// formatter, a JSON string is HTML for the rewriter.
func (s *JournalService) render(ctx context.Context, journalID string, raw json.RawMessage, uploads []*content.Upload) (*content.Result, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, apperr.Validation("services.render", "Invalid content format")
	}

	switch trimmed[0] {
	case '[':
		present := 0
		for _, u := range uploads {
			if u != nil {
				present++
			}
		}
		if err := content.CheckDelta(trimmed, present); err != nil {
			return nil, err
		}

		var uploaded []string
		for _, u := range uploads {
			if u == nil {
				continue
			}
			stored, err := content.StoreUpload(ctx, s.files, u, deltaUploadFolder)
			if err != nil {
				return nil, err
			}
			uploaded = append(uploaded, stored)
		}
		return s.formatter.Format(ctx, trimmed, journalID, uploaded)

	case '"':
		var src string
		if err := json.Unmarshal(trimmed, &src); err != nil {
			return nil, apperr.Validation("services.render", "Invalid content format")
		}
		if content.HasInlineImages(src) {
			return s.rewriter.RewriteInline(ctx, src, journalID)
		}
		return s.rewriter.RewriteUploads(ctx, src, journalID, uploads)
	}

	return nil, apperr.Validation("services.render", "Invalid content format")
}

func listingKey(userID uuid.UUID, archived bool) string {
	if archived {
		return CacheKey("journals:archived", userID.String())
	}
	return CacheKey("journals", userID.String())
}

func (s *JournalService) invalidateListings(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Delete(ctx, listingKey(userID, false), listingKey(userID, true)); err != nil {
		s.log.Warn("failed to invalidate journal listings", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (s *JournalService) listJournals(ctx context.Context, op string, userID uuid.UUID, archived bool) ([]models.JournalPreview, error) {
	key := listingKey(userID, archived)
	var cached []models.JournalPreview
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log.Warn("journal listing cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	journals, err := s.store.ListJournals(ctx, userID, archived)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if err := s.cache.Set(ctx, key, journals); err != nil {
		s.log.Warn("journal listing cache write failed", zap.String("key", key), zap.Error(err))
	}
	return journals, nil
}

// ListJournals returns the caller's non-archived journals, newest first, each
// with its earliest page.
func (s *JournalService) ListJournals(ctx context.Context, userID uuid.UUID) ([]models.JournalPreview, error) {
	return s.listJournals(ctx, "services.ListJournals", userID, false)
}

// ListArchivedJournals is ListJournals for archived journals.
func (s *JournalService) ListArchivedJournals(ctx context.Context, userID uuid.UUID) ([]models.JournalPreview, error) {
	return s.listJournals(ctx, "services.ListArchivedJournals", userID, true)
}

// ownedJournal loads a journal and hides other users' journals as not found.
func (s *JournalService) ownedJournal(ctx context.Context, userID, journalID uuid.UUID) (*models.Journal, error) {
	journal, err := s.store.GetJournal(ctx, journalID)
	if err != nil {
		return nil, err
	}
	if journal.UserID != userID {
		return nil, notFoundJournal("services.ownedJournal")
	}
	return journal, nil
}

// notFoundJournal hides other users' journals from reads.
func notFoundJournal(op string) error {
	return apperr.NotFound(op, "Journal not found")
}

// ListPages returns one of the caller's journals with all pages, newest first.
func (s *JournalService) ListPages(ctx context.Context, userID, journalID uuid.UUID) (*models.JournalPages, error) {
	const op = "services.ListPages"
	journal, err := s.ownedJournal(ctx, userID, journalID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	pages, err := s.store.ListPages(ctx, journal.ID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	return &models.JournalPages{Journal: *journal, Pages: pages}, nil
}

// GetPage returns a page of one of the caller's journals with its images.
func (s *JournalService) GetPage(ctx context.Context, userID, pageID uuid.UUID) (*models.PageDetail, error) {
	const op = "services.GetPage"
	page, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if _, err := s.ownedJournal(ctx, userID, page.JournalID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NotFound(op, "Journal page not found")
		}
		return nil, s.fail(op, err)
	}
	images, err := s.store.ListImages(ctx, page.ID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	for i := range images {
		images[i].URL = s.files.URL(images[i].Path)
	}
	return &models.PageDetail{Page: *page, Images: images}, nil
}

// ToggleArchive flips the archived flag of one of the caller's journals and
// returns the new state.
func (s *JournalService) ToggleArchive(ctx context.Context, userID, journalID uuid.UUID) (bool, error) {
	const op = "services.ToggleArchive"
	journal, err := s.store.GetJournal(ctx, journalID)
	if err != nil {
		return false, s.fail(op, err)
	}
	if journal.UserID != userID {
		return false, apperr.AccessDenied(op)
	}
	archived, err := s.store.ToggleArchive(ctx, journal.ID)
	if err != nil {
		return false, s.fail(op, err)
	}
	s.invalidateListings(ctx, userID)
	return archived, nil
}

// SearchJournals matches title case-insensitively as a substring of the
// caller's non-archived journal titles.
func (s *JournalService) SearchJournals(ctx context.Context, userID uuid.UUID, title string) ([]models.JournalPreview, error) {
	journals, err := s.store.SearchJournals(ctx, userID, strings.TrimSpace(title))
	if err != nil {
		return nil, s.fail("services.SearchJournals", err)
	}
	return journals, nil
}

func (s *JournalService) DeleteJournal(ctx context.Context, userID, journalID uuid.UUID) error {
	const op = "services.DeleteJournal"
	journal, err := s.store.GetJournal(ctx, journalID)
	if err != nil {
		return s.fail(op, err)
	}
	if journal.UserID != userID {
		return apperr.AccessDenied(op)
	}
	if err := s.store.DeleteJournal(ctx, journal.ID); err != nil {
		return s.fail(op, err)
	}
	s.invalidateListings(ctx, userID)
	return nil
}

func (s *JournalService) DeletePage(ctx context.Context, userID, pageID uuid.UUID) error {
	const op = "services.DeletePage"
	page, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return s.fail(op, err)
	}
	journal, err := s.store.GetJournal(ctx, page.JournalID)
	if err != nil {
		return s.fail(op, err)
	}
	if journal.UserID != userID {
		return apperr.AccessDenied(op)
	}
	if err := s.store.DeletePage(ctx, page.ID); err != nil {
		return s.fail(op, err)
	}
	s.invalidateListings(ctx, userID)
	return nil
}

// fail logs unexpected errors once and returns err unchanged.
func (s *JournalService) fail(op string, err error) error {
	return logUnexpected(s.log, op, err)
}

func logUnexpected(log *zap.Logger, op string, err error) error {
	if apperr.KindOf(err) != apperr.KindUnexpected {
		return err
	}
	log.Error("operation failed", zap.String("op", op), zap.Error(err))
	return err
}
