package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/AnshRaj112/inkwell-backend/internal/models"
	"github.com/AnshRaj112/inkwell-backend/internal/pdf"
	"github.com/AnshRaj112/inkwell-backend/internal/repository"
	"github.com/AnshRaj112/inkwell-backend/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const pdfFolder = "journal_pdfs"

// ExportResult locates the stored interior and cover files.
type ExportResult struct {
	Journal    *models.Journal `json:"-"`
	CoverURL   string          `json:"cover_url"`
	PDFURL     string          `json:"pdf_url"`
	TotalPages int             `json:"total_pages"`
}

// ExportService renders a journal to PDF and stores the files.
type ExportService struct {
	store    repository.Journals
	files    storage.Storage
	renderer *pdf.Renderer
	log      *zap.Logger
}

func NewExportService(store repository.Journals, files storage.Storage, renderer *pdf.Renderer, log *zap.Logger) *ExportService {
	return &ExportService{store: store, files: files, renderer: renderer, log: log}
}

// GeneratePDF renders the caller's journal, oldest page first, and stores the
// interior at journal_pdfs/<id>.pdf and the cover at journal_pdfs/<id>_cover.pdf.
func (s *ExportService) GeneratePDF(ctx context.Context, userID, journalID uuid.UUID) (*ExportResult, error) {
	const op = "services.GeneratePDF"

	journal, err := s.store.GetJournal(ctx, journalID)
	if err != nil {
		return nil, logUnexpected(s.log, op, err)
	}
	if journal.UserID != userID {
		return nil, logUnexpected(s.log, op, notFoundJournal(op))
	}
	pages, err := s.store.ListPages(ctx, journal.ID)
	if err != nil {
		return nil, logUnexpected(s.log, op, err)
	}

	doc := pdf.Journal{Title: journal.Title}
	for i := len(pages) - 1; i >= 0; i-- {
		doc.Pages = append(doc.Pages, pdf.Page{CreatedAt: pages[i].CreatedAt, HTML: pages[i].Content})
	}

	interior, total, err := s.renderer.Interior(ctx, doc)
	if err != nil {
		return nil, logUnexpected(s.log, op, err)
	}
	cover, err := s.renderer.Cover(ctx, journal.Title)
	if err != nil {
		return nil, logUnexpected(s.log, op, err)
	}

	interiorPath, err := s.files.Put(ctx, fmt.Sprintf("%s/%s.pdf", pdfFolder, journal.ID), bytes.NewReader(interior), "application/pdf")
	if err != nil {
		return nil, logUnexpected(s.log, op, err)
	}
	coverPath, err := s.files.Put(ctx, fmt.Sprintf("%s/%s_cover.pdf", pdfFolder, journal.ID), bytes.NewReader(cover), "application/pdf")
	if err != nil {
		return nil, logUnexpected(s.log, op, err)
	}

	s.log.Info("journal exported",
		zap.String("journal_id", journal.ID.String()),
		zap.Int("total_pages", total),
	)
	return &ExportResult{
		Journal:    journal,
		CoverURL:   s.files.URL(coverPath),
		PDFURL:     s.files.URL(interiorPath),
		TotalPages: total,
	}, nil
}
