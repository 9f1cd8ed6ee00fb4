package services

import (
	"context"
	"encoding/json"

	"github.com/AnshRaj112/inkwell-backend/internal/models"
	"github.com/AnshRaj112/inkwell-backend/internal/printvendor"
	"github.com/AnshRaj112/inkwell-backend/internal/repository"
	"github.com/AnshRaj112/inkwell-backend/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PrintVendor submits print jobs.
type PrintVendor interface {
	CreatePrintJob(ctx context.Context, job printvendor.PrintJob) (*printvendor.Response, error)
}

// PrintService exports a journal and submits it for printing. Submissions
// are recorded when a PrintJobs store is configured.
type PrintService struct {
	exports  *ExportService
	journals repository.Journals
	vendor   PrintVendor
	template printvendor.Template
	records  repository.PrintJobs
	sealer   *utils.Sealer
	log      *zap.Logger
}

func NewPrintService(exports *ExportService, journals repository.Journals, vendor PrintVendor, tpl printvendor.Template, records repository.PrintJobs, log *zap.Logger) *PrintService {
	return &PrintService{exports: exports, journals: journals, vendor: vendor, template: tpl, records: records, log: log}
}

// SealRecords encrypts the stored request and response bodies, which carry
// the shipping address.
func (s *PrintService) SealRecords(sealer *utils.Sealer) { s.sealer = sealer }

// CreatePrintJob returns the vendor's reply verbatim, including vendor-side
// errors.
func (s *PrintService) CreatePrintJob(ctx context.Context, userID, journalID uuid.UUID) (*printvendor.Response, error) {
	const op = "services.CreatePrintJob"

	export, err := s.exports.GeneratePDF(ctx, userID, journalID)
	if err != nil {
		return nil, err
	}

	job := printvendor.NewPrintJob(s.template, export.Journal.Title, export.CoverURL, export.PDFURL)
	resp, err := s.vendor.CreatePrintJob(ctx, job)
	if err != nil {
		return nil, logUnexpected(s.log, op, err)
	}

	s.log.Info("print job submitted",
		zap.String("journal_id", journalID.String()),
		zap.Int("vendor_status", resp.Status),
	)
	s.record(ctx, userID, journalID, export, job, resp)
	return resp, nil
}

func (s *PrintService) record(ctx context.Context, userID, journalID uuid.UUID, export *ExportResult, job printvendor.PrintJob, resp *printvendor.Response) {
	if s.records == nil {
		return
	}
	raw, _ := json.Marshal(job)
	request, response := string(raw), string(resp.Body)
	if s.sealer != nil {
		var err error
		if request, err = s.sealer.Seal(request); err == nil {
			response, err = s.sealer.Seal(response)
		}
		if err != nil {
			s.log.Warn("failed to seal print job record", zap.Error(err))
			return
		}
	}
	rec := &models.PrintJobRecord{
		JournalID:    journalID.String(),
		UserID:       userID.String(),
		CoverURL:     export.CoverURL,
		InteriorURL:  export.PDFURL,
		TotalPages:   export.TotalPages,
		VendorStatus: resp.Status,
		Request:      request,
		Response:     response,
	}
	if err := s.records.RecordPrintJob(ctx, rec); err != nil {
		s.log.Warn("failed to record print job", zap.String("journal_id", rec.JournalID), zap.Error(err))
	}
}

// ListPrintJobs returns the recorded submissions of one of the caller's journals.
func (s *PrintService) ListPrintJobs(ctx context.Context, userID, journalID uuid.UUID) ([]models.PrintJobRecord, error) {
	const op = "services.ListPrintJobs"
	journal, err := s.journals.GetJournal(ctx, journalID)
	if err != nil {
		return nil, logUnexpected(s.log, op, err)
	}
	if journal.UserID != userID {
		return nil, notFoundJournal(op)
	}
	if s.records == nil {
		return []models.PrintJobRecord{}, nil
	}
	records, err := s.records.ListPrintJobs(ctx, journal.ID.String())
	if err != nil {
		return nil, logUnexpected(s.log, op, err)
	}
	return records, nil
}
