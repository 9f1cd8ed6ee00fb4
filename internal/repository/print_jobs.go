package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/AnshRaj112/inkwell-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const printJobsCollection = "print_jobs"

// PrintJobs is the audit log of print-vendor submissions.
type PrintJobs interface {
	RecordPrintJob(ctx context.Context, rec *models.PrintJobRecord) error
	ListPrintJobs(ctx context.Context, journalID string) ([]models.PrintJobRecord, error)
}

// MongoPrintJobs stores print job records in MongoDB.
type MongoPrintJobs struct {
	coll *mongo.Collection
}

func NewMongoPrintJobs(db *mongo.Database) *MongoPrintJobs {
	return &MongoPrintJobs{coll: db.Collection(printJobsCollection)}
}

// EnsureIndexes creates the journal lookup index.
func (m *MongoPrintJobs) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "journal_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create print job index: %w", err)
	}
	return nil
}

func (m *MongoPrintJobs) RecordPrintJob(ctx context.Context, rec *models.PrintJobRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := m.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert print job: %w", err)
	}
	return nil
}

// ListPrintJobs returns a journal's submissions, newest first.
func (m *MongoPrintJobs) ListPrintJobs(ctx context.Context, journalID string) ([]models.PrintJobRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(100)
	cursor, err := m.coll.Find(ctx, bson.M{"journal_id": journalID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find print jobs: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.PrintJobRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode print jobs: %w", err)
	}
	return records, nil
}
