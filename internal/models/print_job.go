package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PrintJobRecord is stored in MongoDB for every submission to the print vendor.
type PrintJobRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	JournalID    string             `bson:"journal_id" json:"journal_id"`
	UserID       string             `bson:"user_id" json:"user_id"`
	CoverURL     string             `bson:"cover_url" json:"cover_url"`
	InteriorURL  string             `bson:"interior_url" json:"interior_url"`
	TotalPages   int                `bson:"total_pages" json:"total_pages"`
	VendorStatus int                `bson:"vendor_status" json:"vendor_status"`
	Request      string             `bson:"request" json:"-"`
	Response     string             `bson:"response" json:"-"`
}
