package models

import (
	"time"

	"github.com/google/uuid"
)

// Journal is a named collection of pages owned by one user
type Journal struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Title     string     `json:"title"`
	Archived  bool       `json:"archive"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// Page is one unit of journal content. Content is immutable once created.
type Page struct {
	ID        uuid.UUID `json:"id"`
	JournalID uuid.UUID `json:"journal_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Image links a stored file to the page whose content references it
type Image struct {
	ID     uuid.UUID `json:"id"`
	PageID uuid.UUID `json:"journal_page_id"`
	Path   string    `json:"-"`
	URL    string    `json:"url"`
}

// JournalPreview is a listing row: the journal plus its earliest page.
type JournalPreview struct {
	Journal
	FirstPage *Page `json:"first_page"`
}

// JournalPages is a journal with all of its pages, newest first.
type JournalPages struct {
	Journal
	Pages []Page `json:"journal_pages"`
}

// JournalWithPage is returned after content submission.
type JournalWithPage struct {
	Journal
	Notification *Notification `json:"journal_notification"`
	Page         *Page         `json:"journal_page"`
	Images       []Image       `json:"images"`
}

// PageDetail is a single page with the images its content references.
type PageDetail struct {
	Page
	Images []Image `json:"images"`
}
