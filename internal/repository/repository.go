// Package repository holds the persistence interfaces the services depend on
// and their PostgreSQL implementation.
package repository

import (
	"context"
	"errors"

	"github.com/AnshRaj112/inkwell-backend/internal/models"
	"github.com/google/uuid"
)

var ErrUsernameTaken = errors.New("username is already taken")

// Journals covers journals, their notification, pages and page images.
// Lookups of missing rows return an apperr NotFound error.
type Journals interface {
	CreateJournal(ctx context.Context, userID uuid.UUID, title string) (*models.Journal, error)
	GetJournal(ctx context.Context, id uuid.UUID) (*models.Journal, error)
	ListJournals(ctx context.Context, userID uuid.UUID, archived bool) ([]models.JournalPreview, error)
	SearchJournals(ctx context.Context, userID uuid.UUID, title string) ([]models.JournalPreview, error)
	ToggleArchive(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteJournal(ctx context.Context, id uuid.UUID) error

	CreateNotification(ctx context.Context, journalID uuid.UUID, typ models.ReminderType, at string) (*models.Notification, error)
	GetNotification(ctx context.Context, journalID uuid.UUID) (*models.Notification, error)

	CreatePage(ctx context.Context, journalID uuid.UUID, content string) (*models.Page, error)
	GetPage(ctx context.Context, id uuid.UUID) (*models.Page, error)
	ListPages(ctx context.Context, journalID uuid.UUID) ([]models.Page, error)
	DeletePage(ctx context.Context, id uuid.UUID) error

	CreateImage(ctx context.Context, pageID uuid.UUID, path string) (*models.Image, error)
	ListImages(ctx context.Context, pageID uuid.UUID) ([]models.Image, error)
}

// Profiles covers the user-facing profile fields.
type Profiles interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdateUserName(ctx context.Context, userID uuid.UUID, name string) error
	SetAvatar(ctx context.Context, userID uuid.UUID, avatar string) error
	UpsertProfile(ctx context.Context, p *models.Profile) error
}

// Users covers account lookups used by signup and signin.
type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type Repository interface {
	Journals
	Profiles
	Users
}

// Store is a Repository that can run a function inside one transaction.
// fn's repository is bound to the transaction; a non-nil return rolls it back.
type Store interface {
	Repository
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
