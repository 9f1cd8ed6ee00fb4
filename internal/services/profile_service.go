package services

import (
	"context"
	"strings"
	"time"

	"github.com/AnshRaj112/inkwell-backend/internal/apperr"
	"github.com/AnshRaj112/inkwell-backend/internal/content"
	"github.com/AnshRaj112/inkwell-backend/internal/models"
	"github.com/AnshRaj112/inkwell-backend/internal/repository"
	"github.com/AnshRaj112/inkwell-backend/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var avatarTypes = map[string]bool{
	"image/jpeg": true, "image/png": true, "image/gif": true, "image/webp": true,
}

// UpdateProfileInput mirrors the profile form. Avatar is optional.
type UpdateProfileInput struct {
	Name        string
	Gender      string
	Country     string
	DateOfBirth string // YYYY-MM-DD
	Avatar      *content.Upload
}

type ProfileService struct {
	store repository.Store
	files storage.Storage
	log   *zap.Logger
}

func NewProfileService(store repository.Store, files storage.Storage, log *zap.Logger) *ProfileService {
	return &ProfileService{store: store, files: files, log: log}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, logUnexpected(s.log, "services.GetProfile", err)
	}
	p.Avatar = s.files.URL(p.Avatar)
	return p, nil
}

// UpdateProfile stores a new avatar first, then updates the user and profile
// rows together. The replaced avatar is removed only after the commit.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*models.Profile, error) {
	const op = "services.UpdateProfile"

	name := strings.TrimSpace(in.Name)
	country := strings.TrimSpace(in.Country)
	gender := models.Gender(strings.ToLower(strings.TrimSpace(in.Gender)))
	switch {
	case name == "":
		return nil, apperr.Validation(op, "The name field is required.")
	case !gender.Valid():
		return nil, apperr.Validation(op, "Please select a valid gender (male, female, or others).")
	case country == "":
		return nil, apperr.Validation(op, "The country field is required.")
	}
	dob, err := time.Parse(time.DateOnly, strings.TrimSpace(in.DateOfBirth))
	if err != nil {
		return nil, apperr.Validation(op, "Please enter a valid date for the date of birth.")
	}
	if in.Avatar != nil && !avatarTypes[strings.ToLower(in.Avatar.ContentType)] {
		return nil, apperr.Validation(op, "The avatar must be a file of type: jpeg, png, jpg, gif, webp.")
	}

	current, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, logUnexpected(s.log, op, err)
	}

	var newAvatar string
	if in.Avatar != nil {
		newAvatar, err = content.StoreUpload(ctx, s.files, in.Avatar, "user/"+userID.String())
		if err != nil {
			return nil, logUnexpected(s.log, op, err)
		}
	}

	err = s.store.WithTx(ctx, func(tx repository.Repository) error {
		if err := tx.UpdateUserName(ctx, userID, name); err != nil {
			return err
		}
		if newAvatar != "" {
			if err := tx.SetAvatar(ctx, userID, newAvatar); err != nil {
				return err
			}
		}
		return tx.UpsertProfile(ctx, &models.Profile{UserID: userID, Gender: gender, Country: country, DateOfBirth: &dob})
	})
	if err != nil {
		if newAvatar != "" {
			s.removeFile(ctx, newAvatar)
		}
		return nil, logUnexpected(s.log, op, err)
	}

	if newAvatar != "" && current.Avatar != "" && current.Avatar != newAvatar {
		s.removeFile(ctx, current.Avatar)
	}
	return s.GetProfile(ctx, userID)
}

func (s *ProfileService) removeFile(ctx context.Context, p string) {
	if err := s.files.Delete(ctx, p); err != nil {
		s.log.Warn("failed to remove avatar", zap.String("path", p), zap.Error(err))
	}
}
