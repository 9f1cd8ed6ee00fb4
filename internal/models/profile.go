package models

import (
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOthers Gender = "others"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOthers:
		return true
	}
	return false
}

// Profile is attached 1:1 to a user
type Profile struct {
	UserID      uuid.UUID  `json:"-"`
	Name        string     `json:"name"`
	Avatar      string     `json:"avatar"`
	Gender      Gender     `json:"gender"`
	Country     string     `json:"country"`
	DateOfBirth *time.Time `json:"date_of_birth"`
}
