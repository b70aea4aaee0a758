package models

import (
	"time"

	"github.com/dmitrijs2005/docuvault/internal/timex"
)

// User is a registered account holder. Email is stored normalised
// (trimmed, lower-case) and never changes after registration.
type User struct {
	ID            string     `json:"id"`
	FullName      string     `json:"fullName"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	NationalID    string     `json:"aadhaarNumber"`
	Address       string     `json:"address"`
	DateOfBirth   timex.Date `json:"dateOfBirth"`
	PasswordHash  string     `json:"-"`
	EmailVerified bool       `json:"emailVerified"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
