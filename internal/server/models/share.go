package models

import (
	"time"

	"github.com/dmitrijs2005/docuvault/internal/timex"
)

type ShareStatus string

const (
	ShareStatusActive  ShareStatus = "active"
	ShareStatusRevoked ShareStatus = "revoked"
)

// ShareLink grants a named recipient time-boxed, flag-gated access to one
// document through Token. Document name, path and URL are snapshots taken at
// issue time, so deleting the document later does not break the link.
type ShareLink struct {
	ID             string      `json:"id"`
	Token          string      `json:"token"`
	OwnerID        string      `json:"ownerId"`
	DocumentID     string      `json:"documentId"`
	DocumentName   string      `json:"documentName"`
	StoragePath    string      `json:"storagePath"`
	DownloadURL    *string     `json:"downloadURL"`
	RecipientEmail string      `json:"recipientEmail"`
	RecipientName  string      `json:"recipientName"`
	Message        string      `json:"message"`
	ExpiryDate     timex.Date  `json:"expiryDate"`
	AllowView      bool        `json:"allowView"`
	AllowDownload  bool        `json:"allowDownload"`
	Status         ShareStatus `json:"status"`
	AccessCount    int64       `json:"accessCount"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// Expired reports whether the link is past its expiry date as of today
// (YYYY-MM-DD). The expiry date itself is still valid. A link without an
// expiry date never expires.
func (s *ShareLink) Expired(today timex.Date) bool {
	if s.ExpiryDate.IsZero() {
		return false
	}
	return today.After(s.ExpiryDate)
}
