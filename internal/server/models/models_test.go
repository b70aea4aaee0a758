package models

import (
	"testing"

	"github.com/dmitrijs2005/docuvault/internal/timex"
	"github.com/stretchr/testify/assert"
)

func TestShareLink_Expired(t *testing.T) {
	tests := []struct {
		name   string
		expiry timex.Date
		today  timex.Date
		want   bool
	}{
		{"no expiry", "", "2030-01-01", false},
		{"before expiry", "2025-06-30", "2025-06-01", false},
		{"on expiry day", "2025-06-30", "2025-06-30", false},
		{"day after", "2025-06-30", "2025-07-01", true},
		{"year boundary", "2024-12-31", "2025-01-01", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &ShareLink{ExpiryDate: tt.expiry}
			assert.Equal(t, tt.want, s.Expired(tt.today))
		})
	}
}

func TestDocumentType_Valid(t *testing.T) {
	for _, dt := range DocumentTypes {
		assert.True(t, dt.Valid(), dt)
	}
	assert.False(t, DocumentType("invoice").Valid())
	assert.False(t, DocumentType("").Valid())
}
