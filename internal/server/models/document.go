// Package models defines server-side data models persisted in the database.
package models

import "time"

// DocumentType classifies an uploaded file. It is also the third segment of
// the storage path users/<owner>/<type>/<name>.
type DocumentType string

const (
	DocumentTypeMarksheet   DocumentType = "marksheet"
	DocumentTypePANCard     DocumentType = "pancard"
	DocumentTypePassport    DocumentType = "passport"
	DocumentTypeCertificate DocumentType = "certificate"
	DocumentTypeMedical     DocumentType = "medical"
	DocumentTypeOther       DocumentType = "other"
)

// DocumentTypes lists every accepted type in display order.
var DocumentTypes = []DocumentType{
	DocumentTypeMarksheet,
	DocumentTypePANCard,
	DocumentTypePassport,
	DocumentTypeCertificate,
	DocumentTypeMedical,
	DocumentTypeOther,
}

// Valid reports whether t is one of DocumentTypes.
func (t DocumentType) Valid() bool {
	for _, v := range DocumentTypes {
		if t == v {
			return true
		}
	}
	return false
}

const (
	DocumentStatusUploaded = "uploaded"
	DocumentStatusVerified = "verified"
)

// Document is the metadata record of one stored file.
//
// For records synthesised from a storage scan (no metadata row exists) ID
// equals StoragePath.
type Document struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"ownerId"`
	Name        string       `json:"name"`
	Type        DocumentType `json:"type"`
	Size        int64        `json:"size"`
	ContentType string       `json:"contentType,omitempty"`
	StoragePath string       `json:"storagePath"`
	DownloadURL string       `json:"downloadURL,omitempty"`
	Status      string       `json:"status"`
	UploadDate  time.Time    `json:"uploadDate"`
}

// DocumentStats summarises an owner's vault.
type DocumentStats struct {
	TotalDocuments    int   `json:"totalDocuments"`
	VerifiedDocuments int   `json:"verifiedDocuments"`
	SharedDocuments   int   `json:"sharedDocuments"`
	StorageUsedBytes  int64 `json:"storageUsedBytes"`
}
