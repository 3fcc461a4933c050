package model

import (
	"fmt"
	"regexp"
	"time"
)

// Package model contains pure domain types with no framework or
// persistence dependencies. They are shared across the HTTP, service,
// filler and storage layers.

// ArtifactKind identifies which of the two generated documents a file,
// token or URL refers to.
type ArtifactKind string

const (
	// ArtifactPDF is the filled CERFA 2031 form document.
	ArtifactPDF ArtifactKind = "pdf"
	// ArtifactExcel is the filled LMNP spreadsheet.
	ArtifactExcel ArtifactKind = "excel"
)

// ParseArtifactKind maps a URL path segment to an ArtifactKind.
func ParseArtifactKind(s string) (ArtifactKind, error) {
	switch ArtifactKind(s) {
	case ArtifactPDF:
		return ArtifactPDF, nil
	case ArtifactExcel:
		return ArtifactExcel, nil
	}
	return "", fmt.Errorf("unknown artifact kind %q", s)
}

// FileName returns the deterministic output filename for a declaration.
// The prefixes and extensions are fixed by the downstream consumers of the
// generated documents.
func (k ArtifactKind) FileName(declarationID string) string {
	switch k {
	case ArtifactPDF:
		return "cerfa-2031-" + declarationID + ".pdf"
	case ArtifactExcel:
		return "lmnp-" + declarationID + ".xlsx"
	}
	return ""
}

// ContentType returns the MIME type served on download.
func (k ArtifactKind) ContentType() string {
	switch k {
	case ArtifactPDF:
		return "application/pdf"
	case ArtifactExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// GenerationRequest is the inbound payload of the generate endpoint.
type GenerationRequest struct {
	DeclarationID string         `json:"declarationId"`
	Data          map[string]any `json:"data"`
}

// GeneratedArtifact describes one produced file. It is created by a filler
// and never mutated afterwards; the reaper deletes the underlying object
// after the retention window.
type GeneratedArtifact struct {
	Kind      ArtifactKind `json:"kind"`
	Key       string       `json:"key"`
	Size      int64        `json:"size"`
	CreatedAt time.Time    `json:"created_at"`
}

// DownloadToken ties an opaque token to a stored artifact until ExpiresAt.
type DownloadToken struct {
	Token     string       `json:"token"`
	Kind      ArtifactKind `json:"kind"`
	Key       string       `json:"key"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// declarationIDPattern restricts declaration IDs to a filesystem- and
// URL-safe token. The ID is used verbatim in output paths and download
// URLs, so anything else would open path traversal.
var declarationIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// ValidDeclarationID reports whether id is safe to use as a path and URL
// segment.
func ValidDeclarationID(id string) bool {
	return declarationIDPattern.MatchString(id)
}
