package filler

import (
	"context"
	"errors"

	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/model"
)

// Package filler produces the two declaration artifacts by writing the
// caller's data record into immutable template files, cell by cell and
// form field by form field. A missing field in a template is a warning,
// never a failure; a fill only fails when the template cannot be opened or
// the result cannot be serialized.

var (
	// ErrTemplateNotFound means the template file is missing or unreadable.
	// Fatal: aborts the whole generation.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrSerialization means the filled output could not be written.
	// Fatal: aborts the whole generation.
	ErrSerialization = errors.New("cannot serialize filled template")
)

// Filler writes a data record into one template kind and stores the result.
type Filler interface {
	// Kind identifies which artifact this filler produces.
	Kind() model.ArtifactKind
	// Fill produces a fresh artifact for the declaration. data may be
	// missing arbitrary keys; every field write is null-safe.
	Fill(ctx context.Context, declarationID string, data map[string]any) (*model.GeneratedArtifact, error)
}
