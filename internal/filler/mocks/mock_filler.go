package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/model"
)

type MockFiller struct {
	mock.Mock

	ArtifactKind model.ArtifactKind
}

func (m *MockFiller) Kind() model.ArtifactKind {
	return m.ArtifactKind
}

func (m *MockFiller) Fill(ctx context.Context, declarationID string, data map[string]any) (*model.GeneratedArtifact, error) {
	args := m.Called(ctx, declarationID, data)
	if a := args.Get(0); a != nil {
		return a.(*model.GeneratedArtifact), args.Error(1)
	}
	return nil, args.Error(1)
}
