package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/model"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/service"
)

type MockDeclarationService struct {
	mock.Mock
}

func (m *MockDeclarationService) Generate(ctx context.Context, req model.GenerationRequest) (*service.GenerationResult, error) {
	args := m.Called(ctx, req)
	if a := args.Get(0); a != nil {
		return a.(*service.GenerationResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDeclarationService) Download(ctx context.Context, kind model.ArtifactKind, tok string) (*service.Download, error) {
	args := m.Called(ctx, kind, tok)
	if a := args.Get(0); a != nil {
		return a.(*service.Download), args.Error(1)
	}
	return nil, args.Error(1)
}
