package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/model"
)

type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) Register(key string, kind model.ArtifactKind) (string, error) {
	args := m.Called(key, kind)
	return args.String(0), args.Error(1)
}

func (m *MockRegistry) Lookup(tok string) (*model.DownloadToken, error) {
	args := m.Called(tok)
	if a := args.Get(0); a != nil {
		return a.(*model.DownloadToken), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRegistry) Expire(tok string) {
	m.Called(tok)
}
