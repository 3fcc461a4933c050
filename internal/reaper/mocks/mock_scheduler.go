package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) Schedule(key string, delay time.Duration) {
	m.Called(key, delay)
}
