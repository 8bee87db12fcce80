package application

// Mock de cache.Store.

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"magic-math-gateway/cache"
)

type mockStore struct {
	mock.Mock
}

var _ cache.Store = &mockStore{}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockStore) FlushAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) IsConnected() bool {
	return m.Called().Bool(0)
}

func (m *mockStore) Name() string { return "mock" }
