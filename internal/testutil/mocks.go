// Package testutil provides shared test doubles.
package testutil

import (
	"context"

	"github.com/assistkit/connectd/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockTokenStore is a testify mock of store.TokenStore, for tests that
// need to script storage failures.
type MockTokenStore struct {
	mock.Mock
}

var _ store.TokenStore = (*MockTokenStore)(nil)

func (m *MockTokenStore) Get(ctx context.Context, userID, providerID string) (*store.TokenRecord, error) {
	args := m.Called(ctx, userID, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.TokenRecord), args.Error(1)
}

func (m *MockTokenStore) Put(ctx context.Context, userID, providerID string, record *store.TokenRecord) error {
	args := m.Called(ctx, userID, providerID, record)
	return args.Error(0)
}

func (m *MockTokenStore) Delete(ctx context.Context, userID, providerID string) error {
	args := m.Called(ctx, userID, providerID)
	return args.Error(0)
}

func (m *MockTokenStore) ListProviders(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
