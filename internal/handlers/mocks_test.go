package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/accountbook/backend/internal/ledger"
)

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, session *ledger.Session) (string, error) {
	args := m.Called(ctx, session)
	return args.String(0), args.Error(1)
}

func (m *MockSessionStore) Put(ctx context.Context, id string, session *ledger.Session) error {
	args := m.Called(ctx, id, session)
	return args.Error(0)
}

func (m *MockSessionStore) Get(ctx context.Context, id string) (*ledger.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Session), args.Error(1)
}

func (m *MockSessionStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
