// Package mocks provides shared testify mocks for the ports interfaces.
package mocks

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// MockTransactionManager runs callbacks with a nil transaction.
// Set FailWith to make every write transaction fail before fn runs.
type MockTransactionManager struct {
	mock.Mock
	FailWith error
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	return fn(ctx, nil)
}

func (m *MockTransactionManager) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}
