// Package testutil holds shared fakes and fixtures for package tests.
package testutil

import (
	"testing"

	"github.com/infernodragon456/travel-chat-app/internal/repository"
)

// NewTestSQLiteStore returns an in-memory trace store closed at test end.
func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
