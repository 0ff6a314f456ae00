package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "userId"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "userId", "user_abc123def"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, ok, err := s.Get(ctx, "userId")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if value != "user_abc123def" {
		t.Errorf("unexpected value %q", value)
	}
}

func TestMemoryStoreSetAll(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	ctx := context.Background()

	records := map[string]string{
		"userId":       "user_abc123def",
		"welcomeShown": "true",
		"sidebarOpen":  "false",
	}
	if err := s.SetAll(ctx, records); err != nil {
		t.Fatalf("SetAll failed: %v", err)
	}

	for key, want := range records {
		got, ok, err := s.Get(ctx, key)
		if err != nil || !ok {
			t.Fatalf("Get(%q) failed: ok=%v err=%v", key, ok, err)
		}
		if got != want {
			t.Errorf("Get(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "advisor.db")
	s, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	if _, ok, err := s.Get(ctx, "chatHistory"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "chatHistory", `[{"sender":"bot","text":"hi"}]`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	// Overwrite wins.
	if err := s.Set(ctx, "chatHistory", `[]`); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}

	value, ok, err := s.Get(ctx, "chatHistory")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if value != `[]` {
		t.Errorf("unexpected value %q", value)
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "advisor.db")
	ctx := context.Background()

	s, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	if err := s.SetAll(ctx, map[string]string{"userId": "user_abc123def", "welcomeShown": "true"}); err != nil {
		t.Fatalf("SetAll failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	value, ok, err := reopened.Get(ctx, "userId")
	if err != nil || !ok {
		t.Fatalf("Get after reopen failed: ok=%v err=%v", ok, err)
	}
	if value != "user_abc123def" {
		t.Errorf("unexpected value %q", value)
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := New(Driver("mongodb"), Options{}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
