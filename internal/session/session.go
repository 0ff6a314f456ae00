// Package session owns the persisted conversation state. All mutation
// of the Session aggregate goes through this store, and every mutation
// is saved synchronously so a crash loses at most one change.
package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/financeguru/advisor/internal/domain"
	"github.com/financeguru/advisor/internal/store"
)

// Stable record keys in the backing store.
const (
	keyUserID       = "userId"
	keyChatHistory  = "chatHistory"
	keyWelcomeShown = "welcomeShown"
	keySidebarOpen  = "sidebarOpen"
)

const (
	// WelcomeGreeting seeds the history of a brand-new session.
	WelcomeGreeting = "Welcome to FinanceGURU! I'm your personal financial advisor. How can I help you today?"
	// ClearGreeting seeds the history after a clear. The short form is
	// deliberate: the user has met the advisor already.
	ClearGreeting = "Welcome to FinanceGURU! How can I help you today?"
)

const userIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

var userIDPattern = regexp.MustCompile(`^user_[A-Za-z0-9]{9}$`)

// NewUserID generates a random user token of the form user_ followed by
// nine base-36 characters.
func NewUserID() (string, error) {
	buf := make([]byte, 9)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate user id: %w", err)
	}
	for i, b := range buf {
		buf[i] = userIDAlphabet[int(b)%len(userIDAlphabet)]
	}
	return "user_" + string(buf), nil
}

// IsValidUserID reports whether id matches the persisted token format.
func IsValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

// Store loads and saves the Session aggregate through a keyed record
// repository.
type Store struct {
	repo store.Repository
}

// NewStore creates a session store over repo.
func NewStore(repo store.Repository) *Store {
	return &Store{repo: repo}
}

// Load restores the persisted session, or creates a fresh one when no
// prior state exists. Load never fails: a persistence read error
// degrades to an unpersisted in-memory session rather than an error,
// per the "fatal-to-feature, not fatal-to-process" policy.
func (s *Store) Load(ctx context.Context) *domain.Session {
	userID, ok, err := s.repo.Get(ctx, keyUserID)
	if err != nil {
		slog.Error("Failed to read persisted session, using in-memory session", "error", err)
		return newSession()
	}
	if !ok || !IsValidUserID(userID) {
		sess := newSession()
		if err := s.Save(ctx, sess); err != nil {
			slog.Error("Failed to persist new session", "error", err)
		}
		return sess
	}

	sess := &domain.Session{
		UserID:      userID,
		SidebarOpen: true,
	}
	sess.History = s.loadHistory(ctx)
	sess.WelcomeShown = s.loadBool(ctx, keyWelcomeShown, false)
	sess.SidebarOpen = s.loadBool(ctx, keySidebarOpen, true)
	return sess
}

func (s *Store) loadHistory(ctx context.Context) []domain.Message {
	raw, ok, err := s.repo.Get(ctx, keyChatHistory)
	if err != nil || !ok {
		if err != nil {
			slog.Error("Failed to read chat history", "error", err)
		}
		return []domain.Message{domain.NewBotMessage(WelcomeGreeting, "")}
	}

	var history []domain.Message
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		slog.Error("Persisted chat history is corrupt, resetting", "error", err)
		return []domain.Message{domain.NewBotMessage(WelcomeGreeting, "")}
	}
	return history
}

func (s *Store) loadBool(ctx context.Context, key string, fallback bool) bool {
	raw, ok, err := s.repo.Get(ctx, key)
	if err != nil || !ok {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

// Save persists the full session under its stable record keys.
// Serialization is lossless: save(load()) is a no-op.
func (s *Store) Save(ctx context.Context, sess *domain.Session) error {
	historyJSON, err := json.Marshal(sess.History)
	if err != nil {
		return fmt.Errorf("encode chat history: %w", err)
	}

	records := map[string]string{
		keyUserID:       sess.UserID,
		keyChatHistory:  string(historyJSON),
		keyWelcomeShown: strconv.FormatBool(sess.WelcomeShown),
		keySidebarOpen:  strconv.FormatBool(sess.SidebarOpen),
	}
	if err := s.repo.SetAll(ctx, records); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Append adds a message to the history and persists immediately.
func (s *Store) Append(ctx context.Context, sess *domain.Session, msg domain.Message) error {
	sess.Append(msg)
	return s.Save(ctx, sess)
}

// ClearHistory resets the history to a single fresh greeting. The
// userId and UI flags are preserved: this is a history reset, not a
// session reset.
func (s *Store) ClearHistory(ctx context.Context, sess *domain.Session) error {
	sess.History = []domain.Message{domain.NewBotMessage(ClearGreeting, "")}
	return s.Save(ctx, sess)
}

// SetSidebarOpen toggles the sidebar flag and persists.
func (s *Store) SetSidebarOpen(ctx context.Context, sess *domain.Session, open bool) error {
	sess.SidebarOpen = open
	return s.Save(ctx, sess)
}

// SetWelcomeShown marks the welcome flow dismissed and persists. Once
// true it stays true across restarts, suppressing the welcome flow.
func (s *Store) SetWelcomeShown(ctx context.Context, sess *domain.Session) error {
	sess.WelcomeShown = true
	return s.Save(ctx, sess)
}

// newSession builds the default session: fresh userId, welcome-seeded
// history, sidebar open, welcome not yet shown.
func newSession() *domain.Session {
	userID, err := NewUserID()
	if err != nil {
		// crypto/rand failure is effectively unreachable; keep the
		// session usable regardless.
		slog.Error("Failed to generate user id", "error", err)
		userID = "user_000000000"
	}
	return &domain.Session{
		UserID:       userID,
		History:      []domain.Message{domain.NewBotMessage(WelcomeGreeting, "")},
		SidebarOpen:  true,
		WelcomeShown: false,
	}
}
