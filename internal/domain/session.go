package domain

// Session holds the durable per-user conversation state. It is the
// single mutable aggregate; all mutation goes through the session
// store so every change is persisted synchronously.
type Session struct {
	UserID       string    `json:"user_id"`
	History      []Message `json:"history"`
	SidebarOpen  bool      `json:"sidebar_open"`
	WelcomeShown bool      `json:"welcome_shown"`
}

// Append adds a message to the history. History is append-only; it is
// never reordered or deduplicated.
func (s *Session) Append(msg Message) {
	s.History = append(s.History, msg)
}

// Recent returns the last n messages from history.
func (s *Session) Recent(n int) []Message {
	if n >= len(s.History) {
		return s.History
	}
	return s.History[len(s.History)-n:]
}
