// Package chat orchestrates the send/fallback conversation pipeline and
// exposes it over HTTP and WebSocket.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/financeguru/advisor/internal/advisor"
	"github.com/financeguru/advisor/internal/connectivity"
	"github.com/financeguru/advisor/internal/domain"
	"github.com/financeguru/advisor/internal/remote"
	"github.com/financeguru/advisor/internal/session"
)

// ErrEmptyMessage rejects empty or whitespace-only input. The caller
// treats it as a silent no-op: no state changes.
var ErrEmptyMessage = errors.New("empty message")

// RemoteChatter is the backend chat seam; satisfied by *remote.Client.
type RemoteChatter interface {
	Chat(ctx context.Context, req remote.ChatRequest) (*remote.ChatResponse, error)
}

// StatusSource is the connectivity seam; satisfied by *connectivity.Monitor.
type StatusSource interface {
	State() connectivity.State
	MarkOffline()
}

// EventSink receives dispatcher events; satisfied by *Hub.
type EventSink interface {
	Publish(ev Event)
}

const (
	defaultChatTimeout   = 10 * time.Second
	defaultHistoryWindow = 10
)

// Dispatcher runs the send pipeline: append the user message, try the
// backend, fall back to the rule engine on any failure, and append
// exactly one bot reply. Sends are serialized internally so the
// one-user-message-then-one-bot-message invariant holds no matter how
// callers behave.
type Dispatcher struct {
	sessions *session.Store
	sess     *domain.Session
	remote   RemoteChatter
	status   StatusSource
	engine   *advisor.Engine
	events   EventSink

	chatTimeout   time.Duration
	historyWindow int

	mu      sync.Mutex
	loading atomic.Bool

	// sleep and fallbackDelay are injectable so tests skip the cosmetic
	// "thinking" pause on the fallback path.
	sleep         func(d time.Duration)
	fallbackDelay func() time.Duration
}

// NewDispatcher creates a dispatcher over an already-loaded session.
// Zero chatTimeout/historyWindow select defaults.
func NewDispatcher(sessions *session.Store, sess *domain.Session, remoteClient RemoteChatter, status StatusSource, engine *advisor.Engine, events EventSink, chatTimeout time.Duration, historyWindow int) *Dispatcher {
	if chatTimeout <= 0 {
		chatTimeout = defaultChatTimeout
	}
	if historyWindow <= 0 {
		historyWindow = defaultHistoryWindow
	}
	return &Dispatcher{
		sessions:      sessions,
		sess:          sess,
		remote:        remoteClient,
		status:        status,
		engine:        engine,
		events:        events,
		chatTimeout:   chatTimeout,
		historyWindow: historyWindow,
		sleep:         time.Sleep,
		// 1-2s, randomized: a fallback answer that arrives instantly
		// reads as canned.
		fallbackDelay: func() time.Duration {
			return time.Second + rand.N(time.Second)
		},
	}
}

// Loading reports whether a send is in flight.
func (d *Dispatcher) Loading() bool {
	return d.loading.Load()
}

// Send runs the pipeline for one user message and returns the appended
// bot reply. It never surfaces remote failures: every accepted call
// terminates in exactly one bot message, remote or fallback.
func (d *Dispatcher) Send(ctx context.Context, text string) (*domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.setLoading(true)
	defer d.setLoading(false)

	// Context for the backend call: the last messages before this turn.
	recent := append([]domain.Message(nil), d.sess.Recent(d.historyWindow)...)

	userMsg := domain.NewUserMessage(text)
	if err := d.sessions.Append(ctx, d.sess, userMsg); err != nil {
		slog.Error("Failed to persist user message", "error", err, "user_id", d.sess.UserID)
	}
	d.publish(Event{Type: EventMessage, Message: &userMsg})

	if d.status.State() != connectivity.StateOffline {
		botMsg, err := d.tryRemote(ctx, text, recent)
		if err == nil {
			if appendErr := d.sessions.Append(ctx, d.sess, *botMsg); appendErr != nil {
				slog.Error("Failed to persist bot message", "error", appendErr, "user_id", d.sess.UserID)
			}
			d.publish(Event{Type: EventMessage, Message: botMsg})
			return botMsg, nil
		}
		slog.Warn("Backend chat failed, answering locally", "error", err, "user_id", d.sess.UserID)
		d.status.MarkOffline()
	}

	botMsg := d.fallback(ctx, text)
	return botMsg, nil
}

// tryRemote attempts the backend chat call under a bounded deadline.
func (d *Dispatcher) tryRemote(ctx context.Context, text string, recent []domain.Message) (*domain.Message, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.chatTimeout)
	defer cancel()

	resp, err := d.remote.Chat(callCtx, remote.ChatRequest{
		UserInput:           text,
		UserID:              d.sess.UserID,
		ConversationHistory: recent,
	})
	if err != nil {
		return nil, err
	}

	botMsg := domain.NewBotMessage(resp.Response, resp.Source())
	botMsg.MarketData = resp.MarketDataIncluded
	if resp.SentimentAnalysis != nil {
		botMsg.Sentiment = resp.SentimentAnalysis.Sentiment
	}
	return &botMsg, nil
}

// fallback answers via the rule engine after the cosmetic thinking
// delay. The delay never gates the remote path; it only runs once the
// remote call has already failed or been skipped.
func (d *Dispatcher) fallback(ctx context.Context, text string) *domain.Message {
	advice := d.engine.Advise(text)
	d.sleep(d.fallbackDelay())

	botMsg := domain.NewBotMessage(advice, domain.SourceLocalFallback)
	if err := d.sessions.Append(ctx, d.sess, botMsg); err != nil {
		slog.Error("Failed to persist fallback message", "error", err, "user_id", d.sess.UserID)
	}
	d.publish(Event{Type: EventMessage, Message: &botMsg})
	return &botMsg
}

// Snapshot returns a copy of the current session for read-only callers.
func (d *Dispatcher) Snapshot() domain.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	copied := *d.sess
	copied.History = append([]domain.Message(nil), d.sess.History...)
	return copied
}

// ClearHistory resets the transcript to a single greeting, preserving
// identity and UI flags.
func (d *Dispatcher) ClearHistory(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.sessions.ClearHistory(ctx, d.sess); err != nil {
		return err
	}
	d.publish(Event{Type: EventMessage, Message: &d.sess.History[0]})
	return nil
}

// SetSidebarOpen persists the sidebar visibility flag.
func (d *Dispatcher) SetSidebarOpen(ctx context.Context, open bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessions.SetSidebarOpen(ctx, d.sess, open)
}

// DismissWelcome marks the welcome flow as shown.
func (d *Dispatcher) DismissWelcome(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessions.SetWelcomeShown(ctx, d.sess)
}

func (d *Dispatcher) setLoading(v bool) {
	d.loading.Store(v)
	d.publish(Event{Type: EventLoading, Loading: v})
}

func (d *Dispatcher) publish(ev Event) {
	if d.events != nil {
		d.events.Publish(ev)
	}
}
