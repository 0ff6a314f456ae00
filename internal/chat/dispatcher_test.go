package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/financeguru/advisor/internal/advisor"
	"github.com/financeguru/advisor/internal/connectivity"
	"github.com/financeguru/advisor/internal/domain"
	"github.com/financeguru/advisor/internal/remote"
	"github.com/financeguru/advisor/internal/session"
	"github.com/financeguru/advisor/internal/store"
)

type fakeRemote struct {
	mu    sync.Mutex
	resp  *remote.ChatResponse
	err   error
	calls []remote.ChatRequest
}

func (f *fakeRemote) Chat(ctx context.Context, req remote.ChatRequest) (*remote.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeStatus struct {
	mu        sync.Mutex
	state     connectivity.State
	demotions int
}

func (f *fakeStatus) State() connectivity.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeStatus) MarkOffline() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = connectivity.StateOffline
	f.demotions++
}

type testRig struct {
	dispatcher *Dispatcher
	sess       *domain.Session
	repo       *store.MemoryStore
	remote     *fakeRemote
	status     *fakeStatus
}

func newTestRig(t *testing.T, remoteClient *fakeRemote, status *fakeStatus) *testRig {
	t.Helper()

	repo := store.NewMemory()
	sessions := session.NewStore(repo)
	sess := sessions.Load(context.Background())

	d := NewDispatcher(sessions, sess, remoteClient, status, advisor.New(), NewHub(), time.Second, 10)
	d.sleep = func(time.Duration) {}

	return &testRig{dispatcher: d, sess: sess, repo: repo, remote: remoteClient, status: status}
}

func TestSendRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeRemote{}, &fakeStatus{state: connectivity.StateConnected})
	before := len(rig.sess.History)

	for _, input := range []string{"", "   ", "\n\t "} {
		if _, err := rig.dispatcher.Send(context.Background(), input); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Send(%q) error = %v, want ErrEmptyMessage", input, err)
		}
	}

	if len(rig.sess.History) != before {
		t.Errorf("empty sends mutated history: %d -> %d", before, len(rig.sess.History))
	}
	if rig.remote.callCount() != 0 {
		t.Error("empty sends must not reach the backend")
	}
}

func TestSendRemoteSuccess(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeRemote{resp: &remote.ChatResponse{
		Response:           "Buy index funds.",
		DemoMode:           false,
		MarketDataIncluded: true,
		SentimentAnalysis:  &remote.SentimentAnalysis{Sentiment: "positive"},
	}}, &fakeStatus{state: connectivity.StateConnected})

	before := len(rig.sess.History)
	botMsg, err := rig.dispatcher.Send(context.Background(), "Should I buy stocks?")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if botMsg.Text != "Buy index funds." {
		t.Errorf("unexpected bot text %q", botMsg.Text)
	}
	if botMsg.Source != domain.SourceRemoteAI {
		t.Errorf("source = %q, want backend_ai", botMsg.Source)
	}
	if !botMsg.MarketData || botMsg.Sentiment != "positive" {
		t.Errorf("annotations not carried verbatim: %+v", botMsg)
	}

	if len(rig.sess.History) != before+2 {
		t.Fatalf("expected exactly one user and one bot message, history grew by %d", len(rig.sess.History)-before)
	}
	userMsg := rig.sess.History[before]
	if userMsg.Sender != domain.SenderUser || userMsg.Text != "Should I buy stocks?" {
		t.Errorf("user message not appended first: %+v", userMsg)
	}
	if rig.sess.History[before+1].Sender != domain.SenderBot {
		t.Error("bot message must follow the user message")
	}
}

func TestSendRemoteDemoMode(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeRemote{resp: &remote.ChatResponse{
		Response: "Demo answer.",
		DemoMode: true,
	}}, &fakeStatus{state: connectivity.StateDegraded})

	botMsg, err := rig.dispatcher.Send(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if botMsg.Source != domain.SourceRemoteDemo {
		t.Errorf("source = %q, want backend_demo", botMsg.Source)
	}
}

func TestSendFallsBackOnRemoteFailure(t *testing.T) {
	t.Parallel()

	status := &fakeStatus{state: connectivity.StateConnected}
	rig := newTestRig(t, &fakeRemote{err: errors.New("connection refused")}, status)

	before := len(rig.sess.History)
	botMsg, err := rig.dispatcher.Send(context.Background(), "How do I start investing?")
	if err != nil {
		t.Fatalf("Send must absorb remote failures, got %v", err)
	}

	if botMsg.Source != domain.SourceLocalFallback {
		t.Errorf("source = %q, want offline", botMsg.Source)
	}
	if botMsg.Text != advisor.DefaultRules[0].Response {
		t.Errorf("expected investing advisory text, got %q", botMsg.Text)
	}
	if len(rig.sess.History) != before+2 {
		t.Errorf("expected one user and one bot message, history grew by %d", len(rig.sess.History)-before)
	}
	if status.demotions != 1 {
		t.Errorf("expected one offline demotion, got %d", status.demotions)
	}
}

func TestSendSkipsRemoteWhenOffline(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeRemote{resp: &remote.ChatResponse{Response: "never used"}}, &fakeStatus{state: connectivity.StateOffline})

	botMsg, err := rig.dispatcher.Send(context.Background(), "How do I start investing?")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if rig.remote.callCount() != 0 {
		t.Error("offline sends must not attempt the backend")
	}
	if botMsg.Source != domain.SourceLocalFallback {
		t.Errorf("source = %q, want offline", botMsg.Source)
	}
	if botMsg.Text != advisor.DefaultRules[0].Response {
		t.Errorf("expected investing advisory text, got %q", botMsg.Text)
	}
}

func TestSendSuppliesUserIDAndBoundedHistory(t *testing.T) {
	t.Parallel()

	remoteClient := &fakeRemote{resp: &remote.ChatResponse{Response: "noted"}}
	rig := newTestRig(t, remoteClient, &fakeStatus{state: connectivity.StateConnected})

	// Grow the history well past the context window.
	for i := 0; i < 15; i++ {
		if _, err := rig.dispatcher.Send(context.Background(), "tick"); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	remoteClient.mu.Lock()
	last := remoteClient.calls[len(remoteClient.calls)-1]
	remoteClient.mu.Unlock()

	if last.UserID != rig.sess.UserID {
		t.Errorf("user_id = %q, want %q", last.UserID, rig.sess.UserID)
	}
	if len(last.ConversationHistory) != 10 {
		t.Errorf("expected a 10-message context window, got %d", len(last.ConversationHistory))
	}
}

func TestSendSequenceEmptyThenValid(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeRemote{resp: &remote.ChatResponse{Response: "ok"}}, &fakeStatus{state: connectivity.StateConnected})
	before := len(rig.sess.History)

	if _, err := rig.dispatcher.Send(context.Background(), ""); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := rig.dispatcher.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("valid send failed: %v", err)
	}

	if len(rig.sess.History) != before+2 {
		t.Errorf("final history must reflect only the valid call, grew by %d", len(rig.sess.History)-before)
	}
}

func TestSendPersistsAcrossRestart(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeRemote{resp: &remote.ChatResponse{Response: "persisted answer"}}, &fakeStatus{state: connectivity.StateConnected})

	if _, err := rig.dispatcher.Send(context.Background(), "remember this"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	restored := session.NewStore(rig.repo).Load(context.Background())
	if restored.UserID != rig.sess.UserID {
		t.Errorf("userId not stable across loads: %q != %q", restored.UserID, rig.sess.UserID)
	}
	if len(restored.History) != len(rig.sess.History) {
		t.Errorf("history not persisted: %d != %d", len(restored.History), len(rig.sess.History))
	}
}

func TestLoadingFlagClearsAfterSend(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeRemote{resp: &remote.ChatResponse{Response: "ok"}}, &fakeStatus{state: connectivity.StateConnected})

	if rig.dispatcher.Loading() {
		t.Error("loading must start false")
	}
	if _, err := rig.dispatcher.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if rig.dispatcher.Loading() {
		t.Error("loading must clear once the send completes")
	}
}

func TestClearHistoryViaDispatcher(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t, &fakeRemote{resp: &remote.ChatResponse{Response: "ok"}}, &fakeStatus{state: connectivity.StateConnected})

	if _, err := rig.dispatcher.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := rig.dispatcher.ClearHistory(context.Background()); err != nil {
		t.Fatalf("ClearHistory failed: %v", err)
	}

	snap := rig.dispatcher.Snapshot()
	if len(snap.History) != 1 {
		t.Errorf("expected history length 1 after clear, got %d", len(snap.History))
	}
	if snap.UserID != rig.sess.UserID {
		t.Error("clear must preserve userId")
	}
}
