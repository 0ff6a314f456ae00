package connectivity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/financeguru/advisor/internal/remote"
)

type fakeProber struct {
	mu     sync.Mutex
	health *remote.HealthResponse
	err    error
	delay  time.Duration
	calls  int
}

func (f *fakeProber) Health(ctx context.Context) (*remote.HealthResponse, error) {
	f.mu.Lock()
	f.calls++
	health, err, delay := f.health, f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return health, err
}

func (f *fakeProber) set(health *remote.HealthResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.health = health
	f.err = err
}

func (f *fakeProber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestCheckNowMapsOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		health *remote.HealthResponse
		err    error
		want   State
	}{
		{"ok payload", &remote.HealthResponse{Status: "ok"}, nil, StateConnected},
		{"other payload", &remote.HealthResponse{Status: "demo_mode"}, nil, StateDegraded},
		{"transport error", nil, errors.New("connection refused"), StateOffline},
		{"nil response", nil, nil, StateOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(&fakeProber{health: tt.health, err: tt.err}, time.Minute, time.Second, nil)
			if got := m.CheckNow(context.Background()); got != tt.want {
				t.Errorf("CheckNow = %v, want %v", got, tt.want)
			}
			if got := m.State(); got != tt.want {
				t.Errorf("State = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProbeTimeoutIsOffline(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{health: &remote.HealthResponse{Status: "ok"}, delay: time.Second}
	m := NewMonitor(prober, time.Minute, 20*time.Millisecond, nil)

	if got := m.CheckNow(context.Background()); got != StateOffline {
		t.Errorf("expected timeout to map to offline, got %v", got)
	}
}

func TestMarkOfflineThenRecheck(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{health: &remote.HealthResponse{Status: "ok"}}
	m := NewMonitor(prober, time.Minute, time.Second, nil)

	m.CheckNow(context.Background())
	if m.State() != StateConnected {
		t.Fatalf("expected connected, got %v", m.State())
	}

	m.MarkOffline()
	if m.State() != StateOffline {
		t.Fatalf("expected offline after demotion, got %v", m.State())
	}

	// Manual re-check corrects a stale demotion.
	if got := m.CheckNow(context.Background()); got != StateConnected {
		t.Errorf("expected recheck to restore connected, got %v", got)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{err: errors.New("down")}
	m := NewMonitor(prober, 10*time.Millisecond, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for prober.callCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if prober.callCount() < 3 {
		t.Fatal("expected periodic probes to run")
	}

	cancel()
	time.Sleep(30 * time.Millisecond)
	settled := prober.callCount()
	time.Sleep(50 * time.Millisecond)
	if prober.callCount() > settled {
		t.Error("probe goroutine kept running after cancel")
	}
}

func TestStateChangeCallback(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []State
	prober := &fakeProber{err: errors.New("down")}
	m := NewMonitor(prober, time.Minute, time.Second, func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	m.CheckNow(context.Background())
	prober.set(&remote.HealthResponse{Status: "ok"}, nil)
	m.CheckNow(context.Background())

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateChecking, StateOffline, StateChecking, StateConnected}
	if len(seen) != len(want) {
		t.Fatalf("expected %d transitions, got %v", len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, seen[i], want[i])
		}
	}
}
