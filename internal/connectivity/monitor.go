// Package connectivity tracks reachability of the advisor backend.
package connectivity

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/financeguru/advisor/internal/remote"
)

// State is the process-wide backend connectivity state. The monitor is
// the single writer; the dispatcher and the UI only read it.
type State int32

const (
	StateUnknown State = iota
	StateChecking
	StateConnected
	StateDegraded
	StateOffline
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	case StateOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// HealthProber is the probe seam; satisfied by *remote.Client.
type HealthProber interface {
	Health(ctx context.Context) (*remote.HealthResponse, error)
}

const (
	defaultProbeInterval = 30 * time.Second
	defaultProbeTimeout  = 8 * time.Second
)

// StateCallback is invoked after each probe settles on a terminal state.
type StateCallback func(State)

// Monitor periodically probes the backend and exposes the last observed
// state. Writes are last-writer-wins; staleness is tolerated because the
// dispatcher re-checks the state on every send.
type Monitor struct {
	prober   HealthProber
	state    atomic.Int32
	interval time.Duration
	timeout  time.Duration
	onChange StateCallback
}

// NewMonitor creates a monitor. Zero interval/timeout select defaults.
func NewMonitor(prober HealthProber, interval, timeout time.Duration, onChange StateCallback) *Monitor {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	m := &Monitor{
		prober:   prober,
		interval: interval,
		timeout:  timeout,
		onChange: onChange,
	}
	m.state.Store(int32(StateUnknown))
	return m
}

// State returns the last observed connectivity state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// Start runs an immediate probe and then a background goroutine that
// re-probes on the configured interval until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	m.CheckNow(ctx)

	ticker := time.NewTicker(m.interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Connectivity monitor started", "interval", m.interval, "probe_timeout", m.timeout)

		for {
			select {
			case <-ticker.C:
				m.CheckNow(ctx)
			case <-ctx.Done():
				slog.Info("Connectivity monitor shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// CheckNow runs a single probe and returns the resulting state. It is
// idempotent and safe to call concurrently with the scheduled probe;
// whichever probe finishes last wins. No retry happens within a probe,
// the next scheduled tick is the retry.
func (m *Monitor) CheckNow(ctx context.Context) State {
	m.setState(StateChecking)

	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	state := m.probe(probeCtx)
	m.setState(state)
	return state
}

// MarkOffline demotes the state after a failed chat call. The next
// scheduled probe corrects it if the backend recovers.
func (m *Monitor) MarkOffline() {
	m.setState(StateOffline)
}

// probe maps one health-check outcome to a terminal state. It never
// fails past its boundary: any unexpected condition is Offline.
func (m *Monitor) probe(ctx context.Context) State {
	health, err := m.prober.Health(ctx)
	if err != nil {
		slog.Info("Backend not reachable, running in offline mode", "error", err)
		return StateOffline
	}
	if health == nil {
		return StateOffline
	}
	if health.OK() {
		return StateConnected
	}
	slog.Warn("Backend reachable but not fully healthy", "status", health.Status)
	return StateDegraded
}

func (m *Monitor) setState(s State) {
	prev := State(m.state.Swap(int32(s)))
	if prev != s && m.onChange != nil {
		m.onChange(s)
	}
}
