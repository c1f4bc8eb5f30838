package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unicatolica/registro-huellas/internal/metrics"
	"github.com/unicatolica/registro-huellas/internal/models"
	"github.com/unicatolica/registro-huellas/internal/notify"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

// recordingNotifier captures notifications and optionally fails them.
type recordingNotifier struct {
	mu       sync.Mutex
	err      error
	accesses []notify.AccessNotice
	welcomes []models.User
	persons  []models.Person
	resets   []string
}

var _ notify.Dispatcher = (*recordingNotifier)(nil)

func (n *recordingNotifier) NotifyAccess(_ context.Context, a notify.AccessNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accesses = append(n.accesses, a)
	return n.err
}

func (n *recordingNotifier) NotifyAccountWelcome(_ context.Context, u *models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, *u)
	return n.err
}

func (n *recordingNotifier) NotifyPersonWelcome(_ context.Context, p *models.Person) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.persons = append(n.persons, *p)
	return n.err
}

func (n *recordingNotifier) NotifyPasswordReset(_ context.Context, _ *models.User, resetURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, resetURL)
	return n.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []AccessEvent
}

func (p *recordingPublisher) PublishAccess(_ context.Context, ev AccessEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func wantKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("err = nil, want %s", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("kind = %s, want %s (err: %v)", got, want, err)
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
