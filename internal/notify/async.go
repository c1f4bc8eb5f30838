package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/unicatolica/registro-huellas/internal/metrics"
	"github.com/unicatolica/registro-huellas/internal/models"
)

const sendTimeout = 30 * time.Second

// Async delivers through next in background goroutines so request handlers
// never wait on SMTP. Failures are logged and counted.
type Async struct {
	next    Dispatcher
	logger  *slog.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

func NewAsync(next Dispatcher, logger *slog.Logger, m *metrics.Metrics) *Async {
	return &Async{next: next, logger: logger, metrics: m}
}

func (a *Async) NotifyAccess(_ context.Context, n AccessNotice) error {
	a.run("access", func(ctx context.Context) error { return a.next.NotifyAccess(ctx, n) })
	return nil
}

func (a *Async) NotifyAccountWelcome(_ context.Context, u *models.User) error {
	acct := *u
	a.run("account_welcome", func(ctx context.Context) error { return a.next.NotifyAccountWelcome(ctx, &acct) })
	return nil
}

func (a *Async) NotifyPersonWelcome(_ context.Context, p *models.Person) error {
	person := *p
	a.run("person_welcome", func(ctx context.Context) error { return a.next.NotifyPersonWelcome(ctx, &person) })
	return nil
}

func (a *Async) NotifyPasswordReset(_ context.Context, u *models.User, resetURL string) error {
	acct := *u
	a.run("password_reset", func(ctx context.Context) error { return a.next.NotifyPasswordReset(ctx, &acct, resetURL) })
	return nil
}

// Wait blocks until in-flight deliveries finish.
func (a *Async) Wait() {
	a.wg.Wait()
}

func (a *Async) run(kind string, fn func(ctx context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			a.metrics.NotificationsFailed.WithLabelValues(kind).Inc()
			a.logger.Error("notification failed", "kind", kind, "error", err)
		}
	}()
}
