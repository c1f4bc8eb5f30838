// Package notify delivers the emails the service sends on scans, account
// registration and password recovery.
package notify

import (
	"context"

	"github.com/unicatolica/registro-huellas/internal/models"
)

// AccessNotice describes one registered entry or exit.
type AccessNotice struct {
	To     string
	Tipo   string // entrada | salida
	Nombre string
	Fecha  string
	Hora   string
}

// Dispatcher sends notifications. Callers treat every error as non-fatal.
type Dispatcher interface {
	NotifyAccess(ctx context.Context, n AccessNotice) error
	NotifyAccountWelcome(ctx context.Context, u *models.User) error
	NotifyPersonWelcome(ctx context.Context, p *models.Person) error
	NotifyPasswordReset(ctx context.Context, u *models.User, resetURL string) error
}

// Noop drops every notification. Used when SMTP is not configured.
type Noop struct{}

func (Noop) NotifyAccess(context.Context, AccessNotice) error                { return nil }
func (Noop) NotifyAccountWelcome(context.Context, *models.User) error        { return nil }
func (Noop) NotifyPersonWelcome(context.Context, *models.Person) error       { return nil }
func (Noop) NotifyPasswordReset(context.Context, *models.User, string) error { return nil }
