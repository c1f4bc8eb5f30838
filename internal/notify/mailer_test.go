package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/unicatolica/registro-huellas/internal/metrics"
	"github.com/unicatolica/registro-huellas/internal/models"
)

type sentMail struct {
	to, subject, body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

func newTestMailer(t *testing.T, s Sender) *Mailer {
	t.Helper()
	m, err := NewMailer(s)
	if err != nil {
		t.Fatalf("NewMailer: %v", err)
	}
	return m
}

func TestAccountWelcomeUsesRoleContent(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	m := newTestMailer(t, sender)

	u := &models.User{Nombre: "Ana", Apellido: "Ruiz", Role: models.RoleAdmin,
		CorreoPersonal: "ana@mail.com", CorreoInstitucional: "ana@uni.edu"}
	if err := m.NotifyAccountWelcome(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(sender.sent))
	}
	got := sender.sent[0]
	if got.to != "ana@uni.edu" {
		t.Errorf("to = %q, want institutional address", got.to)
	}
	if !strings.Contains(got.subject, "Administrador del Sistema") {
		t.Errorf("subject = %q", got.subject)
	}
	if !strings.Contains(got.body, "Brindar soporte a los usuarios lectores") {
		t.Errorf("body lacks admin responsibilities")
	}
	if strings.Contains(got.body, "Contraseña:") {
		t.Errorf("welcome mail must not carry a password")
	}
}

func TestRoleFallsBackToLector(t *testing.T) {
	t.Parallel()
	m := newTestMailer(t, &fakeSender{})
	if got := m.Role("otro").Titulo; got != "Lector del Sistema" {
		t.Fatalf("Role(otro).Titulo = %q", got)
	}
}

func TestPersonWelcomeListsOptionalFields(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	m := newTestMailer(t, sender)

	p := &models.Person{Nombre: "Luis", Apellido: "Mora", RolUniversidad: "Estudiante",
		Carnet: "A123", Carrera: "Ingeniería", CorreoPersonal: "luis@mail.com"}
	if err := m.NotifyPersonWelcome(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	body := sender.sent[0].body
	if !strings.Contains(body, "Ingeniería") || strings.Contains(body, "Semestre") {
		t.Errorf("optional fields rendered wrong:\n%s", body)
	}
}

func TestAccessWithoutRecipientIsSkipped(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	m := newTestMailer(t, sender)
	if err := m.NotifyAccess(context.Background(), AccessNotice{Tipo: models.AccessEntrada}); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("sent %d mails to an empty address", len(sender.sent))
	}
}

func TestPasswordResetEscapesURL(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	m := newTestMailer(t, sender)
	u := &models.User{Nombre: "Ana", CorreoInstitucional: "ana@uni.edu"}
	url := "http://front/reset-password?token=abc&email=ana@uni.edu"
	if err := m.NotifyPasswordReset(context.Background(), u, url); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sender.sent[0].body, "token=abc&amp;email=ana@uni.edu") {
		t.Errorf("reset link missing from body:\n%s", sender.sent[0].body)
	}
}

func TestAsyncCountsFailures(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	mt := metrics.New(reg)
	m := newTestMailer(t, &fakeSender{err: errors.New("smtp down")})
	a := NewAsync(m, slog.New(slog.NewTextHandler(io.Discard, nil)), mt)

	err := a.NotifyAccess(context.Background(), AccessNotice{To: "x@uni.edu", Tipo: models.AccessSalida})
	if err != nil {
		t.Fatalf("Async returned %v, want nil", err)
	}
	a.Wait()
	if got := testutil.ToFloat64(mt.NotificationsFailed.WithLabelValues("access")); got != 1 {
		t.Fatalf("failures{access} = %v, want 1", got)
	}
}
