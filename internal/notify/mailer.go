package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"gopkg.in/yaml.v3"

	"github.com/unicatolica/registro-huellas/internal/models"
)

//go:embed content.yaml
var contentYAML []byte

//go:embed templates/*.html
var templateFS embed.FS

// RoleContent is the role-specific text of the account welcome email.
type RoleContent struct {
	Titulo            string   `yaml:"titulo"`
	Capacidades       []string `yaml:"capacidades"`
	Responsabilidades []string `yaml:"responsabilidades"`
}

type personField struct {
	Campo    string `yaml:"campo"`
	Etiqueta string `yaml:"etiqueta"`
}

type content struct {
	Accounts map[string]RoleContent `yaml:"accounts"`
	Persona  []personField          `yaml:"persona"`
}

// Mailer renders notifications to HTML and hands them to a Sender.
type Mailer struct {
	sender  Sender
	tmpl    *template.Template
	content content
}

func NewMailer(sender Sender) (*Mailer, error) {
	var c content
	if err := yaml.Unmarshal(contentYAML, &c); err != nil {
		return nil, fmt.Errorf("parse notification content: %w", err)
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse notification templates: %w", err)
	}
	return &Mailer{sender: sender, tmpl: tmpl, content: c}, nil
}

// Role returns the welcome content for an account role; unknown roles get
// the reader content.
func (m *Mailer) Role(role string) RoleContent {
	if rc, ok := m.content.Accounts[role]; ok {
		return rc
	}
	return m.content.Accounts[models.RoleLector]
}

func (m *Mailer) NotifyAccess(ctx context.Context, n AccessNotice) error {
	if n.To == "" {
		return nil
	}
	subject := fmt.Sprintf("Registro de %s - Sistema de Control de Acceso", n.Tipo)
	return m.send(ctx, n.To, subject, "access", n)
}

func (m *Mailer) NotifyAccountWelcome(ctx context.Context, u *models.User) error {
	to := u.PreferredEmail()
	if to == "" {
		return nil
	}
	role := m.Role(u.Role)
	subject := fmt.Sprintf("Registro Exitoso como %s - Sistema de Control de Acceso", role.Titulo)
	return m.send(ctx, to, subject, "account_welcome", map[string]any{
		"User": u,
		"Role": role,
	})
}

func (m *Mailer) NotifyPersonWelcome(ctx context.Context, p *models.Person) error {
	to := p.ContactEmail()
	if to == "" {
		return nil
	}
	type extra struct{ Etiqueta, Valor string }
	var extras []extra
	for _, f := range m.content.Persona {
		if v, ok := p.Lookup(f.Campo); ok {
			extras = append(extras, extra{Etiqueta: f.Etiqueta, Valor: v})
		}
	}
	subject := "¡Bienvenido/a a Unicatólica! Registro exitoso en el sistema de control de acceso"
	return m.send(ctx, to, subject, "person_welcome", map[string]any{
		"Person": p,
		"Extra":  extras,
	})
}

func (m *Mailer) NotifyPasswordReset(ctx context.Context, u *models.User, resetURL string) error {
	to := u.PreferredEmail()
	if to == "" {
		return fmt.Errorf("account %s has no email address", u.ID)
	}
	subject := "Recuperación de Contraseña - Sistema de Control de Acceso"
	return m.send(ctx, to, subject, "password_reset", map[string]any{
		"User":     u,
		"ResetURL": resetURL,
	})
}

func (m *Mailer) send(ctx context.Context, to, subject, name string, data any) error {
	var buf bytes.Buffer
	if err := m.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return m.sender.Send(ctx, to, subject, buf.String())
}
