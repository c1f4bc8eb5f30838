package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/unicatolica/registro-huellas/internal/auth"
	"github.com/unicatolica/registro-huellas/internal/clock"
	"github.com/unicatolica/registro-huellas/internal/models"
	"github.com/unicatolica/registro-huellas/internal/repository"
)

type accountsFixture struct {
	svc      *Accounts
	users    *repository.MemoryUsers
	issuer   *auth.Issuer
	notifier *recordingNotifier
	clock    *clock.FakeClock
}

func newAccountsFixture(t *testing.T) *accountsFixture {
	t.Helper()
	f := &accountsFixture{
		users:    repository.NewMemoryUsers(),
		issuer:   auth.NewIssuer("test-secret", time.Hour),
		notifier: &recordingNotifier{},
		clock:    clock.Fake(time.Now()),
	}
	f.svc = NewAccounts(AccountsDeps{
		Users:       f.users,
		Issuer:      f.issuer,
		Notifier:    f.notifier,
		Clock:       f.clock,
		FrontendURL: "https://huellas.example.edu/",
		Logger:      discardLogger(),
	})
	return f
}

func adminInput() RegisterInput {
	return RegisterInput{
		Nombre:              "Laura",
		Apellido:            "Díaz",
		FechaNacimiento:     "1990-02-03",
		IDInstitucional:     "E-77",
		Cedula:              "5005",
		RolUniversidad:      "Administrativo",
		CorreoPersonal:      "laura@mail.com",
		CorreoInstitucional: "laura@uni.edu",
		Password:            "s3creta",
		Role:                models.RoleAdmin,
	}
}

func TestAccountsRegister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newAccountsFixture(t)

	u, err := f.svc.Register(ctx, adminInput())
	if err != nil {
		t.Fatal(err)
	}
	if u.PasswordHash == "" || u.PasswordHash == "s3creta" {
		t.Fatalf("password not hashed")
	}
	if len(f.notifier.welcomes) != 1 {
		t.Fatalf("welcome emails = %d", len(f.notifier.welcomes))
	}

	lector := adminInput()
	lector.Role = models.RoleLector
	if _, err := f.svc.Register(ctx, lector); err != nil {
		t.Fatalf("same person as lector: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		kind   Kind
		msg    string
	}{
		{"missing field", func(in *RegisterInput) { in.Cedula = " " }, KindValidation, "❌ Faltan datos"},
		{"bad role", func(in *RegisterInput) { in.Role = "root" }, KindValidation, "❌ Rol inválido"},
		{"same cedula", func(in *RegisterInput) {
			in.CorreoPersonal, in.CorreoInstitucional = "x@mail.com", "x@uni.edu"
		}, KindConflict, "❌ Ya existe un usuario con esta cédula como admin"},
		{"same personal email", func(in *RegisterInput) {
			in.Cedula, in.CorreoInstitucional = "9", "y@uni.edu"
		}, KindConflict, "❌ Ya existe un usuario con este correo personal como admin"},
		{"same institutional email", func(in *RegisterInput) {
			in.Cedula, in.CorreoPersonal = "9", "z@mail.com"
		}, KindConflict, "❌ Ya existe un usuario con este correo institucional como admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := adminInput()
			tt.mutate(&in)
			_, err := f.svc.Register(ctx, in)
			wantKind(t, err, tt.kind)
			var svcErr *Error
			if errors.As(err, &svcErr) && svcErr.Message != tt.msg {
				t.Errorf("message = %q, want %q", svcErr.Message, tt.msg)
			}
		})
	}
}

func TestAccountsRegisterWithoutInstitutionalEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newAccountsFixture(t)

	a := adminInput()
	a.CorreoInstitucional = ""
	if _, err := f.svc.Register(ctx, a); err != nil {
		t.Fatal(err)
	}
	b := adminInput()
	b.Cedula, b.CorreoPersonal, b.CorreoInstitucional = "6006", "otra@mail.com", ""
	if _, err := f.svc.Register(ctx, b); err != nil {
		t.Fatalf("two accounts without institutional email clash: %v", err)
	}
}

func TestAccountsLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newAccountsFixture(t)
	u, _ := f.svc.Register(ctx, adminInput())

	res, err := f.svc.Login(ctx, "laura@uni.edu", "s3creta", models.RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if res.Message != "✅ Inicio de sesión exitoso" || res.Nombre != "Laura" || res.Role != models.RoleAdmin {
		t.Fatalf("result = %+v", res)
	}
	claims, err := f.issuer.Parse(res.Token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != u.ID.String() || claims.Role != models.RoleAdmin {
		t.Fatalf("claims = %+v", claims)
	}

	_, err = f.svc.Login(ctx, "laura@uni.edu", "wrong", models.RoleAdmin)
	wantKind(t, err, KindUnauthorized)
	_, err = f.svc.Login(ctx, "laura@uni.edu", "s3creta", models.RoleLector)
	wantKind(t, err, KindUnauthorized)
	_, err = f.svc.Login(ctx, "", "s3creta", models.RoleAdmin)
	wantKind(t, err, KindValidation)
}

func TestAccountsVerifyReaderPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newAccountsFixture(t)
	in := adminInput()
	in.Role = models.RoleLector
	_, _ = f.svc.Register(ctx, in)

	ok, err := f.svc.VerifyReaderPassword(ctx, "laura@uni.edu", "s3creta")
	if err != nil || !ok {
		t.Fatalf("correct password = %v, %v", ok, err)
	}
	ok, err = f.svc.VerifyReaderPassword(ctx, "laura@uni.edu", "nope")
	if err != nil || ok {
		t.Fatalf("wrong password = %v, %v", ok, err)
	}
	_, err = f.svc.VerifyReaderPassword(ctx, "nadie@uni.edu", "x")
	wantKind(t, err, KindNotFound)
}

func TestAccountsPasswordRecovery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newAccountsFixture(t)
	_, _ = f.svc.Register(ctx, adminInput())

	wantKind(t, f.svc.ForgotPassword(ctx, "nadie@uni.edu"), KindNotFound)

	if err := f.svc.ForgotPassword(ctx, "laura@uni.edu"); err != nil {
		t.Fatal(err)
	}
	if len(f.notifier.resets) != 1 {
		t.Fatalf("reset emails = %d", len(f.notifier.resets))
	}
	link, err := url.Parse(f.notifier.resets[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(f.notifier.resets[0], "https://huellas.example.edu/reset-password?") {
		t.Fatalf("reset link = %s", f.notifier.resets[0])
	}
	token := link.Query().Get("token")
	if len(token) != 40 || link.Query().Get("email") != "laura@uni.edu" {
		t.Fatalf("reset link = %s", link)
	}

	if err := f.svc.VerifyResetToken(ctx, "laura@uni.edu", token); err != nil {
		t.Fatalf("VerifyResetToken: %v", err)
	}
	wantKind(t, f.svc.VerifyResetToken(ctx, "laura@uni.edu", "bogus"), KindValidation)
	wantKind(t, f.svc.ResetPassword(ctx, "laura@uni.edu", token, ""), KindValidation)

	if err := f.svc.ResetPassword(ctx, "laura@uni.edu", token, "nueva123"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Login(ctx, "laura@uni.edu", "nueva123", models.RoleAdmin); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	wantKind(t, f.svc.ResetPassword(ctx, "laura@uni.edu", token, "otra"), KindValidation)
}

func TestAccountsResetTokenExpires(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newAccountsFixture(t)
	_, _ = f.svc.Register(ctx, adminInput())
	_ = f.svc.ForgotPassword(ctx, "laura@uni.edu")
	link, _ := url.Parse(f.notifier.resets[0])
	token := link.Query().Get("token")

	f.clock.Advance(2 * time.Hour)
	err := f.svc.ResetPassword(ctx, "", token, "nueva123")
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Message != "El token ha expirado. Solicita uno nuevo." {
		t.Fatalf("err = %v", err)
	}
}

func TestAccountsList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newAccountsFixture(t)
	_, _ = f.svc.Register(ctx, adminInput())
	in := adminInput()
	in.Role = models.RoleLector
	_, _ = f.svc.Register(ctx, in)

	all, err := f.svc.List(ctx, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("List(all) = %d, %v", len(all), err)
	}
	lectores, _ := f.svc.List(ctx, models.RoleLector)
	if len(lectores) != 1 {
		t.Fatalf("List(lector) = %d", len(lectores))
	}
	_, err = f.svc.List(ctx, "root")
	wantKind(t, err, KindValidation)
}
