package auth

import (
	"context"
	"strings"
	"testing"
	"time"
)

func withSecret(t *testing.T, value string) {
	t.Helper()
	ResetSecretForTests()
	t.Setenv("FACT_AUTH_SECRET", value)
	t.Cleanup(ResetSecretForTests)
}

func TestGenerateAndValidate(t *testing.T) {
	withSecret(t, "super-secret")

	token, err := GenerateToken("user-42", "emp-1", []string{"Admin", "facturador", "admin"}, 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if claims.EmpresaID != "emp-1" {
		t.Fatalf("empresa = %q", claims.EmpresaID)
	}
	if len(claims.Roles) != 2 {
		t.Fatalf("roles not deduplicated: %v", claims.Roles)
	}
	if claims.ID == "" {
		t.Fatal("jti missing")
	}
}

func TestGenerateTokenRequiresFields(t *testing.T) {
	withSecret(t, "super-secret")

	if _, err := GenerateToken("", "emp-1", nil, time.Minute); err == nil {
		t.Fatal("expected error for empty user")
	}
	if _, err := GenerateToken("u", "", nil, time.Minute); err == nil {
		t.Fatal("expected error for empty empresa")
	}
	if _, err := GenerateToken("u", "emp-1", nil, 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}

func TestMissingSecret(t *testing.T) {
	withSecret(t, "")

	if _, err := GenerateToken("u", "emp-1", nil, time.Minute); err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestParseRejectsTampering(t *testing.T) {
	withSecret(t, "super-secret")

	token, err := GenerateToken("user-42", "emp-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA"
	if _, err := ParseAndValidate(tampered); err == nil {
		t.Fatal("expected invalid signature to fail")
	}
	if _, err := ParseAndValidate(""); err == nil {
		t.Fatal("expected empty token to fail")
	}
	if _, err := ParseAndValidate("not-a-jwt"); err == nil {
		t.Fatal("expected malformed token to fail")
	}
}

func TestExpiredToken(t *testing.T) {
	withSecret(t, "super-secret")

	token, err := GenerateToken("user-42", "emp-1", nil, time.Millisecond)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := ParseAndValidate(token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := ContextWithSession(context.Background(), "user-42", "emp-1")

	uid, ok := UserIDFromContext(ctx)
	if !ok || uid != "user-42" {
		t.Fatalf("user = %q, %v", uid, ok)
	}
	emp, ok := EmpresaFromContext(ctx)
	if !ok || emp != "emp-1" {
		t.Fatalf("empresa = %q, %v", emp, ok)
	}

	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("empty context should have no user")
	}
	if _, ok := EmpresaFromContext(context.Background()); ok {
		t.Fatal("empty context should have no empresa")
	}
}
