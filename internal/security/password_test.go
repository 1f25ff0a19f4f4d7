package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	password := "mySecurePassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if hash == "" || hash == password {
		t.Fatalf("unexpected hash %q", hash)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil || cost != PasswordCost {
		t.Fatalf("expected cost %d, got %d (%v)", PasswordCost, cost, err)
	}
	if !VerifyPassword(hash, password) {
		t.Error("Should verify correct password")
	}
	if VerifyPassword(hash, "wrongPassword") {
		t.Error("Should not verify incorrect password")
	}
}

func TestHashPassword_Empty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}

func TestAdminCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	creds := AdminCredentials{User: "admin", PasswordHash: string(hash)}

	p, ok := creds.Authenticate("admin", "s3cret")
	if !ok || !p.Admin || p.Name != "admin" {
		t.Fatalf("expected admin principal, got %+v %v", p, ok)
	}
	if _, ok := creds.Authenticate("admin", "nope"); ok {
		t.Fatalf("wrong password accepted")
	}
	if _, ok := creds.Authenticate("root", "s3cret"); ok {
		t.Fatalf("wrong user accepted")
	}
	if _, ok := (AdminCredentials{}).Authenticate("", ""); ok {
		t.Fatalf("unconfigured credentials accepted")
	}
}
