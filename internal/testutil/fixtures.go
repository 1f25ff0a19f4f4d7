package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"webpoptimizer/internal/assets"
)

// CreateTestAttachment writes a generated image named name into dir and
// registers it. The guid is a fake site URL built from the name.
func CreateTestAttachment(t *testing.T, r *assets.Registry, dir, name string) assets.Attachment {
	t.Helper()

	path := WriteTestImage(t, dir, name, 24, 16)
	return RegisterTestFile(t, r, path)
}

// RegisterTestFile registers an existing file at path.
func RegisterTestFile(t *testing.T, r *assets.Registry, path string) assets.Attachment {
	t.Helper()

	a, err := r.Register(context.Background(), path, "https://example.test/uploads/"+filepath.Base(path))
	if err != nil {
		t.Fatalf("failed to register test attachment: %v", err)
	}
	return a
}

// HashPassword creates a bcrypt hash for testing admin authentication.
// MinCost keeps tests fast.
func HashPassword(t *testing.T, password string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	return string(hash)
}
