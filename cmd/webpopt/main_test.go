package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"webpoptimizer/internal/batch"
	"webpoptimizer/internal/testutil"
)

func setupCLIEnv(t *testing.T) string {
	t.Helper()
	dataDir := t.TempDir()
	t.Setenv("WEBPOPT_DATA_DIR", dataDir)
	t.Setenv("WEBPOPT_DATABASE_PATH", "")
	t.Setenv("WEBPOPT_INBOX_DIR", "")
	t.Setenv("WEBPOPT_LOG_LEVEL", "error")
	t.Setenv("WEBPOPT_LOG_FORMAT", "json")
	t.Setenv("WEBPOPT_SITE_URL", "https://site.test")
	return dataDir
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestConvertCommand(t *testing.T) {
	setupCLIEnv(t)
	dir := t.TempDir()
	jpg := testutil.WriteTestImage(t, dir, "photo.jpg", 30, 20)
	txt := testutil.WriteFile(t, dir, "notes.txt", []byte("x"))

	out, _, err := runCLI(t, "convert", "--json", "-q", "70", jpg, txt)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	var results []convertResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Outcome != "converted" || results[0].Width != 30 || results[0].Height != 20 {
		t.Errorf("unexpected jpg result %+v", results[0])
	}
	if results[1].Outcome != "not_applicable" {
		t.Errorf("unexpected txt result %+v", results[1])
	}
	if _, err := os.Stat(filepath.Join(dir, "photo.webp")); err != nil {
		t.Errorf("expected webp output: %v", err)
	}
	if _, err := os.Stat(jpg); err != nil {
		t.Errorf("convert must keep the source: %v", err)
	}
}

func TestConvertCommand_FailureExitCode(t *testing.T) {
	setupCLIEnv(t)
	broken := testutil.WriteCorruptImage(t, t.TempDir(), "broken.png")

	out, _, err := runCLI(t, "convert", broken)
	if err == nil || !strings.Contains(err.Error(), "1 of 1") {
		t.Fatalf("expected failure error, got %v", err)
	}
	if !strings.Contains(out, "decode_failed") {
		t.Errorf("expected table with outcome, got %q", out)
	}
}

func TestRegisterListBulk(t *testing.T) {
	dataDir := setupCLIEnv(t)
	uploads := filepath.Join(dataDir, "uploads")
	a := testutil.WriteTestImage(t, uploads, "a.jpg", 16, 16)
	b := testutil.WriteTestImage(t, t.TempDir(), "b.png", 16, 16)

	if _, _, err := runCLI(t, "register", b); err == nil {
		t.Fatal("expected error for file outside the data dir without --copy")
	}
	out, _, err := runCLI(t, "register", "--copy", a, b)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.Contains(out, "image/jpeg") || !strings.Contains(out, "image/png") {
		t.Errorf("unexpected register output %q", out)
	}
	if _, err := os.Stat(filepath.Join(uploads, "b.png")); err != nil {
		t.Fatalf("b.png should be copied into uploads: %v", err)
	}

	out, _, err = runCLI(t, "list", "--convertible")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "image/jpeg") || !strings.Contains(out, "image/png") {
		t.Errorf("unexpected list output %q", out)
	}

	if _, _, err := runCLI(t, "bulk"); err == nil {
		t.Fatal("expected error without ids or --all")
	}

	out, _, err = runCLI(t, "bulk", "--all", "--json")
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	var report batch.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report %q: %v", out, err)
	}
	if report.Processed() != 2 || report.Converted() != 2 {
		t.Fatalf("unexpected report %s", report.Summary())
	}
	for _, name := range []string{"a.webp", "b.webp"} {
		if _, err := os.Stat(filepath.Join(uploads, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	out, _, err = runCLI(t, "list", "--convertible")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No attachments") {
		t.Errorf("expected nothing left to convert, got %q", out)
	}
}

func TestHashPasswordCommand(t *testing.T) {
	out, _, err := runCLI(t, "hash-password", "s3cret")
	if err != nil {
		t.Fatalf("hash-password: %v", err)
	}
	hash := strings.TrimSpace(out)
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")); err != nil {
		t.Fatalf("printed hash does not verify: %v", err)
	}
}

func TestConfigShow(t *testing.T) {
	setupCLIEnv(t)
	t.Setenv("WEBPOPT_QUALITY", "55")
	out, _, err := runCLI(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "quality = 55") {
		t.Errorf("expected quality in output, got %q", out)
	}
}

func TestInvalidConfigFails(t *testing.T) {
	setupCLIEnv(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, "-c", path, "config", "validate"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestServeReturnsOnListenError(t *testing.T) {
	setupCLIEnv(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	t.Setenv("WEBPOPT_SERVER_ADDR", ln.Addr().String())

	done := make(chan error, 1)
	go func() {
		_, _, err := runCLI(t, "serve")
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "http server") {
			t.Fatalf("expected listen error, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("serve did not return after failing to listen on %s", ln.Addr())
	}
}
