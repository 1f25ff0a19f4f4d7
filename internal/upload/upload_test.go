package upload_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"

	"webpoptimizer/internal/assets"
	"webpoptimizer/internal/metrics"
	"webpoptimizer/internal/pipeline"
	"webpoptimizer/internal/testutil"
	"webpoptimizer/internal/upload"
)

func newPipeline(t *testing.T) (*upload.Pipeline, *assets.Registry, *metrics.Logger) {
	t.Helper()
	db, reg, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)
	m := metrics.New(db, nil)
	p := upload.New(upload.Config{
		Converter: pipeline.NewConverter(pipeline.Options{}, nil),
		Registry:  reg,
		Recorder:  m,
		Quality:   80,
	})
	return p, reg, m
}

func TestHandle_ConvertsJPEG(t *testing.T) {
	p, reg, m := newPipeline(t)
	dir := t.TempDir()
	src := testutil.WriteTestImage(t, dir, "photo.jpg", 100, 100)
	in := upload.Upload{FilePath: src, MimeType: "image/jpeg", URL: "https://site.test/uploads/2024/05/photo.jpg"}

	out, res, err := p.Handle(context.Background(), in)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Outcome != pipeline.OutcomeConverted {
		t.Fatalf("expected converted, got %s (%v)", res.Outcome, res.Err)
	}
	want := filepath.Join(dir, "photo.webp")
	if out.FilePath != want {
		t.Errorf("FilePath = %q, want %q", out.FilePath, want)
	}
	if out.MimeType != "image/webp" {
		t.Errorf("MimeType = %q", out.MimeType)
	}
	if out.URL != "https://site.test/uploads/2024/05/photo.webp" {
		t.Errorf("URL = %q", out.URL)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("original should be deleted, stat err = %v", err)
	}

	f, err := os.Open(want)
	if err != nil {
		t.Fatalf("open webp: %v", err)
	}
	defer f.Close()
	cfg, err := webp.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode webp config: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 100 {
		t.Errorf("dimensions = %dx%d, want 100x100", cfg.Width, cfg.Height)
	}

	list, err := reg.List(context.Background(), assets.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].FilePath != want || list[0].MimeType != "image/webp" {
		t.Fatalf("unexpected registry contents: %+v", list)
	}
	if list[0].GUID != out.URL || list[0].Title != "photo" {
		t.Errorf("unexpected attachment %+v", list[0])
	}

	stats, err := m.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Last7Days.Converted != 1 {
		t.Errorf("expected 1 converted event, got %+v", stats.Last7Days)
	}
}

func TestHandle_PassThrough(t *testing.T) {
	p, reg, _ := newPipeline(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		up   upload.Upload
		want pipeline.Outcome
	}{
		{
			name: "gif",
			up:   upload.Upload{FilePath: testutil.WriteFile(t, dir, "anim.gif", []byte("GIF89a")), MimeType: "image/gif", URL: "u/anim.gif"},
			want: pipeline.OutcomeNotApplicable,
		},
		{
			name: "missing file",
			up:   upload.Upload{FilePath: filepath.Join(dir, "gone.jpg"), MimeType: "image/jpeg"},
			want: pipeline.OutcomeNotApplicable,
		},
		{
			name: "corrupt jpeg",
			up:   upload.Upload{FilePath: testutil.WriteCorruptImage(t, dir, "broken.jpg"), MimeType: "image/jpeg", URL: "u/broken.jpg"},
			want: pipeline.OutcomeDecodeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, res, err := p.Handle(context.Background(), tt.up)
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if res.Outcome != tt.want {
				t.Fatalf("outcome = %s, want %s", res.Outcome, tt.want)
			}
			if out != tt.up {
				t.Errorf("upload changed: %+v", out)
			}
		})
	}

	if n, _ := reg.Count(context.Background()); n != 0 {
		t.Errorf("expected no registered attachments, got %d", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "broken.webp")); !os.IsNotExist(err) {
		t.Errorf("no webp expected for corrupt input")
	}
}

func TestHandle_AlreadyConverted(t *testing.T) {
	p, _, _ := newPipeline(t)
	dir := t.TempDir()
	src := testutil.WriteTestImage(t, dir, "a.png", 10, 10)
	testutil.WriteFile(t, dir, "a.webp", []byte("existing"))

	in := upload.Upload{FilePath: src, MimeType: "image/png", URL: "u/a.png"}
	out, res, err := p.Handle(context.Background(), in)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Outcome != pipeline.OutcomeAlreadyConverted || out != in {
		t.Fatalf("expected untouched upload, got %+v %s", out, res.Outcome)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "a.webp"))
	if string(data) != "existing" {
		t.Errorf("existing webp was overwritten")
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("original must be kept: %v", err)
	}
}

type failingRegistry struct{}

func (failingRegistry) Register(context.Context, string, string) (assets.Attachment, error) {
	return assets.Attachment{}, errors.New("db down")
}

func TestHandle_RegisterFailureKeepsOriginal(t *testing.T) {
	p := upload.New(upload.Config{
		Converter: pipeline.NewConverter(pipeline.Options{}, nil),
		Registry:  failingRegistry{},
		Quality:   80,
	})
	dir := t.TempDir()
	src := testutil.WriteTestImage(t, dir, "b.jpg", 12, 12)
	in := upload.Upload{FilePath: src, MimeType: "image/jpeg", URL: "u/b.jpg"}

	out, _, err := p.Handle(context.Background(), in)
	if err == nil {
		t.Fatal("expected error")
	}
	if out != in {
		t.Errorf("upload should be unchanged, got %+v", out)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("original must survive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.webp")); !os.IsNotExist(err) {
		t.Errorf("unregistered webp should be removed")
	}
}

func TestIngest_RegistersUnconvertedOriginal(t *testing.T) {
	p, reg, _ := newPipeline(t)
	dir := t.TempDir()
	gif := testutil.WriteFile(t, dir, "anim.gif", []byte("GIF89a"))

	out, res, err := p.Ingest(context.Background(), upload.Upload{FilePath: gif, MimeType: "image/gif", URL: "https://site.test/anim.gif"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Outcome != pipeline.OutcomeNotApplicable || out.FilePath != gif {
		t.Fatalf("unexpected result %+v %s", out, res.Outcome)
	}
	list, err := reg.List(context.Background(), assets.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].FilePath != gif || list[0].MimeType != "image/gif" {
		t.Fatalf("expected the gif to be registered, got %+v", list)
	}
}

func TestIngest_ConvertedRegistersOnce(t *testing.T) {
	p, reg, _ := newPipeline(t)
	dir := t.TempDir()
	src := testutil.WriteTestImage(t, dir, "p.png", 8, 8)

	if _, _, err := p.Ingest(context.Background(), upload.Upload{FilePath: src, MimeType: "image/png", URL: "u/p.png"}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n, _ := reg.Count(context.Background()); n != 1 {
		t.Fatalf("expected exactly one attachment, got %d", n)
	}
}
