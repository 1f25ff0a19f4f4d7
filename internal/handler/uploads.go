package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"webpoptimizer/internal/storage"
	"webpoptimizer/internal/upload"
)

const (
	uploadFormField = "files"
	maxUploadTotal  = int64(100 << 20) // 100MB
	maxUploadFile   = int64(25 << 20)  // 25MB
)

var errFileTooLarge = errors.New("file too large")

// UploadResult is returned for each uploaded file.
type UploadResult struct {
	Filename string `json:"filename"`
	File     string `json:"file,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	URL      string `json:"url,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Upload streams multipart files into the library and runs each through the
// upload pipeline.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	// Set per-request timeout to avoid hung uploads
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadTotal)
	mr, err := r.MultipartReader()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read multipart")
		return
	}

	results := []UploadResult{}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			h.logger.Warn("read multipart part", "error", err)
			break
		}
		if part.FormName() != uploadFormField || part.FileName() == "" {
			part.Close()
			continue
		}
		results = append(results, h.storeUpload(ctx, part.FileName(), part))
		part.Close()
	}

	if len(results) == 0 {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("no files in field %q", uploadFormField))
		return
	}
	h.writeJSON(w, http.StatusOK, results)
}

func (h *Handler) storeUpload(ctx context.Context, filename string, body io.Reader) UploadResult {
	result := UploadResult{Filename: filename}

	path, err := h.writeUpload(filename, body)
	if err != nil {
		h.logger.Warn("store upload", "filename", filename, "error", err)
		result.Error = err.Error()
		return result
	}

	url, err := h.library.URL(h.siteURL, path)
	if err != nil {
		h.logger.Warn("build url", "path", path, "error", err)
	}
	out, res, err := h.uploads.Ingest(ctx, upload.Upload{FilePath: path, MimeType: storage.MimeType(path), URL: url})
	result.File = out.FilePath
	result.MimeType = out.MimeType
	result.URL = out.URL
	result.Outcome = string(res.Outcome)
	switch {
	case err != nil:
		result.Error = err.Error()
	case res.Err != nil && !res.Outcome.Produced():
		result.Error = res.Err.Error()
	}
	return result
}

// writeUpload stores body under a unique name in the uploads dir.
func (h *Handler) writeUpload(filename string, body io.Reader) (string, error) {
	path := storage.UniquePath(h.library.UploadsDir(), filename)
	err := storage.CreateExclusive(path, func(w io.Writer) error {
		n, err := io.Copy(w, io.LimitReader(body, maxUploadFile+1))
		if err != nil {
			return fmt.Errorf("read failed: %w", err)
		}
		if n > maxUploadFile {
			return errFileTooLarge
		}
		return nil
	})
	switch {
	case errors.Is(err, errFileTooLarge):
		return "", errFileTooLarge
	case errors.Is(err, storage.ErrExists):
		return "", fmt.Errorf("%s was taken by a concurrent upload", filepath.Base(path))
	case err != nil:
		return "", err
	}
	return path, nil
}
