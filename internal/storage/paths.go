package storage

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// WebPExt is the extension given to every converted file.
const WebPExt = ".webp"

var convertibleExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Ext returns the lower-cased extension of path including the leading dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsConvertible reports whether path has a JPEG or PNG extension.
// The comparison is case-insensitive.
func IsConvertible(path string) bool {
	_, ok := convertibleExts[Ext(path)]
	return ok
}

// WebPPath returns the sibling path of src with its extension replaced by .webp:
// {dir}/{base}.webp
func WebPPath(src string) string {
	ext := filepath.Ext(src)
	return strings.TrimSuffix(src, ext) + WebPExt
}

// MimeType maps a file extension to the MIME type recorded for managed assets.
func MimeType(path string) string {
	ext := Ext(path)
	if ext == WebPExt {
		return "image/webp"
	}
	if mt, ok := convertibleExts[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		mt, _, _ = strings.Cut(mt, ";")
		return mt
	}
	return "application/octet-stream"
}

// Title returns the base name of path without its extension.
func Title(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Exists reports whether a file or directory is present at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// UniquePath returns dir/name, or dir/{base}-{n}{ext} for the first n that is
// free. The name is reduced to its base component. For JPEG and PNG names a
// candidate is also taken when its WebP sibling exists, so the file can still
// be converted.
func UniquePath(dir, name string) string {
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." || name == "" {
		name = "upload"
	}
	candidate := filepath.Join(dir, name)
	if pathFree(candidate) {
		return candidate
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, n, ext))
		if pathFree(candidate) {
			return candidate
		}
	}
}

func pathFree(p string) bool {
	if Exists(p) {
		return false
	}
	return !IsConvertible(p) || !Exists(WebPPath(p))
}
