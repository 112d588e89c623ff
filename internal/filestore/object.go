package filestore

import (
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/koustreak/dbdeck/internal/errs"
)

// ObjectInfo describes a single stored object.
type ObjectInfo struct {
	// Key is the object path within the bucket or directory, always
	// slash-separated (e.g. "exports/2025/results.csv").
	Key string `json:"key"`

	// Size is the byte size of the object.
	Size int64 `json:"size"`

	ContentType string `json:"content_type,omitempty"`

	// ETag is the backend's entity tag. Empty for the local provider.
	ETag string `json:"etag,omitempty"`

	LastModified time.Time `json:"last_modified"`
}

// Object is a streaming handle to an object's content.
// The caller MUST call Close() after reading to avoid resource leaks.
type Object interface {
	io.ReadCloser

	// Info returns the metadata for this object.
	Info() *ObjectInfo
}

// ListOptions controls which objects List returns.
type ListOptions struct {
	// Prefix restricts results to keys starting with this string.
	Prefix string

	// Limit caps the number of results. 0 means no limit.
	Limit int
}

// CleanKey normalises key to a relative slash path and rejects keys that are
// empty or escape the store root.
func CleanKey(key string) (string, error) {
	k := strings.TrimLeft(strings.ReplaceAll(key, "\\", "/"), "/")
	if k == "" {
		return "", errs.New(errs.ErrKindInvalidConfig, "object key is required")
	}
	k = path.Clean(k)
	if k == "." || k == ".." || strings.HasPrefix(k, "../") {
		return "", errs.Newf(errs.ErrKindInvalidConfig, "invalid object key %q", key)
	}
	return k, nil
}

var knownTypes = map[string]string{
	".csv":  "text/csv",
	".json": "application/json",
}

// ContentTypeFor guesses a MIME type from the key's extension.
func ContentTypeFor(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ct, ok := knownTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
