package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key prefixes separate tutor uploads from student submissions inside the bucket.
const (
	PrefixUploads     = "uploads"
	PrefixSubmissions = "submissions"
)

// ObjectStore provides access to the blob bucket holding every uploaded file.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited GET URL; downloadName sets Content-Disposition when not empty.
	PresignGet(ctx context.Context, key string, expiry time.Duration, downloadName string) (string, error)
	// PublicURL is the stable address of the object, or "" when the bucket is not public.
	PublicURL(key string) string
}

// NewKey builds a collision-free object key: <prefix>/yyyy/mm/dd/<unixnano>-<uuid><ext>.
func NewKey(prefix, ext string, now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%d-%s%s",
		prefix, now.Year(), int(now.Month()), now.Day(), now.UnixNano(), uuid.NewString(), strings.ToLower(ext))
}

// publicURL joins a base URL and an object key, escaping each key segment.
func publicURL(base, key string) string {
	if base == "" {
		return ""
	}
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + path.Join(segments...)
}

// attachment renders a Content-Disposition header value that forces a download under name.
func attachment(name string) string {
	safe := strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(name)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, safe, url.PathEscape(name))
}
