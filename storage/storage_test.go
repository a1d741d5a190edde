package storage

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyFormat(t *testing.T) {
	now := time.Date(2026, 2, 7, 23, 30, 0, 0, time.UTC)
	k := NewKey(PrefixSubmissions, ".PDF", now)

	re := regexp.MustCompile(`^submissions/2026/02/07/\d+-[0-9a-f-]{36}\.pdf$`)
	assert.Regexp(t, re, k)
}

func TestNewKeyIsUnique(t *testing.T) {
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		k := NewKey(PrefixUploads, ".txt", now)
		require.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
}

func TestPublicURL(t *testing.T) {
	assert.Empty(t, publicURL("", "uploads/a.pdf"))
	assert.Equal(t, "https://cdn.example.com/bucket/uploads/2026/a%20b.pdf",
		publicURL("https://cdn.example.com/bucket/", "uploads/2026/a b.pdf"))
}

func TestAttachmentStripsQuotes(t *testing.T) {
	v := attachment(`evil"name.pdf`)
	assert.True(t, strings.HasPrefix(v, `attachment; filename="evilname.pdf"`))
	assert.Contains(t, v, "filename*=UTF-8''"+url.PathEscape(`evil"name.pdf`))
}

func TestS3StorePresignGet(t *testing.T) {
	s, err := NewS3Store(context.Background(), S3Options{
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "studyshare",
		Region:    "us-east-1",
	})
	require.NoError(t, err)

	raw, err := s.PresignGet(context.Background(), "uploads/2026/01/01/1-x.pdf", 15*time.Minute, "Week 1.pdf")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/studyshare/uploads/2026/01/01/1-x.pdf", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.Contains(t, u.Query().Get("response-content-disposition"), `filename="Week 1.pdf"`)
	assert.Empty(t, s.PublicURL("uploads/x"))
}
