// Package storagetest provides an in-memory storage.ObjectStore for tests.
package storagetest

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"time"
)

// ErrInjected is returned by operations a test configured to fail.
var ErrInjected = errors.New("storagetest: injected failure")

type Object struct {
	Data        []byte
	ContentType string
}

// Store keeps objects in a map. FailPut / FailDelete make the next calls fail.
type Store struct {
	mu         sync.Mutex
	objects    map[string]Object
	BaseURL    string
	FailPut    bool
	FailDelete bool
	Deletes    int
}

func New() *Store {
	return &Store{objects: map[string]Object{}}
}

func (s *Store) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPut {
		return ErrInjected
	}
	s.objects[key] = Object{Data: data, ContentType: contentType}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deletes++
	if s.FailDelete {
		return ErrInjected
	}
	delete(s.objects, key)
	return nil
}

func (s *Store) PresignGet(_ context.Context, key string, expiry time.Duration, downloadName string) (string, error) {
	q := url.Values{}
	q.Set("expires", expiry.String())
	if downloadName != "" {
		q.Set("name", downloadName)
	}
	return "https://signed.test/" + key + "?" + q.Encode(), nil
}

func (s *Store) PublicURL(key string) string {
	if s.BaseURL == "" {
		return ""
	}
	return s.BaseURL + "/" + key
}

// Get returns a stored object.
func (s *Store) Get(key string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[key]
	return o, ok
}

// Len reports how many objects are stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// SetFailDelete toggles delete failures while holding the lock.
func (s *Store) SetFailDelete(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailDelete = v
}
