package dev

import (
	"path"
	"sync"
)

// PageStore holds the pages rendered by the last successful build. The dev
// server serves them from memory so the templates in the content base are
// never overwritten.
type PageStore struct {
	mu    sync.RWMutex
	pages map[string][]byte
}

// NewPageStore creates an empty store.
func NewPageStore() *PageStore {
	return &PageStore{pages: make(map[string][]byte)}
}

// Emit stores a page under its slash-separated name.
func (s *PageStore) Emit(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[path.Clean("/"+name)] = data
	return nil
}

// Get returns the page for a URL path. "/" and paths ending in "/" map to
// index.html.
func (s *PageStore) Get(urlPath string) ([]byte, bool) {
	p := path.Clean("/" + urlPath)
	if urlPath == "" || urlPath[len(urlPath)-1] == '/' {
		p = path.Join(p, "index.html")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.pages[p]
	return data, ok
}

// Len returns the number of stored pages.
func (s *PageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}
