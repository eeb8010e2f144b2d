package main

import "sync"

// RefreshTokenStore maps an issued refresh token to its subject. A token is
// exchangeable only while present here; deleting it permanently invalidates
// it. The backing medium is swappable; the service logic never changes.
type RefreshTokenStore interface {
	Put(token, subject string) error
	Get(token string) (string, bool, error)
	Delete(token string) error
}

// MemoryTokenStore keeps refresh tokens in process memory. Tokens do not
// survive a restart. There is no eviction: a subject that logs in
// repeatedly accumulates valid tokens until each expires.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: map[string]string{}}
}

func (s *MemoryTokenStore) Put(token, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = subject
	return nil
}

func (s *MemoryTokenStore) Get(token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.tokens[token]
	return subject, ok, nil
}

func (s *MemoryTokenStore) Delete(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}
