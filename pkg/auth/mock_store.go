package auth

import (
	"sync"
)

// MockStore is an in-memory CookieStore with error injection for tests
type MockStore struct {
	mu      sync.Mutex
	cookies []Cookie
	present bool

	LoadError  error
	SaveError  error
	ClearError error

	loads int
	saves int
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{}
}

// NewMockStoreWith creates a mock store that already holds a session
func NewMockStoreWith(cookies []Cookie) *MockStore {
	m := &MockStore{}
	m.cookies = append([]Cookie(nil), cookies...)
	m.present = true
	return m
}

func (m *MockStore) Load() ([]Cookie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	if !m.present {
		return nil, nil
	}
	return append([]Cookie(nil), m.cookies...), nil
}

func (m *MockStore) Save(cookies []Cookie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.saves++
	m.cookies = append([]Cookie(nil), cookies...)
	m.present = true
	return nil
}

func (m *MockStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClearError != nil {
		return m.ClearError
	}
	m.cookies = nil
	m.present = false
	return nil
}

func (m *MockStore) Location() string { return "memory" }

// Saves counts successful Save calls
func (m *MockStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Loads counts Load calls
func (m *MockStore) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

// Cookies returns what was last saved
func (m *MockStore) Cookies() []Cookie {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Cookie(nil), m.cookies...)
}
