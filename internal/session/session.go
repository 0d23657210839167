package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/qlbh/storefront/internal/shop"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "administrator"
)

// Session carries the identity the provider vouched for plus the cart that
// lives and dies with it. Nothing here is global: every cart operation gets
// the session passed in explicitly.
type Session struct {
	Token      string
	CustomerID string
	Role       Role
	Cart       *shop.Cart
}

// Manager maps bearer tokens to sessions. The storefront trusts the identity
// it is handed (role checks happen at the HTTP layer); it does not
// authenticate.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Issue creates a session for the given identity and returns it. A customer
// gets a fresh empty cart.
func (m *Manager) Issue(customerID string, role Role) *Session {
	s := &Session{
		Token:      uuid.NewString(),
		CustomerID: customerID,
		Role:       role,
		Cart:       shop.NewCart(),
	}
	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(token string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	return s, ok
}

// Revoke drops the session; the cart disappears with it.
func (m *Manager) Revoke(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}
