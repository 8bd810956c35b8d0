// Package session keeps the two pieces of client state that outlive a single
// request: the backend credential (durable, per device) and the canonical
// contact currently being viewed (short-lived, per tab).
package session

import (
	"strings"

	"go.uber.org/zap"
)

// Fixed slot keys.
const (
	CredentialKey = "skinwise_token"
	ContactKey    = "skinwise_contact"
	VerifiedKey   = "skinwise_verified"
)

// Storage is a key-value slot store for a single scope.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// Backend hands out the Storage for one scope, such as a device or a tab.
type Backend interface {
	Scope(id string) Storage
}

// Store exposes the credential and contact slots. A Store with no storage
// behind a slot treats every call on that slot as a no-op.
type Store struct {
	durable Storage
	tab     Storage
	logger  *zap.Logger
}

// NewStore builds a Store over explicit storages. Either may be nil.
func NewStore(durable, tab Storage, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{durable: durable, tab: tab, logger: logger}
}

// SetToken trims and persists token. Empty or whitespace-only tokens are ignored.
func (s *Store) SetToken(token string) error {
	return s.set(s.durableStorage(), CredentialKey, token)
}

// Token returns the stored credential or "".
func (s *Store) Token() string {
	return s.get(s.durableStorage(), CredentialKey)
}

// ClearToken removes the credential.
func (s *Store) ClearToken() error {
	return s.remove(s.durableStorage(), CredentialKey)
}

// SetContact trims and persists the canonical contact in tab scope.
func (s *Store) SetContact(contact string) error {
	return s.set(s.tabStorage(), ContactKey, contact)
}

// Contact returns the tab's canonical contact or "".
func (s *Store) Contact() string {
	return s.get(s.tabStorage(), ContactKey)
}

// ClearContact removes the tab's contact.
func (s *Store) ClearContact() error {
	return s.remove(s.tabStorage(), ContactKey)
}

// MarkVerified records that this tab proved ownership of contact by OTP.
func (s *Store) MarkVerified(contact string) error {
	return s.set(s.tabStorage(), VerifiedKey, contact)
}

// Verified returns the contact this tab verified by OTP, or "".
func (s *Store) Verified() string {
	return s.get(s.tabStorage(), VerifiedKey)
}

// Clear drops the credential and every tab slot.
func (s *Store) Clear() error {
	if err := s.ClearToken(); err != nil {
		return err
	}
	if err := s.remove(s.tabStorage(), VerifiedKey); err != nil {
		return err
	}
	return s.ClearContact()
}

func (s *Store) durableStorage() Storage {
	if s == nil {
		return nil
	}
	return s.durable
}

func (s *Store) tabStorage() Storage {
	if s == nil {
		return nil
	}
	return s.tab
}

func (s *Store) set(st Storage, key, value string) error {
	value = strings.TrimSpace(value)
	if st == nil || value == "" {
		return nil
	}
	if err := st.Set(key, value); err != nil {
		s.logger.Warn("session slot write failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (s *Store) get(st Storage, key string) string {
	if st == nil {
		return ""
	}
	value, ok := st.Get(key)
	if !ok {
		return ""
	}
	return value
}

func (s *Store) remove(st Storage, key string) error {
	if st == nil {
		return nil
	}
	return st.Remove(key)
}

// Manager opens Stores for a device/tab pair.
type Manager struct {
	durable Backend
	tab     Backend
	logger  *zap.Logger
}

// NewManager builds a Manager. A nil backend disables that slot everywhere.
func NewManager(durable, tab Backend, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{durable: durable, tab: tab, logger: logger}
}

// Open returns the Store for deviceID and tabID. Tab slots are scoped under the
// device, so a tab ID replayed from another device sees nothing. An empty id
// leaves that slot without storage.
func (m *Manager) Open(deviceID, tabID string) *Store {
	var durable, tab Storage
	if m.durable != nil && deviceID != "" {
		durable = m.durable.Scope(deviceID)
	}
	if m.tab != nil && deviceID != "" && tabID != "" {
		tab = m.tab.Scope(deviceID + "/" + tabID)
	}
	return NewStore(durable, tab, m.logger)
}
