// Package session holds the device-local state that is not catalog data: the
// login credential, the selected customer, the device identity and a handful
// of preferences. Values live in an in-memory cache backed by one JSON file,
// the closest server-less equivalent of the browser storage the mobile app
// used.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/mobiorder/mobiorder/internal/model"
)

const (
	keyCredential = "credential"
	keyCustomer   = "customer"
	keyDeviceID   = "device-id"
	keyCulture    = "app-culture"
	keySyncEvery  = "app-syncinterval"
)

// DefaultCulture is used until the user picks a language.
const DefaultCulture = "nl-BE"

// Session is safe for concurrent use. Mutations persist to disk immediately;
// a session file that fails to parse is discarded and started fresh.
type Session struct {
	path  string
	log   *zap.Logger
	cache *gocache.Cache

	mu sync.Mutex
}

// Open loads the session file at path, creating it on first use with a fresh
// device id.
func Open(path string, log *zap.Logger) (*Session, error) {
	s := &Session{
		path:  path,
		log:   log,
		cache: gocache.New(gocache.NoExpiration, 0),
	}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// first run
	case err != nil:
		return nil, fmt.Errorf("read session: %w", err)
	default:
		var stored map[string]json.RawMessage
		if err := json.Unmarshal(raw, &stored); err != nil {
			log.Warn("session file unreadable, starting fresh", zap.Error(err))
		} else {
			for k, v := range stored {
				s.cache.Set(k, v, gocache.NoExpiration)
			}
		}
	}

	if _, ok := s.cache.Get(keyDeviceID); !ok {
		if err := s.set(keyDeviceID, uuid.NewString()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// DeviceID returns the stable identity of this installation.
func (s *Session) DeviceID() string {
	var id string
	_ = s.get(keyDeviceID, &id)
	return id
}

// SetCredential stores the login credential. An empty credential logs out.
func (s *Session) SetCredential(cred model.Credential) error {
	if cred == (model.Credential{}) {
		return s.remove(keyCredential)
	}
	return s.set(keyCredential, cred)
}

// Credential returns the stored credential. ok is false when nobody is
// logged in or the stored credential expired.
func (s *Session) Credential() (model.Credential, bool) {
	var cred model.Credential
	if err := s.get(keyCredential, &cred); err != nil {
		return model.Credential{}, false
	}
	if !cred.Expires.IsZero() && time.Now().After(cred.Expires) {
		return model.Credential{}, false
	}
	return cred, true
}

// SetCustomer stores the selected ordering context.
func (s *Session) SetCustomer(c model.Customer) error {
	return s.set(keyCustomer, c)
}

// Customer returns the selected ordering context.
func (s *Session) Customer() (model.Customer, bool) {
	var c model.Customer
	if err := s.get(keyCustomer, &c); err != nil {
		return model.Customer{}, false
	}
	return c, true
}

// ClearCustomer drops the selection, typically on logout.
func (s *Session) ClearCustomer() error {
	return s.remove(keyCustomer)
}

// SetCulture stores the user's language, e.g. "nl-BE" or "fr-BE".
func (s *Session) SetCulture(culture string) error {
	return s.set(keyCulture, culture)
}

// Culture returns the user's language, falling back to the default.
func (s *Session) Culture() string {
	var culture string
	if err := s.get(keyCulture, &culture); err != nil || culture == "" {
		return DefaultCulture
	}
	return culture
}

// SetSyncInterval stores how often the background refresh should run.
func (s *Session) SetSyncInterval(d time.Duration) error {
	return s.set(keySyncEvery, d.String())
}

// SyncInterval returns the configured refresh cadence, or fallback when none
// is set.
func (s *Session) SyncInterval(fallback time.Duration) time.Duration {
	var raw string
	if err := s.get(keySyncEvery, &raw); err != nil || raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func (s *Session) set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", key, err)
	}
	s.cache.Set(key, json.RawMessage(raw), gocache.NoExpiration)
	return s.persist()
}

func (s *Session) get(key string, out any) error {
	v, ok := s.cache.Get(key)
	if !ok {
		return fmt.Errorf("session: %s not set", key)
	}
	return json.Unmarshal(v.(json.RawMessage), out)
}

func (s *Session) remove(key string) error {
	s.cache.Delete(key)
	return s.persist()
}

// persist writes the whole cache to disk atomically.
func (s *Session) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.cache.Items()
	stored := make(map[string]json.RawMessage, len(items))
	for k, item := range items {
		stored[k] = item.Object.(json.RawMessage)
	}
	raw, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, s.path)
}
