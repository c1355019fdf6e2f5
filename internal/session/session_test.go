package session

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mobiorder/mobiorder/internal/model"
)

func openTestSession(t *testing.T, path string) *Session {
	t.Helper()
	s, err := Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	return s
}

// TestDeviceID_StableAcrossopens tests that the device id survives restarts
func TestDeviceID_StableAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	first := openTestSession(t, path)
	id := first.DeviceID()
	if id == "" {
		t.Fatal("DeviceID() is empty on first open")
	}

	second := openTestSession(t, path)
	if second.DeviceID() != id {
		t.Errorf("DeviceID() = %q after reopen, want %q", second.DeviceID(), id)
	}
}

// TestCredential_RoundTrip tests store, reload and logout
func TestCredential_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := openTestSession(t, path)

	if _, ok := s.Credential(); ok {
		t.Fatal("Credential() = ok before login")
	}

	cred := model.Credential{Username: "agent", Token: "secret-token-value", UserID: 42}
	if err := s.SetCredential(cred); err != nil {
		t.Fatalf("SetCredential() failed: %v", err)
	}

	reloaded := openTestSession(t, path)
	got, ok := reloaded.Credential()
	if !ok {
		t.Fatal("Credential() lost after reopen")
	}
	if got.Username != "agent" || got.UserID != 42 {
		t.Errorf("Credential() = %+v, want agent/42", got)
	}

	// Logout clears the credential.
	if err := reloaded.SetCredential(model.Credential{}); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, ok := reloaded.Credential(); ok {
		t.Error("Credential() = ok after logout")
	}
}

// TestCredential_Expired tests that an expired credential is treated as absent
func TestCredential_Expired(t *testing.T) {
	s := openTestSession(t, filepath.Join(t.TempDir(), "session.json"))

	cred := model.Credential{
		Username: "agent",
		Token:    "secret-token-value",
		Expires:  time.Now().Add(-time.Hour),
	}
	if err := s.SetCredential(cred); err != nil {
		t.Fatalf("SetCredential() failed: %v", err)
	}
	if _, ok := s.Credential(); ok {
		t.Error("Credential() = ok for an expired credential")
	}
}

// TestCustomer_RoundTrip tests the selected ordering context
func TestCustomer_RoundTrip(t *testing.T) {
	s := openTestSession(t, filepath.Join(t.TempDir(), "session.json"))

	if _, ok := s.Customer(); ok {
		t.Fatal("Customer() = ok before selection")
	}

	customer := model.Customer{ID: 7, AddressID: 2, AddressGroupID: 9, Name: "Bakkerij Joris"}
	if err := s.SetCustomer(customer); err != nil {
		t.Fatalf("SetCustomer() failed: %v", err)
	}

	got, ok := s.Customer()
	if !ok || got != customer {
		t.Errorf("Customer() = %+v ok=%v, want %+v", got, ok, customer)
	}

	if err := s.ClearCustomer(); err != nil {
		t.Fatalf("ClearCustomer() failed: %v", err)
	}
	if _, ok := s.Customer(); ok {
		t.Error("Customer() = ok after clear")
	}
}

// TestCulture_Default tests the fallback language
func TestCulture_Default(t *testing.T) {
	s := openTestSession(t, filepath.Join(t.TempDir(), "session.json"))

	if got := s.Culture(); got != DefaultCulture {
		t.Errorf("Culture() = %q, want %q", got, DefaultCulture)
	}
	if err := s.SetCulture("fr-BE"); err != nil {
		t.Fatalf("SetCulture() failed: %v", err)
	}
	if got := s.Culture(); got != "fr-BE" {
		t.Errorf("Culture() = %q, want fr-BE", got)
	}
}

// TestSyncInterval_Fallback tests bad or missing values fall back
func TestSyncInterval_Fallback(t *testing.T) {
	s := openTestSession(t, filepath.Join(t.TempDir(), "session.json"))

	if got := s.SyncInterval(time.Hour); got != time.Hour {
		t.Errorf("SyncInterval() = %v, want fallback", got)
	}
	if err := s.SetSyncInterval(15 * time.Minute); err != nil {
		t.Fatalf("SetSyncInterval() failed: %v", err)
	}
	if got := s.SyncInterval(time.Hour); got != 15*time.Minute {
		t.Errorf("SyncInterval() = %v, want 15m", got)
	}
}
