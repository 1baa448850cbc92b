package twofa

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/certusflow/twofactor/pkg/audit"
)

// memStorage is a mutex-guarded in-memory Storage. The conditional writes
// hold the same atomicity contract as the Postgres implementation, so the
// concurrency properties of the service are testable without a database.
type memStorage struct {
	mu      sync.Mutex
	records map[string]*TwoFactorRecord
	devices map[string]TrustedDevice // keyed by userID + "/" + fingerprint
}

func newMemStorage() *memStorage {
	return &memStorage{
		records: make(map[string]*TwoFactorRecord),
		devices: make(map[string]TrustedDevice),
	}
}

func deviceKey(userID, fp string) string { return userID + "/" + fp }

func (m *memStorage) GetRecord(_ context.Context, userID string) (*TwoFactorRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[userID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	clone := *record
	clone.BackupCodes = slices.Clone(record.BackupCodes)
	return &clone, nil
}

func (m *memStorage) SavePending(_ context.Context, userID, encryptedSecret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.records[userID]; ok && existing.Enabled {
		return ErrStateConflict
	}
	m.records[userID] = &TwoFactorRecord{
		UserID:          userID,
		EncryptedSecret: encryptedSecret,
		BackupCodes:     []string{},
	}
	return nil
}

func (m *memStorage) Enable(_ context.Context, userID string, backupHashes []string, verifiedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[userID]
	if !ok || record.Enabled {
		return ErrStateConflict
	}
	record.Enabled = true
	record.VerifiedAt = &verifiedAt
	record.BackupCodes = slices.Clone(backupHashes)
	return nil
}

func (m *memStorage) DeleteRecord(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[userID]; !ok {
		return ErrRecordNotFound
	}
	delete(m.records, userID)
	return nil
}

func (m *memStorage) ConsumeBackupCode(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[userID]
	if !ok || !record.Enabled {
		return ErrBackupCodeUnknown
	}
	idx := slices.Index(record.BackupCodes, hash)
	if idx < 0 {
		return ErrBackupCodeUnknown
	}
	record.BackupCodes = slices.Delete(record.BackupCodes, idx, idx+1)
	return nil
}

func (m *memStorage) UpsertDevice(_ context.Context, device TrustedDevice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := deviceKey(device.UserID, device.Fingerprint)
	if existing, ok := m.devices[key]; ok {
		device.ID = existing.ID
	}
	m.devices[key] = device
	return nil
}

func (m *memStorage) GetDevice(_ context.Context, userID, fp string) (*TrustedDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := deviceKey(userID, fp)
	device, ok := m.devices[key]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	if device.Expired(time.Now().UTC()) {
		delete(m.devices, key)
		return nil, ErrDeviceNotFound
	}
	clone := device
	return &clone, nil
}

func (m *memStorage) TouchDevice(_ context.Context, userID, fp string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := deviceKey(userID, fp)
	if device, ok := m.devices[key]; ok {
		device.LastUsedAt = at
		m.devices[key] = device
	}
	return nil
}

func (m *memStorage) ListDevices(_ context.Context, userID string) ([]TrustedDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	var devices []TrustedDevice
	for _, device := range m.devices {
		if device.UserID == userID && !device.Expired(now) {
			devices = append(devices, device)
		}
	}
	slices.SortFunc(devices, func(a, b TrustedDevice) int {
		return b.LastUsedAt.Compare(a.LastUsedAt)
	})
	return devices, nil
}

func (m *memStorage) DeleteDevice(_ context.Context, userID, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, device := range m.devices {
		if device.UserID == userID && device.ID == deviceID {
			delete(m.devices, key)
			return nil
		}
	}
	return ErrDeviceNotFound
}

func (m *memStorage) DeleteDevicesExcept(_ context.Context, userID, keepFingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, device := range m.devices {
		if device.UserID == userID && device.Fingerprint != keepFingerprint {
			delete(m.devices, key)
		}
	}
	return nil
}

func (m *memStorage) PruneExpiredDevices(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pruned int64
	for key, device := range m.devices {
		if device.Expired(now) {
			delete(m.devices, key)
			pruned++
		}
	}
	return pruned, nil
}

// setDeviceExpiry rewrites a stored device's expiry for tests.
func (m *memStorage) setDeviceExpiry(userID, fp string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := deviceKey(userID, fp)
	if device, ok := m.devices[key]; ok {
		device.ExpiresAt = expiresAt
		m.devices[key] = device
	}
}

// memAudit records audit events in memory.
type memAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *memAudit) Store(_ context.Context, event audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memAudit) byType(eventType audit.EventType) []audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []audit.Event
	for _, e := range m.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fakeVerifier is a canned PrimaryVerifier with one known account. Every
// successful verification issues a distinct session; revoked sessions are
// remembered for assertions.
type fakeVerifier struct {
	mu       sync.Mutex
	email    string
	password string
	userID   string
	issued   int
	revoked  []string
}

func (f *fakeVerifier) VerifyCredentials(_ context.Context, email, password string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if email != f.email || password != f.password {
		return "", "", ErrInvalidCredentials
	}
	f.issued++
	return f.userID, "session-" + strconv.Itoa(f.issued), nil
}

func (f *fakeVerifier) RevokeSession(_ context.Context, session string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, session)
	return nil
}

func (f *fakeVerifier) revokedSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.revoked)
}

const (
	testUserID   = "user-42"
	testEmail    = "jane@example.com"
	testPassword = "correct horse battery staple"
	testUA       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"
	testIP       = "203.0.113.7"
)

var testMasterKey = []byte("0123456789abcdef0123456789abcdef")

type testEnv struct {
	svc      *Service
	storage  *memStorage
	audits   *memAudit
	verifier *fakeVerifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	storage := newMemStorage()
	audits := &memAudit{}
	verifier := &fakeVerifier{email: testEmail, password: testPassword, userID: testUserID}
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := NewService(Config{
		Issuer:            "CertusFlow",
		BackupCodeCount:   10,
		TrustedDeviceTTL:  30 * 24 * time.Hour,
		DeviceTokenSecret: "test-device-token-secret",
		QRCodeSize:        128,
	}, testMasterKey, storage, audit.NewLogger(audits, discard), verifier, discard)
	require.NoError(t, err)

	return &testEnv{svc: svc, storage: storage, audits: audits, verifier: verifier}
}

// enroll walks a user through the full Setup + ConfirmSetup flow and returns
// the plaintext secret and backup codes.
func (e *testEnv) enroll(t *testing.T) (string, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := e.svc.Setup(ctx, testUserID, testEmail)
	require.NoError(t, err)

	code := currentCode(t, setup.Secret)
	codes, err := e.svc.ConfirmSetup(ctx, testUserID, code)
	require.NoError(t, err)

	return setup.Secret, codes
}

func (e *testEnv) loginReq(code string) LoginRequest {
	return LoginRequest{
		Email:    testEmail,
		Password: testPassword,
		Code:     code,
		Meta:     RequestMeta{IP: testIP, UserAgent: testUA},
	}
}
