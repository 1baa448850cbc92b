package twofa

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certusflow/twofactor/pkg/audit"
	"github.com/certusflow/twofactor/pkg/secrets"
	"github.com/certusflow/twofactor/pkg/totp"
)

// currentCode returns the valid TOTP code for the secret right now.
func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCodeAt(secret, time.Now())
	require.NoError(t, err)
	return code
}

// wrongCode returns a well-formed six-digit code that is valid at no step of
// the current drift window, so a test using it cannot flake on a collision.
func wrongCode(t *testing.T, secret string) string {
	t.Helper()
	now := time.Now()
	window := make(map[string]bool)
	for offset := -2; offset <= 2; offset++ {
		code, err := totp.GenerateCodeAt(secret, now.Add(time.Duration(offset*totp.Period)*time.Second))
		require.NoError(t, err)
		window[code] = true
	}
	for _, candidate := range []string{
		"000000", "111111", "222222", "333333", "444444",
		"555555", "666666", "777777", "888888", "999999",
	} {
		if !window[candidate] {
			return candidate
		}
	}
	t.Fatal("no unused candidate code")
	return ""
}

func TestNewService(t *testing.T) {
	t.Parallel()

	storage := newMemStorage()
	auditLog := audit.NewLogger(&memAudit{}, nil)
	verifier := &fakeVerifier{}
	cfg := Config{DeviceTokenSecret: "secret"}

	t.Run("rejects short master key", func(t *testing.T) {
		t.Parallel()
		_, err := NewService(cfg, []byte("short"), storage, auditLog, verifier, nil)
		require.ErrorIs(t, err, secrets.ErrMasterKeyInvalid)
	})

	t.Run("rejects missing token secret", func(t *testing.T) {
		t.Parallel()
		_, err := NewService(Config{}, testMasterKey, storage, auditLog, verifier, nil)
		require.Error(t, err)
	})

	t.Run("rejects nil collaborators", func(t *testing.T) {
		t.Parallel()
		_, err := NewService(cfg, testMasterKey, nil, auditLog, verifier, nil)
		require.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		t.Parallel()
		svc, err := NewService(cfg, testMasterKey, storage, auditLog, verifier, nil)
		require.NoError(t, err)
		assert.Equal(t, 10, svc.cfg.BackupCodeCount)
		assert.Equal(t, 30*24*time.Hour, svc.cfg.TrustedDeviceTTL)
	})
}

func TestSetup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("new user gets pending record", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		result, err := env.svc.Setup(ctx, testUserID, testEmail)
		require.NoError(t, err)
		assert.NotEmpty(t, result.Secret)
		assert.Contains(t, result.ProvisioningURI, "otpauth://totp/")
		assert.Contains(t, result.ProvisioningURI, "issuer=CertusFlow")
		assert.True(t, strings.HasPrefix(result.QRCode, "data:image/png;base64,"))

		record, err := env.storage.GetRecord(ctx, testUserID)
		require.NoError(t, err)
		assert.False(t, record.Enabled)
		assert.Nil(t, record.VerifiedAt)
		assert.Empty(t, record.BackupCodes)
		// Stored ciphertext must not leak the plaintext secret.
		assert.NotEqual(t, result.Secret, record.EncryptedSecret)
		assert.NotContains(t, record.EncryptedSecret, result.Secret)

		events := env.audits.byType(audit.EventSetupInitiated)
		require.Len(t, events, 1)
		assert.True(t, events[0].Success)
	})

	t.Run("restart replaces pending secret", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		first, err := env.svc.Setup(ctx, testUserID, testEmail)
		require.NoError(t, err)
		second, err := env.svc.Setup(ctx, testUserID, testEmail)
		require.NoError(t, err)
		assert.NotEqual(t, first.Secret, second.Secret)

		// Only the latest secret confirms.
		_, err = env.svc.ConfirmSetup(ctx, testUserID, wrongCode(t, second.Secret))
		require.ErrorIs(t, err, ErrInvalidCode)
		_, err = env.svc.ConfirmSetup(ctx, testUserID, currentCode(t, second.Secret))
		require.NoError(t, err)
	})

	t.Run("already enabled", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.enroll(t)

		_, err := env.svc.Setup(ctx, testUserID, testEmail)
		require.ErrorIs(t, err, ErrAlreadyEnabled)
	})
}

func TestConfirmSetup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("no pending setup", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		_, err := env.svc.ConfirmSetup(ctx, testUserID, "123456")
		require.ErrorIs(t, err, ErrSetupNotFound)
	})

	t.Run("wrong code leaves record pending", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		setup, err := env.svc.Setup(ctx, testUserID, testEmail)
		require.NoError(t, err)

		_, err = env.svc.ConfirmSetup(ctx, testUserID, wrongCode(t, setup.Secret))
		require.ErrorIs(t, err, ErrInvalidCode)

		record, err := env.storage.GetRecord(ctx, testUserID)
		require.NoError(t, err)
		assert.False(t, record.Enabled)

		events := env.audits.byType(audit.EventVerifyAttempt)
		require.Len(t, events, 1)
		assert.False(t, events[0].Success)

		// Retry with the right code still works.
		codes, err := env.svc.ConfirmSetup(ctx, testUserID, currentCode(t, setup.Secret))
		require.NoError(t, err)
		assert.Len(t, codes, 10)
	})

	t.Run("malformed code is just a failed attempt", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		_, err := env.svc.Setup(ctx, testUserID, testEmail)
		require.NoError(t, err)

		for _, code := range []string{"", "12345", "1234567", "abcdef", "12 456"} {
			_, err = env.svc.ConfirmSetup(ctx, testUserID, code)
			require.ErrorIs(t, err, ErrInvalidCode)
		}
	})

	t.Run("success enables and issues backup codes", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		setup, err := env.svc.Setup(ctx, testUserID, testEmail)
		require.NoError(t, err)

		codes, err := env.svc.ConfirmSetup(ctx, testUserID, currentCode(t, setup.Secret))
		require.NoError(t, err)
		require.Len(t, codes, 10)
		for _, code := range codes {
			assert.Regexp(t, "^[0-9A-F]{8}$", code)
		}

		record, err := env.storage.GetRecord(ctx, testUserID)
		require.NoError(t, err)
		assert.True(t, record.Enabled)
		require.NotNil(t, record.VerifiedAt)
		assert.WithinDuration(t, time.Now().UTC(), *record.VerifiedAt, time.Minute)

		// Only hashes are stored.
		require.Len(t, record.BackupCodes, 10)
		for i, code := range codes {
			assert.NotEqual(t, code, record.BackupCodes[i])
			assert.Equal(t, totp.HashBackupCode(code), record.BackupCodes[i])
		}

		require.Len(t, env.audits.byType(audit.EventEnabled), 1)
	})

	t.Run("already enabled", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		secret, _ := env.enroll(t)

		_, err := env.svc.ConfirmSetup(ctx, testUserID, currentCode(t, secret))
		require.ErrorIs(t, err, ErrAlreadyEnabled)
	})

	t.Run("corrupt stored secret is masked", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		_, err := env.svc.Setup(ctx, testUserID, testEmail)
		require.NoError(t, err)

		env.storage.mu.Lock()
		env.storage.records[testUserID].EncryptedSecret = "not-a-ciphertext"
		env.storage.mu.Unlock()

		_, err = env.svc.ConfirmSetup(ctx, testUserID, "123456")
		require.ErrorIs(t, err, ErrInvalidCode)
		require.ErrorIs(t, err, secrets.ErrCorruptSecret)
	})
}

func TestDisable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("not enrolled", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		err := env.svc.Disable(ctx, testUserID, "123456")
		require.ErrorIs(t, err, ErrNotEnabled)
	})

	t.Run("pending setup is not enabled", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		setup, err := env.svc.Setup(ctx, testUserID, testEmail)
		require.NoError(t, err)

		err = env.svc.Disable(ctx, testUserID, currentCode(t, setup.Secret))
		require.ErrorIs(t, err, ErrNotEnabled)
	})

	t.Run("wrong code keeps protection on", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		secret, _ := env.enroll(t)

		err := env.svc.Disable(ctx, testUserID, wrongCode(t, secret))
		require.ErrorIs(t, err, ErrInvalidCode)

		status, err := env.svc.Status(ctx, testUserID)
		require.NoError(t, err)
		assert.True(t, status.Enabled)

		events := env.audits.byType(audit.EventDisableAttempt)
		require.Len(t, events, 1)
		assert.False(t, events[0].Success)
	})

	t.Run("backup codes are not accepted", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		_, codes := env.enroll(t)

		err := env.svc.Disable(ctx, testUserID, codes[0])
		require.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("valid code deletes the record", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		secret, _ := env.enroll(t)

		err := env.svc.Disable(ctx, testUserID, currentCode(t, secret))
		require.NoError(t, err)

		_, err = env.storage.GetRecord(ctx, testUserID)
		require.ErrorIs(t, err, ErrRecordNotFound)
		require.Len(t, env.audits.byType(audit.EventDisabled), 1)

		// Re-enrollment starts from scratch with a new secret.
		fresh, err := env.svc.Setup(ctx, testUserID, testEmail)
		require.NoError(t, err)
		assert.NotEqual(t, secret, fresh.Secret)
	})
}

func TestStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	env := newTestEnv(t)

	status, err := env.svc.Status(ctx, testUserID)
	require.NoError(t, err)
	assert.False(t, status.Enabled)
	assert.Nil(t, status.VerifiedAt)

	_, err = env.svc.Setup(ctx, testUserID, testEmail)
	require.NoError(t, err)

	status, err = env.svc.Status(ctx, testUserID)
	require.NoError(t, err)
	assert.False(t, status.Enabled)

	env.enroll(t)

	status, err = env.svc.Status(ctx, testUserID)
	require.NoError(t, err)
	assert.True(t, status.Enabled)
	assert.NotNil(t, status.VerifiedAt)
}

func TestEnrollmentStateConflicts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Storage refuses to overwrite an enabled record even if a stale Setup
	// call reaches it after a concurrent enable.
	env := newTestEnv(t)
	env.enroll(t)

	err := env.storage.SavePending(ctx, testUserID, "stale-ciphertext")
	require.ErrorIs(t, err, ErrStateConflict)

	err = env.storage.Enable(ctx, testUserID, nil, time.Now().UTC())
	require.ErrorIs(t, err, ErrStateConflict)

	record, err := env.storage.GetRecord(ctx, testUserID)
	require.NoError(t, err)
	assert.True(t, record.Enabled)
	assert.Len(t, record.BackupCodes, 10)
}
