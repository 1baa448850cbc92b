package twofa

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/certusflow/twofactor/pkg/audit"
	"github.com/certusflow/twofactor/pkg/qrcode"
	"github.com/certusflow/twofactor/pkg/secrets"
	"github.com/certusflow/twofactor/pkg/totp"
)

// Service implements the enrollment state machine, the login challenge flow
// and the trusted-device ledger. One instance is built at process start and
// shared across request handlers; it holds no mutable state of its own.
type Service struct {
	cfg       Config
	masterKey []byte
	storage   Storage
	audit     *audit.Logger
	verifier  PrimaryVerifier
	log       *slog.Logger
}

// NewService wires the module. The master key must already be validated (see
// secrets.LoadMasterKey); an invalid key or missing token secret is a
// construction error because it would otherwise fail on every request.
func NewService(cfg Config, masterKey []byte, storage Storage, auditLog *audit.Logger, verifier PrimaryVerifier, log *slog.Logger) (*Service, error) {
	if len(masterKey) != secrets.KeySize {
		return nil, secrets.ErrMasterKeyInvalid
	}
	if cfg.DeviceTokenSecret == "" {
		return nil, errors.New("twofa: device token secret is not set")
	}
	if storage == nil || auditLog == nil || verifier == nil {
		return nil, errors.New("twofa: storage, audit logger and verifier are required")
	}
	if cfg.BackupCodeCount <= 0 {
		cfg.BackupCodeCount = 10
	}
	if cfg.TrustedDeviceTTL <= 0 {
		cfg.TrustedDeviceTTL = 30 * 24 * time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		masterKey: masterKey,
		storage:   storage,
		audit:     auditLog,
		verifier:  verifier,
		log:       log,
	}, nil
}

// Setup begins enrollment: it generates a fresh secret, stores it encrypted
// with enabled=false, and returns the provisioning URI, a QR rendering of it,
// and the plaintext secret for manual entry. The plaintext leaves the process
// exactly once, here. A user with 2FA already enabled must disable first.
func (s *Service) Setup(ctx context.Context, userID, accountEmail string) (*SetupResult, error) {
	record, err := s.storage.GetRecord(ctx, userID)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}
	if record != nil && record.Enabled {
		return nil, ErrAlreadyEnabled
	}

	secret, err := totp.GenerateSecretKey()
	if err != nil {
		return nil, err
	}

	encrypted, err := secrets.Encrypt(secret, s.masterKey)
	if err != nil {
		return nil, err
	}

	if err := s.storage.SavePending(ctx, userID, encrypted); err != nil {
		if errors.Is(err, ErrStateConflict) {
			// Lost a race with a concurrent enable.
			return nil, ErrAlreadyEnabled
		}
		return nil, err
	}

	s.audit.Log(ctx, userID, audit.EventSetupInitiated, true)

	uri, err := totp.ProvisioningURI(totp.URIParams{
		Secret:      secret,
		AccountName: accountEmail,
		Issuer:      s.cfg.Issuer,
	})
	if err != nil {
		return nil, err
	}

	qr, err := qrcode.DataURI(uri, s.cfg.QRCodeSize)
	if err != nil {
		return nil, err
	}

	return &SetupResult{ProvisioningURI: uri, Secret: secret, QRCode: qr}, nil
}

// ConfirmSetup completes enrollment with a code from the authenticator app.
// On success it enables the record, stamps verified_at, and returns the
// freshly issued plaintext backup codes — the only time they are disclosed.
// An invalid code leaves the pending record untouched; retry is always
// possible during setup.
func (s *Service) ConfirmSetup(ctx context.Context, userID, code string) ([]string, error) {
	record, err := s.storage.GetRecord(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrSetupNotFound
		}
		return nil, err
	}
	if record.Enabled {
		return nil, ErrAlreadyEnabled
	}

	ok, err := s.checkTOTP(ctx, userID, record, code)
	s.audit.Log(ctx, userID, audit.EventVerifyAttempt, ok)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCode
	}

	codes, err := totp.GenerateBackupCodes(s.cfg.BackupCodeCount)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = totp.HashBackupCode(c)
	}

	if err := s.storage.Enable(ctx, userID, hashes, time.Now().UTC()); err != nil {
		if errors.Is(err, ErrStateConflict) {
			return nil, ErrAlreadyEnabled
		}
		return nil, err
	}

	s.audit.Log(ctx, userID, audit.EventEnabled, true)
	return codes, nil
}

// Disable turns 2FA off. It requires a currently valid TOTP code — backup
// codes are deliberately not accepted for this higher-privilege action. The
// whole record is deleted so a later re-enrollment starts from a clean
// secret.
func (s *Service) Disable(ctx context.Context, userID, code string) error {
	record, err := s.storage.GetRecord(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrNotEnabled
		}
		return err
	}
	if !record.Enabled {
		return ErrNotEnabled
	}

	ok, err := s.checkTOTP(ctx, userID, record, code)
	s.audit.Log(ctx, userID, audit.EventDisableAttempt, ok)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}

	if err := s.storage.DeleteRecord(ctx, userID); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			// Concurrent disable won the race; the record is gone either way.
			return ErrNotEnabled
		}
		return err
	}

	s.audit.Log(ctx, userID, audit.EventDisabled, true)
	return nil
}

// Status reports whether 2FA is enabled and since when.
func (s *Service) Status(ctx context.Context, userID string) (Status, error) {
	record, err := s.storage.GetRecord(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Status{}, nil
		}
		return Status{}, err
	}
	return Status{Enabled: record.Enabled, VerifiedAt: record.VerifiedAt}, nil
}

// checkTOTP decrypts the record's secret and validates a TOTP code against
// it. A malformed code counts as a failed check, not an error, so callers
// audit it like any other mismatch while the user sees one generic message.
// A secret that no longer decrypts makes the record unusable; that integrity
// failure is logged distinctly and masked to the caller.
func (s *Service) checkTOTP(ctx context.Context, userID string, record *TwoFactorRecord, code string) (bool, error) {
	secret, err := secrets.Decrypt(record.EncryptedSecret, s.masterKey)
	if err != nil {
		s.log.ErrorContext(ctx, "two-factor secret failed to decrypt",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return false, errors.Join(ErrInvalidCode, err)
	}

	ok, err := totp.ValidateCode(secret, code)
	if err != nil {
		if errors.Is(err, totp.ErrCodeFormat) {
			// Internally a format rejection, externally indistinguishable
			// from a wrong code.
			s.log.DebugContext(ctx, "rejected malformed one-time code",
				slog.String("user_id", userID))
			return false, nil
		}
		return false, err
	}
	return ok, nil
}
