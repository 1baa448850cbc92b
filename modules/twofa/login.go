package twofa

import (
	"context"
	"errors"
	"log/slog"

	"github.com/certusflow/twofactor/pkg/audit"
	"github.com/certusflow/twofactor/pkg/totp"
)

// LoginRequest is one complete login attempt, first and second factor
// together.
type LoginRequest struct {
	Email    string
	Password string

	// Code is the 6-digit TOTP or a backup code, depending on IsBackupCode.
	Code         string
	IsBackupCode bool

	// TrustDevice asks to skip the challenge on this device next time.
	TrustDevice bool

	// DeviceToken is a previously issued trusted-device bearer token, if the
	// client has one.
	DeviceToken string

	Meta RequestMeta
}

// LoginResult is returned when a login attempt fully succeeds.
type LoginResult struct {
	// UserID is the stable identifier from the primary verifier.
	UserID string

	// Session is the credential issued by the primary verifier.
	Session string

	// SecondFactorUsed is false when the user has no enabled 2FA record.
	SecondFactorUsed bool

	// DeviceBypassed is true when a trusted device skipped the challenge.
	DeviceBypassed bool

	// DeviceToken is set when TrustDevice was requested and granted; the
	// caller stores it client-side as an opaque bearer credential.
	DeviceToken string
}

// Login runs the full challenge flow. Primary credentials are checked first
// and any failure there returns ErrInvalidCredentials without touching 2FA
// state, so the login path cannot be used to enumerate accounts. When the
// second factor fails, the session from the first factor is revoked before
// the error is returned.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	userID, session, err := s.verifier.VerifyCredentials(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	record, err := s.storage.GetRecord(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			// No second factor configured; the primary session stands.
			return &LoginResult{UserID: userID, Session: session}, nil
		}
		return nil, err
	}
	if !record.Enabled {
		// A pending setup grants no protection and requires no challenge.
		return &LoginResult{UserID: userID, Session: session}, nil
	}

	if req.DeviceToken != "" {
		if _, err := s.resolveDevice(ctx, req.DeviceToken, userID, req.Meta.UserAgent); err == nil {
			s.audit.Log(ctx, userID, audit.EventLoginSuccess, true,
				audit.WithIP(req.Meta.IP), audit.WithUserAgent(req.Meta.UserAgent))
			return &LoginResult{
				UserID:           userID,
				Session:          session,
				SecondFactorUsed: true,
				DeviceBypassed:   true,
			}, nil
		}
		// An unusable token falls through to the regular challenge.
	}

	ok, checkErr := s.checkSecondFactor(ctx, userID, record, req)
	if !ok {
		s.failLogin(ctx, userID, session, req.Meta)
		if checkErr != nil {
			return nil, checkErr
		}
		return nil, ErrInvalidCode
	}

	result := &LoginResult{UserID: userID, Session: session, SecondFactorUsed: true}

	if req.TrustDevice {
		deviceToken, err := s.trustDevice(ctx, userID, req.Meta)
		if err != nil {
			// Trusting the device is best effort; the login itself already
			// succeeded.
			s.log.ErrorContext(ctx, "failed to register trusted device",
				slog.String("user_id", userID), slog.Any("error", err))
		} else {
			result.DeviceToken = deviceToken
		}
	}

	s.audit.Log(ctx, userID, audit.EventLoginSuccess, true,
		audit.WithIP(req.Meta.IP), audit.WithUserAgent(req.Meta.UserAgent))
	return result, nil
}

// checkSecondFactor validates the submitted code on the path the caller
// chose. Backup-code exhaustion is not an error for the TOTP path: a user
// with zero codes left can still authenticate with the app.
func (s *Service) checkSecondFactor(ctx context.Context, userID string, record *TwoFactorRecord, req LoginRequest) (bool, error) {
	if req.IsBackupCode {
		hash := totp.HashBackupCode(req.Code)
		// Consumption is atomic with the grant: of N concurrent submissions
		// of the same code exactly one reaches this removal first.
		err := s.storage.ConsumeBackupCode(ctx, userID, hash)
		if err != nil {
			if errors.Is(err, ErrBackupCodeUnknown) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}
	return s.checkTOTP(ctx, userID, record, req.Code)
}

// failLogin audits the failure and revokes the primary session. A failed
// second factor must never leave a live session from the first factor.
func (s *Service) failLogin(ctx context.Context, userID, session string, meta RequestMeta) {
	s.audit.Log(ctx, userID, audit.EventLoginFailed, false,
		audit.WithIP(meta.IP), audit.WithUserAgent(meta.UserAgent))

	if err := s.verifier.RevokeSession(ctx, session); err != nil {
		// The caller still gets a failure; log loudly so a stuck session can
		// be hunted down.
		s.log.ErrorContext(ctx, "failed to revoke session after second-factor failure",
			slog.String("user_id", userID), slog.Any("error", err))
	}
}
