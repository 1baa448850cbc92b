package twofa

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/certusflow/twofactor/pkg/fingerprint"
	"github.com/certusflow/twofactor/pkg/token"
	"github.com/certusflow/twofactor/pkg/useragent"
)

// devicePayload is the signed content of a trusted-device bearer token. The
// nonce is pure entropy: it is never stored and carries no meaning beyond
// making each token unique. Trust is established by the fingerprint lookup,
// not by the token's contents.
type devicePayload struct {
	UserID string `json:"uid"`
	Nonce  string `json:"n"`
}

// trustDevice records the current client as trusted and returns the bearer
// token the caller hands back on future logins.
func (s *Service) trustDevice(ctx context.Context, userID string, meta RequestMeta) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	deviceToken, err := token.Sign(devicePayload{
		UserID: userID,
		Nonce:  hex.EncodeToString(nonce),
	}, s.cfg.DeviceTokenSecret)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	device := TrustedDevice{
		ID:          uuid.New().String(),
		UserID:      userID,
		Fingerprint: fingerprint.Device(userID, meta.UserAgent),
		DeviceName:  useragent.DeviceName(meta.UserAgent),
		IPAddress:   meta.IP,
		UserAgent:   meta.UserAgent,
		ExpiresAt:   now.Add(s.cfg.TrustedDeviceTTL),
		LastUsedAt:  now,
	}
	if err := s.storage.UpsertDevice(ctx, device); err != nil {
		return "", err
	}
	return deviceToken, nil
}

// resolveDevice maps a presented bearer token plus live client data to a
// valid trusted device. Every mismatch — forged token, wrong user, unknown
// fingerprint, expired row — resolves to the same ErrDeviceNotFound so the
// caller cannot learn which check failed. A hit refreshes last_used_at.
func (s *Service) resolveDevice(ctx context.Context, deviceToken, userID, userAgent string) (*TrustedDevice, error) {
	payload, err := token.Verify[devicePayload](deviceToken, s.cfg.DeviceTokenSecret)
	if err != nil || payload.UserID != userID {
		return nil, ErrDeviceNotFound
	}

	fp := fingerprint.Device(userID, userAgent)
	device, err := s.storage.GetDevice(ctx, userID, fp)
	if err != nil {
		if errors.Is(err, ErrDeviceNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.storage.TouchDevice(ctx, userID, fp, now); err != nil {
		return nil, err
	}
	device.LastUsedAt = now
	return device, nil
}

// ListDevices returns the user's active trusted devices for the settings
// page.
func (s *Service) ListDevices(ctx context.Context, userID string) ([]TrustedDevice, error) {
	return s.storage.ListDevices(ctx, userID)
}

// RevokeDevice removes a single trusted device. Effective immediately: the
// ledger is consulted on every bypass, never cached.
func (s *Service) RevokeDevice(ctx context.Context, userID, deviceID string) error {
	return s.storage.DeleteDevice(ctx, userID, deviceID)
}

// RevokeOtherDevices removes every trusted device except the one matching
// the caller's current client, identified by its live user agent.
func (s *Service) RevokeOtherDevices(ctx context.Context, userID, currentUserAgent string) error {
	keep := fingerprint.Device(userID, currentUserAgent)
	return s.storage.DeleteDevicesExcept(ctx, userID, keep)
}

// PruneExpiredDevices sweeps lapsed rows. Expired devices are already
// harmless — they are deleted on read — so this is housekeeping for
// operators, typically run on a schedule.
func (s *Service) PruneExpiredDevices(ctx context.Context) (int64, error) {
	return s.storage.PruneExpiredDevices(ctx, time.Now().UTC())
}
