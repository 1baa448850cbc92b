package twofa

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certusflow/twofactor/pkg/audit"
	"github.com/certusflow/twofactor/pkg/pg"
)

// PostgresStorage implements Storage over a pgx pool. Conditional writes are
// single statements, so the row lock taken by Postgres serializes concurrent
// transitions per user without explicit transactions.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

func (s *PostgresStorage) GetRecord(ctx context.Context, userID string) (*TwoFactorRecord, error) {
	const query = `
		SELECT user_id, secret, enabled, verified_at, backup_codes
		FROM user_2fa
		WHERE user_id = $1`

	var record TwoFactorRecord
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&record.UserID,
		&record.EncryptedSecret,
		&record.Enabled,
		&record.VerifiedAt,
		&record.BackupCodes,
	)
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (s *PostgresStorage) SavePending(ctx context.Context, userID, encryptedSecret string) error {
	// The conflict update is guarded on enabled=false, so an enabled record
	// is never silently replaced.
	const query = `
		INSERT INTO user_2fa (user_id, secret, enabled, verified_at, backup_codes, updated_at)
		VALUES ($1, $2, FALSE, NULL, '{}', now())
		ON CONFLICT (user_id) DO UPDATE
		SET secret = EXCLUDED.secret, enabled = FALSE, verified_at = NULL,
		    backup_codes = '{}', updated_at = now()
		WHERE user_2fa.enabled = FALSE`

	tag, err := s.pool.Exec(ctx, query, userID, encryptedSecret)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}
	return nil
}

func (s *PostgresStorage) Enable(ctx context.Context, userID string, backupHashes []string, verifiedAt time.Time) error {
	const query = `
		UPDATE user_2fa
		SET enabled = TRUE, verified_at = $2, backup_codes = $3, updated_at = now()
		WHERE user_id = $1 AND enabled = FALSE`

	tag, err := s.pool.Exec(ctx, query, userID, verifiedAt, backupHashes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}
	return nil
}

func (s *PostgresStorage) DeleteRecord(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM user_2fa WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *PostgresStorage) ConsumeBackupCode(ctx context.Context, userID, hash string) error {
	// Check and removal in one statement: the row lock serializes concurrent
	// submissions of the same code, so exactly one caller sees the hash.
	const query = `
		UPDATE user_2fa
		SET backup_codes = array_remove(backup_codes, $2), updated_at = now()
		WHERE user_id = $1 AND enabled = TRUE AND $2 = ANY(backup_codes)`

	tag, err := s.pool.Exec(ctx, query, userID, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBackupCodeUnknown
	}
	return nil
}

func (s *PostgresStorage) UpsertDevice(ctx context.Context, device TrustedDevice) error {
	const query = `
		INSERT INTO user_trusted_devices
			(id, user_id, device_fingerprint, device_name, ip_address, user_agent, expires_at, last_used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (user_id, device_fingerprint) DO UPDATE
		SET device_name = EXCLUDED.device_name, ip_address = EXCLUDED.ip_address,
		    user_agent = EXCLUDED.user_agent, expires_at = EXCLUDED.expires_at,
		    last_used_at = EXCLUDED.last_used_at`

	_, err := s.pool.Exec(ctx, query,
		device.ID, device.UserID, device.Fingerprint, device.DeviceName,
		device.IPAddress, device.UserAgent, device.ExpiresAt, device.LastUsedAt)
	return err
}

func (s *PostgresStorage) GetDevice(ctx context.Context, userID, fp string) (*TrustedDevice, error) {
	const query = `
		SELECT id, user_id, device_fingerprint, device_name, ip_address, user_agent, expires_at, last_used_at
		FROM user_trusted_devices
		WHERE user_id = $1 AND device_fingerprint = $2`

	var device TrustedDevice
	err := s.pool.QueryRow(ctx, query, userID, fp).Scan(
		&device.ID, &device.UserID, &device.Fingerprint, &device.DeviceName,
		&device.IPAddress, &device.UserAgent, &device.ExpiresAt, &device.LastUsedAt)
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	// Expired rows are removed on read and never reused.
	if device.Expired(time.Now().UTC()) {
		_, _ = s.pool.Exec(ctx,
			`DELETE FROM user_trusted_devices WHERE user_id = $1 AND id = $2`,
			userID, device.ID)
		return nil, ErrDeviceNotFound
	}
	return &device, nil
}

func (s *PostgresStorage) TouchDevice(ctx context.Context, userID, fp string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE user_trusted_devices
		SET last_used_at = $3
		WHERE user_id = $1 AND device_fingerprint = $2`,
		userID, fp, at)
	return err
}

func (s *PostgresStorage) ListDevices(ctx context.Context, userID string) ([]TrustedDevice, error) {
	const query = `
		SELECT id, user_id, device_fingerprint, device_name, ip_address, user_agent, expires_at, last_used_at
		FROM user_trusted_devices
		WHERE user_id = $1 AND expires_at > now()
		ORDER BY last_used_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []TrustedDevice
	for rows.Next() {
		var d TrustedDevice
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.Fingerprint, &d.DeviceName,
			&d.IPAddress, &d.UserAgent, &d.ExpiresAt, &d.LastUsedAt); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (s *PostgresStorage) DeleteDevice(ctx context.Context, userID, deviceID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM user_trusted_devices WHERE user_id = $1 AND id = $2`,
		userID, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (s *PostgresStorage) DeleteDevicesExcept(ctx context.Context, userID, keepFingerprint string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM user_trusted_devices WHERE user_id = $1 AND device_fingerprint <> $2`,
		userID, keepFingerprint)
	return err
}

func (s *PostgresStorage) PruneExpiredDevices(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM user_trusted_devices WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PostgresAuditStorage appends audit events to the user_2fa_audit table.
type PostgresAuditStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresAuditStorage(pool *pgxpool.Pool) *PostgresAuditStorage {
	return &PostgresAuditStorage{pool: pool}
}

func (s *PostgresAuditStorage) Store(ctx context.Context, event audit.Event) error {
	const query = `
		INSERT INTO user_2fa_audit (id, user_id, event_type, success, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)`

	_, err := s.pool.Exec(ctx, query,
		event.ID, event.UserID, string(event.EventType), event.Success,
		event.IPAddress, event.UserAgent, event.CreatedAt)
	return err
}
