package twofa

import "time"

// Config carries the module's policy knobs. Defaults: 10 backup codes and
// 30 days of device trust.
type Config struct {
	// Issuer is the service name shown by authenticator apps.
	Issuer string `env:"TWOFA_ISSUER" envDefault:"CertusFlow"`

	// BackupCodeCount is the batch size issued when 2FA becomes enabled.
	BackupCodeCount int `env:"TWOFA_BACKUP_CODES" envDefault:"10"`

	// TrustedDeviceTTL bounds how long a device bypasses the second factor.
	TrustedDeviceTTL time.Duration `env:"TWOFA_TRUSTED_DEVICE_TTL" envDefault:"720h"`

	// DeviceTokenSecret signs trusted-device bearer tokens.
	DeviceTokenSecret string `env:"TWOFA_DEVICE_TOKEN_SECRET,required"`

	// QRCodeSize is the provisioning QR edge length in pixels.
	QRCodeSize int `env:"TWOFA_QR_SIZE" envDefault:"256"`
}
