package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// Digits is the code length produced and accepted by this package.
	Digits = 6

	// Period is the length of one time step in seconds (RFC 6238 standard).
	Period = 30

	// DriftSteps is the number of adjacent time steps accepted on either side
	// of the current one to absorb client clock drift. One step equals a
	// ±30 second window. Policy constant: widening it weakens the factor.
	DriftSteps = 1

	// secretBytes is the raw entropy of a generated secret. 160 bits matches
	// the RFC 4226 recommendation and encodes cleanly to base32.
	secretBytes = 20
)

var (
	secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

	secretRegex = regexp.MustCompile(`^[A-Z2-7]+=*$`)
	codeRegex   = regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, Digits))
)

// GenerateSecretKey returns a new random base32-encoded TOTP secret.
func GenerateSecretKey() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Join(ErrSecretGeneration, err)
	}
	return secretEncoding.EncodeToString(buf), nil
}

// URIParams describes the otpauth provisioning URI shown to the user during
// enrollment. Digits, period and algorithm are fixed by this package.
type URIParams struct {
	Secret      string // base32-encoded secret key
	AccountName string // user identifier, usually an email address
	Issuer      string // service name displayed by the authenticator app
}

// ProvisioningURI builds a Key-Uri-Format URI understood by standard
// authenticator apps. Construction is deterministic and has no side effects.
// https://github.com/google/google-authenticator/wiki/Key-Uri-Format
func ProvisioningURI(p URIParams) (string, error) {
	p.Secret = normalizeSecret(p.Secret)
	switch {
	case !secretRegex.MatchString(p.Secret):
		return "", ErrInvalidSecret
	case p.AccountName == "":
		return "", ErrMissingAccount
	case p.Issuer == "":
		return "", ErrMissingIssuer
	}

	q := url.Values{}
	q.Set("secret", p.Secret)
	q.Set("issuer", p.Issuer)
	q.Set("algorithm", "SHA1")
	q.Set("digits", fmt.Sprintf("%d", Digits))
	q.Set("period", fmt.Sprintf("%d", Period))

	label := url.PathEscape(p.Issuer) + ":" + url.PathEscape(p.AccountName)
	return fmt.Sprintf("otpauth://totp/%s?%s", label, q.Encode()), nil
}

// ValidateCode reports whether code is valid for secret at the current time,
// accepting DriftSteps adjacent steps on either side. A malformed code fails
// with ErrCodeFormat before any HMAC work.
func ValidateCode(secret, code string) (bool, error) {
	return ValidateCodeAt(secret, code, time.Now())
}

// ValidateCodeAt is ValidateCode evaluated at an arbitrary instant. It exists
// so callers and tests can pin the clock.
func ValidateCodeAt(secret, code string, at time.Time) (bool, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return false, err
	}

	code = strings.TrimSpace(code)
	if !codeRegex.MatchString(code) {
		return false, ErrCodeFormat
	}

	step := at.Unix() / Period
	for offset := int64(-DriftSteps); offset <= DriftSteps; offset++ {
		candidate := formatCode(hotp(key, step+offset))
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(code)) == 1 {
			return true, nil
		}
	}
	return false, nil
}

// GenerateCode returns the code for the current time step. Used for tests and
// for operator tooling; the server never shows codes to users.
func GenerateCode(secret string) (string, error) {
	return GenerateCodeAt(secret, time.Now())
}

// GenerateCodeAt returns the code for the time step containing at.
func GenerateCodeAt(secret string, at time.Time) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return formatCode(hotp(key, at.Unix()/Period)), nil
}

// hotp implements the RFC 4226 HMAC-based one-time password for a counter.
func hotp(key []byte, counter int64) int {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// Dynamic truncation: low 4 bits of the last byte select a 31-bit slice.
	offset := sum[len(sum)-1] & 0x0f
	v := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint32(1)
	for i := 0; i < Digits; i++ {
		mod *= 10
	}
	return int(v % mod)
}

func formatCode(code int) string {
	return fmt.Sprintf("%0*d", Digits, code)
}

func normalizeSecret(secret string) string {
	return strings.ToUpper(strings.TrimSpace(secret))
}

func decodeSecret(secret string) ([]byte, error) {
	secret = normalizeSecret(secret)
	if !secretRegex.MatchString(secret) {
		return nil, ErrInvalidSecret
	}
	key, err := secretEncoding.DecodeString(strings.TrimRight(secret, "="))
	if err != nil {
		return nil, errors.Join(ErrInvalidSecret, err)
	}
	return key, nil
}
