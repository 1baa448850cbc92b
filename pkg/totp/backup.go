package totp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// backupCodeBytes gives 8 uppercase hex characters per code, e.g. "A3F9C2E1".
const backupCodeBytes = 4

// GenerateBackupCodes creates n independent single-use recovery codes. The
// plaintext codes are shown to the user exactly once; only their hashes are
// ever stored.
func GenerateBackupCodes(n int) ([]string, error) {
	if n < 1 {
		return nil, ErrBackupCodeCount
	}

	codes := make([]string, n)
	for i := 0; i < n; i++ {
		buf := make([]byte, backupCodeBytes)
		if _, err := rand.Read(buf); err != nil {
			return nil, errors.Join(ErrBackupCodeGeneration, err)
		}
		codes[i] = fmt.Sprintf("%X", buf)
	}
	return codes, nil
}

// FormatBackupCode groups a code into 4-character blocks for display
// ("A3F9C2E1" -> "A3F9-C2E1"). Presentation only; the grouped form is never
// stored and VerifyBackupCode accepts either form.
func FormatBackupCode(code string) string {
	code = normalizeBackupCode(code)
	var blocks []string
	for len(code) > 4 {
		blocks, code = append(blocks, code[:4]), code[4:]
	}
	blocks = append(blocks, code)
	return strings.Join(blocks, "-")
}

// HashBackupCode returns the hex-encoded SHA-256 digest of the normalized
// code, the only representation that goes to storage.
func HashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(normalizeBackupCode(code)))
	return hex.EncodeToString(sum[:])
}

// VerifyBackupCode recomputes the hash of code and compares it to the stored
// hash in constant time.
func VerifyBackupCode(code, hash string) bool {
	computed := HashBackupCode(code)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

func normalizeBackupCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.ReplaceAll(code, "-", "")
}
