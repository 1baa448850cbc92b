package secrets

import (
	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload" // load .env during development
)

// Config carries the secret-at-rest master key. The env tag marks it
// required, so parsing fails when the variable is absent.
type Config struct {
	MasterKey string `env:"TWOFA_MASTER_KEY,required"` // base64, 32 bytes
}

// LoadMasterKey reads and validates the master key from the environment.
// Intended to run exactly once at process startup; any failure should abort
// the boot rather than be deferred to request time.
func LoadMasterKey() ([]byte, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return ParseMasterKey(cfg.MasterKey)
}
