package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/certusflow/twofactor/modules/twofa"
)

// authClient checks primary credentials against the upstream auth service.
// It is the twofa.PrimaryVerifier for this deployment; the 2FA subsystem
// itself never sees a password hash.
type authClient struct {
	cfg    authConfig
	client *http.Client
}

func newAuthClient(cfg authConfig) *authClient {
	return &authClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (a *authClient) VerifyCredentials(ctx context.Context, email, password string) (string, string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.VerifyURL, bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out struct {
			UserID  string `json:"user_id"`
			Session string `json:"session"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", "", fmt.Errorf("auth verify: decode response: %w", err)
		}
		return out.UserID, out.Session, nil
	case http.StatusUnauthorized:
		return "", "", twofa.ErrInvalidCredentials
	default:
		return "", "", fmt.Errorf("auth verify: unexpected status %d", resp.StatusCode)
	}
}

func (a *authClient) RevokeSession(ctx context.Context, session string) error {
	body, err := json.Marshal(map[string]string{"session": session})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.RevokeURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("auth revoke: unexpected status %d", resp.StatusCode)
	}
	return nil
}
