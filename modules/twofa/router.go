package twofa

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/certusflow/twofactor/pkg/clientip"
)

// deviceTokenCookie carries the trusted-device bearer token between logins.
const deviceTokenCookie = "trusted_device_token"

// Router mounts the module's JSON endpoints. Everything except the login
// challenge expects an authenticated Identity in the request context, put
// there by the host's session middleware.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/login/verify", s.handleLogin)

	r.Post("/setup", s.handleSetup)
	r.Post("/verify", s.handleConfirmSetup)
	r.Post("/disable", s.handleDisable)
	r.Get("/status", s.handleStatus)

	r.Get("/devices", s.handleListDevices)
	r.Delete("/devices/{deviceID}", s.handleRevokeDevice)
	r.Post("/devices/revoke-others", s.handleRevokeOthers)

	return r
}

func (s *Service) handleSetup(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := s.Setup(r.Context(), id.UserID, id.Email)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"provisioning_uri": result.ProvisioningURI,
		"secret":           result.Secret,
		"qr_code":          result.QRCode,
	})
}

func (s *Service) handleConfirmSetup(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	codes, err := s.ConfirmSetup(r.Context(), id.UserID, req.Code)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"backup_codes": codes})
}

func (s *Service) handleDisable(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.Disable(r.Context(), id.UserID, req.Code); err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	status, err := s.Status(r.Context(), id.UserID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"enabled":     status.Enabled,
		"verified_at": status.VerifiedAt,
	})
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		Code         string `json:"code"`
		IsBackupCode bool   `json:"is_backup_code"`
		TrustDevice  bool   `json:"trust_device"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	login := LoginRequest{
		Email:        req.Email,
		Password:     req.Password,
		Code:         req.Code,
		IsBackupCode: req.IsBackupCode,
		TrustDevice:  req.TrustDevice,
		Meta: RequestMeta{
			IP:        clientip.GetIP(r),
			UserAgent: r.UserAgent(),
		},
	}
	if cookie, err := r.Cookie(deviceTokenCookie); err == nil {
		login.DeviceToken = cookie.Value
	}

	result, err := s.Login(r.Context(), login)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	if result.DeviceToken != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     deviceTokenCookie,
			Value:    result.DeviceToken,
			Path:     "/",
			MaxAge:   int(s.cfg.TrustedDeviceTTL / time.Second),
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"session":            result.Session,
		"second_factor_used": result.SecondFactorUsed,
		"device_bypassed":    result.DeviceBypassed,
	})
}

func (s *Service) handleListDevices(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	devices, err := s.ListDevices(r.Context(), id.UserID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	type deviceView struct {
		ID         string    `json:"id"`
		DeviceName string    `json:"device_name"`
		IPAddress  string    `json:"ip_address"`
		ExpiresAt  time.Time `json:"expires_at"`
		LastUsedAt time.Time `json:"last_used_at"`
	}
	views := make([]deviceView, 0, len(devices))
	for _, d := range devices {
		views = append(views, deviceView{
			ID:         d.ID,
			DeviceName: d.DeviceName,
			IPAddress:  d.IPAddress,
			ExpiresAt:  d.ExpiresAt,
			LastUsedAt: d.LastUsedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"devices": views})
}

func (s *Service) handleRevokeDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.RevokeDevice(r.Context(), id.UserID, chi.URLParam(r, "deviceID")); err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Service) handleRevokeOthers(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.RevokeOtherDevices(r.Context(), id.UserID, r.UserAgent()); err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// respondServiceError maps the error taxonomy onto HTTP statuses. Both
// authorization failures keep their single generic message; state errors get
// distinct 4xx signals because they indicate caller misuse, not attacks.
func (s *Service) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
	case errors.Is(err, ErrInvalidCode):
		respondError(w, http.StatusUnauthorized, ErrInvalidCode.Error())
	case errors.Is(err, ErrAlreadyEnabled):
		respondError(w, http.StatusConflict, ErrAlreadyEnabled.Error())
	case errors.Is(err, ErrSetupNotFound):
		respondError(w, http.StatusNotFound, ErrSetupNotFound.Error())
	case errors.Is(err, ErrNotEnabled):
		respondError(w, http.StatusBadRequest, ErrNotEnabled.Error())
	case errors.Is(err, ErrDeviceNotFound):
		respondError(w, http.StatusNotFound, ErrDeviceNotFound.Error())
	default:
		s.log.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
