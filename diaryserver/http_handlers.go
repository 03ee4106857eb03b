// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package diaryserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/harrissondutra/fitOS-sub010/internal/auth"
)

// HTTPHandlers provides the HTTP surface of the nutrition tracking API.
type HTTPHandlers struct {
	store   EntryStore
	jwtAuth *JWTAuth
	appName string
	logger  *slog.Logger
}

// NewHTTPHandlers creates handlers over an entry store and a JWT
// authenticator.
func NewHTTPHandlers(store EntryStore, jwtAuth *JWTAuth, appName string, logger *slog.Logger) *HTTPHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandlers{
		store:   store,
		jwtAuth: jwtAuth,
		appName: appName,
		logger:  logger,
	}
}

// Mux returns a request mux with all API routes registered.
func (h *HTTPHandlers) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/nutrition/tracking/entries", h.HandleEntries)
	mux.HandleFunc("/health", h.HandleHealth)
	return mux
}

// HandleEntries dispatches the entries collection endpoint.
func (h *HTTPHandlers) HandleEntries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreateEntry(w, r)
	case http.MethodGet:
		h.handleListEntries(w, r)
	default:
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST and GET methods are allowed")
	}
}

// authenticate validates the bearer token and the tenant header. The
// X-Tenant-Id header must match the token's tenant claim; a mismatch is an
// attempt to write into another tenant's partition and is rejected.
func (h *HTTPHandlers) authenticate(w http.ResponseWriter, r *http.Request) (*JWTClaims, bool) {
	claims, err := h.jwtAuth.ClaimsFromRequest(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", err.Error())
		return nil, false
	}
	if tenantHeader := r.Header.Get("X-Tenant-Id"); tenantHeader != claims.TenantID {
		h.writeError(w, http.StatusForbidden, "tenant_mismatch", "X-Tenant-Id does not match token tenant")
		return nil, false
	}
	return claims, true
}

func (h *HTTPHandlers) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse entry request")
		return
	}
	if req.Name == "" || req.Unit == "" || req.MealType == "" || req.Quantity <= 0 || req.ConsumedAt.IsZero() {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "name, quantity, unit, mealType and consumedAt are required")
		return
	}

	ctx := auth.SetAuthContext(r.Context(), claims.Subject, claims.TenantID)
	entry, err := h.store.CreateEntry(ctx, &req)
	if err != nil {
		h.logger.Error("Failed to create entry", "error", err, "tenant_id", claims.TenantID, "user_id", claims.Subject)
		h.writeError(w, http.StatusInternalServerError, "create_failed", "Failed to create entry")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(SuccessResponse{Success: true, Data: entry}); err != nil {
		h.logger.Error("Failed to encode entry response", "error", err)
	}
}

func (h *HTTPHandlers) handleListEntries(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	day := time.Now().UTC()
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	ctx := auth.SetAuthContext(r.Context(), claims.Subject, claims.TenantID)
	entries, err := h.store.ListEntries(ctx, day)
	if err != nil {
		h.logger.Error("Failed to list entries", "error", err, "tenant_id", claims.TenantID, "user_id", claims.Subject)
		h.writeError(w, http.StatusInternalServerError, "list_failed", "Failed to list entries")
		return
	}
	if entries == nil {
		entries = []*EntryResponse{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(SuccessResponse{Success: true, Data: entries}); err != nil {
		h.logger.Error("Failed to encode entries response", "error", err)
	}
}

// HandleHealth reports service status.
func (h *HTTPHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(StatusResponse{Status: "healthy", AppName: h.appName})
}

func (h *HTTPHandlers) writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: errorCode, Message: message})
}
