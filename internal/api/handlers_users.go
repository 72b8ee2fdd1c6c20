/**
 * @description
 * HTTP handlers for user profile endpoints: public profile reads, owner-only
 * profile edits, and wallet-to-identity resolution for the dashboard.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/betterbns/domain-service/internal/app"
	"github.com/betterbns/domain-service/internal/domain"
	"github.com/betterbns/domain-service/internal/store"
	"github.com/go-chi/chi/v5"
)

// profileResponse is the public view of an identity together with its badges.
type profileResponse struct {
	User *domain.UserIdentity `json:"user"`
	SBTs []domain.SBT         `json:"sbts"`
}

// GetUserProfileHandler returns the public profile for a username, including
// attached badges. Viewing a profile bumps its view counter.
func (h *DomainHandlers) GetUserProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, sbts, err := h.service.GetProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		if errors.Is(err, app.ErrInvalidUsername) {
			h.writeError(w, http.StatusBadRequest, "Invalid username")
			return
		}
		if errors.Is(err, store.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("level=error component=api msg=\"profile lookup failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load profile")
		return
	}
	if sbts == nil {
		sbts = []domain.SBT{}
	}

	h.writeJSON(w, http.StatusOK, profileResponse{User: user, SBTs: sbts})
}

// UpdateUserProfileHandler applies profile edits. Only the session wallet that
// owns the domain may edit; the username itself is immutable.
func (h *DomainHandlers) UpdateUserProfileHandler(w http.ResponseWriter, r *http.Request) {
	wallet, ok := GetSessionWallet(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Session required")
		return
	}

	var update domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), chi.URLParam(r, "username"), wallet, update)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidUsername):
			h.writeError(w, http.StatusBadRequest, "Invalid username")
		case errors.Is(err, store.ErrUserNotFound):
			h.writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, app.ErrNotProfileOwner):
			h.writeError(w, http.StatusForbidden, "Only the wallet that claimed this domain may edit it")
		default:
			log.Printf("level=error component=api msg=\"profile update failed\" err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Unable to update profile")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile updated",
		"user":    user,
	})
}

// GetUserByWalletHandler resolves the most recently claimed identity for a
// wallet address. The dashboard uses this after wallet connect.
func (h *DomainHandlers) GetUserByWalletHandler(w http.ResponseWriter, r *http.Request) {
	wallet := strings.TrimSpace(r.URL.Query().Get("walletAddress"))
	if wallet == "" {
		h.writeError(w, http.StatusBadRequest, "walletAddress query parameter is required")
		return
	}

	user, err := h.service.FindByWallet(r.Context(), wallet)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, "No domain claimed by this wallet")
			return
		}
		log.Printf("level=error component=api msg=\"wallet lookup failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to look up wallet")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
