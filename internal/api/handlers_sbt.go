/**
 * @description
 * HTTP handlers for soulbound badge endpoints: issuance, retrieval, and the
 * contract-call preparation routes the wallet popup consumes.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/betterbns/domain-service/internal/app"
	"github.com/betterbns/domain-service/internal/domain"
	"github.com/betterbns/domain-service/internal/store"
	"github.com/go-chi/chi/v5"
)

// IssueSBTHandler records an issued badge against the recipient's identity.
// The issuer is the authenticated session wallet.
func (h *DomainHandlers) IssueSBTHandler(w http.ResponseWriter, r *http.Request) {
	wallet, ok := GetSessionWallet(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Session required")
		return
	}

	var req domain.IssueSBTRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sbt, err := h.service.IssueSBT(r.Context(), wallet, req)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidSBT):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrNotProfileOwner):
			h.writeError(w, http.StatusForbidden, "Badges can only be issued from the connected wallet")
		case errors.Is(err, store.ErrUserNotFound):
			h.writeError(w, http.StatusNotFound, "Recipient has not claimed a domain")
		case errors.Is(err, store.ErrSBTExists):
			h.writeError(w, http.StatusConflict, "A badge with this token ID already exists")
		default:
			log.Printf("level=error component=api msg=\"sbt issuance failed\" err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Unable to issue badge")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Badge issued",
		"sbt":     sbt,
	})
}

// ListUserSBTsHandler returns the badges attached to a username.
func (h *DomainHandlers) ListUserSBTsHandler(w http.ResponseWriter, r *http.Request) {
	sbts, err := h.service.ListSBTs(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		if errors.Is(err, app.ErrInvalidUsername) {
			h.writeError(w, http.StatusBadRequest, "Invalid username")
			return
		}
		if errors.Is(err, store.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("level=error component=api msg=\"sbt list failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to list badges")
		return
	}
	if sbts == nil {
		sbts = []domain.SBT{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"sbts": sbts})
}

// GetSBTHandler retrieves a single badge by token ID.
func (h *DomainHandlers) GetSBTHandler(w http.ResponseWriter, r *http.Request) {
	sbt, err := h.service.GetSBT(r.Context(), chi.URLParam(r, "tokenId"))
	if err != nil {
		if errors.Is(err, store.ErrSBTNotFound) {
			h.writeError(w, http.StatusNotFound, "Badge not found")
			return
		}
		log.Printf("level=error component=api msg=\"sbt lookup failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to look up badge")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"sbt": sbt})
}

// PrepareClaimCallHandler builds the contract call the wallet signs to
// register a name on-chain.
func (h *DomainHandlers) PrepareClaimCallHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.PrepareClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payload, err := h.service.PrepareClaimCall(req)
	if err != nil {
		if errors.Is(err, app.ErrMissingCallFields) || errors.Is(err, app.ErrInvalidUsername) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("level=error component=api msg=\"claim call preparation failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to prepare contract call")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"payload": payload})
}

// PrepareIssueCallHandler pins badge metadata to IPFS and builds the issue
// contract call referencing the CID.
func (h *DomainHandlers) PrepareIssueCallHandler(w http.ResponseWriter, r *http.Request) {
	wallet, ok := GetSessionWallet(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Session required")
		return
	}

	var req domain.PrepareIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Issuer == "" {
		req.Issuer = wallet
	}

	result, err := h.service.PrepareIssueCall(r.Context(), req)
	if err != nil {
		if errors.Is(err, app.ErrInvalidSBT) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("level=error component=api msg=\"issue call preparation failed\" err=%v", err)
		h.writeError(w, http.StatusBadGateway, "Unable to prepare issue call")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}
