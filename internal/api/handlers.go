/**
 * @description
 * This file contains the HTTP handlers for the domain claim endpoints. Handlers
 * are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act
 * as the bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, errors, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/betterbns/domain-service/internal/app"
	"github.com/betterbns/domain-service/internal/domain"
	"github.com/betterbns/domain-service/internal/store"
	"github.com/go-chi/chi/v5"
)

// DomainHandlers holds the application service that handlers will use.
type DomainHandlers struct {
	service    *app.Service
	sessionKey []byte

	claimLimitPerMinute int
	checkLimitPerMinute int
}

// NewDomainHandlers wires the handler set. Rate limits of zero disable
// limiting for the corresponding endpoint.
func NewDomainHandlers(service *app.Service, sessionKey []byte, claimLimitPerMinute, checkLimitPerMinute int) *DomainHandlers {
	return &DomainHandlers{
		service:             service,
		sessionKey:          sessionKey,
		claimLimitPerMinute: claimLimitPerMinute,
		checkLimitPerMinute: checkLimitPerMinute,
	}
}

// claimedUserResponse mirrors the structure the web client expects after a
// successful claim, including the canonical URLs it should navigate to.
type claimedUserResponse struct {
	Username      string `json:"username"`
	Domain        string `json:"domain"`
	DisplayName   string `json:"displayName"`
	WalletAddress string `json:"walletAddress"`
	TxID          string `json:"txId"`
	ProfileURL    string `json:"profileUrl"`
	DashboardURL  string `json:"dashboardUrl"`
}

func buildClaimedUserResponse(user *domain.UserIdentity) claimedUserResponse {
	return claimedUserResponse{
		Username:      user.Username,
		Domain:        user.DomainName(),
		DisplayName:   user.DisplayName,
		WalletAddress: user.WalletAddress,
		TxID:          user.DomainClaim.TxID,
		ProfileURL:    fmt.Sprintf("/profile/%s", user.Username),
		DashboardURL:  fmt.Sprintf("/dashboard/%s", user.Username),
	}
}

// ClaimDomainHandler finalizes a domain claim after the fee payment has been
// broadcast. The handler blocks while the service polls the chain indexer, so
// its route carries a longer timeout than the rest of the API.
func (h *DomainHandlers) ClaimDomainHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.ClaimDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	subject := strings.TrimSpace(req.WalletAddress)
	if subject == "" {
		subject = clientIP(r)
	}
	if retryAfter, allowed := h.service.AllowRequest(r.Context(), "claim", subject, h.claimLimitPerMinute); !allowed {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		h.writeError(w, http.StatusTooManyRequests, "Too many claim attempts. Please wait and try again.")
		return
	}

	user, err := h.service.ClaimDomain(r.Context(), req)
	if err != nil {
		h.writeClaimError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": fmt.Sprintf("Congratulations! %s is yours.", user.DomainName()),
		"user":    buildClaimedUserResponse(user),
	})
}

// writeClaimError maps claim flow failures onto HTTP statuses. Chain
// rejection, verification mismatches, and bad input are all terminal 4xx;
// only a confirmation timeout invites a retry.
func (h *DomainHandlers) writeClaimError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrMissingClaimFields):
		h.writeError(w, http.StatusBadRequest, "Username, wallet address, and transaction ID are required.")
	case errors.Is(err, app.ErrInvalidUsername):
		h.writeError(w, http.StatusBadRequest, "Usernames may only contain lowercase letters, numbers, and hyphens.")
	case errors.Is(err, store.ErrDomainTaken):
		h.writeError(w, http.StatusConflict, "This domain has already been claimed.")
	case errors.Is(err, app.ErrChainRejected):
		h.writeError(w, http.StatusBadRequest, "The payment transaction was rejected by the blockchain. No domain was claimed.")
	case errors.Is(err, app.ErrConfirmationTimeout):
		h.writeError(w, http.StatusRequestTimeout, "The payment is still pending confirmation. Please try again in a few minutes; your transaction is not lost.")
	case errors.Is(err, app.ErrPaymentNotConfirmed):
		h.writeError(w, http.StatusBadRequest, "The payment could not be verified on-chain.")
	case errors.Is(err, app.ErrSenderMismatch):
		h.writeError(w, http.StatusBadRequest, "The payment was not sent from the claiming wallet.")
	case errors.Is(err, app.ErrTransferMismatch):
		h.writeError(w, http.StatusBadRequest, "The payment does not match the required claim fee.")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client went away while we were polling; nothing useful to write.
	default:
		log.Printf("level=error component=api msg=\"claim finalization failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to finalize the domain claim")
	}
}

// CheckDomainHandler reports whether a username is still available.
func (h *DomainHandlers) CheckDomainHandler(w http.ResponseWriter, r *http.Request) {
	if retryAfter, allowed := h.service.AllowRequest(r.Context(), "check", clientIP(r), h.checkLimitPerMinute); !allowed {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		h.writeError(w, http.StatusTooManyRequests, "Too many availability checks. Please wait and try again.")
		return
	}

	username, available, err := h.service.CheckAvailability(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		if errors.Is(err, app.ErrInvalidUsername) {
			h.writeError(w, http.StatusBadRequest, "Usernames may only contain lowercase letters, numbers, and hyphens.")
			return
		}
		log.Printf("level=error component=api msg=\"availability check failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to check availability")
		return
	}

	message := fmt.Sprintf("%s.btc is available!", username)
	if !available {
		message = fmt.Sprintf("%s.btc is already taken.", username)
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"username":  username,
		"domain":    username + ".btc",
		"available": available,
		"message":   message,
	})
}

// GetDomainHandler retrieves claim details for a registered domain.
func (h *DomainHandlers) GetDomainHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetDomain(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		if errors.Is(err, app.ErrInvalidUsername) {
			h.writeError(w, http.StatusBadRequest, "Invalid domain name")
			return
		}
		if errors.Is(err, store.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, "Domain not found")
			return
		}
		log.Printf("level=error component=api msg=\"domain lookup failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to look up domain")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"domain":        user.DomainName(),
		"username":      user.Username,
		"walletAddress": user.WalletAddress,
		"claim":         user.DomainClaim,
		"isVerified":    user.IsVerified,
	})
}

// sessionRequest is the body for establishing a wallet session.
type sessionRequest struct {
	WalletAddress string `json:"walletAddress"`
}

// CreateSessionHandler exchanges a connected wallet address for a signed
// session token. Wallet ownership itself is proven on-chain when the claim
// fee payment is verified against the same address.
func (h *DomainHandlers) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	wallet := strings.TrimSpace(req.WalletAddress)
	if wallet == "" {
		h.writeError(w, http.StatusBadRequest, "walletAddress is required")
		return
	}

	token, expiresAt, err := IssueSessionToken(h.sessionKey, wallet)
	if err != nil {
		log.Printf("level=error component=api msg=\"session token issuance failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to establish session")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token":         token,
		"walletAddress": wallet,
		"expiresAt":     expiresAt,
	})
}

// UploadImageHandler pins an uploaded image to IPFS and returns its CID.
func (h *DomainHandlers) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	const maxUploadBytes = 5 << 20

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, "Image must be a multipart upload of 5MB or less")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "A 'file' form field is required")
		return
	}
	defer file.Close()

	pin, err := h.service.UploadImage(r.Context(), header.Filename, file)
	if err != nil {
		log.Printf("level=error component=api msg=\"image pin failed\" filename=%s err=%v", header.Filename, err)
		h.writeError(w, http.StatusBadGateway, "Unable to pin image to IPFS")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"cid": pin.CID,
		"uri": pin.GatewayURL,
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSON is a helper for writing JSON responses.
func (h *DomainHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *DomainHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
