/**
 * @description
 * This file contains custom middleware for the HTTP router. The wallet session
 * middleware replaces the original frontend's scattered localStorage
 * pseudo-session: a session is established once at wallet connect (POST
 * /sessions) and carried as a signed token; disconnecting is simply the client
 * dropping the token.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: Session token signing and validation.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// WalletContextKey is a custom type for the context key to avoid collisions.
type WalletContextKey string

const sessionWalletKey WalletContextKey = "sessionWallet"

const sessionTTL = 24 * time.Hour

// IssueSessionToken creates a signed session token for a connected wallet.
func IssueSessionToken(signingKey []byte, walletAddress string) (token string, expiresAt time.Time, err error) {
	expiresAt = time.Now().Add(sessionTTL)
	claims := jwt.MapClaims{
		"sub": walletAddress,
		"iat": time.Now().Unix(),
		"exp": expiresAt.Unix(),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	return token, expiresAt, err
}

// WalletSessionMiddleware validates the session token and places the wallet
// address on the request context for downstream handlers.
func WalletSessionMiddleware(signingKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return signingKey, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid session token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}
			wallet, ok := claims["sub"].(string)
			if !ok || strings.TrimSpace(wallet) == "" {
				http.Error(w, "Wallet not found in token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionWalletKey, wallet)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionWallet retrieves the connected wallet address from the request context.
func GetSessionWallet(ctx context.Context) (string, bool) {
	wallet, ok := ctx.Value(sessionWalletKey).(string)
	return wallet, ok
}
