/**
 * @description
 * This file defines the core domain models for the domain-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and external service
 *   payloads ensures clear separation of concerns and type safety.
 * - Payment amounts are carried as `int64` micro-STX (1 STX = 1,000,000 micro-STX),
 *   which avoids floating-point inaccuracies with on-chain values.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserIdentity is the root aggregate binding a claimed `.btc`-style username to a
// wallet address. It maps directly to the `users` table. The username is stored
// lowercase and is immutable once claimed.
type UserIdentity struct {
	ID            uuid.UUID   `json:"id"`
	Username      string      `json:"username"`
	WalletAddress string      `json:"walletAddress"`
	DisplayName   string      `json:"displayName"`
	DomainClaim   DomainClaim `json:"domainClaim"`
	Profile       Profile     `json:"profile"`
	SocialLinks   SocialLinks `json:"socialLinks"`
	IsVerified    bool        `json:"isVerified"`
	LastActive    time.Time   `json:"lastActive"`
	Stats         UserStats   `json:"stats"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// DomainName returns the full `.btc` name for the identity.
func (u *UserIdentity) DomainName() string {
	return u.Username + ".btc"
}

// DomainClaim records the on-chain payment that paid for the username. It is
// written exactly once, when the claim is finalized, and never updated.
type DomainClaim struct {
	TxID                string    `json:"txId"`
	FeeMicroSTX         int64     `json:"feeMicroStx"`
	ClaimedAt           time.Time `json:"claimedAt"`
	BlockchainConfirmed bool      `json:"blockchainConfirmed"`
}

// Profile holds the public-facing profile fields for an identity.
type Profile struct {
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	BannerURL string `json:"bannerUrl,omitempty"`
	Website   string `json:"website,omitempty"`
	Location  string `json:"location,omitempty"`
	IsPublic  bool   `json:"isPublic"`
}

// SocialLinks holds the optional handles an identity can attach to its profile.
type SocialLinks struct {
	Twitter   string `json:"twitter,omitempty"`
	Farcaster string `json:"farcaster,omitempty"`
	Base      string `json:"base,omitempty"`
	GitHub    string `json:"github,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Discord   string `json:"discord,omitempty"`
}

// UserStats tracks simple activity counters shown on the public profile.
type UserStats struct {
	ProfileViews int64 `json:"profileViews"`
	SBTsReceived int64 `json:"sbtsReceived"`
	SBTsIssued   int64 `json:"sbtsIssued"`
}

// SBT is a non-transferable badge attached to a user profile, issued by another
// identity. It maps to the `sbts` table.
type SBT struct {
	ID            uuid.UUID      `json:"id"`
	UserID        uuid.UUID      `json:"-"`
	TokenID       string         `json:"tokenId"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	ImageURL      string         `json:"imageUrl,omitempty"`
	Issuer        string         `json:"issuer"`
	IssuerAddress string         `json:"issuerAddress"`
	IssuedAt      time.Time      `json:"issuedAt"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ClaimDomainRequest is the DTO for incoming domain claim API requests. The txId
// is produced by the browser wallet after the user approves the fee transfer; it
// is untrusted input and is always re-verified against the chain indexer.
type ClaimDomainRequest struct {
	Username      string `json:"username"`
	WalletAddress string `json:"walletAddress"`
	TxID          string `json:"txId"`
	FeeMicroSTX   int64  `json:"fee"`
}

// UpdateProfileRequest is the DTO for profile update API requests. The username
// and wallet binding are immutable and are not part of this payload.
type UpdateProfileRequest struct {
	DisplayName string       `json:"displayName"`
	Profile     *Profile     `json:"profile,omitempty"`
	SocialLinks *SocialLinks `json:"socialLinks,omitempty"`
}

// IssueSBTRequest is the DTO for issuing a new badge to a recipient wallet.
type IssueSBTRequest struct {
	TokenID          string         `json:"tokenId"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	ImageURL         string         `json:"imageUrl,omitempty"`
	Issuer           string         `json:"issuer"`
	IssuerAddress    string         `json:"issuerAddress"`
	RecipientAddress string         `json:"recipientAddress"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// SBTMetadata is the shape pinned to IPFS before the on-chain issue call.
type SBTMetadata struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Image       string              `json:"image"`
	Issuer      string              `json:"issuer"`
	Message     string              `json:"message,omitempty"`
	IssuedAt    string              `json:"issuedAt"`
	Attributes  []MetadataAttribute `json:"attributes"`
}

// MetadataAttribute is a single trait entry on pinned SBT metadata.
type MetadataAttribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}
