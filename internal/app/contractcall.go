/**
 * @description
 * Preparation of Clarity contract-call payloads. The backend only suggests the
 * call shape; the frontend opens it in the wallet popup via Stacks Connect and
 * the user signs it there. For SBT issuance the metadata document is pinned to
 * IPFS first so the CID can ride along in the call.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/betterbns/domain-service/internal/domain"
)

var ErrMissingCallFields = errors.New("name and owner address are required")

// PrepareClaimCall builds the contract call the wallet signs to register a
// name on-chain alongside the fee payment.
func (s *Service) PrepareClaimCall(req domain.PrepareClaimRequest) (*domain.ContractCallPayload, error) {
	owner := strings.TrimSpace(req.OwnerAddress)
	if owner == "" {
		return nil, ErrMissingCallFields
	}
	name, err := normalizeAndValidateUsername(req.Name)
	if err != nil {
		return nil, err
	}

	return &domain.ContractCallPayload{
		ContractAddress: s.contractAddress,
		ContractName:    s.bnsContract,
		FunctionName:    "claim",
		FunctionArgs: []domain.ContractCallArg{
			{Type: "string-ascii", Value: name},
			{Type: "principal", Value: owner},
		},
		Network: s.network,
	}, nil
}

// PrepareIssueResult bundles the suggested issue call with the pinned metadata.
type PrepareIssueResult struct {
	Payload     *domain.ContractCallPayload `json:"payload"`
	MetadataCID string                      `json:"metadataCid"`
	MetadataURL string                      `json:"metadataUrl"`
	Metadata    domain.SBTMetadata          `json:"metadata"`
}

// PrepareIssueCall validates the badge fields, pins the metadata document to
// IPFS, and builds the issue contract call referencing the CID.
func (s *Service) PrepareIssueCall(ctx context.Context, req domain.PrepareIssueRequest) (*PrepareIssueResult, error) {
	recipient := strings.TrimSpace(req.RecipientAddress)
	if recipient == "" {
		return nil, fmt.Errorf("%w: recipient address is required", ErrInvalidSBT)
	}
	if err := validateSBTFields(req.Name, req.Description, req.Issuer, req.ImageURL); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	metadata := domain.SBTMetadata{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Image:       strings.TrimSpace(req.ImageURL),
		Issuer:      strings.TrimSpace(req.Issuer),
		Message:     strings.TrimSpace(req.Message),
		IssuedAt:    now.Format(time.RFC3339),
		Attributes: []domain.MetadataAttribute{
			{TraitType: "Issuer", Value: strings.TrimSpace(req.Issuer)},
			{TraitType: "Issued At", Value: now.Format("2006-01-02")},
		},
	}

	pin, err := s.pinner.PinJSON(ctx, metadata.Name, metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to pin sbt metadata: %w", err)
	}

	return &PrepareIssueResult{
		Payload: &domain.ContractCallPayload{
			ContractAddress: s.contractAddress,
			ContractName:    s.sbtContract,
			FunctionName:    "issue",
			FunctionArgs: []domain.ContractCallArg{
				{Type: "principal", Value: recipient},
				{Type: "string-ascii", Value: pin.CID},
			},
			Network: s.network,
		},
		MetadataCID: pin.CID,
		MetadataURL: pin.GatewayURL,
		Metadata:    metadata,
	}, nil
}
