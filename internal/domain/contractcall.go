/**
 * @description
 * Clarity contract-call payloads prepared by the backend and signed in the
 * browser via the user's wallet extension. The service never holds keys and
 * never broadcasts these calls itself.
 */

package domain

// ContractCallArg is one pre-encoded Clarity value for a contract call.
type ContractCallArg struct {
	Type  string `json:"type"` // "string-ascii" | "principal" | "buffer"
	Value string `json:"value"`
}

// ContractCallPayload is the suggested contract call the frontend opens in the
// wallet popup (via Stacks Connect).
type ContractCallPayload struct {
	ContractAddress string            `json:"contractAddress"`
	ContractName    string            `json:"contractName"`
	FunctionName    string            `json:"functionName"`
	FunctionArgs    []ContractCallArg `json:"functionArgs"`
	Network         string            `json:"network"`
}

// PrepareClaimRequest asks for a claim contract-call payload for a name.
type PrepareClaimRequest struct {
	Name         string `json:"name"`
	OwnerAddress string `json:"ownerAddress"`
}

// PrepareIssueRequest asks for an SBT issue contract-call payload. Metadata is
// pinned to IPFS first; the resulting CID rides along in the call.
type PrepareIssueRequest struct {
	RecipientAddress string `json:"recipientAddress"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	ImageURL         string `json:"imageUrl,omitempty"`
	Issuer           string `json:"issuer"`
	Message          string `json:"message,omitempty"`
}
