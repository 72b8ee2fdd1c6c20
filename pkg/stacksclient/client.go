/**
 * @description
 * This package provides a read-only client for the Stacks blockchain indexer
 * (the "extended" transactions API). It encapsulates the logic for fetching a
 * transaction record by id and parsing the indexer's response shape.
 *
 * The indexer is untrusted but authoritative: the service only acts on what a
 * fresh fetch reports, never on a client's local belief about a transaction.
 *
 * @dependencies
 * - context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package stacksclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Transaction statuses reported by the indexer.
const (
	StatusSuccess = "success"
	StatusPending = "pending"
)

// ErrTransactionNotFound is returned when the indexer does not know the
// transaction yet. A freshly broadcast transaction can take a while to appear,
// so callers treat this the same as a pending status and retry.
var ErrTransactionNotFound = errors.New("transaction not found")

// Client is a client for the Stacks indexer API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new Stacks indexer client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// TransactionRecord is the subset of the indexer's transaction payload the
// service consumes. Event amounts arrive as decimal strings of micro-STX.
type TransactionRecord struct {
	TxID          string             `json:"tx_id"`
	TxStatus      string             `json:"tx_status"`
	SenderAddress string             `json:"sender_address"`
	Events        []TransactionEvent `json:"events"`
}

// TransactionEvent is a single event attached to a transaction record.
type TransactionEvent struct {
	EventType string     `json:"event_type"`
	Asset     AssetEvent `json:"asset"`
}

// AssetEvent carries the transfer details of an asset event.
type AssetEvent struct {
	AssetEventType string `json:"asset_event_type"`
	Sender         string `json:"sender"`
	Recipient      string `json:"recipient"`
	Amount         string `json:"amount"`
}

// IsSuccess reports whether the transaction was mined successfully.
func (t *TransactionRecord) IsSuccess() bool {
	return t.TxStatus == StatusSuccess
}

// IsTerminalFailure reports whether the transaction reached a state it can
// never recover from. An aborted or dropped transaction will not become
// successful no matter how long we wait.
func (t *TransactionRecord) IsTerminalFailure() bool {
	switch {
	case t.TxStatus == "aborted" || t.TxStatus == "failed":
		return true
	case strings.HasPrefix(t.TxStatus, "abort_by_"):
		return true
	case strings.HasPrefix(t.TxStatus, "dropped_"):
		return true
	}
	return false
}

// GetTransaction fetches a transaction record by id. It maps 404 responses to
// ErrTransactionNotFound; other non-2xx responses are returned as transport
// errors. The call is read-only and safe to retry unconditionally.
func (c *Client) GetTransaction(ctx context.Context, txID string) (*TransactionRecord, error) {
	url := fmt.Sprintf("%s/extended/v1/tx/%s", c.BaseURL, txID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute transaction request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrTransactionNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("level=warn component=stacks_client op=get_transaction tx_id=%s status=%d msg=\"non-2xx response\"", txID, resp.StatusCode)
		return nil, fmt.Errorf("indexer returned status %d", resp.StatusCode)
	}

	var record TransactionRecord
	if err := json.Unmarshal(bodyBytes, &record); err != nil {
		return nil, fmt.Errorf("failed to decode transaction response: %w", err)
	}

	return &record, nil
}
