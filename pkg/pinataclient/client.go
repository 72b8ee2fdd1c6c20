/**
 * @description
 * This package provides a client for the Pinata pinning API, used to persist
 * SBT metadata and profile images on IPFS. It encapsulates authenticated HTTP
 * requests to Pinata's pinning endpoints and parsing of the pin responses.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, mime/multipart, net/http, time: Standard Go libraries.
 */
package pinataclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Client is a client for the Pinata pinning API.
type Client struct {
	BaseURL    string
	Gateway    string
	JWT        string
	HTTPClient *http.Client
}

// NewClient creates a new Pinata client. gateway is the public gateway used to
// build fetchable URLs for pinned content.
func NewClient(baseURL, gateway, jwt string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.pinata.cloud"
	}
	if strings.TrimSpace(gateway) == "" {
		gateway = "https://gateway.pinata.cloud"
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Gateway: strings.TrimRight(gateway, "/"),
		JWT:     jwt,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// PinResponse is the response from Pinata's pinning endpoints.
type PinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// PinResult is the parsed outcome of a pin operation.
type PinResult struct {
	CID        string
	GatewayURL string
}

type pinJSONRequest struct {
	PinataContent  any            `json:"pinataContent"`
	PinataMetadata map[string]any `json:"pinataMetadata,omitempty"`
	PinataOptions  map[string]any `json:"pinataOptions,omitempty"`
}

// PinJSON pins an arbitrary JSON document and returns its CID.
func (c *Client) PinJSON(ctx context.Context, name string, content any) (*PinResult, error) {
	payload := pinJSONRequest{
		PinataContent: content,
		PinataOptions: map[string]any{"cidVersion": 1},
	}
	if strings.TrimSpace(name) != "" {
		payload.PinataMetadata = map[string]any{"name": name}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pin request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/pinning/pinJSONToIPFS", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create pin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.JWT)

	return c.doPin(req)
}

// PinFile pins raw file bytes (multipart upload) and returns the CID.
func (c *Client) PinFile(ctx context.Context, filename string, content io.Reader) (*PinResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to buffer file content: %w", err)
	}
	options, err := writer.CreateFormField("pinataOptions")
	if err != nil {
		return nil, fmt.Errorf("failed to create options field: %w", err)
	}
	if _, err := options.Write([]byte(`{"cidVersion":1}`)); err != nil {
		return nil, fmt.Errorf("failed to write options field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/pinning/pinFileToIPFS", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create pin request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.JWT)

	return c.doPin(req)
}

func (c *Client) doPin(req *http.Request) (*PinResult, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute pin request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read pin response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("level=warn component=pinata_client op=pin status=%d msg=\"non-2xx response\"", resp.StatusCode)
		return nil, fmt.Errorf("pinata returned status %d", resp.StatusCode)
	}

	var pinResp PinResponse
	if err := json.Unmarshal(bodyBytes, &pinResp); err != nil {
		return nil, fmt.Errorf("failed to decode pin response: %w", err)
	}
	if pinResp.IpfsHash == "" {
		return nil, fmt.Errorf("pin response missing IpfsHash")
	}

	return &PinResult{
		CID:        pinResp.IpfsHash,
		GatewayURL: fmt.Sprintf("%s/ipfs/%s", c.Gateway, pinResp.IpfsHash),
	}, nil
}
