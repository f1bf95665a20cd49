package license

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultKeygenURL is the hosted licensing service endpoint.
const DefaultKeygenURL = "https://api.keygen.sh"

const keygenTimeout = 10 * time.Second

// KeygenClient validates Enterprise license keys against the Keygen
// validate-key action for a pinned account.
type KeygenClient struct {
	baseURL   string
	accountID string
	client    *http.Client
}

func NewKeygenClient(baseURL, accountID string) *KeygenClient {
	if baseURL == "" {
		baseURL = DefaultKeygenURL
	}
	return &KeygenClient{
		baseURL:   baseURL,
		accountID: accountID,
		client:    &http.Client{Timeout: keygenTimeout},
	}
}

type keygenResponse struct {
	Meta struct {
		Valid  bool   `json:"valid"`
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"meta"`
	Data struct {
		Attributes struct {
			Name     string `json:"name"`
			Metadata struct {
				Email string `json:"email"`
			} `json:"metadata"`
		} `json:"attributes"`
	} `json:"data"`
}

// ValidateKey asks the licensing service whether key is currently
// valid. Transport failures are reported as invalid with a transport
// error, never as valid.
func (c *KeygenClient) ValidateKey(ctx context.Context, key string) Result {
	body, err := json.Marshal(map[string]interface{}{
		"meta": map[string]string{"key": key},
	})
	if err != nil {
		return invalid(KindInternal, "encode validation request: %v", err)
	}

	url := fmt.Sprintf("%s/v1/accounts/%s/licenses/actions/validate-key", c.baseURL, c.accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return invalid(KindInternal, "build validation request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return invalid(KindTransport, "license service unreachable: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return invalid(KindTransport, "read validation response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return invalid(KindProvider, "HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed keygenResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return invalid(KindProvider, "malformed validation response: %v", err)
	}

	if !parsed.Meta.Valid {
		code := parsed.Meta.Code
		if code == "" {
			code = "UNKNOWN"
		}
		detail := code
		if parsed.Meta.Detail != "" {
			detail = fmt.Sprintf("%s (%s)", code, parsed.Meta.Detail)
		}
		return invalid(KindProvider, "license invalid: %s", detail)
	}

	licensee := parsed.Data.Attributes.Metadata.Email
	if licensee == "" {
		licensee = parsed.Data.Attributes.Name
	}
	if licensee == "" {
		licensee = "unknown"
	}

	return Result{Valid: true, Tier: TierEnterprise, Licensee: licensee}
}
