// Package slipverify wraps the third-party payment-slip verification
// API.  The provider receives a normalized slip reference and the exact
// amount the order expects; any rejection comes back as a typed
// *VerifyError so callers can answer with a 400 instead of a 500.
package slipverify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// VerifyError is a semantic rejection from the provider: the slip does
// not exist, the amount does not match, or the transfer is too old.
// Anything else (network failure, 5xx) is returned as a plain error.
type VerifyError struct {
	Code    string
	Message string
}

func (e *VerifyError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("slip verification rejected: %s (%s)", e.Message, e.Code)
	}
	return "slip verification rejected: " + e.Code
}

// Verifier is the narrow interface the orchestrator depends on.
type Verifier interface {
	Verify(ctx context.Context, refNbr string, amount decimal.Decimal) error
}

// Client calls the slip verification provider over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient builds a Client for the given provider endpoint.  An empty
// token disables the Authorization header (some sandboxes are open).
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     zerolog.New(os.Stdout).With().Timestamp().Str("component", "slipverify").Logger(),
	}
}

type verifyRequest struct {
	RefNbr string `json:"refNbr"`
	Amount string `json:"amount"`
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Verify posts the reference and amount to the provider.  A 2xx body
// with success=true passes; a 2xx/4xx body with success=false or a
// plain 4xx status becomes a *VerifyError.  5xx and transport failures
// stay generic errors so they map to 500 upstream.
func (c *Client) Verify(ctx context.Context, refNbr string, amount decimal.Decimal) error {
	body, err := json.Marshal(verifyRequest{RefNbr: refNbr, Amount: amount.StringFixed(2)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("slip verification call: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("slip verification read: %w", err)
	}
	var vr verifyResponse
	// The provider answers JSON on both accept and reject paths; a
	// malformed body on a non-2xx status is still an upstream fault.
	decodeErr := json.Unmarshal(raw, &vr)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if decodeErr != nil {
			return fmt.Errorf("slip verification decode: %w", decodeErr)
		}
		if !vr.Success {
			c.log.Warn().Str("ref", refNbr).Str("code", vr.Code).Msg("slip rejected by provider")
			return &VerifyError{Code: vr.Code, Message: vr.Message}
		}
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		if decodeErr == nil && vr.Code != "" {
			c.log.Warn().Str("ref", refNbr).Str("code", vr.Code).Msg("slip rejected by provider")
			return &VerifyError{Code: vr.Code, Message: vr.Message}
		}
		return &VerifyError{Code: fmt.Sprintf("http_%d", resp.StatusCode)}
	default:
		return fmt.Errorf("slip verification upstream status %d", resp.StatusCode)
	}
}

// NormalizeRef canonicalizes a raw slip reference scanned from the QR
// on a payment slip: trim, uppercase, drop inner whitespace.  The
// single-use lock table and the provider both receive this form, so
// the same physical slip always normalizes to the same key.
func NormalizeRef(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(raw)) {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
