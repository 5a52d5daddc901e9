// services/chapa.go
package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// PaymentGateway abstracts the hosted-checkout provider so the linkage
// manager can be exercised against a fake in tests.
type PaymentGateway interface {
	InitializeCheckout(in CheckoutInput) (string, error)
	Verify(txRef string) (*VerifyResult, error)
}

type CheckoutInput struct {
	Amount    float64 `json:"amount,string"`
	Currency  string  `json:"currency"`
	TxRef     string  `json:"tx_ref"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	ReturnURL string  `json:"return_url,omitempty"`
}

type VerifyResult struct {
	Status string // success | failed | pending
	Method string
}

// ChapaClient talks to the Chapa REST API (hosted checkout + verify).
type ChapaClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewChapaClientFromEnv() *ChapaClient {
	base := os.Getenv("CHAPA_BASE_URL")
	if base == "" {
		base = "https://api.chapa.co/v1"
	}
	return &ChapaClient{
		baseURL:   base,
		secretKey: os.Getenv("CHAPA_SECRET_KEY"),
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type chapaInitResponse struct {
	Status string `json:"status"`
	Data   struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
	Message string `json:"message"`
}

func (c *ChapaClient) InitializeCheckout(in CheckoutInput) (string, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("%w: initialize returned %d: %s", ErrUpstream, res.StatusCode, string(body))
	}

	var out chapaInitResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: malformed initialize response", ErrUpstream)
	}
	if out.Status != "success" || out.Data.CheckoutURL == "" {
		return "", fmt.Errorf("%w: initialize rejected: %s", ErrUpstream, out.Message)
	}
	return out.Data.CheckoutURL, nil
}

type chapaVerifyResponse struct {
	Status string `json:"status"`
	Data   struct {
		Status string `json:"status"`
		Method string `json:"method"`
	} `json:"data"`
}

func (c *ChapaClient) Verify(txRef string) (*VerifyResult, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/transaction/verify/"+txRef, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: verify returned %d: %s", ErrUpstream, res.StatusCode, string(body))
	}

	var out chapaVerifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: malformed verify response", ErrUpstream)
	}
	return &VerifyResult{Status: out.Data.Status, Method: out.Data.Method}, nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 hex signature the
// provider sends with webhook deliveries.
func VerifyWebhookSignature(body []byte, signature string) bool {
	secret := os.Getenv("CHAPA_WEBHOOK_SECRET")
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
