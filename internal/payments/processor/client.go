package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Intent statuses as reported by the processor. Anything unrecognized is
// treated as StatusPending so a flaky processor response never cancels a
// booking on its own.
const (
	StatusPending        = "pending"
	StatusSucceeded      = "succeeded"
	StatusFailed         = "failed"
	StatusRequiresAction = "requires_action"
	StatusCanceled       = "canceled"
	StatusRefunded       = "refunded"
)

// Client talks to the external payment processor.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateIntentRequest is the payload for intent creation.
type CreateIntentRequest struct {
	AmountCents        int64  `json:"amount_cents"`
	Currency           string `json:"currency"`
	CustomerRef        string `json:"customer_ref"`
	ApplicationFee     int64  `json:"application_fee_cents"`
	DestinationAccount string `json:"destination_account,omitempty"`
	Description        string `json:"description,omitempty"`
}

// Intent is the processor's view of a payment intent.
type Intent struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// ErrorResponse represents an error returned by the processor API.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("processor api error: %s - %s", e.Code, e.Message)
	}
	return fmt.Sprintf("processor api error: status %d", e.StatusCode)
}

// CreateIntent registers a new payment intent. The idempotency key makes a
// retried call return the intent created by the first attempt.
func (c *Client) CreateIntent(ctx context.Context, req *CreateIntentRequest, idempotencyKey string) (*Intent, error) {
	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	return c.doIntent(ctx, http.MethodPost, "/v1/intents", req, headers)
}

// GetIntent fetches the current state of an intent. An intent the processor
// does not know yet reports StatusPending.
func (c *Client) GetIntent(ctx context.Context, intentID string) (*Intent, error) {
	intent, err := c.doIntent(ctx, http.MethodGet, "/v1/intents/"+intentID, nil, nil)
	if err != nil {
		var errResp *ErrorResponse
		if errors.As(err, &errResp) && errResp.StatusCode == http.StatusNotFound {
			return &Intent{ID: intentID, Status: StatusPending}, nil
		}
		return nil, err
	}
	if intent.Status == "" {
		intent.Status = StatusPending
	}
	return intent, nil
}

// RefundIntent asks the processor to refund a captured intent.
func (c *Client) RefundIntent(ctx context.Context, intentID string) (*Intent, error) {
	return c.doIntent(ctx, http.MethodPost, "/v1/intents/"+intentID+"/refund", nil, nil)
}

func (c *Client) doIntent(ctx context.Context, method, path string, payload any, headers map[string]string) (*Intent, error) {
	var reqBody io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal intent request: %w", err)
		}
		reqBody = bytes.NewBuffer(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create intent request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute intent request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errResp := &ErrorResponse{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(bodyBytes, errResp); err != nil {
			return nil, fmt.Errorf("processor returned status %d with unparsable body", resp.StatusCode)
		}
		return nil, errResp
	}

	var intent Intent
	if err := json.Unmarshal(bodyBytes, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode intent response: %w", err)
	}
	return &intent, nil
}
