package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RemoteService speaks the payment vendor's REST interface:
// POST /transactions submits a transfer, GET /transactions/{id} polls it.
type RemoteService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRemoteService builds a client for the service at baseURL.
func NewRemoteService(baseURL, apiKey string) *RemoteService {
	return &RemoteService{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type submitPayload struct {
	From     string                 `json:"from"`
	To       string                 `json:"to"`
	Amount   int64                  `json:"amount"`
	Reason   string                 `json:"reason"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type txResponse struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

func (s *RemoteService) Submit(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(submitPayload{
		From:     req.From,
		To:       req.To,
		Amount:   req.Amount,
		Reason:   req.Reason,
		Metadata: req.Trace,
	})
	if err != nil {
		return "", fmt.Errorf("ledger: encode submit: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ledger: submit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ledger: submit: unexpected status %d", resp.StatusCode)
	}

	var tx txResponse
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return "", fmt.Errorf("ledger: decode submit response: %w", err)
	}
	if tx.ID == "" {
		return "", fmt.Errorf("ledger: submit response missing transaction id")
	}
	return tx.ID, nil
}

func (s *RemoteService) PollStatus(ctx context.Context, txID string) (Status, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/transactions/"+txID, nil)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ledger: poll: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ledger: poll: unexpected status %d", resp.StatusCode)
	}

	var tx txResponse
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return "", fmt.Errorf("ledger: decode poll response: %w", err)
	}
	return tx.Status, nil
}
