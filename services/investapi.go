package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"trade-journal/observability"
)

// InvestAPIService handles communication with the brokerage REST gateway.
// Every call goes through the shared retry policy and the investapi circuit
// breaker; a failure that survives both is batch-fatal to the caller.
type InvestAPIService struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewInvestAPIService creates a new InvestAPIService instance
func NewInvestAPIService(token, baseURL string) *InvestAPIService {
	return &InvestAPIService{
		token:      token,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type accountsResponse struct {
	Accounts []BrokerAccount `json:"accounts"`
}

type operationsResponse struct {
	Operations []BrokerOperation `json:"operations"`
}

type sharesResponse struct {
	Instruments []BrokerShare `json:"instruments"`
}

type shareResponse struct {
	Instrument BrokerShare `json:"instrument"`
}

// Accounts returns the accounts available to the configured token
func (s *InvestAPIService) Accounts(ctx context.Context) ([]BrokerAccount, error) {
	var out accountsResponse
	if err := s.call(ctx, "UsersService/GetAccounts", map[string]any{}, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	return out.Accounts, nil
}

// Operations returns the account's operations in the [from, to] window
func (s *InvestAPIService) Operations(ctx context.Context, accountID string, from, to time.Time) ([]BrokerOperation, error) {
	req := map[string]any{
		"account_id": accountID,
		"from":       from.Format(time.RFC3339),
		"to":         to.Format(time.RFC3339),
	}

	var out operationsResponse
	if err := s.call(ctx, "OperationsService/GetOperations", req, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch operations for account %s: %w", accountID, err)
	}
	return out.Operations, nil
}

// Shares returns the full instrument directory
func (s *InvestAPIService) Shares(ctx context.Context) ([]BrokerShare, error) {
	var out sharesResponse
	if err := s.call(ctx, "InstrumentsService/Shares", map[string]any{}, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch shares: %w", err)
	}
	return out.Instruments, nil
}

// ShareByFIGI returns a single instrument record, or nil when the broker does
// not know the identifier
func (s *InvestAPIService) ShareByFIGI(ctx context.Context, figi string) (*BrokerShare, error) {
	req := map[string]any{
		"id_type": "INSTRUMENT_ID_TYPE_FIGI",
		"id":      figi,
	}

	var out shareResponse
	err := s.call(ctx, "InstrumentsService/ShareBy", req, &out)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch share %s: %w", figi, err)
	}
	return &out.Instrument, nil
}

// statusError carries the HTTP status of a failed gateway call
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("invest api returned status %d: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.status == http.StatusNotFound
}

func (s *InvestAPIService) call(ctx context.Context, method string, reqBody any, out any) error {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest("investapi", method)
	timer := metrics.NewTimer()
	defer timer.ObserveExternalAPI("investapi", method)

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	// out is only decoded once, from the attempt that succeeded; a body from
	// a failed attempt must never leak partial fields into it
	var body []byte
	_, err = WithCircuitBreaker(ctx, BreakerInvestAPI, func() (struct{}, error) {
		return struct{}{}, WithRetry(ctx, DefaultRetryConfig, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/"+method, bytes.NewReader(payload))
			if err != nil {
				return fmt.Errorf("failed to build request: %w", err)
			}
			req.Header.Set("Authorization", "Bearer "+s.token)
			req.Header.Set("Content-Type", "application/json")

			resp, err := s.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				return &statusError{status: resp.StatusCode, body: string(b)}
			}

			b, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}
			body = b
			return nil
		})
	})
	if err != nil {
		metrics.RecordExternalAPIError("investapi", method, "request_failed")
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		metrics.RecordExternalAPIError("investapi", method, "decode_failed")
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Interface checks
var (
	_ OperationSource  = (*InvestAPIService)(nil)
	_ InstrumentSource = (*InvestAPIService)(nil)
	_ AccountSource    = (*InvestAPIService)(nil)
)
