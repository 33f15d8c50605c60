// internal/provider/exchangerate_api.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"currency-conversion/internal/currency"
)

const DefaultExchangeRateAPIURL = "https://v6.exchangerate-api.com/v6"

type exchangeRateAPIResponse struct {
	Result         string          `json:"result"`
	ErrorType      string          `json:"error-type"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
	TimeLastUpdate int64           `json:"time_last_update_unix"`
}

// ExchangeRateAPI talks to the exchangerate-api.com pair endpoint.
type ExchangeRateAPI struct {
	client *http.Client
	apiURL string
	apiKey string
}

func NewExchangeRateAPI(apiURL, apiKey string, client *http.Client) *ExchangeRateAPI {
	if apiURL == "" {
		apiURL = DefaultExchangeRateAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &ExchangeRateAPI{
		client: client,
		apiURL: apiURL,
		apiKey: apiKey,
	}
}

func (e *ExchangeRateAPI) Name() string {
	return "exchangerate-api"
}

func (e *ExchangeRateAPI) Rate(ctx context.Context, base, quote currency.Code) (*Quote, error) {
	if e.apiKey == "" {
		return nil, ErrUnauthorized
	}

	url := fmt.Sprintf("%s/%s/pair/%s/%s", e.apiURL, e.apiKey, base, quote)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := handleHTTPStatusCodeError(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp exchangeRateAPIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if apiResp.Result != "success" {
		return nil, resultError(apiResp.ErrorType)
	}

	if !apiResp.ConversionRate.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive rate %s", ErrInvalidResponse, apiResp.ConversionRate)
	}

	timestamp := time.Now().UTC()
	if apiResp.TimeLastUpdate > 0 {
		timestamp = time.Unix(apiResp.TimeLastUpdate, 0).UTC()
	}

	return &Quote{
		Base:      base,
		Quote:     quote,
		Rate:      apiResp.ConversionRate,
		Timestamp: timestamp,
	}, nil
}

func handleHTTPStatusCodeError(res *http.Response) error {
	switch {
	case res.StatusCode == http.StatusOK:
		return nil
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case res.StatusCode == http.StatusTooManyRequests:
		return ErrAPILimitReached
	case res.StatusCode >= 400 && res.StatusCode < 500:
		return fmt.Errorf("%w: status %d", ErrClient, res.StatusCode)
	case res.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrServer, res.StatusCode)
	default:
		return ErrUnknown
	}
}

func resultError(errorType string) error {
	switch errorType {
	case "invalid-key", "inactive-account":
		return ErrUnauthorized
	case "quota-reached":
		return ErrAPILimitReached
	case "unsupported-code":
		return ErrUnsupportedPair
	case "malformed-request":
		return ErrClient
	default:
		return fmt.Errorf("%w: %s", ErrUnknown, errorType)
	}
}
