package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	sandboxURL    = "https://sandbox.plaid.com"
	productionURL = "https://production.plaid.com"

	apiVersion     = "2020-09-14"
	defaultTimeout = 30 * time.Second
)

// Provider error codes the sync pipeline reacts to.
const (
	ErrCodeSyncMutationDuringPagination = "TRANSACTIONS_SYNC_MUTATION_DURING_PAGINATION"
	ErrCodeItemLoginRequired            = "ITEM_LOGIN_REQUIRED"
)

// APIError is a structured error response from the provider.
type APIError struct {
	StatusCode   int    `json:"-"`
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	RequestID    string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("plaid api error (status %d): %s - %s", e.StatusCode, e.ErrorCode, e.ErrorMessage)
}

// Config holds provider credentials and environment selection.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // "sandbox" or "production"
	BaseURL     string // overrides Environment when set, used by tests
}

// Client talks to the banking-data provider API. All endpoints are JSON
// POSTs authenticated by client_id/secret in the request body.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Environment == "production" {
			baseURL = productionURL
		} else {
			baseURL = sandboxURL
		}
	}

	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
		clientID:   cfg.ClientID,
		secret:     cfg.Secret,
	}
}

func (c *Client) post(ctx context.Context, path string, body map[string]any, out any) error {
	body["client_id"] = c.clientID
	body["secret"] = c.secret

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Plaid-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil {
			return fmt.Errorf("api request %s failed with status %d: %s", path, resp.StatusCode, string(respBody))
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal %s response: %w", path, err)
		}
	}
	return nil
}

// TransactionsSync fetches one page of incremental transaction updates.
// An empty cursor means "from the beginning".
func (c *Client) TransactionsSync(ctx context.Context, accessToken, cursor string) (*TransactionsSyncResponse, error) {
	var resp TransactionsSyncResponse
	err := c.post(ctx, "/transactions/sync", map[string]any{
		"access_token": accessToken,
		"cursor":       cursor,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// AccountsGet retrieves the full account list for a linked item.
func (c *Client) AccountsGet(ctx context.Context, accessToken string) (*AccountsGetResponse, error) {
	var resp AccountsGetResponse
	err := c.post(ctx, "/accounts/get", map[string]any{
		"access_token": accessToken,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// WebhookVerificationKeyGet fetches the verification key for a key id found
// in a webhook JWT header.
func (c *Client) WebhookVerificationKeyGet(ctx context.Context, keyID string) (*WebhookVerificationKeyGetResponse, error) {
	var resp WebhookVerificationKeyGetResponse
	err := c.post(ctx, "/webhook_verification_key/get", map[string]any{
		"key_id": keyID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ItemPublicTokenExchange swaps a link-flow public token for a permanent
// access token and item id.
func (c *Client) ItemPublicTokenExchange(ctx context.Context, publicToken string) (*ItemPublicTokenExchangeResponse, error) {
	var resp ItemPublicTokenExchangeResponse
	err := c.post(ctx, "/item/public_token/exchange", map[string]any{
		"public_token": publicToken,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ItemRemove revokes an access token at the provider.
func (c *Client) ItemRemove(ctx context.Context, accessToken string) (*ItemRemoveResponse, error) {
	var resp ItemRemoveResponse
	err := c.post(ctx, "/item/remove", map[string]any{
		"access_token": accessToken,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// LinkTokenCreateParams configures a link token request. AccessToken puts
// link into update mode (products must then be empty);
// AccountSelectionEnabled requests new-account selection in update mode.
type LinkTokenCreateParams struct {
	ClientName              string
	Language                string
	CountryCodes            []string
	Products                []string
	ClientUserID            string
	RedirectURI             string
	WebhookURL              string
	AccessToken             string
	AccountSelectionEnabled bool
}

// LinkTokenCreate creates a short-lived link token for the client app.
func (c *Client) LinkTokenCreate(ctx context.Context, params LinkTokenCreateParams) (*LinkTokenCreateResponse, error) {
	body := map[string]any{
		"client_name":   params.ClientName,
		"language":      params.Language,
		"country_codes": params.CountryCodes,
		"products":      params.Products,
		"user": map[string]any{
			"client_user_id": params.ClientUserID,
		},
	}
	if params.RedirectURI != "" {
		body["redirect_uri"] = params.RedirectURI
	}
	if params.WebhookURL != "" {
		body["webhook"] = params.WebhookURL
	}
	if params.AccessToken != "" {
		body["access_token"] = params.AccessToken
		body["products"] = []string{}
	}
	if params.AccountSelectionEnabled {
		body["update"] = map[string]any{"account_selection_enabled": true}
	}

	var resp LinkTokenCreateResponse
	if err := c.post(ctx, "/link/token/create", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SandboxItemResetLogin forces a sandbox item into ITEM_LOGIN_REQUIRED.
func (c *Client) SandboxItemResetLogin(ctx context.Context, accessToken string) (*SandboxResponse, error) {
	var resp SandboxResponse
	err := c.post(ctx, "/sandbox/item/reset_login", map[string]any{
		"access_token": accessToken,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SandboxItemFireWebhook asks the sandbox to deliver a webhook for an item.
func (c *Client) SandboxItemFireWebhook(ctx context.Context, accessToken, webhookCode string) (*SandboxResponse, error) {
	var resp SandboxResponse
	err := c.post(ctx, "/sandbox/item/fire_webhook", map[string]any{
		"access_token": accessToken,
		"webhook_code": webhookCode,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
