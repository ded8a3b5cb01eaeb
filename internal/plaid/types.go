package plaid

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Balances holds the balance set reported for an account. All fields are
// optional in provider payloads.
type Balances struct {
	Available              *decimal.Decimal `json:"available"`
	Current                *decimal.Decimal `json:"current"`
	Limit                  *decimal.Decimal `json:"limit"`
	ISOCurrencyCode        *string          `json:"iso_currency_code"`
	UnofficialCurrencyCode *string          `json:"unofficial_currency_code"`
}

// Account is an account payload from /accounts/get.
type Account struct {
	AccountID    string    `json:"account_id"`
	Balances     *Balances `json:"balances"`
	Mask         *string   `json:"mask"`
	Name         string    `json:"name"`
	OfficialName *string   `json:"official_name"`
	Type         string    `json:"type"`
	Subtype      *string   `json:"subtype"`
}

// PersonalFinanceCategory is the provider's transaction classification.
type PersonalFinanceCategory struct {
	Primary         *string `json:"primary"`
	Detailed        *string `json:"detailed"`
	ConfidenceLevel *string `json:"confidence_level"`
}

// Transaction is a transaction payload from /transactions/sync. Pointer
// fields can be absent; Date, Location and Pending are always present.
type Transaction struct {
	AccountID                      string                   `json:"account_id"`
	AccountOwner                   *string                  `json:"account_owner"`
	Amount                         *decimal.Decimal         `json:"amount"`
	ISOCurrencyCode                *string                  `json:"iso_currency_code"`
	UnofficialCurrencyCode         *string                  `json:"unofficial_currency_code"`
	CheckNumber                    *string                  `json:"check_number"`
	Date                           string                   `json:"date"`
	DateTime                       *time.Time               `json:"datetime"`
	AuthorizedDate                 *string                  `json:"authorized_date"`
	AuthorizedDateTime             *time.Time               `json:"authorized_datetime"`
	Location                       json.RawMessage          `json:"location"`
	Name                           *string                  `json:"name"`
	MerchantName                   *string                  `json:"merchant_name"`
	MerchantEntityID               *string                  `json:"merchant_entity_id"`
	LogoURL                        *string                  `json:"logo_url"`
	Website                        *string                  `json:"website"`
	Pending                        bool                     `json:"pending"`
	PersonalFinanceCategory        *PersonalFinanceCategory `json:"personal_finance_category"`
	PersonalFinanceCategoryIconURL *string                  `json:"personal_finance_category_icon_url"`
	TransactionID                  string                   `json:"transaction_id"`
}

// RemovedTransaction identifies a transaction the provider has removed.
type RemovedTransaction struct {
	TransactionID string  `json:"transaction_id"`
	AccountID     *string `json:"account_id"`
}

// TransactionsSyncResponse is one page of /transactions/sync.
type TransactionsSyncResponse struct {
	Added      []Transaction        `json:"added"`
	Modified   []Transaction        `json:"modified"`
	Removed    []RemovedTransaction `json:"removed"`
	NextCursor string               `json:"next_cursor"`
	HasMore    bool                 `json:"has_more"`
	RequestID  string               `json:"request_id"`
}

// AccountsGetResponse is the full account snapshot for an access token.
type AccountsGetResponse struct {
	Accounts  []Account `json:"accounts"`
	RequestID string    `json:"request_id"`
}

// WebhookVerificationKeyGetResponse carries one webhook verification key.
// The key is kept as raw JSON: it is a JWK with provider extensions
// (created_at, expired_at) and is handed to the JWKS parser as-is.
type WebhookVerificationKeyGetResponse struct {
	Key       json.RawMessage `json:"key"`
	RequestID string          `json:"request_id"`
}

// ItemPublicTokenExchangeResponse is the permanent credential pair returned
// when a link-flow public token is exchanged.
type ItemPublicTokenExchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
	RequestID   string `json:"request_id"`
}

// LinkTokenCreateResponse carries the short-lived token the link client
// boots from.
type LinkTokenCreateResponse struct {
	LinkToken  string    `json:"link_token"`
	Expiration time.Time `json:"expiration"`
	RequestID  string    `json:"request_id"`
}

// ItemRemoveResponse acknowledges an access token revocation.
type ItemRemoveResponse struct {
	RequestID string `json:"request_id"`
}

// SandboxResponse acknowledges a sandbox-only request.
type SandboxResponse struct {
	RequestID string `json:"request_id"`
}
