package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a ledger entry on an Account. AccountID is nullable because
// a transaction can arrive from the provider before its account row exists;
// later sync rounds repair the reference.
type Transaction struct {
	ID                     int64            `json:"id"`
	AccountID              *int64           `json:"accountId,omitempty"`
	TransactionID          string           `json:"transactionId"`
	Amount                 decimal.Decimal  `json:"amount"`
	ISOCurrencyCode        *string          `json:"isoCurrencyCode,omitempty"`
	UnofficialCurrencyCode *string          `json:"unofficialCurrencyCode,omitempty"`
	CheckNumber            *string          `json:"checkNumber,omitempty"`
	Date                   time.Time        `json:"date"`
	DateTime               *time.Time       `json:"datetime,omitempty"`
	AuthorizedDate         *time.Time       `json:"authorizedDate,omitempty"`
	AuthorizedDateTime     *time.Time       `json:"authorizedDatetime,omitempty"`
	Location               json.RawMessage  `json:"location"`
	Name                   *string          `json:"name,omitempty"`
	MerchantName           *string          `json:"merchantName,omitempty"`
	MerchantEntityID       *string          `json:"merchantEntityId,omitempty"`
	LogoURL                *string          `json:"logoUrl,omitempty"`
	Website                *string          `json:"website,omitempty"`
	AccountOwner           *string          `json:"accountOwner,omitempty"`
	Pending                bool             `json:"pending"`
	PrimaryCategory        *string          `json:"primaryCategory,omitempty"`
	DetailedCategory       *string          `json:"detailedCategory,omitempty"`
	CategoryConfidence     *string          `json:"categoryConfidence,omitempty"`
	CategoryIconURL        *string          `json:"categoryIconUrl,omitempty"`
	CreatedAt              time.Time        `json:"createdAt"`
	UpdatedAt              time.Time        `json:"updatedAt"`
}

// UpsertTransactionParams carries the field set for a transaction upsert
// keyed on the external transaction id. Location, Date and Pending are always
// present in provider payloads and always written; nil pointer fields are
// absent and preserve the stored value.
type UpsertTransactionParams struct {
	AccountID              *int64
	TransactionID          string
	Location               json.RawMessage
	Date                   time.Time
	Pending                bool
	Amount                 *decimal.Decimal
	ISOCurrencyCode        *string
	UnofficialCurrencyCode *string
	CheckNumber            *string
	DateTime               *time.Time
	AuthorizedDate         *time.Time
	AuthorizedDateTime     *time.Time
	Name                   *string
	MerchantName           *string
	MerchantEntityID       *string
	LogoURL                *string
	Website                *string
	AccountOwner           *string
	PrimaryCategory        *string
	DetailedCategory       *string
	CategoryConfidence     *string
	CategoryIconURL        *string
}
