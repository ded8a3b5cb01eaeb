package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a single financial account (checking, credit card, loan, ...)
// belonging to an Item. Accounts are created and updated by sync rounds,
// never deleted.
type Account struct {
	ID                     int64            `json:"id"`
	ItemID                 int64            `json:"itemId"`
	AccountID              string           `json:"accountId"`
	Name                   string           `json:"name"`
	Mask                   *string          `json:"mask,omitempty"`
	OfficialName           *string          `json:"officialName,omitempty"`
	AccountType            string           `json:"accountType"`
	AccountSubtype         *string          `json:"accountSubtype,omitempty"`
	AvailableBalance       *decimal.Decimal `json:"availableBalance,omitempty"`
	CurrentBalance         *decimal.Decimal `json:"currentBalance,omitempty"`
	CreditLimit            *decimal.Decimal `json:"creditLimit,omitempty"`
	ISOCurrencyCode        *string          `json:"isoCurrencyCode,omitempty"`
	UnofficialCurrencyCode *string          `json:"unofficialCurrencyCode,omitempty"`
	CreatedAt              time.Time        `json:"createdAt"`
	UpdatedAt              time.Time        `json:"updatedAt"`
}

// UpsertAccountParams carries the field set for an account upsert keyed on
// (item, external account id). Pointer fields that are nil are absent from
// the provider payload and must not overwrite stored values.
type UpsertAccountParams struct {
	ItemID                 int64
	AccountID              string
	Name                   string
	AccountType            string
	Mask                   *string
	OfficialName           *string
	AccountSubtype         *string
	AvailableBalance       *decimal.Decimal
	CurrentBalance         *decimal.Decimal
	CreditLimit            *decimal.Decimal
	ISOCurrencyCode        *string
	UnofficialCurrencyCode *string
}
