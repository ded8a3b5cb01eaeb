package models

import (
	"time"
)

// ItemStatusGood and ItemStatusBad are the two connection states of an Item.
// An item goes BAD only through an explicit error-driven update and returns
// to GOOD only through an explicit reset.
const (
	ItemStatusGood = "GOOD"
	ItemStatusBad  = "BAD"
)

// Item represents one login at a financial institution via the banking-data
// provider. A single user can hold several items, one per institution.
type Item struct {
	ID                  int64     `json:"id"`
	UUID                string    `json:"uuid"`
	UserID              int64     `json:"userId"`
	AccessToken         string    `json:"-"`
	ItemID              string    `json:"itemId"`
	InstitutionID       string    `json:"institutionId"`
	InstitutionName     string    `json:"institutionName"`
	Status              string    `json:"status"`
	NewAccountsDetected bool      `json:"newAccountsDetected"`
	TransactionsCursor  string    `json:"-"`
	IsActive            bool      `json:"-"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type CreateItemParams struct {
	UserID          int64
	AccessToken     string
	ItemID          string
	InstitutionID   string
	InstitutionName string
}
