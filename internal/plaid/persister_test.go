package plaid

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"sparrow/internal/models"
)

type MockItemStore struct {
	UpdateCursorFunc           func(ctx context.Context, id int64, cursor string) error
	UpdateStatusFunc           func(ctx context.Context, id int64, status string) error
	SetNewAccountsDetectedFunc func(ctx context.Context, id int64, detected bool) error
}

func (m *MockItemStore) UpdateCursor(ctx context.Context, id int64, cursor string) error {
	if m.UpdateCursorFunc != nil {
		return m.UpdateCursorFunc(ctx, id, cursor)
	}
	return nil
}

func (m *MockItemStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *MockItemStore) SetNewAccountsDetected(ctx context.Context, id int64, detected bool) error {
	if m.SetNewAccountsDetectedFunc != nil {
		return m.SetNewAccountsDetectedFunc(ctx, id, detected)
	}
	return nil
}

type MockAccountStore struct {
	UpsertFunc    func(ctx context.Context, params models.UpsertAccountParams) (*models.Account, error)
	ResolveIDFunc func(ctx context.Context, accountID string) (*int64, error)
}

func (m *MockAccountStore) Upsert(ctx context.Context, params models.UpsertAccountParams) (*models.Account, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}
	return &models.Account{}, nil
}

func (m *MockAccountStore) ResolveID(ctx context.Context, accountID string) (*int64, error) {
	if m.ResolveIDFunc != nil {
		return m.ResolveIDFunc(ctx, accountID)
	}
	return nil, nil
}

type MockTransactionStore struct {
	UpsertFunc                 func(ctx context.Context, params models.UpsertTransactionParams) (*models.Transaction, error)
	DeleteByTransactionIDsFunc func(ctx context.Context, ids []string) (int64, error)
}

func (m *MockTransactionStore) Upsert(ctx context.Context, params models.UpsertTransactionParams) (*models.Transaction, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}
	return &models.Transaction{}, nil
}

func (m *MockTransactionStore) DeleteByTransactionIDs(ctx context.Context, ids []string) (int64, error) {
	if m.DeleteByTransactionIDsFunc != nil {
		return m.DeleteByTransactionIDsFunc(ctx, ids)
	}
	return int64(len(ids)), nil
}

func strPtr(s string) *string { return &s }

func TestUpsertAccountsBalances(t *testing.T) {
	available := decimal.NewFromInt(100)
	current := decimal.NewFromInt(110)

	var got models.UpsertAccountParams
	accounts := &MockAccountStore{
		UpsertFunc: func(ctx context.Context, params models.UpsertAccountParams) (*models.Account, error) {
			got = params
			return &models.Account{}, nil
		},
	}
	persister := NewPersister(&MockItemStore{}, accounts, &MockTransactionStore{})

	err := persister.UpsertAccounts(context.Background(), testItem(), []Account{
		{
			AccountID: "acc-1",
			Name:      "Checking",
			Type:      "depository",
			Balances: &Balances{
				Available:       &available,
				Current:         &current,
				ISOCurrencyCode: strPtr("USD"),
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ItemID != 42 || got.AccountID != "acc-1" {
		t.Errorf("unexpected account keys: item %d, account %q", got.ItemID, got.AccountID)
	}
	if got.AvailableBalance == nil || !got.AvailableBalance.Equal(available) {
		t.Errorf("expected available balance %s, got %v", available, got.AvailableBalance)
	}
	if got.CreditLimit != nil {
		t.Error("expected absent credit limit to stay nil")
	}
	if got.ISOCurrencyCode == nil || *got.ISOCurrencyCode != "USD" {
		t.Errorf("expected currency USD, got %v", got.ISOCurrencyCode)
	}
}

func TestUpsertAccountsMissingBalances(t *testing.T) {
	var got models.UpsertAccountParams
	accounts := &MockAccountStore{
		UpsertFunc: func(ctx context.Context, params models.UpsertAccountParams) (*models.Account, error) {
			got = params
			return &models.Account{}, nil
		},
	}
	persister := NewPersister(&MockItemStore{}, accounts, &MockTransactionStore{})

	err := persister.UpsertAccounts(context.Background(), testItem(), []Account{
		{AccountID: "acc-1", Name: "Checking", Type: "depository"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A payload without balances must not overwrite stored values.
	if got.AvailableBalance != nil || got.CurrentBalance != nil || got.CreditLimit != nil {
		t.Error("expected all balance params to stay nil without a balances object")
	}
}

func TestUpsertTransactionsResolvesAccount(t *testing.T) {
	internalID := int64(7)
	accounts := &MockAccountStore{
		ResolveIDFunc: func(ctx context.Context, accountID string) (*int64, error) {
			if accountID == "acc-known" {
				return &internalID, nil
			}
			return nil, nil
		},
	}

	var got []models.UpsertTransactionParams
	transactions := &MockTransactionStore{
		UpsertFunc: func(ctx context.Context, params models.UpsertTransactionParams) (*models.Transaction, error) {
			got = append(got, params)
			return &models.Transaction{}, nil
		},
	}
	persister := NewPersister(&MockItemStore{}, accounts, transactions)

	err := persister.UpsertTransactions(context.Background(), []Transaction{
		{TransactionID: "tx-1", AccountID: "acc-known", Date: "2024-05-01"},
		{TransactionID: "tx-2", AccountID: "acc-unknown", Date: "2024-05-02"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 upserts, got %d", len(got))
	}
	if got[0].AccountID == nil || *got[0].AccountID != internalID {
		t.Errorf("expected resolved account id %d, got %v", internalID, got[0].AccountID)
	}
	// Unknown account stores an ownerless row to be repaired later.
	if got[1].AccountID != nil {
		t.Errorf("expected nil account id for unknown account, got %v", got[1].AccountID)
	}
}

func TestUpsertTransactionsCategoryAndLocation(t *testing.T) {
	var got models.UpsertTransactionParams
	transactions := &MockTransactionStore{
		UpsertFunc: func(ctx context.Context, params models.UpsertTransactionParams) (*models.Transaction, error) {
			got = params
			return &models.Transaction{}, nil
		},
	}
	persister := NewPersister(&MockItemStore{}, &MockAccountStore{}, transactions)

	err := persister.UpsertTransactions(context.Background(), []Transaction{
		{
			TransactionID: "tx-1",
			AccountID:     "acc-1",
			Date:          "2024-05-01",
			PersonalFinanceCategory: &PersonalFinanceCategory{
				Primary:  strPtr("FOOD_AND_DRINK"),
				Detailed: strPtr("FOOD_AND_DRINK_COFFEE"),
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.PrimaryCategory == nil || *got.PrimaryCategory != "FOOD_AND_DRINK" {
		t.Errorf("expected primary category FOOD_AND_DRINK, got %v", got.PrimaryCategory)
	}
	if string(got.Location) != "{}" {
		t.Errorf("expected empty location default {}, got %q", got.Location)
	}
	if got.Date.Format("2006-01-02") != "2024-05-01" {
		t.Errorf("expected date 2024-05-01, got %s", got.Date)
	}
}

func TestUpsertTransactionsInvalidDate(t *testing.T) {
	persister := NewPersister(&MockItemStore{}, &MockAccountStore{}, &MockTransactionStore{})

	err := persister.UpsertTransactions(context.Background(), []Transaction{
		{TransactionID: "tx-1", AccountID: "acc-1", Date: "May 1st"},
	})
	if err == nil {
		t.Fatal("expected error for unparseable date")
	}
}

func TestDeleteTransactionsCollectsIDs(t *testing.T) {
	var got []string
	transactions := &MockTransactionStore{
		DeleteByTransactionIDsFunc: func(ctx context.Context, ids []string) (int64, error) {
			got = ids
			return int64(len(ids)), nil
		},
	}
	persister := NewPersister(&MockItemStore{}, &MockAccountStore{}, transactions)

	err := persister.DeleteTransactions(context.Background(), []RemovedTransaction{
		{TransactionID: "tx-1"},
		{TransactionID: "tx-2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 || got[0] != "tx-1" || got[1] != "tx-2" {
		t.Errorf("unexpected delete ids: %v", got)
	}
}

func TestUpdateCursorMutatesItem(t *testing.T) {
	var gotID int64
	var gotCursor string
	items := &MockItemStore{
		UpdateCursorFunc: func(ctx context.Context, id int64, cursor string) error {
			gotID = id
			gotCursor = cursor
			return nil
		},
	}
	persister := NewPersister(items, &MockAccountStore{}, &MockTransactionStore{})

	item := testItem()
	if err := persister.UpdateCursor(context.Background(), item, "cursor-9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotID != 42 || gotCursor != "cursor-9" {
		t.Errorf("expected cursor write (42, cursor-9), got (%d, %q)", gotID, gotCursor)
	}
	if item.TransactionsCursor != "cursor-9" {
		t.Errorf("expected in-memory cursor update, got %q", item.TransactionsCursor)
	}
}

func TestMarkItemBad(t *testing.T) {
	var gotStatus string
	items := &MockItemStore{
		UpdateStatusFunc: func(ctx context.Context, id int64, status string) error {
			gotStatus = status
			return nil
		},
	}
	persister := NewPersister(items, &MockAccountStore{}, &MockTransactionStore{})

	item := testItem()
	if err := persister.MarkItemBad(context.Background(), item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotStatus != models.ItemStatusBad {
		t.Errorf("expected status %q, got %q", models.ItemStatusBad, gotStatus)
	}
	if item.Status != models.ItemStatusBad {
		t.Errorf("expected in-memory status update, got %q", item.Status)
	}
}
