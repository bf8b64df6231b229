package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestWrapUnwrap_Transaction(t *testing.T) {
	src := Transaction{
		Date:        time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Type:        TxExpense,
		Category:    "food",
		Subcategory: "groceries",
		Amount:      decimal.RequireFromString("500"),
		Description: "weekly shop",
	}
	env, err := Wrap("tx-1", "prof-1", time.Now(), src)
	require.NoError(t, err)
	require.Equal(t, KindTransaction, env.Kind)

	out, err := env.Unwrap()
	require.NoError(t, err)
	got, ok := out.(Transaction)
	require.True(t, ok)
	require.True(t, src.Amount.Equal(got.Amount))
	require.Equal(t, src.Category, got.Category)
	require.True(t, src.Date.Equal(got.Date))
}

func TestWrapUnwrap_AllKinds(t *testing.T) {
	now := time.Now().UTC()
	entities := []TypedEntity{
		Account{Name: "checking", Type: "bank", Balance: decimal.RequireFromString("1042.55"), Currency: "EUR"},
		Transaction{Date: now, Type: TxIncome, Category: "salary", Amount: decimal.RequireFromString("3000")},
		Loan{Lender: "bank", Principal: decimal.RequireFromString("10000"), Outstanding: decimal.RequireFromString("7500"), RatePercent: decimal.RequireFromString("6.4"), StartDate: now, EndDate: now.AddDate(3, 0, 0)},
		Insurance{Provider: "acme", PolicyNumber: "P-77", Premium: decimal.RequireFromString("120"), SumAssured: decimal.RequireFromString("50000"), RenewalDate: now},
		Subscription{Service: "stream", Amount: decimal.RequireFromString("9.99"), BillingCycle: "monthly", NextDueDate: now, Active: true},
	}

	for _, src := range entities {
		env, err := Wrap("id", "prof", now, src)
		require.NoError(t, err)
		require.Equal(t, src.EntityKind(), env.Kind)

		out, err := env.Unwrap()
		require.NoError(t, err)
		require.Equal(t, src.EntityKind(), out.EntityKind())
	}
}

func TestUnwrap_UnknownKind(t *testing.T) {
	env := Envelope{ID: "x", Kind: "crypto_wallet", Details: json.RawMessage(`{}`)}
	_, err := env.Unwrap()
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestEnvelope_ProfileIDNotSerialized(t *testing.T) {
	env, err := Wrap("id-1", "prof-9", time.Now(), testAccount())
	require.NoError(t, err)

	b, err := json.Marshal(env)
	require.NoError(t, err)
	require.NotContains(t, string(b), "prof-9")

	var back Envelope
	require.NoError(t, json.Unmarshal(b, &back))
	require.Empty(t, back.ProfileID)
	require.Equal(t, "id-1", back.ID)
}

// testAccount returns a minimal valid account for serialization tests.
func testAccount() Account {
	return Account{Name: "n", Type: "bank", Balance: decimal.Zero, Currency: "USD"}
}

func TestValidate(t *testing.T) {
	good, err := Wrap("id-1", "p", time.Now(), testAccount())
	require.NoError(t, err)
	require.NoError(t, good.Validate())

	noID := good
	noID.ID = ""
	require.Error(t, noID.Validate())

	badKind := good
	badKind.Kind = "mystery"
	require.ErrorIs(t, badKind.Validate(), ErrUnknownKind)

	badDetails := good
	badDetails.Details = json.RawMessage(`{"balance": "not-a-number"}`)
	require.Error(t, badDetails.Validate())
}
