// Package models defines the vault's domain entities and their envelope.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies an entity. The set is closed: serialization and merge
// logic switch over it exhaustively, so adding a kind is a compile-time
// visible change.
type Kind string

const (
	KindAccount      Kind = "account"
	KindTransaction  Kind = "transaction"
	KindLoan         Kind = "loan"
	KindInsurance    Kind = "insurance"
	KindSubscription Kind = "subscription"
)

// TxType is the direction of a transaction.
type TxType string

const (
	TxIncome   TxType = "income"
	TxExpense  TxType = "expense"
	TxTransfer TxType = "transfer"
)

var ErrUnknownKind = errors.New("unknown entity kind")

// TypedEntity is implemented by every concrete entity variant.
type TypedEntity interface {
	EntityKind() Kind
}

// Account is a bank account, wallet or card balance.
type Account struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
	Institution string          `json:"institution,omitempty"`
}

func (Account) EntityKind() Kind { return KindAccount }

// Transaction is a single ledger movement.
type Transaction struct {
	Date        time.Time       `json:"date"`
	Type        TxType          `json:"type"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	AccountID   string          `json:"account_id,omitempty"`
	Description string          `json:"description,omitempty"`
}

func (Transaction) EntityKind() Kind { return KindTransaction }

// Loan tracks a borrowed amount and its repayment terms.
type Loan struct {
	Lender      string          `json:"lender"`
	Principal   decimal.Decimal `json:"principal"`
	Outstanding decimal.Decimal `json:"outstanding"`
	RatePercent decimal.Decimal `json:"rate_percent"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	EMIDay      int             `json:"emi_day,omitempty"`
}

func (Loan) EntityKind() Kind { return KindLoan }

// Insurance is a policy with its premium schedule.
type Insurance struct {
	Provider     string          `json:"provider"`
	PolicyNumber string          `json:"policy_number"`
	Premium      decimal.Decimal `json:"premium"`
	SumAssured   decimal.Decimal `json:"sum_assured"`
	RenewalDate  time.Time       `json:"renewal_date"`
}

func (Insurance) EntityKind() Kind { return KindInsurance }

// Subscription is a recurring charge.
type Subscription struct {
	Service      string          `json:"service"`
	Plan         string          `json:"plan,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	BillingCycle string          `json:"billing_cycle"`
	NextDueDate  time.Time       `json:"next_due_date"`
	Active       bool            `json:"active"`
}

func (Subscription) EntityKind() Kind { return KindSubscription }

// Envelope is the serialized form of an entity: a tagged kind plus raw
// details. ID is the global identifier that survives export/import
// round-trips and drives merge de-duplication across devices. ProfileID is
// local routing only and is never part of the serialized payload.
type Envelope struct {
	ID        string          `json:"id"`
	ProfileID string          `json:"-"`
	Kind      Kind            `json:"kind"`
	UpdatedAt time.Time       `json:"updated_at"`
	Details   json.RawMessage `json:"details"`
}

// Wrap serializes a typed entity into an envelope.
func Wrap(id, profileID string, updatedAt time.Time, v TypedEntity) (Envelope, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:        id,
		ProfileID: profileID,
		Kind:      v.EntityKind(),
		UpdatedAt: updatedAt.UTC(),
		Details:   b,
	}, nil
}

// Unwrap deserializes the details into the concrete variant for the
// envelope's kind. Unknown kinds are an error, not a map fallback: an
// artifact from a newer app version must be skipped, not half-parsed.
func (e Envelope) Unwrap() (TypedEntity, error) {
	switch e.Kind {
	case KindAccount:
		var v Account
		return v, json.Unmarshal(e.Details, &v)
	case KindTransaction:
		var v Transaction
		return v, json.Unmarshal(e.Details, &v)
	case KindLoan:
		var v Loan
		return v, json.Unmarshal(e.Details, &v)
	case KindInsurance:
		var v Insurance
		return v, json.Unmarshal(e.Details, &v)
	case KindSubscription:
		var v Subscription
		return v, json.Unmarshal(e.Details, &v)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
}

// Validate checks that an envelope is structurally usable: it has a global
// id, a known kind, and details that decode as that kind.
func (e Envelope) Validate() error {
	if e.ID == "" {
		return errors.New("missing entity id")
	}
	if _, err := e.Unwrap(); err != nil {
		return err
	}
	return nil
}
