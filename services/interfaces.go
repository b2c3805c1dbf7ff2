package services

import (
	"context"
	"time"
)

// OperationState is the broker's execution state for an operation. Anything
// other than executed is skipped by the journal.
type OperationState string

const OperationStateExecuted OperationState = "OPERATION_STATE_EXECUTED"

// OperationType is the broker's declared operation type.
type OperationType string

const (
	OperationTypeBuy       OperationType = "OPERATION_TYPE_BUY"
	OperationTypeSell      OperationType = "OPERATION_TYPE_SELL"
	OperationTypeBrokerFee OperationType = "OPERATION_TYPE_BROKER_FEE"
)

// BrokerOperation is one raw operation record as the broker reports it.
type BrokerOperation struct {
	ID                string         `json:"id"`
	ParentOperationID string         `json:"parent_operation_id,omitempty"`
	FIGI              string         `json:"figi"`
	Type              OperationType  `json:"operation_type"`
	Description       string         `json:"type"`
	State             OperationState `json:"state"`
	Date              time.Time      `json:"date"`
	Quantity          int64          `json:"quantity"`
	Price             MoneyValue     `json:"price"`
	Payment           MoneyValue     `json:"payment"`
	Currency          string         `json:"currency"`
}

// BrokerAccount is a brokerage account visible to the configured token.
type BrokerAccount struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OpenedDate time.Time `json:"opened_date"`
}

// BrokerShare is one instrument record from the broker's directory.
type BrokerShare struct {
	FIGI              string `json:"figi"`
	Ticker            string `json:"ticker"`
	Name              string `json:"name"`
	UID               string `json:"uid"`
	PositionUID       string `json:"position_uid"`
	Currency          string `json:"currency"`
	CountryOfRisk     string `json:"country_of_risk"`
	Sector            string `json:"sector"`
	SellAvailableFlag bool   `json:"sell_available_flag"`
}

// OperationSource yields executed and pending operations for an account in a
// half-open time window.
type OperationSource interface {
	Operations(ctx context.Context, accountID string, from, to time.Time) ([]BrokerOperation, error)
}

// InstrumentSource yields instrument directory records, in bulk or one at a
// time for on-demand resolution of an unknown FIGI.
type InstrumentSource interface {
	Shares(ctx context.Context) ([]BrokerShare, error)
	ShareByFIGI(ctx context.Context, figi string) (*BrokerShare, error)
}

// AccountSource yields the accounts available to the configured token.
type AccountSource interface {
	Accounts(ctx context.Context) ([]BrokerAccount, error)
}
