package journal

import (
	"trade-journal/models"
	"trade-journal/services"
)

// Category is the journal's verdict on a raw broker operation.
type Category int

const (
	// CategoryIgnored operations are skipped without being persisted.
	CategoryIgnored Category = iota
	// CategoryBuy and CategorySell are trade legs fed to the accounting engine.
	CategoryBuy
	CategorySell
	// CategoryFee operations attach to a previously recorded parent leg.
	CategoryFee
	// CategoryPayment covers everything else executed (dividends, currency
	// conversion); recorded as an associated payment.
	CategoryPayment
)

func (c Category) String() string {
	switch c {
	case CategoryBuy:
		return "buy"
	case CategorySell:
		return "sell"
	case CategoryFee:
		return "fee"
	case CategoryPayment:
		return "payment"
	default:
		return "ignored"
	}
}

// Side maps a trade category to its position side. Only meaningful for
// CategoryBuy and CategorySell.
func (c Category) Side() models.Side {
	if c == CategorySell {
		return models.SideSell
	}
	return models.SideBuy
}

// Classify decides what to do with a raw broker operation. Anything not in
// the executed state is ignored; executed operations of a non-trade,
// non-fee type become associated payments.
func Classify(op services.BrokerOperation) Category {
	if op.State != services.OperationStateExecuted {
		return CategoryIgnored
	}

	switch op.Type {
	case services.OperationTypeBuy:
		return CategoryBuy
	case services.OperationTypeSell:
		return CategorySell
	case services.OperationTypeBrokerFee:
		return CategoryFee
	default:
		return CategoryPayment
	}
}
