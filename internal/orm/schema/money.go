package schema

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// MoneyType is the name the money custom type registers under
const MoneyType = "money"

// Money is an amount in a currency
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// Cents returns the amount in minor units
func (m Money) Cents() int64 {
	return m.Amount.Shift(2).Round(0).IntPart()
}

func (m Money) String() string {
	if m.Currency == "" {
		return m.Amount.StringFixed(2)
	}
	return m.Amount.StringFixed(2) + " " + m.Currency
}

// RegisterMoney registers the money custom type. It accepts Money values,
// {"amount", "currency"} and {"cents", "currency"} maps, and bare amounts.
func RegisterMoney() error {
	return RegisterType(NewTypeConfig(MoneyType, loadMoney))
}

func loadMoney(raw any, opts LoadOptions) (any, error) {
	switch v := raw.(type) {
	case Money:
		return v, nil
	case *Money:
		return *v, nil
	case map[string]any:
		return moneyFromMap(v, opts)
	}

	amount, err := loadDecimal(raw, opts)
	if err != nil {
		return raw, invalid(MoneyType, raw)
	}
	return Money{Amount: amount.(decimal.Decimal)}, nil
}

func moneyFromMap(m map[string]any, opts LoadOptions) (any, error) {
	currency, err := cast.ToStringE(m["currency"])
	if err != nil {
		return m, invalid(MoneyType, m)
	}

	if cents, ok := m["cents"]; ok {
		n, err := loadInteger(cents, opts)
		if err != nil {
			return m, fmt.Errorf("cents: %w", err)
		}
		return Money{Amount: decimal.New(n.(int64), -2), Currency: currency}, nil
	}

	amount, err := loadDecimal(m["amount"], opts)
	if err != nil {
		return m, fmt.Errorf("amount: %w", err)
	}
	return Money{Amount: amount.(decimal.Decimal), Currency: currency}, nil
}
