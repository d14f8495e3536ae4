// Package price provides the fixed-precision decimal value types shared
// across the simulator: Price (instrument-quoted, tick-precise), Money
// (account cash, unconstrained sign), and Quantity (order size, > 0).
package price

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Price is a decimal value rounded to a fixed number of places using
// banker's rounding, the precision carried by the instrument that quoted
// it. Every arithmetic operation re-rounds its result to the same
// precision.
type Price struct {
	d         decimal.Decimal
	precision int32
}

// Zero returns the zero price at the given precision.
func Zero(precision int32) Price {
	return Price{d: decimal.Zero, precision: precision}
}

// FromFloat quantizes a floating-point quote to precision decimal places
// using banker's rounding. This is the boundary where raw OHLC floats
// become simulator-internal decimals.
func FromFloat(v float64, precision int32) Price {
	return Price{d: decimal.NewFromFloat(v).RoundBank(precision), precision: precision}
}

// FromDecimal rounds an existing decimal to precision places.
func FromDecimal(d decimal.Decimal, precision int32) Price {
	return Price{d: d.RoundBank(precision), precision: precision}
}

// Decimal returns the underlying decimal value.
func (p Price) Decimal() decimal.Decimal { return p.d }

// Precision returns the number of decimal places this price is quantized to.
func (p Price) Precision() int32 { return p.precision }

func (p Price) Add(o Price) Price {
	return Price{d: p.d.Add(o.d).RoundBank(p.precision), precision: p.precision}
}

func (p Price) Sub(o Price) Price {
	return Price{d: p.d.Sub(o.d).RoundBank(p.precision), precision: p.precision}
}

// MulInt multiplies by an integer scalar, used for tick_size * slippage_ticks.
func (p Price) MulInt(n int64) Price {
	return Price{d: p.d.Mul(decimal.NewFromInt(n)).RoundBank(p.precision), precision: p.precision}
}

func (p Price) LessThan(o Price) bool           { return p.d.LessThan(o.d) }
func (p Price) LessThanOrEqual(o Price) bool    { return p.d.LessThanOrEqual(o.d) }
func (p Price) GreaterThan(o Price) bool        { return p.d.GreaterThan(o.d) }
func (p Price) GreaterThanOrEqual(o Price) bool { return p.d.GreaterThanOrEqual(o.d) }
func (p Price) Equal(o Price) bool              { return p.d.Equal(o.d) }

func (p Price) String() string { return p.d.StringFixed(p.precision) }

// Money is an account cash value. Unlike Price it carries no per-instrument
// precision and is never sign-constrained.
type Money struct {
	d decimal.Decimal
}

// ZeroMoney returns a zero money value.
func ZeroMoney() Money { return Money{d: decimal.Zero} }

func NewMoney(v float64) Money { return Money{d: decimal.NewFromFloat(v)} }

func MoneyFromDecimal(d decimal.Decimal) Money { return Money{d: d} }

func (m Money) Decimal() decimal.Decimal { return m.d }
func (m Money) Add(o Money) Money        { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money        { return Money{d: m.d.Sub(o.d)} }
func (m Money) Sign() int                { return m.d.Sign() }
func (m Money) String() string           { return m.d.StringFixed(2) }

// Quantity is an order size: strictly positive by construction.
type Quantity struct {
	d decimal.Decimal
}

func NewQuantity(v float64) (Quantity, error) {
	return QuantityFromDecimal(decimal.NewFromFloat(v))
}

func QuantityFromDecimal(d decimal.Decimal) (Quantity, error) {
	if d.Sign() <= 0 {
		return Quantity{}, fmt.Errorf("price: quantity must be positive, got %s", d.String())
	}
	return Quantity{d: d}, nil
}

func (q Quantity) Decimal() decimal.Decimal { return q.d }
func (q Quantity) String() string           { return q.d.String() }
