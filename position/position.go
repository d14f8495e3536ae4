// Package position implements the Position entity: lazily created per
// symbol, mutated only by fill events, moved from open to completed
// bookkeeping on exit and never reused. Generalized from
// libs/contracts/domain/position.go's flat current-price snapshot into
// fill-driven, average-entry-price bookkeeping.
package position

import (
	"github.com/shopspring/decimal"

	"backtestsim/event"
	"backtestsim/price"
)

// Position tracks one symbol's net exposure and weighted-average entry
// price, built up purely from OrderFilled events.
type Position struct {
	id       string
	symbol   string
	sequence int

	netQuantity   decimal.Decimal // signed: positive long, negative short
	avgEntryPrice price.Price
	isExited      bool
}

// New creates a fresh, flat position. id is expected to follow the
// "<symbol>-<N>" convention the simulator assigns.
func New(id, symbol string, sequence int, precision int32) *Position {
	return &Position{
		id:            id,
		symbol:        symbol,
		sequence:      sequence,
		netQuantity:   decimal.Zero,
		avgEntryPrice: price.Zero(precision),
	}
}

func (p *Position) ID() string                    { return p.id }
func (p *Position) Symbol() string                { return p.symbol }
func (p *Position) Sequence() int                 { return p.sequence }
func (p *Position) NetQuantity() decimal.Decimal  { return p.netQuantity }
func (p *Position) AvgEntryPrice() price.Price    { return p.avgEntryPrice }
func (p *Position) IsExited() bool                { return p.isExited }

func sameSign(a, b decimal.Decimal) bool {
	return (a.Sign() > 0 && b.Sign() > 0) || (a.Sign() < 0 && b.Sign() < 0)
}

// Apply folds a fill into the position's net quantity and, when the
// fill extends or opens the position, its weighted-average entry price.
// Reducing or reversing fills leave the entry price untouched unless the
// position's sign actually flips, in which case the entry price resets
// to the fill price that caused the flip.
func (p *Position) Apply(f event.OrderFilled) error {
	signedQty := f.Quantity.Decimal()
	if f.Side == "SELL" {
		signedQty = signedQty.Neg()
	}
	prevNet := p.netQuantity
	newNet := prevNet.Add(signedQty)

	switch {
	case prevNet.IsZero() || sameSign(prevNet, signedQty):
		prevNotional := p.avgEntryPrice.Decimal().Mul(prevNet.Abs())
		fillNotional := f.FillPrice.Decimal().Mul(signedQty.Abs())
		if !newNet.IsZero() {
			avg := prevNotional.Add(fillNotional).Div(newNet.Abs())
			p.avgEntryPrice = price.FromDecimal(avg, p.avgEntryPrice.Precision())
		}
	default:
		if !newNet.IsZero() && sameSign(newNet, signedQty) && !sameSign(newNet, prevNet) {
			p.avgEntryPrice = f.FillPrice
		}
	}

	p.netQuantity = newNet
	p.isExited = newNet.IsZero()
	return nil
}
