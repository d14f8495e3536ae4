// Package instrument provides the immutable symbol catalogue the
// simulator quotes and quantizes prices against.
package instrument

import (
	"fmt"

	"backtestsim/price"
)

// Instrument describes a tradable symbol's quoting precision.
type Instrument struct {
	Symbol        string
	TickSize      price.Price
	TickPrecision int32
}

// Catalogue is an immutable symbol -> Instrument lookup, built once.
type Catalogue struct {
	instruments map[string]Instrument
}

// NewCatalogue builds a Catalogue from a list of instruments, rejecting
// duplicate symbols.
func NewCatalogue(list []Instrument) (*Catalogue, error) {
	m := make(map[string]Instrument, len(list))
	for _, inst := range list {
		if _, exists := m[inst.Symbol]; exists {
			return nil, fmt.Errorf("instrument: duplicate symbol %q", inst.Symbol)
		}
		m[inst.Symbol] = inst
	}
	return &Catalogue{instruments: m}, nil
}

// Get returns the instrument for symbol, if it was registered.
func (c *Catalogue) Get(symbol string) (Instrument, bool) {
	inst, ok := c.instruments[symbol]
	return inst, ok
}
