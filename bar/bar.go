// Package bar provides the OHLC bar type and the bar cursor that drives
// simulated time forward across a shared datetime index.
package bar

import (
	"fmt"
	"time"

	"backtestsim/price"
)

// Bar is one OHLC observation, already quantized to an instrument's tick
// precision.
type Bar struct {
	Open, High, Low, Close price.Price
}

// Tick is a single bid/ask quote. It is the element type of
// backtest.Config.Ticks; the Cursor does not take or store ticks, and
// the fill algorithm does not consult them — the type exists for the
// pluggable trailing-stop signal helpers that sit outside this simulator.
type Tick struct {
	Timestamp time.Time
	Bid, Ask  price.Price
}

// Clock is the narrow surface the cursor needs to advance simulated
// time; satisfied structurally by clock.Simulated.
type Clock interface {
	Set(t time.Time)
}

// Cursor walks a shared datetime index and exposes the current bar's
// O/H/L/C for every symbol's bid and ask series.
type Cursor struct {
	index     []time.Time
	bid       map[string][]Bar
	ask       map[string][]Bar
	iteration int
}

// NewCursor validates that every bid/ask series is as long as the shared
// index and returns a cursor positioned at iteration 0.
func NewCursor(index []time.Time, bid, ask map[string][]Bar) (*Cursor, error) {
	for sym, bars := range bid {
		if len(bars) != len(index) {
			return nil, fmt.Errorf("bar: bid series for %q has %d bars, want %d", sym, len(bars), len(index))
		}
	}
	for sym, bars := range ask {
		if len(bars) != len(index) {
			return nil, fmt.Errorf("bar: ask series for %q has %d bars, want %d", sym, len(bars), len(index))
		}
	}
	return &Cursor{index: index, bid: bid, ask: ask}, nil
}

// Iteration returns the current index position.
func (c *Cursor) Iteration() int { return c.iteration }

// CurrentTime returns the index entry at the current iteration.
func (c *Cursor) CurrentTime() time.Time { return c.index[c.iteration] }

// Advance moves to the next index entry. Running past the end of the
// index is an internal invariant violation: the caller has driven the
// simulation beyond the data it was given.
func (c *Cursor) Advance() error {
	if c.iteration+1 >= len(c.index) {
		return fmt.Errorf("bar: cursor exhausted at iteration %d of %d", c.iteration, len(c.index))
	}
	c.iteration++
	return nil
}

// SetInitialIteration winds the cursor (and the supplied clock) forward
// from index[0] to toTime in fixed increments of step, incrementing the
// iteration each time the wall clock reaches the next index entry. The
// last step is cut short at toTime, so the clock ends exactly at toTime.
// If toTime precedes index[0], zero steps are taken and the clock is set
// to index[0].
func (c *Cursor) SetInitialIteration(clk Clock, toTime time.Time, step time.Duration) {
	if len(c.index) == 0 {
		clk.Set(toTime)
		return
	}
	wall := c.index[0]
	if toTime.Before(wall) {
		c.iteration = 0
		clk.Set(wall)
		return
	}
	next := 1
	for wall.Before(toTime) {
		wall = wall.Add(step)
		if wall.After(toTime) {
			wall = toTime
		}
		if next < len(c.index) && !wall.Before(c.index[next]) {
			c.iteration = next
			next++
		}
	}
	clk.Set(wall)
}

func (c *Cursor) barAt(set map[string][]Bar, symbol string) (Bar, error) {
	bars, ok := set[symbol]
	if !ok {
		return Bar{}, fmt.Errorf("bar: unknown symbol %q", symbol)
	}
	if c.iteration >= len(bars) {
		return Bar{}, fmt.Errorf("bar: iteration %d out of range for symbol %q", c.iteration, symbol)
	}
	return bars[c.iteration], nil
}

func (c *Cursor) HighestBid(symbol string) (price.Price, error) {
	b, err := c.barAt(c.bid, symbol)
	return b.High, err
}

func (c *Cursor) LowestBid(symbol string) (price.Price, error) {
	b, err := c.barAt(c.bid, symbol)
	return b.Low, err
}

func (c *Cursor) ClosingBid(symbol string) (price.Price, error) {
	b, err := c.barAt(c.bid, symbol)
	return b.Close, err
}

func (c *Cursor) HighestAsk(symbol string) (price.Price, error) {
	b, err := c.barAt(c.ask, symbol)
	return b.High, err
}

func (c *Cursor) LowestAsk(symbol string) (price.Price, error) {
	b, err := c.barAt(c.ask, symbol)
	return b.Low, err
}

func (c *Cursor) ClosingAsk(symbol string) (price.Price, error) {
	b, err := c.barAt(c.ask, symbol)
	return b.Close, err
}
