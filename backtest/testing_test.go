package backtest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"backtestsim/bar"
	"backtestsim/clock"
	"backtestsim/event"
	"backtestsim/idgen"
	"backtestsim/instrument"
	"backtestsim/logging"
	"backtestsim/price"
)

// eurusdBars builds a small, hand-chosen four-bar EURUSD series used
// across the scenario tests: a rising market that a BUY STOP sitting
// above the first bar's ask will eventually clear.
func eurusdBars() (index []time.Time, bid, ask map[string][]bar.Bar) {
	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	mk := func(o, h, l, c float64) bar.Bar {
		return bar.Bar{
			Open:  price.FromFloat(o, 4),
			High:  price.FromFloat(h, 4),
			Low:   price.FromFloat(l, 4),
			Close: price.FromFloat(c, 4),
		}
	}
	index = []time.Time{base, base.Add(time.Minute), base.Add(2 * time.Minute), base.Add(3 * time.Minute)}
	bidBars := []bar.Bar{
		mk(1.0995, 1.1005, 1.0985, 1.0998),
		mk(1.0998, 1.1015, 1.0990, 1.1010),
		mk(1.1010, 1.1040, 1.1005, 1.1035),
		mk(1.1035, 1.1045, 1.1030, 1.1040),
	}
	askBars := []bar.Bar{
		mk(1.1000, 1.1010, 1.0990, 1.1003),
		mk(1.1003, 1.1020, 1.0995, 1.1015),
		mk(1.1015, 1.1045, 1.1010, 1.1040),
		mk(1.1040, 1.1050, 1.1035, 1.1045),
	}
	bid = map[string][]bar.Bar{"EURUSD": bidBars}
	ask = map[string][]bar.Bar{"EURUSD": askBars}
	return
}

func newTestSimulator(t *testing.T, slippageTicks int64) (*Simulator, *event.Recorder, []time.Time) {
	t.Helper()
	index, bid, ask := eurusdBars()

	cfg := Config{
		Instruments: []instrument.Instrument{
			{Symbol: "EURUSD", TickSize: price.FromFloat(0.0001, 4), TickPrecision: 4},
		},
		Index:           index,
		BidBars:         bid,
		AskBars:         ask,
		StartingCapital: decimal.NewFromInt(100000),
		Currency:        "USD",
		SlippageTicks:   slippageTicks,
		Clock:           clock.NewSimulated(index[0]),
		IDFactory:       idgen.NewSequential("evt"),
		Sink:            &event.Recorder{},
		Logger:          logging.Noop{},
	}
	sim, err := New(cfg)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return sim, cfg.Sink.(*event.Recorder), index
}

func mustQty(t *testing.T, v float64) price.Quantity {
	t.Helper()
	q, err := price.NewQuantity(v)
	if err != nil {
		t.Fatalf("NewQuantity(%v) unexpected error: %v", v, err)
	}
	return q
}

func kindsOf(events []event.Event) []event.Kind {
	kinds := make([]event.Kind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind()
	}
	return kinds
}

func lastEventOfKind(events []event.Event, k event.Kind) event.Event {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind() == k {
			return events[i]
		}
	}
	return nil
}
