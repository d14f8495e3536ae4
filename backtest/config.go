package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"backtestsim/bar"
	"backtestsim/clock"
	"backtestsim/event"
	"backtestsim/idgen"
	"backtestsim/instrument"
	"backtestsim/logging"
)

// Config is every construction-time input the simulator needs. There is
// no file- or env-based configuration layer: this component has no
// outer surface, following internal/modules/backtest.Config in the
// teacher repo.
type Config struct {
	Instruments []instrument.Instrument

	// Index is the shared datetime index every bid/ask series is
	// aligned to.
	Index   []time.Time
	BidBars map[string][]bar.Bar
	AskBars map[string][]bar.Bar

	// Ticks is accepted but never consulted by the fill algorithm; it
	// exists for the pluggable trailing-stop signal helpers that live
	// outside this simulator.
	Ticks map[string][]bar.Tick

	StartingCapital decimal.Decimal
	Currency        string
	SlippageTicks   int64

	Clock     clock.Clock
	IDFactory idgen.Factory
	Sink      event.Sink
	Logger    logging.Logger
}
