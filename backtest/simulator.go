// Package backtest implements the deterministic execution simulator
// (C7): the core loop that drives orders through submission, admission
// checks, the working-order fill scan, and account/position bookkeeping
// in lockstep with a bar cursor. Grounded on libs/replay/replay.go's
// SimBroker/Simulator for the loop's shape and
// internal/modules/backtest/engine.go for the seed/Config convention;
// fill predicates and event sequencing follow spec.md §4.5 exactly.
package backtest

import (
	"fmt"
	"time"

	"backtestsim/account"
	"backtestsim/bar"
	"backtestsim/clock"
	"backtestsim/event"
	"backtestsim/idgen"
	"backtestsim/instrument"
	"backtestsim/logging"
	"backtestsim/order"
	"backtestsim/position"
	"backtestsim/price"
)

// Simulator is the single-threaded execution engine. It is not safe for
// concurrent use: spec.md §1 excludes concurrent strategy execution.
type Simulator struct {
	catalogue *instrument.Catalogue
	cursor    *bar.Cursor
	slippage  map[string]price.Price

	working      map[string]*order.Order
	workingOrder []string // preserves submission order for the scan

	openPositions      map[string]*position.Position
	completedPositions map[string]*position.Position
	positionSeq        map[string]int

	acct *account.Account

	clk    clock.Clock
	ids    idgen.Factory
	sink   event.Sink
	logger logging.Logger

	haveDay        bool
	year           int
	month          time.Month
	day            int
}

// New validates cfg and builds a simulator ready to run from iteration 0.
func New(cfg Config) (*Simulator, error) {
	if cfg.StartingCapital.Sign() <= 0 {
		return nil, fmt.Errorf("backtest: starting capital must be positive")
	}
	if cfg.SlippageTicks < 0 {
		return nil, fmt.Errorf("backtest: slippage ticks must be non-negative")
	}
	if cfg.Clock == nil || cfg.IDFactory == nil || cfg.Sink == nil {
		return nil, fmt.Errorf("backtest: clock, id factory, and sink are required")
	}

	catalogue, err := instrument.NewCatalogue(cfg.Instruments)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}
	cursor, err := bar.NewCursor(cfg.Index, cfg.BidBars, cfg.AskBars)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}

	slippage := make(map[string]price.Price, len(cfg.Instruments))
	for _, inst := range cfg.Instruments {
		slippage[inst.Symbol] = inst.TickSize.MulInt(cfg.SlippageTicks)
	}

	currency := cfg.Currency
	if currency == "" {
		currency = "USD"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Noop{}
	}

	acct := account.New(cfg.IDFactory.Generate(), "SIMULATED", cfg.IDFactory.Generate(), currency, price.MoneyFromDecimal(cfg.StartingCapital))

	return &Simulator{
		catalogue:          catalogue,
		cursor:             cursor,
		slippage:           slippage,
		working:            make(map[string]*order.Order),
		openPositions:      make(map[string]*position.Position),
		completedPositions: make(map[string]*position.Position),
		positionSeq:        make(map[string]int),
		acct:               acct,
		clk:                cfg.Clock,
		ids:                cfg.IDFactory,
		sink:               cfg.Sink,
		logger:             logger,
	}, nil
}

// Connect and Disconnect are lifecycle no-ops that only log, so strategy
// code written against a live broker client and this simulator are
// interchangeable.
func (s *Simulator) Connect() { s.logger.Info("connect") }

func (s *Simulator) Disconnect() { s.logger.Info("disconnect") }

// SetInitialIteration positions the bar cursor (and the injected clock)
// at toTime, stepping forward from the index's first entry.
func (s *Simulator) SetInitialIteration(toTime time.Time, step time.Duration) {
	s.cursor.SetInitialIteration(s.clk, toTime, step)
}

// Account returns the current ledger snapshot.
func (s *Simulator) Account() *account.Account { return s.acct }

// OpenPositions returns the currently open positions, keyed by symbol.
func (s *Simulator) OpenPositions() map[string]*position.Position { return s.openPositions }

// CompletedPositions returns exited positions, keyed by position id.
func (s *Simulator) CompletedPositions() map[string]*position.Position { return s.completedPositions }

func (s *Simulator) newBase() event.Base {
	return event.NewBase(s.ids.Generate(), s.clk.Now())
}

// CollateralInquiry emits a fresh account snapshot without mutating
// anything but the timestamp/id on the event itself. It is idempotent:
// calling it repeatedly with no intervening fills or day rollovers
// produces identical CashBalance/CashStartDay/CashActivityDay fields.
func (s *Simulator) CollateralInquiry() event.AccountEvent {
	ev := s.snapshotAccountEvent()
	s.sink.OnEvent(ev)
	s.acct.Apply(ev)
	return ev
}

func (s *Simulator) snapshotAccountEvent() event.AccountEvent {
	a := s.acct
	return event.AccountEvent{
		Base:                  s.newBase(),
		AccountID:             a.ID,
		Broker:                a.Broker,
		AccountNumber:         a.Number,
		Currency:              a.Currency,
		CashBalance:           a.CashBalance,
		CashStartDay:          a.CashStartDay,
		CashActivityDay:       a.CashActivityDay,
		MarginUsedLiquidation: a.MarginUsedLiquidation,
		MarginUsedMaintenance: a.MarginUsedMaintenance,
		MarginRatio:           a.MarginRatio,
		MarginCallStatus:      a.MarginCallStatus,
	}
}
