package backtest

import (
	"fmt"
	"time"

	"backtestsim/event"
	"backtestsim/order"
	"backtestsim/position"
	"backtestsim/price"
)

// Iterate runs one step of the simulation at simulated time t: a
// calendar-day rollover check, a snapshot-before-mutation scan of every
// working order for fills or expiry, and finally advances the bar
// cursor. Fills take precedence over expiry within the same order on
// the same iteration. Orders removed from the working set during this
// scan (by a fill or expiry earlier in the same pass) do not affect
// orders later in the same pass beyond simply being skipped if
// encountered again; new orders submitted mid-scan are not visited until
// the next Iterate call, since the scan walks a snapshot taken at the
// top of this method.
func (s *Simulator) Iterate(t time.Time) error {
	s.rolloverDayIfNeeded(t)

	snapshot := append([]string(nil), s.workingOrder...)
	for _, id := range snapshot {
		o, ok := s.working[id]
		if !ok {
			continue
		}

		filled, fillPrice, err := s.evaluateFill(o)
		if err != nil {
			panic(fmt.Sprintf("backtest: %v", err))
		}
		if filled {
			s.removeWorking(id)
			s.fillOrder(o, fillPrice)
			continue
		}

		if o.ExpireTime() != nil && !t.Before(*o.ExpireTime()) {
			s.removeWorking(id)
			s.expireOrder(o, t)
		}
	}

	if err := s.cursor.Advance(); err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	return nil
}

func (s *Simulator) rolloverDayIfNeeded(t time.Time) {
	y, m, d := t.Date()
	if s.haveDay && y == s.year && m == s.month && d == s.day {
		return
	}
	s.haveDay = true
	s.year, s.month, s.day = y, m, d

	a := s.acct
	ev := event.AccountEvent{
		Base:                  s.newBase(),
		AccountID:             a.ID,
		Broker:                a.Broker,
		AccountNumber:         a.Number,
		Currency:              a.Currency,
		CashBalance:           a.CashBalance,
		CashStartDay:          a.CashBalance, // re-anchored for the new day
		CashActivityDay:       price.ZeroMoney(),
		MarginUsedLiquidation: a.MarginUsedLiquidation,
		MarginUsedMaintenance: a.MarginUsedMaintenance,
		MarginRatio:           a.MarginRatio,
		MarginCallStatus:      a.MarginCallStatus,
	}
	s.sink.OnEvent(ev)
	s.acct.Apply(ev)
}

// evaluateFill implements spec.md §4.5.2's per-order-type fill
// predicates via an explicit type switch, resolving the specification's
// first open question: each order type gets its own side-aware branch
// rather than a single always-true fallthrough.
func (s *Simulator) evaluateFill(o *order.Order) (bool, price.Price, error) {
	slip := s.slippage[o.Symbol()]

	if o.Side() == order.Buy {
		hi, err := s.cursor.HighestAsk(o.Symbol())
		if err != nil {
			return false, price.Price{}, err
		}
		switch o.Type() {
		case order.StopMarket, order.StopLimit, order.MIT:
			if hi.GreaterThanOrEqual(o.Price()) {
				return true, o.Price().Add(slip), nil
			}
		case order.Limit:
			if hi.LessThan(o.Price()) {
				return true, o.Price().Add(slip), nil
			}
		}
		return false, price.Price{}, nil
	}

	lo, err := s.cursor.LowestBid(o.Symbol())
	if err != nil {
		return false, price.Price{}, err
	}
	switch o.Type() {
	case order.StopMarket, order.StopLimit, order.MIT:
		if lo.LessThanOrEqual(o.Price()) {
			return true, o.Price().Sub(slip), nil
		}
	case order.Limit:
		if lo.GreaterThan(o.Price()) {
			return true, o.Price().Sub(slip), nil
		}
	}
	return false, price.Price{}, nil
}

func (s *Simulator) expireOrder(o *order.Order, t time.Time) {
	ev := event.OrderExpired{Base: s.newBase(), Symbol: o.Symbol(), OrderID: o.ID(), ExpiredTime: t}
	s.sink.OnEvent(ev)
	if err := o.Apply(ev); err != nil {
		panic(fmt.Sprintf("backtest: %v", err))
	}
}

func (s *Simulator) fillOrder(o *order.Order, fillPrice price.Price) {
	ev := event.OrderFilled{
		Base:            s.newBase(),
		Symbol:          o.Symbol(),
		OrderID:         o.ID(),
		ExecutionID:     "E" + o.ID(),
		ExecutionTicket: "ET" + o.ID(),
		Side:            string(o.Side()),
		Quantity:        o.Quantity(),
		FillPrice:       fillPrice,
		ExecutionTime:   s.clk.Now(),
	}
	s.sink.OnEvent(ev)
	if err := o.Apply(ev); err != nil {
		panic(fmt.Sprintf("backtest: %v", err))
	}
	s.adjustPositions(ev)
}

// adjustPositions folds a fill into the symbol's open position (creating
// one if none is open) and, unlike the source this behaviour is
// modelled on, always publishes the resulting AccountEvent to the sink —
// the specification's third open-question resolution.
func (s *Simulator) adjustPositions(fill event.OrderFilled) {
	pos, ok := s.openPositions[fill.Symbol]
	if !ok {
		inst, known := s.catalogue.Get(fill.Symbol)
		precision := int32(0)
		if known {
			precision = inst.TickPrecision
		}
		s.positionSeq[fill.Symbol]++
		pos = position.New(fmt.Sprintf("%s-%d", fill.Symbol, s.positionSeq[fill.Symbol]), fill.Symbol, s.positionSeq[fill.Symbol], precision)
		s.openPositions[fill.Symbol] = pos
	}

	if err := pos.Apply(fill); err != nil {
		panic(fmt.Sprintf("backtest: %v", err))
	}
	if pos.IsExited() {
		delete(s.openPositions, fill.Symbol)
		s.completedPositions[pos.ID()] = pos
	}

	accEv := s.snapshotAccountEvent()
	s.sink.OnEvent(accEv)
	s.acct.Apply(accEv)
}
