package backtest

import (
	"fmt"

	"backtestsim/event"
	"backtestsim/order"
	"backtestsim/price"
)

// SubmitOrder runs an order through Submitted -> Accepted and then
// either an immediate fill (Market orders), a domain rejection, or entry
// into the working set, per spec.md §4.5.3. Submitting an order whose id
// is already in the working set is a precondition violation: it fails
// fast with a plain error before any event is emitted. Ids of orders
// that have left the working set (filled, rejected, cancelled, expired)
// are not tracked and are not refused.
func (s *Simulator) SubmitOrder(o *order.Order) error {
	if _, exists := s.working[o.ID()]; exists {
		return fmt.Errorf("backtest: order %s is already working", o.ID())
	}

	subEv := event.OrderSubmitted{Base: s.newBase(), Symbol: o.Symbol(), OrderID: o.ID(), SubmittedTime: s.clk.Now()}
	s.sink.OnEvent(subEv)
	if err := o.Apply(subEv); err != nil {
		return err
	}

	accEv := event.OrderAccepted{Base: s.newBase(), Symbol: o.Symbol(), OrderID: o.ID(), AcceptedTime: s.clk.Now()}
	s.sink.OnEvent(accEv)
	if err := o.Apply(accEv); err != nil {
		return err
	}

	ca, cb, err := s.closingQuotes(o.Symbol())
	if err != nil {
		panic(fmt.Sprintf("backtest: %v", err))
	}

	if o.Type() == order.Market {
		s.fillOrder(o, s.marketFillPrice(o, ca, cb))
		return nil
	}

	if reject, reason := s.admissionReject(o, ca, cb); reject {
		rejEv := event.OrderRejected{Base: s.newBase(), Symbol: o.Symbol(), OrderID: o.ID(), RejectedTime: s.clk.Now(), Reason: reason}
		s.sink.OnEvent(rejEv)
		return o.Apply(rejEv)
	}

	s.working[o.ID()] = o
	s.workingOrder = append(s.workingOrder, o.ID())

	workEv := event.OrderWorking{
		Base:        s.newBase(),
		Symbol:      o.Symbol(),
		OrderID:     o.ID(),
		BrokerID:    "B" + o.ID(),
		Label:       o.Label(),
		Side:        string(o.Side()),
		Type:        string(o.Type()),
		Quantity:    o.Quantity(),
		Price:       o.Price(),
		TimeInForce: string(o.TimeInForce()),
		WorkingTime: s.clk.Now(),
		ExpireTime:  o.ExpireTime(),
	}
	s.sink.OnEvent(workEv)
	return o.Apply(workEv)
}

// CancelOrder cancels a working order. Cancelling an order that is not
// currently working is a precondition violation, not a domain
// rejection: it returns a plain error before any event is emitted.
func (s *Simulator) CancelOrder(o *order.Order) error {
	if _, exists := s.working[o.ID()]; !exists {
		return fmt.Errorf("backtest: order %s is not working", o.ID())
	}
	ev := event.OrderCancelled{Base: s.newBase(), Symbol: o.Symbol(), OrderID: o.ID(), CancelledTime: s.clk.Now()}
	s.sink.OnEvent(ev)
	if err := o.Apply(ev); err != nil {
		return err
	}
	s.removeWorking(o.ID())
	return nil
}

// ModifyOrder re-prices a working order. Modifying an order that is not
// currently working is a precondition violation.
//
// The admission check here validates the order's existing resting
// price, not newPrice: this mirrors the original source literally, per
// the specification's open-question resolution. It is intentional, not
// a bug in this implementation.
func (s *Simulator) ModifyOrder(o *order.Order, newPrice price.Price) error {
	if _, exists := s.working[o.ID()]; !exists {
		return fmt.Errorf("backtest: order %s is not working", o.ID())
	}

	ca, cb, err := s.closingQuotes(o.Symbol())
	if err != nil {
		panic(fmt.Sprintf("backtest: %v", err))
	}

	if reject, reason := s.admissionReject(o, ca, cb); reject {
		ev := event.OrderCancelReject{
			Base:         s.newBase(),
			Symbol:       o.Symbol(),
			OrderID:      o.ID(),
			RejectedTime: s.clk.Now(),
			ReasonCode:   "INVALID PRICE",
			ReasonText:   reason,
		}
		s.sink.OnEvent(ev)
		return nil
	}

	ev := event.OrderModified{Base: s.newBase(), Symbol: o.Symbol(), OrderID: o.ID(), BrokerID: "B" + o.ID(), NewPrice: newPrice, ModifiedTime: s.clk.Now()}
	s.sink.OnEvent(ev)
	return o.Apply(ev)
}

func (s *Simulator) closingQuotes(symbol string) (ask, bid price.Price, err error) {
	ask, err = s.cursor.ClosingAsk(symbol)
	if err != nil {
		return price.Price{}, price.Price{}, err
	}
	bid, err = s.cursor.ClosingBid(symbol)
	if err != nil {
		return price.Price{}, price.Price{}, err
	}
	return ask, bid, nil
}

func (s *Simulator) marketFillPrice(o *order.Order, ca, cb price.Price) price.Price {
	slip := s.slippage[o.Symbol()]
	if o.Side() == order.Buy {
		return ca.Add(slip)
	}
	return cb.Sub(slip)
}

// admissionReject implements spec.md §4.5.3's per-side, per-type
// admission predicates against the current closing quotes.
func (s *Simulator) admissionReject(o *order.Order, ca, cb price.Price) (bool, string) {
	switch o.Type() {
	case order.Market:
		return false, ""
	case order.StopMarket, order.StopLimit, order.MIT:
		if o.Side() == order.Buy {
			if o.Price().LessThan(ca) {
				return true, fmt.Sprintf("buy stop price %s is below the ask %s", o.Price(), ca)
			}
		} else {
			if o.Price().GreaterThan(cb) {
				return true, fmt.Sprintf("sell stop price %s is above the bid %s", o.Price(), cb)
			}
		}
	case order.Limit:
		if o.Side() == order.Buy {
			if o.Price().GreaterThan(ca) {
				return true, fmt.Sprintf("buy limit price %s is above the ask %s", o.Price(), ca)
			}
		} else {
			if o.Price().LessThan(cb) {
				return true, fmt.Sprintf("sell limit price %s is below the bid %s", o.Price(), cb)
			}
		}
	}
	return false, ""
}

func (s *Simulator) removeWorking(id string) {
	delete(s.working, id)
	for i, x := range s.workingOrder {
		if x == id {
			s.workingOrder = append(s.workingOrder[:i], s.workingOrder[i+1:]...)
			break
		}
	}
}
