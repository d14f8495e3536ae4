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
	"backtestsim/order"
	"backtestsim/price"
)

func TestMarketBuyFillsImmediately(t *testing.T) {
	sim, rec, index := newTestSimulator(t, 1)

	o := order.New("ord-1", "EURUSD", order.Buy, order.Market, mustQty(t, 1000), price.Price{}, order.Day, nil, "", "")
	if err := sim.SubmitOrder(o); err != nil {
		t.Fatalf("SubmitOrder unexpected error: %v", err)
	}

	if o.State() != order.StateFilled {
		t.Errorf("State mismatch: got %s, want %s", o.State(), order.StateFilled)
	}

	got := kindsOf(rec.Events)
	want := []event.Kind{
		event.KindOrderSubmitted, event.KindOrderAccepted, event.KindOrderFilled, event.KindAccount,
	}
	if len(got) != len(want) {
		t.Fatalf("event kinds mismatch: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event kind[%d] mismatch: got %s, want %s", i, got[i], want[i])
		}
	}

	fillEv := lastEventOfKind(rec.Events, event.KindOrderFilled).(event.OrderFilled)
	wantPrice := price.FromFloat(1.1003, 4).Add(price.FromFloat(0.0001, 4))
	if !fillEv.FillPrice.Equal(wantPrice) {
		t.Errorf("FillPrice mismatch: got %s, want %s", fillEv.FillPrice, wantPrice)
	}
	if fillEv.ExecutionID != "Eord-1" {
		t.Errorf("ExecutionID mismatch: got %s, want Eord-1", fillEv.ExecutionID)
	}
	_ = index
}

func TestBuyStopBelowAskIsRejected(t *testing.T) {
	sim, rec, _ := newTestSimulator(t, 0)

	o := order.New("ord-2", "EURUSD", order.Buy, order.StopMarket, mustQty(t, 1000), price.FromFloat(1.0990, 4), order.Day, nil, "", "")
	if err := sim.SubmitOrder(o); err != nil {
		t.Fatalf("SubmitOrder unexpected error: %v", err)
	}
	if o.State() != order.StateRejected {
		t.Errorf("State mismatch: got %s, want %s", o.State(), order.StateRejected)
	}
	rejEv := lastEventOfKind(rec.Events, event.KindOrderRejected).(event.OrderRejected)
	if rejEv.Reason == "" {
		t.Errorf("Reason mismatch: got empty, want a non-empty reason")
	}
}

func TestBuyStopWorksThenFillsOnSubsequentBar(t *testing.T) {
	sim, rec, index := newTestSimulator(t, 0)

	o := order.New("ord-3", "EURUSD", order.Buy, order.StopMarket, mustQty(t, 1000), price.FromFloat(1.1012, 4), order.Day, nil, "", "")
	if err := sim.SubmitOrder(o); err != nil {
		t.Fatalf("SubmitOrder unexpected error: %v", err)
	}
	if o.State() != order.StateWorking {
		t.Fatalf("State after submit mismatch: got %s, want %s", o.State(), order.StateWorking)
	}

	if err := sim.Iterate(index[0]); err != nil {
		t.Fatalf("Iterate(index[0]) unexpected error: %v", err)
	}
	if o.State() != order.StateWorking {
		t.Errorf("State after first iterate mismatch: got %s, want %s (bar0 high ask 1.1010 should not clear 1.1012)", o.State(), order.StateWorking)
	}

	if err := sim.Iterate(index[1]); err != nil {
		t.Fatalf("Iterate(index[1]) unexpected error: %v", err)
	}
	if o.State() != order.StateFilled {
		t.Errorf("State after second iterate mismatch: got %s, want %s", o.State(), order.StateFilled)
	}
	if _, stillWorking := sim.working["ord-3"]; stillWorking {
		t.Errorf("order still present in working set after fill")
	}
	_ = rec
}

func TestSellLimitFillsWhenBidClearsTheLimit(t *testing.T) {
	sim, _, index := newTestSimulator(t, 0)

	o := order.New("ord-4", "EURUSD", order.Sell, order.Limit, mustQty(t, 1000), price.FromFloat(1.1000, 4), order.Day, nil, "", "")
	if err := sim.SubmitOrder(o); err != nil {
		t.Fatalf("SubmitOrder unexpected error: %v", err)
	}
	if err := sim.Iterate(index[0]); err != nil {
		t.Fatalf("Iterate(index[0]) unexpected error: %v", err)
	}
	if o.State() != order.StateWorking {
		t.Fatalf("State after bar0 mismatch: got %s, want %s", o.State(), order.StateWorking)
	}
	if err := sim.Iterate(index[1]); err != nil {
		t.Fatalf("Iterate(index[1]) unexpected error: %v", err)
	}
	if o.State() != order.StateWorking {
		t.Fatalf("State after bar1 mismatch: got %s, want %s", o.State(), order.StateWorking)
	}
	if err := sim.Iterate(index[2]); err != nil {
		t.Fatalf("Iterate(index[2]) unexpected error: %v", err)
	}
	if o.State() != order.StateFilled {
		t.Errorf("State after bar2 mismatch: got %s, want %s", o.State(), order.StateFilled)
	}
	if !o.FilledPrice().Equal(price.FromFloat(1.1000, 4)) {
		t.Errorf("FilledPrice mismatch: got %s, want 1.1000", o.FilledPrice())
	}
}

func TestWorkingOrderExpires(t *testing.T) {
	sim, rec, index := newTestSimulator(t, 0)

	expireAt := index[1]
	o := order.New("ord-5", "EURUSD", order.Buy, order.StopMarket, mustQty(t, 1000), price.FromFloat(1.2000, 4), order.GTC, &expireAt, "", "")
	if err := sim.SubmitOrder(o); err != nil {
		t.Fatalf("SubmitOrder unexpected error: %v", err)
	}
	if err := sim.Iterate(index[0]); err != nil {
		t.Fatalf("Iterate(index[0]) unexpected error: %v", err)
	}
	if o.State() != order.StateWorking {
		t.Fatalf("State after bar0 mismatch: got %s, want %s", o.State(), order.StateWorking)
	}
	if err := sim.Iterate(index[1]); err != nil {
		t.Fatalf("Iterate(index[1]) unexpected error: %v", err)
	}
	if o.State() != order.StateExpired {
		t.Errorf("State after expiry bar mismatch: got %s, want %s", o.State(), order.StateExpired)
	}
	if lastEventOfKind(rec.Events, event.KindOrderExpired) == nil {
		t.Errorf("no OrderExpired event found in stream")
	}
}

func TestModifyRejectsOnStaleRestingPriceNotNewPrice(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	index := []time.Time{base, base.Add(time.Minute)}
	mk := func(o, h, l, c float64) bar.Bar {
		return bar.Bar{Open: price.FromFloat(o, 4), High: price.FromFloat(h, 4), Low: price.FromFloat(l, 4), Close: price.FromFloat(c, 4)}
	}
	askBars := []bar.Bar{mk(1.1040, 1.1060, 1.1030, 1.1050), mk(1.1000, 1.1020, 1.0990, 1.1010)}
	bidBars := []bar.Bar{mk(1.1035, 1.1055, 1.1025, 1.1045), mk(1.0995, 1.1015, 1.0985, 1.1005)}

	cfg := Config{
		Instruments:     []instrument.Instrument{{Symbol: "EURUSD", TickSize: price.FromFloat(0.0001, 4), TickPrecision: 4}},
		Index:           index,
		BidBars:         map[string][]bar.Bar{"EURUSD": bidBars},
		AskBars:         map[string][]bar.Bar{"EURUSD": askBars},
		StartingCapital: decimal.NewFromInt(100000),
		SlippageTicks:   0,
		Clock:           clock.NewSimulated(index[0]),
		IDFactory:       idgen.NewSequential("evt"),
		Sink:            &event.Recorder{},
		Logger:          logging.Noop{},
	}
	sim, err := New(cfg)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	rec := cfg.Sink.(*event.Recorder)

	o := order.New("ord-6", "EURUSD", order.Buy, order.Limit, mustQty(t, 1000), price.FromFloat(1.1050, 4), order.Day, nil, "", "")
	if err := sim.SubmitOrder(o); err != nil {
		t.Fatalf("SubmitOrder unexpected error: %v", err)
	}
	if o.State() != order.StateWorking {
		t.Fatalf("State after submit mismatch: got %s, want %s", o.State(), order.StateWorking)
	}

	if err := sim.Iterate(index[0]); err != nil {
		t.Fatalf("Iterate(index[0]) unexpected error: %v", err)
	}
	if o.State() != order.StateWorking {
		t.Fatalf("State after bar0 mismatch: got %s, want %s", o.State(), order.StateWorking)
	}

	newPrice := price.FromFloat(1.1005, 4) // would itself be admissible against the new ask
	if err := sim.ModifyOrder(o, newPrice); err != nil {
		t.Fatalf("ModifyOrder unexpected error: %v", err)
	}
	if o.State() != order.StateWorking {
		t.Errorf("State after rejected modify mismatch: got %s, want %s (order stays working)", o.State(), order.StateWorking)
	}
	if !o.Price().Equal(price.FromFloat(1.1050, 4)) {
		t.Errorf("Price mismatch: got %s, want unchanged 1.1050 (modify rejected)", o.Price())
	}
	if lastEventOfKind(rec.Events, event.KindOrderCancelReject) == nil {
		t.Errorf("no OrderCancelReject event found in stream")
	}
}

func TestDuplicateOrderIDFailsFastBeforeAnyEvent(t *testing.T) {
	sim, rec, _ := newTestSimulator(t, 0)
	o1 := order.New("dup", "EURUSD", order.Buy, order.Limit, mustQty(t, 1000), price.FromFloat(1.0990, 4), order.Day, nil, "", "")
	if err := sim.SubmitOrder(o1); err != nil {
		t.Fatalf("SubmitOrder unexpected error: %v", err)
	}
	if o1.State() != order.StateWorking {
		t.Fatalf("State after submit mismatch: got %s, want %s", o1.State(), order.StateWorking)
	}
	before := len(rec.Events)

	o2 := order.New("dup", "EURUSD", order.Sell, order.Market, mustQty(t, 500), price.Price{}, order.Day, nil, "", "")
	if err := sim.SubmitOrder(o2); err == nil {
		t.Fatalf("SubmitOrder with duplicate id mismatch: got nil error, want non-nil")
	}
	if len(rec.Events) != before {
		t.Errorf("event count mismatch after rejected duplicate submit: got %d, want %d", len(rec.Events), before)
	}
}

func TestCancelNonWorkingOrderFailsFast(t *testing.T) {
	sim, _, _ := newTestSimulator(t, 0)
	o := order.New("ord-7", "EURUSD", order.Buy, order.Limit, mustQty(t, 1000), price.FromFloat(1.0990, 4), order.Day, nil, "", "")
	if err := sim.CancelOrder(o); err == nil {
		t.Errorf("CancelOrder on never-submitted order mismatch: got nil error, want non-nil")
	}
}

func TestPositionIDsAreMonotonicPerSymbolAndNeverReused(t *testing.T) {
	sim, _, _ := newTestSimulator(t, 0)

	buy := order.New("ord-8", "EURUSD", order.Buy, order.Market, mustQty(t, 1000), price.Price{}, order.Day, nil, "", "")
	_ = sim.SubmitOrder(buy)
	sell := order.New("ord-9", "EURUSD", order.Sell, order.Market, mustQty(t, 1000), price.Price{}, order.Day, nil, "", "")
	_ = sim.SubmitOrder(sell)

	if len(sim.OpenPositions()) != 0 {
		t.Errorf("OpenPositions mismatch: got %d open, want 0 after a full round trip", len(sim.OpenPositions()))
	}
	if len(sim.CompletedPositions()) != 1 {
		t.Fatalf("CompletedPositions mismatch: got %d, want 1", len(sim.CompletedPositions()))
	}
	if _, ok := sim.CompletedPositions()["EURUSD-1"]; !ok {
		t.Errorf("expected completed position id EURUSD-1, got keys %v", keysOf(sim.CompletedPositions()))
	}

	buy2 := order.New("ord-10", "EURUSD", order.Buy, order.Market, mustQty(t, 1000), price.Price{}, order.Day, nil, "", "")
	_ = sim.SubmitOrder(buy2)
	if _, ok := sim.OpenPositions()["EURUSD"]; !ok {
		t.Fatalf("expected a newly opened EURUSD position")
	}
	if sim.OpenPositions()["EURUSD"].ID() != "EURUSD-2" {
		t.Errorf("position id mismatch: got %s, want EURUSD-2 (ids must never be reused)", sim.OpenPositions()["EURUSD"].ID())
	}
}

func keysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestCollateralInquiryIsIdempotentAbsentActivity(t *testing.T) {
	sim, _, _ := newTestSimulator(t, 0)
	first := sim.CollateralInquiry()
	second := sim.CollateralInquiry()
	if !first.CashBalance.Decimal().Equal(second.CashBalance.Decimal()) {
		t.Errorf("CashBalance mismatch across inquiries: got %s and %s", first.CashBalance, second.CashBalance)
	}
	if !first.CashStartDay.Decimal().Equal(second.CashStartDay.Decimal()) {
		t.Errorf("CashStartDay mismatch across inquiries: got %s and %s", first.CashStartDay, second.CashStartDay)
	}
}

func TestCashStartDayCapturedOncePerCalendarDay(t *testing.T) {
	sim, rec, index := newTestSimulator(t, 0)
	for _, ts := range index[:len(index)-1] {
		if err := sim.Iterate(ts); err != nil {
			t.Fatalf("Iterate(%v) unexpected error: %v", ts, err)
		}
	}
	count := 0
	for _, e := range rec.Events {
		if e.Kind() == event.KindAccount {
			count++
		}
	}
	if count != 1 {
		t.Errorf("AccountEvent count mismatch: got %d, want 1 (all test bars fall on the same calendar day, no fills occurred)", count)
	}
}
