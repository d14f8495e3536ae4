// Package account implements the flat account ledger snapshot. It
// performs no internal math: every mutation is an overwrite driven by an
// AccountEvent the simulator constructs, grounded on
// web3guy0-polybot/risk/circuit_breaker.go's day-rollover-by-date
// pattern adapted to the simulator's own clock.
package account

import (
	"backtestsim/event"
	"backtestsim/price"
)

// Account is a snapshot of ledger state, overwritten wholesale on every
// Apply call.
type Account struct {
	ID                    string
	Broker                string
	Number                string
	Currency              string
	CashBalance           price.Money
	CashStartDay          price.Money
	CashActivityDay       price.Money
	MarginUsedLiquidation price.Money
	MarginUsedMaintenance price.Money
	MarginRatio           price.Money
	MarginCallStatus      string
}

// New opens an account anchored at startingCapital; cash_start_day is
// captured once, at construction, and again on every later calendar-day
// rollover.
func New(id, broker, number, currency string, startingCapital price.Money) *Account {
	return &Account{
		ID:               id,
		Broker:           broker,
		Number:           number,
		Currency:         currency,
		CashBalance:      startingCapital,
		CashStartDay:     startingCapital,
		CashActivityDay:  price.ZeroMoney(),
		MarginCallStatus: "NONE",
	}
}

// Apply overwrites every snapshot field with the event's values. No
// independent ledger math happens here or anywhere else in this
// package; the simulator is solely responsible for constructing the
// event's field values.
func (a *Account) Apply(e event.AccountEvent) {
	a.CashBalance = e.CashBalance
	a.CashStartDay = e.CashStartDay
	a.CashActivityDay = e.CashActivityDay
	a.MarginUsedLiquidation = e.MarginUsedLiquidation
	a.MarginUsedMaintenance = e.MarginUsedMaintenance
	a.MarginRatio = e.MarginRatio
	a.MarginCallStatus = e.MarginCallStatus
}
