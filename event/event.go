// Package event defines the simulator's immutable output event taxonomy
// and the Sink it publishes to. Payload shapes follow spec.md §6
// exactly, including the synthetic string fields ("B"+order_id broker
// id, "E"+id execution id, "ET"+id execution ticket).
package event

import (
	"time"

	"backtestsim/price"
)

// Kind identifies an event's concrete type, used by the order state
// machine to validate transitions without a type switch at every call
// site.
type Kind string

const (
	KindOrderSubmitted   Kind = "ORDER_SUBMITTED"
	KindOrderAccepted    Kind = "ORDER_ACCEPTED"
	KindOrderRejected    Kind = "ORDER_REJECTED"
	KindOrderWorking     Kind = "ORDER_WORKING"
	KindOrderModified    Kind = "ORDER_MODIFIED"
	KindOrderCancelled   Kind = "ORDER_CANCELLED"
	KindOrderCancelReject Kind = "ORDER_CANCEL_REJECT"
	KindOrderExpired     Kind = "ORDER_EXPIRED"
	KindOrderFilled      Kind = "ORDER_FILLED"
	KindAccount          Kind = "ACCOUNT"
)

// Event is implemented by every event struct in this package.
type Event interface {
	Kind() Kind
	ID() string
	Timestamp() time.Time
}

// Base carries the fields common to every event: an opaque id from the
// injected Id factory and the simulated-clock timestamp at emission.
type Base struct {
	EventID        string
	EventTimestamp time.Time
}

func NewBase(id string, ts time.Time) Base { return Base{EventID: id, EventTimestamp: ts} }

func (b Base) ID() string            { return b.EventID }
func (b Base) Timestamp() time.Time  { return b.EventTimestamp }

// Sink receives every event the simulator emits, in emission order.
type Sink interface {
	OnEvent(e Event)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(e Event) { f(e) }

// Recorder is a Sink that appends every event to a slice, useful for
// tests and for the golden-stream reproducibility check.
type Recorder struct {
	Events []Event
}

func (r *Recorder) OnEvent(e Event) { r.Events = append(r.Events, e) }

type OrderSubmitted struct {
	Base
	Symbol        string
	OrderID       string
	SubmittedTime time.Time
}

func (OrderSubmitted) Kind() Kind { return KindOrderSubmitted }

type OrderAccepted struct {
	Base
	Symbol       string
	OrderID      string
	AcceptedTime time.Time
}

func (OrderAccepted) Kind() Kind { return KindOrderAccepted }

type OrderRejected struct {
	Base
	Symbol       string
	OrderID      string
	RejectedTime time.Time
	Reason       string
}

func (OrderRejected) Kind() Kind { return KindOrderRejected }

type OrderWorking struct {
	Base
	Symbol      string
	OrderID     string
	BrokerID    string
	Label       string
	Side        string
	Type        string
	Quantity    price.Quantity
	Price       price.Price
	TimeInForce string
	WorkingTime time.Time
	ExpireTime  *time.Time
}

func (OrderWorking) Kind() Kind { return KindOrderWorking }

type OrderModified struct {
	Base
	Symbol       string
	OrderID      string
	BrokerID     string
	NewPrice     price.Price
	ModifiedTime time.Time
}

func (OrderModified) Kind() Kind { return KindOrderModified }

type OrderCancelled struct {
	Base
	Symbol        string
	OrderID       string
	CancelledTime time.Time
}

func (OrderCancelled) Kind() Kind { return KindOrderCancelled }

type OrderCancelReject struct {
	Base
	Symbol       string
	OrderID      string
	RejectedTime time.Time
	ReasonCode   string
	ReasonText   string
}

func (OrderCancelReject) Kind() Kind { return KindOrderCancelReject }

type OrderExpired struct {
	Base
	Symbol      string
	OrderID     string
	ExpiredTime time.Time
}

func (OrderExpired) Kind() Kind { return KindOrderExpired }

type OrderFilled struct {
	Base
	Symbol          string
	OrderID         string
	ExecutionID     string
	ExecutionTicket string
	Side            string
	Quantity        price.Quantity
	FillPrice       price.Price
	ExecutionTime   time.Time
}

func (OrderFilled) Kind() Kind { return KindOrderFilled }

// AccountEvent is a full snapshot of the account ledger, emitted after
// every collateral inquiry, every fill, and every calendar-day rollover.
type AccountEvent struct {
	Base
	AccountID             string
	Broker                string
	AccountNumber         string
	Currency              string
	CashBalance           price.Money
	CashStartDay          price.Money
	CashActivityDay       price.Money
	MarginUsedLiquidation price.Money
	MarginUsedMaintenance price.Money
	MarginRatio           price.Money
	MarginCallStatus      string
}

func (AccountEvent) Kind() Kind { return KindAccount }
