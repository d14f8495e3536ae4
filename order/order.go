// Package order implements the Order entity as an explicit state
// machine driven exclusively by Apply(event.Event), generalized from
// libs/contracts/domain/order.go's flat status-string struct.
package order

import (
	"fmt"
	"time"

	"backtestsim/event"
	"backtestsim/price"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type Type string

const (
	Market     Type = "MARKET"
	Limit      Type = "LIMIT"
	StopMarket Type = "STOP_MARKET"
	StopLimit  Type = "STOP_LIMIT"
	MIT        Type = "MIT"
)

type TimeInForce string

const (
	Day TimeInForce = "DAY"
	GTC TimeInForce = "GTC"
	IOC TimeInForce = "IOC"
)

type State string

const (
	StateInitialised State = "INITIALISED"
	StateSubmitted   State = "SUBMITTED"
	StateAccepted    State = "ACCEPTED"
	StateRejected    State = "REJECTED"
	StateWorking     State = "WORKING"
	StateFilled      State = "FILLED"
	StateCancelled   State = "CANCELLED"
	StateExpired     State = "EXPIRED"
)

// allowedTransitions enumerates every legal (state, event kind) -> next
// state step. Any (state, event kind) pair absent from this table is an
// InvalidTransitionError.
var allowedTransitions = map[State]map[event.Kind]State{
	StateInitialised: {
		event.KindOrderSubmitted: StateSubmitted,
	},
	StateSubmitted: {
		event.KindOrderAccepted: StateAccepted,
	},
	StateAccepted: {
		event.KindOrderRejected: StateRejected,
		event.KindOrderWorking:  StateWorking,
		event.KindOrderFilled:   StateFilled, // market orders fill straight off acceptance
	},
	StateWorking: {
		event.KindOrderFilled:    StateFilled,
		event.KindOrderCancelled: StateCancelled,
		event.KindOrderExpired:   StateExpired,
		event.KindOrderModified:  StateWorking,
	},
}

// InvalidTransitionError is raised when Apply is called with an event
// that is not legal from the order's current state.
type InvalidTransitionError struct {
	OrderID string
	From    State
	Event   event.Kind
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: event %s is invalid from state %s", e.OrderID, e.Event, e.From)
}

// Order is a single order's identity, immutable submission parameters,
// and lifecycle state.
type Order struct {
	id          string
	symbol      string
	side        Side
	typ         Type
	quantity    price.Quantity
	price       price.Price
	timeInForce TimeInForce
	expireTime  *time.Time
	label       string
	strategyID  string

	state          State
	brokerID       string
	rejectReason   string
	filledPrice    price.Price
	filledQuantity price.Quantity
	hasFilled      bool
}

// New constructs an order in the Initialised state. px is ignored for
// Market orders.
func New(id, symbol string, side Side, typ Type, qty price.Quantity, px price.Price, tif TimeInForce, expireTime *time.Time, label, strategyID string) *Order {
	return &Order{
		id:          id,
		symbol:      symbol,
		side:        side,
		typ:         typ,
		quantity:    qty,
		price:       px,
		timeInForce: tif,
		expireTime:  expireTime,
		label:       label,
		strategyID:  strategyID,
		state:       StateInitialised,
	}
}

func (o *Order) ID() string                  { return o.id }
func (o *Order) Symbol() string              { return o.symbol }
func (o *Order) Side() Side                  { return o.side }
func (o *Order) Type() Type                  { return o.typ }
func (o *Order) Quantity() price.Quantity    { return o.quantity }
func (o *Order) Price() price.Price          { return o.price }
func (o *Order) TimeInForce() TimeInForce    { return o.timeInForce }
func (o *Order) ExpireTime() *time.Time      { return o.expireTime }
func (o *Order) Label() string               { return o.label }
func (o *Order) StrategyID() string          { return o.strategyID }
func (o *Order) State() State                { return o.state }
func (o *Order) BrokerID() string            { return o.brokerID }
func (o *Order) RejectReason() string        { return o.rejectReason }
func (o *Order) FilledPrice() price.Price    { return o.filledPrice }
func (o *Order) FilledQuantity() price.Quantity { return o.filledQuantity }

func (o *Order) IsWorking() bool { return o.state == StateWorking }

func (o *Order) IsComplete() bool {
	switch o.state {
	case StateFilled, StateCancelled, StateExpired, StateRejected:
		return true
	default:
		return false
	}
}

// Apply advances the order's state machine. It is the only way an
// Order's state field changes.
func (o *Order) Apply(e event.Event) error {
	next, ok := allowedTransitions[o.state][e.Kind()]
	if !ok {
		return &InvalidTransitionError{OrderID: o.id, From: o.state, Event: e.Kind()}
	}

	switch ev := e.(type) {
	case event.OrderSubmitted:
	case event.OrderAccepted:
	case event.OrderRejected:
		o.rejectReason = ev.Reason
	case event.OrderWorking:
		o.brokerID = ev.BrokerID
	case event.OrderModified:
		o.price = ev.NewPrice
		o.brokerID = ev.BrokerID
	case event.OrderCancelled:
	case event.OrderExpired:
	case event.OrderFilled:
		o.filledPrice = ev.FillPrice
		o.filledQuantity = ev.Quantity
		o.hasFilled = true
	default:
		return fmt.Errorf("order: unsupported event type %T", e)
	}

	o.state = next
	return nil
}
