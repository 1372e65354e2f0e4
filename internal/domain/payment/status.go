package payment

import (
	"errors"
	"fmt"
	"slices"
)

// Status is the lifecycle state of a payment obligation.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusPending   Status = "pending"
	StatusOnTime    Status = "on_time"
	StatusLate      Status = "late"
	StatusOverdue   Status = "overdue"
	StatusWaived    Status = "waived"
	StatusVerifying Status = "verifying"
)

var AllStatuses = []Status{
	StatusUpcoming, StatusPending, StatusOnTime, StatusLate,
	StatusOverdue, StatusWaived, StatusVerifying,
}

func (s Status) Valid() bool { return slices.Contains(AllStatuses, s) }

// IsTerminal reports whether no automatic or tenant action may move s.
func (s Status) IsTerminal() bool {
	return s == StatusOnTime || s == StatusLate || s == StatusWaived
}

// IsPaid reports whether the obligation has been settled with money.
func (s Status) IsPaid() bool {
	return s == StatusOnTime || s == StatusLate
}

// Action is an event that may move a payment between states.
type Action string

const (
	ActionBecomeDue     Action = "become_due"
	ActionExpire        Action = "expire"
	ActionMarkPaid      Action = "mark_paid"
	ActionWaive         Action = "waive"
	ActionUploadReceipt Action = "upload_receipt"
	ActionRejectReceipt Action = "reject_receipt"
	ActionEdit          Action = "edit"
)

var ErrIllegalTransition = errors.New("payment: illegal transition")

// TransitionError reports an action attempted against a state that forbids it.
type TransitionError struct {
	Action  Action
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("payment: cannot %s a payment that is %s", e.Action, e.Current)
}

func (e *TransitionError) Is(target error) bool { return target == ErrIllegalTransition }

type rule struct {
	from []Status
	to   []Status
}

// transitions is the state x action table. Every status change goes through Transition.
var transitions = map[Action]rule{
	ActionBecomeDue: {
		from: []Status{StatusUpcoming},
		to:   []Status{StatusPending},
	},
	ActionExpire: {
		from: []Status{StatusUpcoming, StatusPending},
		to:   []Status{StatusOverdue},
	},
	ActionMarkPaid: {
		from: []Status{StatusUpcoming, StatusPending, StatusOverdue, StatusVerifying},
		to:   []Status{StatusOnTime, StatusLate},
	},
	ActionWaive: {
		from: []Status{StatusUpcoming, StatusPending, StatusOverdue, StatusVerifying},
		to:   []Status{StatusWaived},
	},
	ActionUploadReceipt: {
		from: []Status{StatusUpcoming, StatusPending, StatusOverdue, StatusVerifying},
		to:   []Status{StatusVerifying},
	},
	ActionRejectReceipt: {
		from: []Status{StatusVerifying},
		to:   []Status{StatusUpcoming, StatusPending, StatusOverdue},
	},
	ActionEdit: {
		from: []Status{StatusUpcoming, StatusPending, StatusOverdue, StatusVerifying},
		to:   []Status{StatusUpcoming, StatusPending, StatusOverdue, StatusVerifying},
	},
}

// Allowed reports whether action may be applied to a payment in state current.
func Allowed(current Status, action Action) bool {
	r, ok := transitions[action]
	return ok && slices.Contains(r.from, current)
}

// Transition validates moving from current to next via action.
func Transition(current Status, action Action, next Status) error {
	r, ok := transitions[action]
	if !ok {
		return fmt.Errorf("payment: unknown action %q", action)
	}
	if !slices.Contains(r.from, current) {
		return &TransitionError{Action: action, Current: current}
	}
	if !slices.Contains(r.to, next) {
		return fmt.Errorf("payment: %s cannot lead to %s", action, next)
	}
	return nil
}
