package subscription

import (
	"github.com/kevin07696/subscription-engine/internal/domain"
)

// Event is one of the two triggers the engine reacts to
type Event string

const (
	EventPaymentReceived Event = "payment_received"
	EventRenewalFailed   Event = "renewal_failed"
)

// Action is what the engine does for an event in a given status
type Action int

const (
	ActionNone Action = iota
	ActionActivate
	ActionRenew
	ActionRenewWithCatchUp
	ActionFailRenewal
)

func (a Action) String() string {
	switch a {
	case ActionActivate:
		return "activate"
	case ActionRenew:
		return "renew"
	case ActionRenewWithCatchUp:
		return "renew_with_catch_up"
	case ActionFailRenewal:
		return "fail_renewal"
	}
	return "none"
}

// transitions lists every status. A missing event entry means the event is ignored.
// ActionFailRenewal resolves to grace or past due depending on the plan's grace period.
var transitions = map[domain.ServiceStatus]map[Event]Action{
	domain.ServiceStatusNew: {
		EventPaymentReceived: ActionActivate,
	},
	domain.ServiceStatusTrial: {
		EventPaymentReceived: ActionActivate,
	},
	domain.ServiceStatusActive: {
		EventPaymentReceived: ActionRenew,
		EventRenewalFailed:   ActionFailRenewal,
	},
	domain.ServiceStatusGrace: {
		EventPaymentReceived: ActionRenewWithCatchUp,
		EventRenewalFailed:   ActionFailRenewal,
	},
	domain.ServiceStatusPastDue: {
		EventPaymentReceived: ActionRenewWithCatchUp,
	},
	domain.ServiceStatusCancelled: {},
}

// nextAction looks up the action for event in status
func nextAction(status domain.ServiceStatus, event Event) (Action, error) {
	events, ok := transitions[status]
	if !ok {
		return ActionNone, domain.NewDomainError(domain.ErrorCodeInvalidTransition, "unknown service status").
			WithDetail("status", string(status)).
			WithDetail("event", string(event))
	}
	return events[event], nil
}

// renewable reports whether a renewal may be attempted in status
func renewable(status domain.ServiceStatus) bool {
	_, ok := transitions[status][EventRenewalFailed]
	return ok
}
