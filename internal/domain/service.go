package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceStatus represents the lifecycle state of a subscribed service
type ServiceStatus string

const (
	ServiceStatusNew       ServiceStatus = "new"
	ServiceStatusTrial     ServiceStatus = "trial"
	ServiceStatusActive    ServiceStatus = "active"
	ServiceStatusGrace     ServiceStatus = "grace"
	ServiceStatusPastDue   ServiceStatus = "past_due"
	ServiceStatusCancelled ServiceStatus = "cancelled"
)

// IsValid reports whether s is a known status
func (s ServiceStatus) IsValid() bool {
	switch s {
	case ServiceStatusNew, ServiceStatusTrial, ServiceStatusActive,
		ServiceStatusGrace, ServiceStatusPastDue, ServiceStatusCancelled:
		return true
	}
	return false
}

// Service is a subscription instance of a plan
type Service struct {
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	CurrentPeriodStart *time.Time      `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time      `json:"current_period_end"`
	DelayActivatedAt   *time.Time      `json:"delay_activated_at"`
	ActivatedAt        *time.Time      `json:"activated_at"`
	CancelledAt        *time.Time      `json:"cancelled_at"`
	Plan               *Plan           `json:"-"`
	Price              decimal.Decimal `json:"price"`
	ID                 string          `json:"id"`
	UserID             string          `json:"user_id"`
	PlanID             string          `json:"plan_id"`
	PaymentToken       string          `json:"-"`
	Status             ServiceStatus   `json:"status"`
	StatusReason       string          `json:"status_reason"`
	CountRenewal       int             `json:"count_renewal"`
}

// HasPeriodEnded reports whether the current period has elapsed at now
func (s *Service) HasPeriodEnded(now time.Time) bool {
	return s.CurrentPeriodEnd != nil && !now.Before(*s.CurrentPeriodEnd)
}

// IsLifetime returns true when the service never renews
func (s *Service) IsLifetime() bool {
	return s.Plan != nil && !s.Plan.IsRenewable()
}

// RenewalLimitReached reports whether the plan's renewal cap has been used up
func (s *Service) RenewalLimitReached() bool {
	if s.Plan == nil || s.Plan.RenewalPeriod <= 0 {
		return false
	}
	return s.CountRenewal >= s.Plan.RenewalPeriod
}

// IsCancelled returns true if the service reached its terminal state
func (s *Service) IsCancelled() bool {
	return s.Status == ServiceStatusCancelled
}

// Clone returns a copy of the service that shares the plan but owns its time pointers.
// Used to restore in-memory state when a transition fails to persist.
func (s *Service) Clone() *Service {
	c := *s
	c.CurrentPeriodStart = cloneTime(s.CurrentPeriodStart)
	c.CurrentPeriodEnd = cloneTime(s.CurrentPeriodEnd)
	c.DelayActivatedAt = cloneTime(s.DelayActivatedAt)
	c.ActivatedAt = cloneTime(s.ActivatedAt)
	c.CancelledAt = cloneTime(s.CancelledAt)
	return &c
}

// Restore overwrites s with a snapshot previously taken with Clone
func (s *Service) Restore(snapshot *Service) {
	*s = *snapshot
}

// StatusLog records a single status transition of a service
type StatusLog struct {
	CreatedAt  time.Time     `json:"created_at"`
	ID         string        `json:"id"`
	ServiceID  string        `json:"service_id"`
	FromStatus ServiceStatus `json:"from_status"`
	ToStatus   ServiceStatus `json:"to_status"`
	Reason     string        `json:"reason"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
