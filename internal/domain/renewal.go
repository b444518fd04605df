package domain

// RenewalOutcome reports what a renewal attempt did to a service
type RenewalOutcome string

const (
	RenewalOutcomeRenewed   RenewalOutcome = "renewed"
	RenewalOutcomeGrace     RenewalOutcome = "grace"
	RenewalOutcomePastDue   RenewalOutcome = "past_due"
	RenewalOutcomeCompleted RenewalOutcome = "completed"
	RenewalOutcomeSkipped   RenewalOutcome = "skipped"
)

// Reasons recorded on status transitions made by the renewal engine
const (
	ReasonPaymentFailed = "Automatic payment failed"
	ReasonGraceExpired  = "Grace period expired"
	ReasonRenewalLimit  = "Renewal limit reached"
)
