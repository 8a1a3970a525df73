// Package dues derives a member's payment status from their last payment.
//
// A payment made on day D keeps the member active until the day before
// D + ValidityDays. Everything here works on calendar dates in the
// association's time zone, so the hour of the payment and DST changes
// never move a due date.
package dues

import "time"

// Status is the payment status exposed by the status lookup. The wire
// values are the Portuguese words existing clients already parse.
type Status string

const (
	StatusActive   Status = "ativo"
	StatusInactive Status = "inativo"
	StatusInvalid  Status = "invalido"
)

// Policy holds the dues rules.
type Policy struct {
	ValidityDays int
	Location     *time.Location
}

// NewPolicy builds a Policy; a nil location means UTC.
func NewPolicy(validityDays int, loc *time.Location) Policy {
	if loc == nil {
		loc = time.UTC
	}
	return Policy{ValidityDays: validityDays, Location: loc}
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// civilDate truncates t to midnight of its calendar day in the policy's zone.
func (p Policy) civilDate(t time.Time) time.Time {
	y, m, d := t.In(p.location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, p.location())
}

// DueDate is the first day the member is no longer covered by a payment
// made at lastPayment.
func (p Policy) DueDate(lastPayment time.Time) time.Time {
	return p.civilDate(lastPayment).AddDate(0, 0, p.ValidityDays)
}

// DaysToNextPayment counts calendar days from today until the due date.
// It is zero or negative once the due date is reached, and zero when there
// is no payment at all.
func (p Policy) DaysToNextPayment(lastPayment *time.Time, now time.Time) int {
	if lastPayment == nil {
		return 0
	}
	return daysBetween(p.civilDate(now), p.DueDate(*lastPayment))
}

// Classify returns StatusActive while days remain, StatusInactive otherwise.
func (p Policy) Classify(lastPayment *time.Time, now time.Time) Status {
	if p.DaysToNextPayment(lastPayment, now) > 0 {
		return StatusActive
	}
	return StatusInactive
}

// daysBetween counts whole days from a to b. Dates are rebuilt in UTC so
// a 23 or 25 hour day cannot skew the division.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// Summary is the payment state shown on the member dashboard.
type Summary struct {
	Status            Status     `json:"status"`
	LastPayment       *time.Time `json:"last_payment,omitempty"`
	NextPaymentDue    *time.Time `json:"next_payment_due,omitempty"`
	DaysToNextPayment int        `json:"days_to_next_payment"`
	ValidityDays      int        `json:"validity_days"`
}

// Overdue reports whether the due date has passed.
func (s Summary) Overdue() bool {
	return s.LastPayment != nil && s.DaysToNextPayment <= 0
}

// Summarize computes the full payment summary for the dashboard.
func (p Policy) Summarize(lastPayment *time.Time, now time.Time) Summary {
	summary := Summary{
		Status:            p.Classify(lastPayment, now),
		DaysToNextPayment: p.DaysToNextPayment(lastPayment, now),
		ValidityDays:      p.ValidityDays,
	}

	if lastPayment != nil {
		paid := lastPayment.In(p.location())
		due := p.DueDate(paid)
		summary.LastPayment = &paid
		summary.NextPaymentDue = &due
	}

	return summary
}

// PaidOnForDueIn returns the payment date whose due date is exactly
// daysAhead days after today. The reminder scan looks for members whose
// last payment fell on that day.
func (p Policy) PaidOnForDueIn(now time.Time, daysAhead int) time.Time {
	return p.civilDate(now).AddDate(0, 0, daysAhead-p.ValidityDays)
}
