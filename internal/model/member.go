package model

import (
	"strings"
	"time"
)

// Member is an association member profile linked to a user account.
type Member struct {
	Base
	UserID       int64     `json:"user_id"`
	User         User      `json:"user"`
	CategoryID   *int64    `json:"category_id,omitempty"`
	Category     *Category `json:"category,omitempty"`
	CPF          string    `json:"cpf"`
	Phone        string    `json:"phone"`
	Organization string    `json:"organization"`

	// LastPaymentAt is derived from the payment history; nil when the
	// member never paid.
	LastPaymentAt *time.Time `json:"last_payment_at,omitempty"`
}

// Exists reports whether the member has been persisted.
func (m *Member) Exists() bool {
	return m != nil && m.ID != 0
}

// CategoryName returns the category label or an empty string.
func (m Member) CategoryName() string {
	if m.Category == nil {
		return ""
	}
	return m.Category.Name
}

// MemberFilter narrows the member list.
type MemberFilter struct {
	// Query matches first or last name, case-insensitively.
	Query      string
	CategoryID *int64
	Limit      int
	Offset     int
}

// StatusFilter identifies a member for the public status lookup. Every
// non-empty field must match.
type StatusFilter struct {
	FirstName    string
	LastName     string
	Email        string
	CPF          string
	Phone        string
	Organization string
}

// IsEmpty reports whether no field is set.
func (f StatusFilter) IsEmpty() bool {
	return f == StatusFilter{}
}

// Normalized trims every field, lower-cases the email and keeps only the
// digits of CPF and phone, the way they are stored.
func (f StatusFilter) Normalized() StatusFilter {
	return StatusFilter{
		FirstName:    strings.TrimSpace(f.FirstName),
		LastName:     strings.TrimSpace(f.LastName),
		Email:        NormalizeEmail(f.Email),
		CPF:          OnlyDigits(f.CPF),
		Phone:        OnlyDigits(f.Phone),
		Organization: strings.TrimSpace(f.Organization),
	}
}

// OnlyDigits strips everything but ASCII digits ("123.456.789-09" -> "12345678909").
func OnlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
