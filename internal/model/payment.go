package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is one dues payment made by a member.
type Payment struct {
	ID        int64           `json:"id"`
	MemberID  int64           `json:"member_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
	Reference string          `json:"reference"`
	CreatedAt time.Time       `json:"created_at"`
}

// Stats summarizes the membership base.
type Stats struct {
	TotalMembers    int `json:"total_members"`
	ActiveMembers   int `json:"active_members"`
	InactiveMembers int `json:"inactive_members"`
}
