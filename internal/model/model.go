// Package model holds the domain entities shared by the repository,
// service and handler layers.
package model

import "time"

// Base carries the columns every table has.
type Base struct {
	ID        int64     `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
