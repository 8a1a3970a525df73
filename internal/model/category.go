package model

// Category is a simple label grouping members (student, professional, ...).
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
