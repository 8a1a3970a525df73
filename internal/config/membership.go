package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// MembershipConfig holds the association's dues rules.
type MembershipConfig struct {
	// DuesValidityDays is how many days a payment keeps a member active.
	DuesValidityDays int `koanf:"dues_validity_days"`

	// Timezone is the IANA zone used to decide what "today" is.
	Timezone string `koanf:"timezone"`

	// PageSize is the number of members listed per page.
	PageSize int `koanf:"page_size"`

	// ReminderDaysBefore lists how many days before the due date a
	// reminder email is sent. 0 means on the due date itself.
	ReminderDaysBefore []int `koanf:"reminder_days_before"`

	// ReminderCron is the schedule for the dues reminder scan.
	ReminderCron string `koanf:"reminder_cron"`
}

// DefaultMembershipConfig returns the rules used when none are configured.
func DefaultMembershipConfig() *MembershipConfig {
	return &MembershipConfig{
		DuesValidityDays:   365,
		Timezone:           "America/Sao_Paulo",
		PageSize:           50,
		ReminderDaysBefore: []int{7, 1, 0},
		ReminderCron:       "0 9 * * *",
	}
}

func (c *MembershipConfig) fillDefaults() {
	d := DefaultMembershipConfig()
	if c.DuesValidityDays == 0 {
		c.DuesValidityDays = d.DuesValidityDays
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.PageSize == 0 {
		c.PageSize = d.PageSize
	}
	if len(c.ReminderDaysBefore) == 0 {
		c.ReminderDaysBefore = d.ReminderDaysBefore
	}
	if c.ReminderCron == "" {
		c.ReminderCron = d.ReminderCron
	}
}

// Validate rejects rules that cannot produce a sensible status.
func (c *MembershipConfig) Validate() error {
	if c.DuesValidityDays <= 0 {
		return fmt.Errorf("dues_validity_days must be positive, got %d", c.DuesValidityDays)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	for _, d := range c.ReminderDaysBefore {
		if d < 0 {
			return fmt.Errorf("reminder_days_before must be non-negative, got %d", d)
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured time zone. Validate must have passed.
func (c *MembershipConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// buildDSN formats a postgres URL, escaping the password.
func buildDSN(c DatabaseConfig) string {
	hostPort := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))

	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		c.User,
		url.QueryEscape(c.Password),
		hostPort,
		c.Name,
		c.SSLMode,
	)
}
