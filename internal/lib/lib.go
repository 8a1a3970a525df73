// Package lib groups the supporting libraries that do not belong to a
// single layer: background jobs and dues reminders (asynq), transactional
// email (Resend), login sessions and rate limiting (Redis), and flash
// notices.
package lib
