// Package repository handles all interactions with the database.
//
// It contains raw SQL queries and methods to fetch, persist,
// or update data, abstracting SQL logic away from the service layer.
// Driver errors are returned through sqlerr.Wrap; a missing row is
// reported as pgx.ErrNoRows tagged with its table by sqlerr.NotFound.
package repository
