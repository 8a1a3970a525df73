// Package handler is the HTTP layer: the first entry point for business
// logic after the router.
//
// It binds and validates requests with the validation package, calls the
// service layer and writes JSON, CSV or rendered HTML pages back.
package handler
