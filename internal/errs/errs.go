// Package errs defines the error shapes returned to clients.
//
// JSON routes answer with HTTPError; page routes reuse its field
// errors to annotate forms.
package errs
