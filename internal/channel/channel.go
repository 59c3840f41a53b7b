// Package channel implements the dispatch sinks notifications are delivered
// through: email (AWS SESv2), Telegram, and RSS. All sinks satisfy
// alerts.Sink and are swappable behind that one interface.
package channel

import "errors"

// Dispatch failure reasons. Sinks wrap provider errors in one of these so the
// queue records a stable, comparable reason.
var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrRateLimited         = errors.New("rate limited")
)
