package email

import "errors"

var (
	// ErrDisabled is returned when a synchronous send is requested without SMTP configured.
	ErrDisabled = errors.New("email is not configured")
	// ErrNoRecipients is returned when no support inbox or staff address exists.
	ErrNoRecipients = errors.New("no notification recipients")
)
