package payments

import "errors"

var (
	ErrUnauthorizedWebhook = errors.New("unauthorized webhook")
	ErrInvalidCallback     = errors.New("invalid callback data")
)
