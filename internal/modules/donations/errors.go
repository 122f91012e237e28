package donations

import "errors"

var (
	ErrNotFound          = errors.New("donation not found")
	ErrAlreadyCompleted  = errors.New("donation already completed")
	ErrPaymentInProgress = errors.New("payment already in progress for this donation")
	ErrPatientNotFound   = errors.New("patient not found")
)
