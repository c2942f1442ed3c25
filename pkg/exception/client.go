package exception

import "errors"

// Client construction and response errors
var (
	ErrMissingCredentials = errors.New("missing api credentials")
	ErrInResponseError    = errors.New("there is an error in response error field")
)
