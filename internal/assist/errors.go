package assist

import "errors"

var (
	ErrNotConfigured       = errors.New("assist provider not configured")
	ErrProviderUnavailable = errors.New("assist provider unavailable")
	ErrInvalidResponse     = errors.New("assist provider returned invalid response")
)
