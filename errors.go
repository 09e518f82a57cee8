package instagram

import "errors"

var (
	ErrRateLimited     = errors.New("instagram: rate limited")
	ErrNotFound        = errors.New("instagram: not found")
	ErrNoCredentials   = errors.New("instagram: credentials not provided")
	ErrLoginFailed     = errors.New("instagram: login failed")
	ErrNoProfileData   = errors.New("instagram: no strategy could extract profile data")
	ErrBrowserNotReady = errors.New("instagram: browser not initialized")
	ErrRunFailed       = errors.New("instagram: acquisition run failed")
	ErrRunTimeout      = errors.New("instagram: acquisition run timed out")
	ErrEmptyDataset    = errors.New("instagram: acquisition returned no items")
	ErrInvalidResponse = errors.New("instagram: invalid response")
)
