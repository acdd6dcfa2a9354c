package exception

import "github.com/yanun0323/errors"

var (
	ErrStoreNotConfigured = errors.New("store: not configured")
	ErrStoreNilResult     = errors.New("store: nil result")
)
