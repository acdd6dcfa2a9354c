package exception

import "github.com/yanun0323/errors"

var (
	ErrTickFileOpen  = errors.New("tick file: open failed")
	ErrNoTickRecords = errors.New("tick file: no complete records")
)
