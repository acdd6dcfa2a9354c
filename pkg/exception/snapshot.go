package exception

import "github.com/yanun0323/errors"

var (
	ErrSnapshotWrite    = errors.New("snapshot: write failed")
	ErrSnapshotRead     = errors.New("snapshot: read failed")
	ErrSnapshotMismatch = errors.New("snapshot: mismatch")
)
