package quota

import "errors"

var (
	ErrNoRows         = errors.New("no rows found")
	ErrCeilingReached = errors.New("device upload ceiling reached")
)
