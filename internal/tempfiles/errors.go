package tempfiles

import "errors"

var (
	ErrNoRows         = errors.New("no rows found")
	ErrDuplicateToken = errors.New("duplicate share token")
)
