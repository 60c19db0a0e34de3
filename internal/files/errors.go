package files

import "errors"

var (
	ErrNoRows           = errors.New("no rows found")
	ErrDuplicateShareID = errors.New("duplicate share id")
)
