package query

import "errors"

// ErrInvalidIdentifier is returned when a group id in a filter specification
// cannot be parsed as an integer. Unlike malformed dates, which degrade to
// "no constraint", a malformed group id aborts the search: admitting it could
// silently broaden the result set.
var ErrInvalidIdentifier = errors.New("invalid identifier")
