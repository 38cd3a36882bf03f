package threshold

import "errors"

// Parse and construction errors. The two parse sentinels wrap the
// underlying strconv failure, so errors.Is matches the sentinel and
// errors.As can still reach the *strconv.NumError.
var (
	ErrEmptyRange          = errors.New("empty range expression")
	ErrStartGreaterThanEnd = errors.New("start point greater than end point")
	ErrParseStartPoint     = errors.New("invalid start point")
	ErrParseEndPoint       = errors.New("invalid end point")
	ErrBoundNotFinite      = errors.New("bound must be a finite number")
)
