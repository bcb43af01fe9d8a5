package fixedpoint

import "errors"

var (
	ErrOverflow            = errors.New("arithmetic overflow")
	ErrUnderflow           = errors.New("arithmetic underflow")
	ErrDivideByZero        = errors.New("division by zero")
	ErrUnsupportedDecimals = errors.New("unsupported decimal scale")
)
