package session

import "github.com/pkg/errors"

var (
	// ErrInvalidProfile is returned for profiles that cannot drive a session.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrReservedSymbol is returned when the end-of-stream symbol is written
	// as data; it is only written by Close.
	ErrReservedSymbol = errors.New("end-of-stream symbol is reserved")

	// ErrTooManySymbols is returned when a decoded stream exceeds the
	// configured maximum length without reaching the end-of-stream symbol.
	ErrTooManySymbols = errors.New("too many symbols")

	// ErrUnknownUnit is returned for text containing units outside the alphabet.
	ErrUnknownUnit = errors.New("unit not in alphabet")

	// ErrUnknownSymbol is returned for symbols without an output unit.
	ErrUnknownSymbol = errors.New("symbol not in alphabet")
)
