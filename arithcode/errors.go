package arithcode

import "github.com/pkg/errors"

var (
	// ErrInvalidFrequencyTable is returned for tables that cannot be coded:
	// a zero total, a required symbol with zero frequency, or a total
	// exceeding the bound of the coder width.
	ErrInvalidFrequencyTable = errors.New("invalid frequency table")

	// ErrCodingRange is returned when the encoder cannot narrow its interval.
	ErrCodingRange = errors.New("coding range error")

	// ErrDecodingRange is returned when the decoder cannot locate a symbol for
	// the current code value. It means the stream is corrupt or the models on
	// both sides have diverged.
	ErrDecodingRange = errors.New("decoding range error")

	// ErrPrematureEOF is returned when the input ends long before the
	// decoder could have finished.
	ErrPrematureEOF = errors.New("premature end of coded stream")

	// ErrClosed is returned when an encoder is used after Close.
	ErrClosed = errors.New("encoder already closed")

	// ErrInvalidWidth is returned for unsupported coder widths.
	ErrInvalidWidth = errors.New("invalid coder width")
)
