package arithcode

import (
	"io"

	"github.com/pkg/errors"
)

// Encoder compresses data using arithmetic coding.
type Encoder struct {
	state

	output      *bitWriter
	pendingBits uint64 // Number of pending underflow bits
	closed      bool
}

// NewEncoder creates a new arithmetic encoder with DefaultWidth precision
// that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		output: newBitWriter(w),
		state:  newState(DefaultWidth),
	}
}

// NewEncoderWidth creates a new arithmetic encoder with a state of width bits.
// The decoder must use the same width.
func NewEncoderWidth(w io.Writer, width uint) (*Encoder, error) {
	if err := checkWidth(width); err != nil {
		return nil, err
	}
	return &Encoder{
		output: newBitWriter(w),
		state:  newState(width),
	}, nil
}

// Width returns the state precision in bits.
func (e *Encoder) Width() uint { return e.width }

// BitsWritten returns the number of bits written to the output so far.
// Pending underflow bits are not included until they are resolved.
func (e *Encoder) BitsWritten() int64 { return e.output.written }

// Encode writes a symbol using the given model.
func (e *Encoder) Encode(symbol int, model Model) error {
	if e.closed {
		return ErrClosed
	}

	total := model.TotalFreq()
	if total == 0 || total > MaxTotal(e.width) {
		return errors.Wrapf(ErrCodingRange, "total frequency %d not in [1, %d]", total, MaxTotal(e.width))
	}
	if symbol < 0 || symbol >= model.SymbolCount() {
		return errors.Wrapf(ErrCodingRange, "symbol %d out of range [0, %d)", symbol, model.SymbolCount())
	}

	// Get the symbol's frequency range
	symLow, symHigh := model.Freq(symbol)
	if symLow >= symHigh {
		return errors.Wrapf(ErrInvalidFrequencyTable, "symbol %d has zero frequency", symbol)
	}

	// Calculate the new interval
	if !e.narrow(symLow, symHigh, total) {
		return errors.Wrapf(ErrCodingRange, "interval collapsed coding symbol %d", symbol)
	}

	// Normalize the interval
	for {
		if e.high < e.half {
			// High is in lower half, output 0
			if err := e.emit(0); err != nil {
				return err
			}
		} else if e.low >= e.half {
			// Low is in upper half, output 1
			if err := e.emit(1); err != nil {
				return err
			}
			e.low -= e.half
			e.high -= e.half
		} else if e.low >= e.quarter && e.high < 3*e.quarter {
			// Underflow: interval straddles the middle
			e.pendingBits++
			e.low -= e.quarter
			e.high -= e.quarter
		} else {
			break
		}

		// Scale up the interval
		e.shift()
	}

	return nil
}

// emit writes bit followed by the pending underflow bits, which are its complement.
func (e *Encoder) emit(bit uint64) error {
	if err := e.output.WriteBit(bit); err != nil {
		return err
	}
	for ; e.pendingBits > 0; e.pendingBits-- {
		if err := e.output.WriteBit(bit ^ 1); err != nil {
			return err
		}
	}
	return nil
}

// Close finalizes the encoding and flushes any remaining bits.
// It does not close the underlying writer.
func (e *Encoder) Close() error {
	if e.closed {
		return ErrClosed
	}
	e.closed = true

	// Output enough bits to disambiguate the final interval
	e.pendingBits++

	var bit uint64 = 1
	if e.low < e.quarter {
		bit = 0
	}
	if err := e.emit(bit); err != nil {
		return err
	}

	return e.output.Close()
}
