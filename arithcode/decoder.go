package arithcode

import (
	"io"
	"math/bits"

	"github.com/pkg/errors"
)

// Decoder decompresses data using arithmetic coding.
type Decoder struct {
	state

	input *bitReader
	value uint64 // Current code value being decoded
	err   error  // First error, every later Decode returns it
}

// NewDecoder creates a new arithmetic decoder with DefaultWidth precision
// that reads from r.
func NewDecoder(r io.Reader) (*Decoder, error) {
	return NewDecoderWidth(r, DefaultWidth)
}

// NewDecoderWidth creates a new arithmetic decoder with a state of width bits.
//
// Input shorter than what the decoder needs is padded with zero bits, the
// same way the encoder pads its last byte. A well-formed stream never needs
// more than width-2 such bits; past that ErrPrematureEOF is returned.
func NewDecoderWidth(r io.Reader, width uint) (*Decoder, error) {
	if err := checkWidth(width); err != nil {
		return nil, err
	}

	d := &Decoder{
		state: newState(width),
		input: newBitReader(r, int(width)-2),
	}

	// Read initial value (width bits)
	for i := uint(0); i < width; i++ {
		bit, err := d.input.ReadBit()
		if err != nil {
			return nil, err
		}
		d.value = (d.value << 1) | bit
	}

	return d, nil
}

// Width returns the state precision in bits.
func (d *Decoder) Width() uint { return d.width }

// BitsRead returns the number of bits consumed from the input,
// not counting padding.
func (d *Decoder) BitsRead() int64 { return d.input.read }

// Decode reads and returns the next symbol using the given model.
func (d *Decoder) Decode(model Model) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	symbol, err := d.decode(model)
	if err != nil {
		d.err = err
		return 0, err
	}
	return symbol, nil
}

func (d *Decoder) decode(model Model) (int, error) {
	total := model.TotalFreq()
	if total == 0 || total > MaxTotal(d.width) {
		return 0, errors.Wrapf(ErrDecodingRange, "total frequency %d not in [1, %d]", total, MaxTotal(d.width))
	}
	if d.value < d.low || d.value > d.high {
		return 0, errors.Wrapf(ErrDecodingRange, "code value %#x outside [%#x, %#x]", d.value, d.low, d.high)
	}

	// Calculate the position within the current interval
	rangeSize := d.high - d.low + 1
	cumFreq := scaleDown(d.value-d.low+1, total, rangeSize)
	if cumFreq >= total {
		return 0, errors.Wrapf(ErrDecodingRange, "cumulative frequency %d outside total %d", cumFreq, total)
	}

	// Find the symbol corresponding to this cumulative frequency
	symbol := model.Find(cumFreq)
	if symbol < 0 || symbol >= model.SymbolCount() {
		return 0, errors.Wrapf(ErrDecodingRange, "no symbol for cumulative frequency %d", cumFreq)
	}
	symLow, symHigh := model.Freq(symbol)
	if cumFreq < symLow || cumFreq >= symHigh {
		return 0, errors.Wrapf(ErrDecodingRange, "symbol %d covers [%d, %d), not %d", symbol, symLow, symHigh, cumFreq)
	}

	// Update the interval
	if !d.narrow(symLow, symHigh, total) {
		return 0, errors.Wrapf(ErrDecodingRange, "interval collapsed decoding symbol %d", symbol)
	}

	// Normalize the interval
	for {
		if d.high < d.half {
			// Do nothing
		} else if d.low >= d.half {
			d.low -= d.half
			d.high -= d.half
			d.value -= d.half
		} else if d.low >= d.quarter && d.high < 3*d.quarter {
			d.low -= d.quarter
			d.high -= d.quarter
			d.value -= d.quarter
		} else {
			break
		}

		// Scale up the interval
		d.shift()

		// Read next bit into value
		bit, err := d.input.ReadBit()
		if err != nil {
			return 0, err
		}
		d.value = ((d.value << 1) & d.max) | bit
	}

	return symbol, nil
}

// scaleDown returns floor((offset*total - 1) / rangeSize) for offset >= 1.
func scaleDown(offset, total, rangeSize uint64) uint64 {
	hi, lo := bits.Mul64(offset, total)
	lo, borrow := bits.Sub64(lo, 1, 0)
	hi -= borrow
	q, _ := bits.Div64(hi, lo, rangeSize)
	return q
}
