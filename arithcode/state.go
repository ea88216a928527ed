package arithcode

import (
	"math/bits"

	"github.com/pkg/errors"
)

const (
	// DefaultWidth is the state precision used by NewEncoder and NewDecoder.
	// 32 bits balance precision and performance.
	DefaultWidth = 32

	// MinWidth and MaxWidth bound the supported state precisions.
	MinWidth = 8
	MaxWidth = 62
)

// MaxTotal returns the largest total frequency a model may have when coded
// with a state of the given width. Every symbol with a non-zero frequency
// is then guaranteed a non-empty interval after renormalization.
func MaxTotal(width uint) uint64 {
	return (uint64(1) << (width - 2)) - 1
}

// CheckTotal verifies that the model can be coded with the given width.
func CheckTotal(model Model, width uint) error {
	if err := checkWidth(width); err != nil {
		return err
	}
	total := model.TotalFreq()
	if total == 0 {
		return errors.Wrap(ErrInvalidFrequencyTable, "total frequency is zero")
	}
	if total > MaxTotal(width) {
		return errors.Wrapf(ErrInvalidFrequencyTable, "total frequency %d exceeds %d for %d-bit coder", total, MaxTotal(width), width)
	}
	return nil
}

func checkWidth(width uint) error {
	if width < MinWidth || width > MaxWidth {
		return errors.Wrapf(ErrInvalidWidth, "width %d not in [%d, %d]", width, MinWidth, MaxWidth)
	}
	return nil
}

// state is the interval shared by the encoder and the decoder.
// Both sides must narrow and rescale it identically.
type state struct {
	width   uint
	max     uint64 // 2^width - 1
	half    uint64
	quarter uint64

	low  uint64 // Lower bound of the current interval
	high uint64 // Upper bound of the current interval
}

func newState(width uint) state {
	top := (uint64(1) << width) - 1
	return state{
		width:   width,
		max:     top,
		half:    uint64(1) << (width - 1),
		quarter: uint64(1) << (width - 2),
		low:     0,
		high:    top,
	}
}

// narrow sets the interval to the sub-interval [symLow, symHigh) of total.
func (s *state) narrow(symLow, symHigh, total uint64) bool {
	if symLow >= symHigh || symHigh > total {
		return false
	}
	rangeSize := s.high - s.low + 1
	high := s.low + mulDiv(rangeSize, symHigh, total) - 1
	low := s.low + mulDiv(rangeSize, symLow, total)
	if low > high {
		return false
	}
	s.low, s.high = low, high
	return true
}

// shift scales up the interval after the top bit has been dealt with.
func (s *state) shift() {
	s.low = (s.low << 1) & s.max
	s.high = ((s.high << 1) & s.max) | 1
}

// mulDiv returns floor(a*b/c) for b <= c without overflowing.
func mulDiv(a, b, c uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, c)
	return q
}
