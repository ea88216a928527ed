package arithcode

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// MaxPrecision is the largest quantization precision; float64 has a
	// 53-bit significand.
	MaxPrecision = 52

	// pmfTolerance is how far above one a probability mass function may sum.
	pmfTolerance = 1e-9
)

// Quantizer converts probability mass functions to integer frequencies.
type Quantizer struct {
	// Precision is the number of bits each probability is scaled by.
	Precision uint
	// Forbidden lists symbols that cannot occur. They keep frequency zero
	// and must have probability zero.
	Forbidden []int
}

// Quantize converts pmf to frequencies with the given precision, bumping
// every zero frequency to one so that all symbols stay codable.
func Quantize(pmf []float64, precision uint) ([]uint64, error) {
	return Quantizer{Precision: precision}.Quantize(pmf)
}

// Quantize scales every probability by 2^Precision and truncates it.
//
// Symbols that would end up with frequency zero are given frequency one,
// which costs a little coding efficiency but keeps them codable, unless
// they are listed in Forbidden.
func (q Quantizer) Quantize(pmf []float64) ([]uint64, error) {
	if q.Precision < 1 || q.Precision > MaxPrecision {
		return nil, errors.Wrapf(ErrInvalidFrequencyTable, "precision %d not in [1, %d]", q.Precision, MaxPrecision)
	}
	if len(pmf) == 0 {
		return nil, errors.Wrap(ErrInvalidFrequencyTable, "empty probability mass function")
	}

	forbidden := make(map[int]bool, len(q.Forbidden))
	for _, symbol := range q.Forbidden {
		if symbol < 0 || symbol >= len(pmf) {
			return nil, errors.Wrapf(ErrInvalidFrequencyTable, "forbidden symbol %d out of range [0, %d)", symbol, len(pmf))
		}
		forbidden[symbol] = true
	}

	scale := math.Ldexp(1, int(q.Precision))
	freqs := make([]uint64, len(pmf))

	var sum float64
	var total uint64
	for symbol, p := range pmf {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, errors.Wrapf(ErrInvalidFrequencyTable, "probability %v of symbol %d not in [0, 1]", p, symbol)
		}
		sum += p

		freq := uint64(p * scale)
		switch {
		case forbidden[symbol]:
			if p != 0 {
				return nil, errors.Wrapf(ErrInvalidFrequencyTable, "forbidden symbol %d has probability %v", symbol, p)
			}
		case freq == 0:
			freq = 1
		}
		freqs[symbol] = freq
		total += freq
	}

	if sum > 1+pmfTolerance {
		return nil, errors.Wrapf(ErrInvalidFrequencyTable, "probabilities sum to %v", sum)
	}
	if total == 0 {
		return nil, errors.Wrap(ErrInvalidFrequencyTable, "total frequency is zero")
	}
	return freqs, nil
}
