// Package arithcode implements adaptive arithmetic coding.
// Arithmetic coding is an entropy encoding technique that represents
// messages as fractional values, achieving compression rates close to
// the theoretical Shannon limit.
//
// The encoder and decoder keep a fixed-width integer interval and narrow
// it with the cumulative frequencies of a Model for every symbol. Models
// may be changed between symbols, as long as both sides change them the
// same way at the same position in the stream.
//
// The coded stream is a plain sequence of bits, most significant bit first
// within each byte, with the last byte padded with zeros. It has no header:
// the alphabet, the coder width and the end of stream must be agreed on
// out-of-band.
package arithcode

import "github.com/pkg/errors"

// Model defines the interface for probability models used in arithmetic coding.
// A model provides the probability distribution for symbols in the data stream.
type Model interface {
	// SymbolCount returns the total number of possible symbols in this model.
	SymbolCount() int

	// Freq returns the cumulative frequency range [low, high) for the given symbol.
	// The range is relative to the total frequency returned by TotalFreq().
	// A symbol that cannot occur has low == high.
	Freq(symbol int) (low, high uint64)

	// TotalFreq returns the sum of all symbol frequencies.
	TotalFreq() uint64

	// Find returns the symbol corresponding to the given cumulative frequency.
	// The cumFreq must be in range [0, TotalFreq()).
	Find(cumFreq uint64) int
}

// UniformModel implements a model where all symbols have equal probability.
type UniformModel struct {
	numSymbols int
}

// NewUniformModel creates a uniform probability model with the given number of symbols.
func NewUniformModel(numSymbols int) *UniformModel {
	if numSymbols <= 0 {
		panic("numSymbols must be positive")
	}
	return &UniformModel{numSymbols: numSymbols}
}

func (m *UniformModel) SymbolCount() int {
	return m.numSymbols
}

func (m *UniformModel) Freq(symbol int) (low, high uint64) {
	if symbol < 0 || symbol >= m.numSymbols {
		panic("symbol out of range")
	}
	return uint64(symbol), uint64(symbol + 1)
}

func (m *UniformModel) TotalFreq() uint64 {
	return uint64(m.numSymbols)
}

func (m *UniformModel) Find(cumFreq uint64) int {
	if cumFreq >= uint64(m.numSymbols) {
		panic("cumFreq out of range")
	}
	return int(cumFreq)
}

// FrequencyTable implements a mutable model with custom symbol frequencies.
//
// A symbol may have frequency zero, in which case it can be neither encoded
// nor decoded. The table is updated in place between symbols, which is how
// adaptive coding happens.
type FrequencyTable struct {
	freqs    []uint64
	cumFreqs []uint64 // Cumulative frequencies: cumFreqs[i] = sum of freqs[0..i-1]
}

// NewFrequencyTable creates a model from the given symbol frequencies.
// The frequencies slice defines the frequency (probability weight) of each symbol.
func NewFrequencyTable(frequencies []uint64) (*FrequencyTable, error) {
	ft := &FrequencyTable{}
	if err := ft.Replace(frequencies); err != nil {
		return nil, err
	}
	return ft, nil
}

// Replace discards the current distribution and installs frequencies.
// The number of symbols may not change once the table has been created.
func (ft *FrequencyTable) Replace(frequencies []uint64) error {
	if len(frequencies) == 0 {
		return errors.Wrap(ErrInvalidFrequencyTable, "no symbols")
	}
	if ft.freqs != nil && len(frequencies) != len(ft.freqs) {
		return errors.Wrapf(ErrInvalidFrequencyTable, "got %d symbols, table has %d", len(frequencies), len(ft.freqs))
	}

	var total uint64
	for i, freq := range frequencies {
		if total+freq < total {
			return errors.Wrapf(ErrInvalidFrequencyTable, "total overflows at symbol %d", i)
		}
		total += freq
	}
	if total == 0 {
		return errors.Wrap(ErrInvalidFrequencyTable, "total frequency is zero")
	}

	ft.freqs = append(ft.freqs[:0], frequencies...)
	ft.rebuild(0)
	return nil
}

// rebuild recomputes the cumulative frequencies from symbol onwards.
func (ft *FrequencyTable) rebuild(symbol int) {
	if len(ft.cumFreqs) != len(ft.freqs)+1 {
		ft.cumFreqs = make([]uint64, len(ft.freqs)+1)
		symbol = 0
	}
	for i := symbol; i < len(ft.freqs); i++ {
		ft.cumFreqs[i+1] = ft.cumFreqs[i] + ft.freqs[i]
	}
}

func (ft *FrequencyTable) SymbolCount() int {
	return len(ft.freqs)
}

func (ft *FrequencyTable) Freq(symbol int) (low, high uint64) {
	if symbol < 0 || symbol >= ft.SymbolCount() {
		panic("symbol out of range")
	}
	return ft.cumFreqs[symbol], ft.cumFreqs[symbol+1]
}

// Get returns the frequency of symbol.
func (ft *FrequencyTable) Get(symbol int) uint64 {
	ft.mustContain(symbol)
	return ft.freqs[symbol]
}

// Low returns the sum of the frequencies of all symbols before symbol.
func (ft *FrequencyTable) Low(symbol int) uint64 {
	ft.mustContain(symbol)
	return ft.cumFreqs[symbol]
}

// High returns Low(symbol) + Get(symbol).
func (ft *FrequencyTable) High(symbol int) uint64 {
	ft.mustContain(symbol)
	return ft.cumFreqs[symbol+1]
}

// Set changes the frequency of a single symbol.
// It fails when the total would become zero or overflow.
func (ft *FrequencyTable) Set(symbol int, freq uint64) error {
	if symbol < 0 || symbol >= ft.SymbolCount() {
		return errors.Wrapf(ErrInvalidFrequencyTable, "symbol %d out of range [0, %d)", symbol, ft.SymbolCount())
	}
	rest := ft.TotalFreq() - ft.freqs[symbol]
	if rest+freq < rest {
		return errors.Wrapf(ErrInvalidFrequencyTable, "total overflows setting symbol %d", symbol)
	}
	if rest+freq == 0 {
		return errors.Wrap(ErrInvalidFrequencyTable, "total frequency is zero")
	}
	ft.freqs[symbol] = freq
	ft.rebuild(symbol)
	return nil
}

// Increment adds one to the frequency of symbol.
func (ft *FrequencyTable) Increment(symbol int) error {
	if symbol < 0 || symbol >= ft.SymbolCount() {
		return errors.Wrapf(ErrInvalidFrequencyTable, "symbol %d out of range [0, %d)", symbol, ft.SymbolCount())
	}
	return ft.Set(symbol, ft.freqs[symbol]+1)
}

// Rescale halves every frequency. Symbols with a non-zero frequency keep
// at least frequency one, so that they remain codable.
func (ft *FrequencyTable) Rescale() {
	for i, freq := range ft.freqs {
		if freq == 0 {
			continue
		}
		ft.freqs[i] = (freq + 1) / 2
	}
	ft.rebuild(0)
}

// Frequencies returns a copy of the symbol frequencies.
func (ft *FrequencyTable) Frequencies() []uint64 {
	return append([]uint64(nil), ft.freqs...)
}

func (ft *FrequencyTable) TotalFreq() uint64 {
	return ft.cumFreqs[len(ft.cumFreqs)-1]
}

func (ft *FrequencyTable) Find(cumFreq uint64) int {
	if cumFreq >= ft.TotalFreq() {
		panic("cumFreq out of range")
	}

	// Binary search for the symbol. Symbols with zero frequency share
	// their cumulative value with the next symbol and are never returned.
	left, right := 0, len(ft.cumFreqs)-1
	for left < right-1 {
		mid := (left + right) / 2
		if ft.cumFreqs[mid] <= cumFreq {
			left = mid
		} else {
			right = mid
		}
	}
	return left
}

func (ft *FrequencyTable) mustContain(symbol int) {
	if symbol < 0 || symbol >= ft.SymbolCount() {
		panic("symbol out of range")
	}
}
