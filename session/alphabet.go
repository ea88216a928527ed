package session

import (
	"strings"

	"github.com/pkg/errors"
)

// Alphabet maps symbols to output units (runes).
// The symbol after the last unit is the end-of-stream symbol.
type Alphabet struct {
	unitToSymbol map[rune]int
	symbolToUnit []rune
}

// NewAlphabet creates an alphabet where the i-th rune of units is symbol i.
func NewAlphabet(units string) (*Alphabet, error) {
	runes := []rune(units)
	unitToSymbol := make(map[rune]int, len(runes))
	for i, unit := range runes {
		if _, dup := unitToSymbol[unit]; dup {
			return nil, errors.Wrapf(ErrInvalidProfile, "unit %q listed twice", unit)
		}
		unitToSymbol[unit] = i
	}
	return &Alphabet{
		unitToSymbol: unitToSymbol,
		symbolToUnit: runes,
	}, nil
}

// Size returns the number of symbols, including end-of-stream.
func (a *Alphabet) Size() int { return len(a.symbolToUnit) + 1 }

// EOF returns the end-of-stream symbol.
func (a *Alphabet) EOF() int { return len(a.symbolToUnit) }

// Symbols converts text to symbols.
func (a *Alphabet) Symbols(text string) ([]int, error) {
	symbols := make([]int, 0, len(text))
	for i, unit := range text {
		symbol, ok := a.unitToSymbol[unit]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownUnit, "%q at byte %d", unit, i)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, nil
}

// Text converts symbols to text.
func (a *Alphabet) Text(symbols []int) (string, error) {
	var b strings.Builder
	for i, symbol := range symbols {
		if symbol < 0 || symbol >= len(a.symbolToUnit) {
			return "", errors.Wrapf(ErrUnknownSymbol, "symbol %d at position %d", symbol, i)
		}
		b.WriteRune(a.symbolToUnit[symbol])
	}
	return b.String(), nil
}
