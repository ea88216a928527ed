package session

import (
	"github.com/egonelbre/exp-arithcode/arithcode"
	"github.com/pkg/errors"
)

// Policy evolves the frequency table after every coded symbol.
//
// The encoder and the decoder call Update with the same arguments at the
// same positions, so a Policy must be a pure function of the table and the
// symbol. Policies are not mutated by Update and may be shared by
// concurrent sessions; the table may not.
type Policy interface {
	Update(table *arithcode.FrequencyTable, symbol int) error
}

// Static keeps the table unchanged.
type Static struct{}

func (Static) Update(table *arithcode.FrequencyTable, symbol int) error { return nil }

// Increment is classic adaptive coding: the frequency of the coded symbol
// grows by Amount. When the total exceeds Limit the table is rescaled.
type Increment struct {
	Amount uint64 // defaults to 1
	Limit  uint64 // maximum total before rescaling, 0 means no rescaling
}

func (p Increment) Update(table *arithcode.FrequencyTable, symbol int) error {
	amount := p.Amount
	if amount == 0 {
		amount = 1
	}
	if symbol < 0 || symbol >= table.SymbolCount() {
		return errors.Wrapf(arithcode.ErrInvalidFrequencyTable, "symbol %d out of range [0, %d)", symbol, table.SymbolCount())
	}
	if err := table.Set(symbol, table.Get(symbol)+amount); err != nil {
		return err
	}
	for p.Limit > 0 && table.TotalFreq() > p.Limit {
		before := table.TotalFreq()
		table.Rescale()
		if table.TotalFreq() == before {
			return errors.Wrapf(arithcode.ErrInvalidFrequencyTable, "cannot rescale total %d under %d", before, p.Limit)
		}
	}
	return nil
}

// Swap discards the table after every symbol and installs Next,
// regardless of which symbol was coded.
type Swap struct {
	Next []uint64
}

func (p Swap) Update(table *arithcode.FrequencyTable, symbol int) error {
	return table.Replace(p.Next)
}

// Context installs the distribution associated with the symbol just coded,
// or Default when the symbol has none. It switches between order-1 contexts.
type Context struct {
	Tables  map[int][]uint64
	Default []uint64
}

func (p Context) Update(table *arithcode.FrequencyTable, symbol int) error {
	if next, ok := p.Tables[symbol]; ok {
		return table.Replace(next)
	}
	if p.Default == nil {
		return nil
	}
	return table.Replace(p.Default)
}
