package session

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"github.com/egonelbre/exp-arithcode/arithcode"
	"github.com/pkg/errors"
)

const (
	// DefaultPrecision is the quantization precision used when a profile
	// does not set one.
	DefaultPrecision = 16

	PolicyStatic    = "static"
	PolicyIncrement = "increment"
	PolicySwap      = "swap"
	PolicyContext   = "context"
)

// Profile is the configuration both sides of a session must agree on
// out-of-band: nothing of it is carried in the coded stream.
type Profile struct {
	// Symbols is the alphabet size, including the end-of-stream symbol.
	Symbols int `toml:"symbols"`
	// EOF is the end-of-stream symbol.
	EOF int `toml:"eof"`
	// Width is the coder state precision in bits, arithcode.DefaultWidth when zero.
	Width uint `toml:"width"`
	// Precision is the quantization precision in bits, DefaultPrecision when zero.
	Precision uint `toml:"precision"`
	// Units optionally maps symbols to runes, see Alphabet.
	Units string `toml:"units"`
	// Initial is the probability mass function of the first symbol.
	Initial []float64 `toml:"initial"`

	Policy PolicyConfig `toml:"policy"`
}

// PolicyConfig selects and parameterizes the update policy.
type PolicyConfig struct {
	// Kind is one of static, increment, swap or context. Empty means static.
	Kind string `toml:"kind"`
	// Next is the distribution installed by swap, and the default of context.
	Next []float64 `toml:"next"`
	// Amount and Limit configure increment.
	Amount uint64 `toml:"amount"`
	Limit  uint64 `toml:"limit"`
	// Contexts are the per-symbol distributions of context.
	Contexts []ContextConfig `toml:"context"`
}

// ContextConfig is the distribution installed after Symbol has been coded.
type ContextConfig struct {
	Symbol int       `toml:"symbol"`
	PMF    []float64 `toml:"pmf"`
}

// ReferenceProfile returns the profile of the reference scenario: five
// symbols with 4 ending the stream, a 16-bit quantized initial
// distribution, and a second distribution swapped in after every symbol.
func ReferenceProfile() *Profile {
	return &Profile{
		Symbols:   5,
		EOF:       4,
		Width:     32,
		Precision: 16,
		Initial:   []float64{0.2, 0.1, 0.3, 0.2, 0.2},
		Policy: PolicyConfig{
			Kind: PolicySwap,
			Next: []float64{0.2, 0.1, 0.1, 0.3, 0.3},
		},
	}
}

// LoadProfile reads a TOML profile from path.
func LoadProfile(path string) (*Profile, error) {
	var p Profile
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return nil, errors.Wrapf(err, "load profile %s", path)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, errors.Wrapf(err, "load profile %s", path)
	}
	return &p, nil
}

// DecodeProfile reads a TOML profile from r.
func DecodeProfile(r io.Reader) (*Profile, error) {
	var p Profile
	md, err := toml.NewDecoder(r).Decode(&p)
	if err != nil {
		return nil, errors.Wrap(err, "decode profile")
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	return &p, nil
}

func checkUndecoded(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, len(undecoded))
	for i, key := range undecoded {
		keys[i] = key.String()
	}
	return errors.Wrapf(ErrInvalidProfile, "unknown keys %s", strings.Join(keys, ", "))
}

// Validate checks that the profile can drive a session.
func (p *Profile) Validate() error {
	_, err := p.compile()
	return err
}

// Alphabet returns the mapping configured by Units.
func (p *Profile) Alphabet() (*Alphabet, error) {
	if p.Units == "" {
		return nil, errors.Wrap(ErrInvalidProfile, "profile has no units")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return NewAlphabet(p.Units)
}

func (p *Profile) width() uint {
	if p.Width == 0 {
		return arithcode.DefaultWidth
	}
	return p.Width
}

func (p *Profile) precision() uint {
	if p.Precision == 0 {
		return DefaultPrecision
	}
	return p.Precision
}

// compiled is a validated profile with quantized distributions.
type compiled struct {
	symbols int
	eof     int
	width   uint
	initial []uint64
	policy  Policy
}

func (p *Profile) compile() (*compiled, error) {
	if p.Symbols < 1 {
		return nil, errors.Wrapf(ErrInvalidProfile, "alphabet size %d", p.Symbols)
	}
	if p.EOF < 0 || p.EOF >= p.Symbols {
		return nil, errors.Wrapf(ErrInvalidProfile, "end-of-stream symbol %d out of range [0, %d)", p.EOF, p.Symbols)
	}
	if p.width() < arithcode.MinWidth || p.width() > arithcode.MaxWidth {
		return nil, errors.Wrapf(ErrInvalidProfile, "width %d not in [%d, %d]", p.width(), arithcode.MinWidth, arithcode.MaxWidth)
	}
	if p.Units != "" {
		if n := utf8.RuneCountInString(p.Units); n != p.Symbols-1 || p.EOF != p.Symbols-1 {
			return nil, errors.Wrapf(ErrInvalidProfile, "%d units for %d symbols with end-of-stream %d", n, p.Symbols, p.EOF)
		}
	}

	c := &compiled{
		symbols: p.Symbols,
		eof:     p.EOF,
		width:   p.width(),
	}

	var err error
	c.initial, err = p.quantize("initial", p.Initial)
	if err != nil {
		return nil, err
	}

	switch p.Policy.Kind {
	case "", PolicyStatic:
		c.policy = Static{}
	case PolicyIncrement:
		limit := p.Policy.Limit
		if limit == 0 {
			limit = arithcode.MaxTotal(c.width)
		}
		if limit > arithcode.MaxTotal(c.width) {
			return nil, errors.Wrapf(ErrInvalidProfile, "increment limit %d exceeds %d", limit, arithcode.MaxTotal(c.width))
		}
		if uint64(p.Symbols) > limit {
			return nil, errors.Wrapf(ErrInvalidProfile, "increment limit %d below alphabet size %d", limit, p.Symbols)
		}
		c.policy = Increment{Amount: p.Policy.Amount, Limit: limit}
	case PolicySwap:
		next, err := p.quantize("next", p.Policy.Next)
		if err != nil {
			return nil, err
		}
		c.policy = Swap{Next: next}
	case PolicyContext:
		policy := Context{Tables: make(map[int][]uint64, len(p.Policy.Contexts))}
		if p.Policy.Next != nil {
			policy.Default, err = p.quantize("next", p.Policy.Next)
			if err != nil {
				return nil, err
			}
		}
		for _, ctx := range p.Policy.Contexts {
			if ctx.Symbol < 0 || ctx.Symbol >= p.Symbols {
				return nil, errors.Wrapf(ErrInvalidProfile, "context symbol %d out of range [0, %d)", ctx.Symbol, p.Symbols)
			}
			if _, dup := policy.Tables[ctx.Symbol]; dup {
				return nil, errors.Wrapf(ErrInvalidProfile, "context symbol %d listed twice", ctx.Symbol)
			}
			policy.Tables[ctx.Symbol], err = p.quantize("context", ctx.PMF)
			if err != nil {
				return nil, err
			}
		}
		c.policy = policy
	default:
		return nil, errors.Wrapf(ErrInvalidProfile, "unknown policy %q", p.Policy.Kind)
	}

	return c, nil
}

// quantize converts pmf to frequencies that fit the coder width.
func (p *Profile) quantize(name string, pmf []float64) ([]uint64, error) {
	if len(pmf) != p.Symbols {
		return nil, errors.Wrapf(ErrInvalidProfile, "%s distribution has %d symbols, want %d", name, len(pmf), p.Symbols)
	}
	freqs, err := arithcode.Quantize(pmf, p.precision())
	if err != nil {
		return nil, errors.Wrapf(err, "%s distribution", name)
	}
	table, err := arithcode.NewFrequencyTable(freqs)
	if err != nil {
		return nil, errors.Wrapf(err, "%s distribution", name)
	}
	if err := arithcode.CheckTotal(table, p.width()); err != nil {
		return nil, errors.Wrapf(err, "%s distribution", name)
	}
	return freqs, nil
}
