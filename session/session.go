// Package session drives adaptive arithmetic coding sessions.
//
// A session codes a sequence of symbols followed by an end-of-stream symbol,
// updating its frequency table after every symbol with a Policy. Both sides
// of a session must be configured with the same Profile; the coded stream
// carries no header.
package session

import (
	"io"
	"log/slog"

	"github.com/egonelbre/exp-arithcode/arithcode"
	"github.com/pkg/errors"
)

type options struct {
	log        *slog.Logger
	maxSymbols int
}

// Option configures a session.
type Option func(*options)

// WithLogger sets the logger for session lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMaxSymbols limits the number of symbols a decoder accepts before
// the end-of-stream symbol. Zero means no limit.
func WithMaxSymbols(n int) Option {
	return func(o *options) { o.maxSymbols = n }
}

func newOptions(opts []Option) options {
	o := options{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.New(slog.DiscardHandler)
	}
	return o
}

// newTable creates the session's own copy of the initial table.
func (c *compiled) newTable() (*arithcode.FrequencyTable, error) {
	return arithcode.NewFrequencyTable(c.initial)
}

// Encoder writes symbols of a single session.
type Encoder struct {
	enc    *arithcode.Encoder
	table  *arithcode.FrequencyTable
	policy Policy
	eof    int
	count  int
	log    *slog.Logger
}

// NewEncoder starts a session writing to w.
func NewEncoder(w io.Writer, p *Profile, opts ...Option) (*Encoder, error) {
	c, err := p.compile()
	if err != nil {
		return nil, err
	}
	o := newOptions(opts)

	table, err := c.newTable()
	if err != nil {
		return nil, err
	}
	enc, err := arithcode.NewEncoderWidth(w, c.width)
	if err != nil {
		return nil, err
	}

	o.log.Debug("encode session started", "symbols", c.symbols, "eof", c.eof, "width", c.width)
	return &Encoder{
		enc:    enc,
		table:  table,
		policy: c.policy,
		eof:    c.eof,
		log:    o.log,
	}, nil
}

// Write codes symbol and updates the table.
func (e *Encoder) Write(symbol int) error {
	if symbol == e.eof {
		return errors.Wrapf(ErrReservedSymbol, "position %d", e.count)
	}
	if err := e.enc.Encode(symbol, e.table); err != nil {
		return errors.Wrapf(err, "encode symbol %d at position %d", symbol, e.count)
	}
	if err := e.policy.Update(e.table, symbol); err != nil {
		return errors.Wrapf(err, "update after position %d", e.count)
	}
	e.count++
	return nil
}

// Close writes the end-of-stream symbol and flushes the stream.
// It does not close the underlying writer.
func (e *Encoder) Close() error {
	if err := e.enc.Encode(e.eof, e.table); err != nil {
		return errors.Wrapf(err, "encode end of stream at position %d", e.count)
	}
	if err := e.enc.Close(); err != nil {
		return errors.Wrap(err, "finish stream")
	}
	e.log.Debug("encode session finished", "symbols", e.count, "bits", e.enc.BitsWritten())
	return nil
}

// Decoder reads symbols of a single session.
type Decoder struct {
	dec        *arithcode.Decoder
	table      *arithcode.FrequencyTable
	policy     Policy
	eof        int
	count      int
	maxSymbols int
	done       bool
	log        *slog.Logger
}

// NewDecoder starts a session reading from r.
func NewDecoder(r io.Reader, p *Profile, opts ...Option) (*Decoder, error) {
	c, err := p.compile()
	if err != nil {
		return nil, err
	}
	o := newOptions(opts)

	table, err := c.newTable()
	if err != nil {
		return nil, err
	}
	dec, err := arithcode.NewDecoderWidth(r, c.width)
	if err != nil {
		return nil, errors.Wrap(err, "start decoding")
	}

	o.log.Debug("decode session started", "symbols", c.symbols, "eof", c.eof, "width", c.width)
	return &Decoder{
		dec:        dec,
		table:      table,
		policy:     c.policy,
		eof:        c.eof,
		maxSymbols: o.maxSymbols,
		log:        o.log,
	}, nil
}

// Read returns the next symbol. After the end-of-stream symbol it
// returns io.EOF without reading further.
func (d *Decoder) Read() (int, error) {
	if d.done {
		return 0, io.EOF
	}

	symbol, err := d.dec.Decode(d.table)
	if err != nil {
		return 0, errors.Wrapf(err, "decode position %d", d.count)
	}
	if symbol == d.eof {
		d.done = true
		d.log.Debug("decode session finished", "symbols", d.count, "bits", d.dec.BitsRead())
		return 0, io.EOF
	}
	if d.maxSymbols > 0 && d.count >= d.maxSymbols {
		return 0, errors.Wrapf(ErrTooManySymbols, "more than %d symbols", d.maxSymbols)
	}
	if err := d.policy.Update(d.table, symbol); err != nil {
		return 0, errors.Wrapf(err, "update after position %d", d.count)
	}
	d.count++
	return symbol, nil
}

// Encode codes symbols followed by the end-of-stream symbol.
func Encode(w io.Writer, p *Profile, symbols []int, opts ...Option) error {
	enc, err := NewEncoder(w, p, opts...)
	if err != nil {
		return err
	}
	for _, symbol := range symbols {
		if err := enc.Write(symbol); err != nil {
			return err
		}
	}
	return enc.Close()
}

// Decode reads symbols up to the end-of-stream symbol.
func Decode(r io.Reader, p *Profile, opts ...Option) ([]int, error) {
	dec, err := NewDecoder(r, p, opts...)
	if err != nil {
		return nil, err
	}
	symbols := []int{}
	for {
		symbol, err := dec.Read()
		if err == io.EOF {
			return symbols, nil
		}
		if err != nil {
			return symbols, err
		}
		symbols = append(symbols, symbol)
	}
}

// EncodeText codes text through the profile's alphabet.
func EncodeText(w io.Writer, p *Profile, text string, opts ...Option) error {
	alphabet, err := p.Alphabet()
	if err != nil {
		return err
	}
	symbols, err := alphabet.Symbols(text)
	if err != nil {
		return err
	}
	return Encode(w, p, symbols, opts...)
}

// DecodeText reads text through the profile's alphabet.
func DecodeText(r io.Reader, p *Profile, opts ...Option) (string, error) {
	alphabet, err := p.Alphabet()
	if err != nil {
		return "", err
	}
	symbols, err := Decode(r, p, opts...)
	if err != nil {
		return "", err
	}
	return alphabet.Text(symbols)
}
