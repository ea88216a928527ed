package arithcode

import (
	"io"

	"github.com/icza/bitio"
	"github.com/pkg/errors"
)

// bitWriter writes individual bits, most significant bit first.
// The final partial byte is padded with zeros on Close.
type bitWriter struct {
	output  *bitio.Writer
	written int64
}

func newBitWriter(w io.Writer) *bitWriter {
	return &bitWriter{output: bitio.NewWriter(w)}
}

func (bw *bitWriter) WriteBit(bit uint64) error {
	if err := bw.output.WriteBool(bit&1 == 1); err != nil {
		return errors.WithStack(err)
	}
	bw.written++
	return nil
}

// Close pads and flushes the last byte. It does not close the
// underlying writer.
func (bw *bitWriter) Close() error {
	return errors.WithStack(bw.output.Close())
}

// bitReader reads individual bits, most significant bit first.
//
// Once the input is exhausted every read returns a 0 bit, which matches the
// zero padding of bitWriter. At most maxPadding such bits are handed out,
// after that reads fail with ErrPrematureEOF.
type bitReader struct {
	input      *bitio.Reader
	read       int64
	padding    int
	maxPadding int
}

func newBitReader(r io.Reader, maxPadding int) *bitReader {
	return &bitReader{
		input:      bitio.NewReader(r),
		maxPadding: maxPadding,
	}
}

func (br *bitReader) ReadBit() (uint64, error) {
	if br.padding == 0 {
		bit, err := br.input.ReadBool()
		switch {
		case err == nil:
			br.read++
			if bit {
				return 1, nil
			}
			return 0, nil
		case err == io.EOF || err == io.ErrUnexpectedEOF:
			// fall through to padding
		default:
			return 0, errors.WithStack(err)
		}
	}

	br.padding++
	if br.padding > br.maxPadding {
		return 0, errors.Wrapf(ErrPrematureEOF, "read %d bits and %d padding bits", br.read, br.padding-1)
	}
	return 0, nil
}
