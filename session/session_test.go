package session

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/egonelbre/exp-arithcode/arithcode"
)

func encodeSymbols(t *testing.T, p *Profile, symbols []int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, p, symbols); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestReferenceScenario(t *testing.T) {
	p := ReferenceProfile()
	input := []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}

	encoded := encodeSymbols(t, p, input)
	t.Logf("Encoded %d symbols in %d bytes", len(input), len(encoded))

	dec, err := NewDecoder(bytes.NewReader(encoded), p)
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}
	var output []int
	for {
		symbol, err := dec.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		output = append(output, symbol)
	}
	if !slices.Equal(output, input) {
		t.Errorf("decoded %v, want %v", output, input)
	}

	// Reading after the end-of-stream symbol does not touch the stream.
	if _, err := dec.Read(); err != io.EOF {
		t.Errorf("Read after end of stream = %v, want io.EOF", err)
	}
}

func TestOnlyEndOfStream(t *testing.T) {
	p := ReferenceProfile()

	encoded := encodeSymbols(t, p, nil)
	if len(encoded) == 0 {
		t.Fatal("expected a non-empty stream")
	}

	decoded, err := Decode(bytes.NewReader(encoded), p)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("decoded %v, want nothing", decoded)
	}
}

func TestRoundtripPolicies(t *testing.T) {
	uniform := []float64{0.2, 0.2, 0.2, 0.2, 0.2}

	tests := []struct {
		name   string
		policy PolicyConfig
	}{
		{"static", PolicyConfig{}},
		{"increment", PolicyConfig{Kind: PolicyIncrement}},
		{"increment rescaling", PolicyConfig{Kind: PolicyIncrement, Amount: 32, Limit: 1 << 17}},
		{"swap", PolicyConfig{Kind: PolicySwap, Next: []float64{0.5, 0.2, 0.1, 0.1, 0.1}}},
		{"context", PolicyConfig{
			Kind: PolicyContext,
			Next: uniform,
			Contexts: []ContextConfig{
				{Symbol: 0, PMF: []float64{0.1, 0.6, 0.1, 0.1, 0.1}},
				{Symbol: 2, PMF: []float64{0.0, 0.0, 0.9, 0.05, 0.05}},
			},
		}},
		{"context without default", PolicyConfig{
			Kind:     PolicyContext,
			Contexts: []ContextConfig{{Symbol: 3, PMF: []float64{0.7, 0.1, 0.1, 0.05, 0.05}}},
		}},
	}

	rng := rand.New(rand.NewSource(12345))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Profile{
				Symbols: 5,
				EOF:     4,
				Initial: uniform,
				Policy:  tt.policy,
			}

			for trial := 0; trial < 20; trial++ {
				input := make([]int, rng.Intn(2000))
				for i := range input {
					input[i] = rng.Intn(1 + rng.Intn(4))
				}

				encoded := encodeSymbols(t, p, input)
				decoded, err := Decode(bytes.NewReader(encoded), p)
				if err != nil {
					t.Fatalf("Trial %d: Decode failed: %v", trial, err)
				}
				if !slices.Equal(decoded, input) {
					t.Fatalf("Trial %d: round trip mismatch, decoded %d symbols, want %d", trial, len(decoded), len(input))
				}
			}
		})
	}
}

func TestAdaptationCompresses(t *testing.T) {
	flat := &Profile{
		Symbols: 5,
		EOF:     4,
		Initial: []float64{0.2, 0.2, 0.2, 0.2, 0.2},
	}
	adaptive := *flat
	adaptive.Policy = PolicyConfig{Kind: PolicyIncrement, Amount: 1 << 10}

	input := make([]int, 1000)
	for i := range input {
		if i%10 == 0 {
			input[i] = 3
		}
	}

	static := encodeSymbols(t, flat, input)
	learned := encodeSymbols(t, &adaptive, input)
	t.Logf("static: %d bytes, adaptive: %d bytes", len(static), len(learned))
	if len(learned) >= len(static) {
		t.Errorf("adaptive coding (%d bytes) should beat a flat table (%d bytes)", len(learned), len(static))
	}
}

func TestDeterministic(t *testing.T) {
	p := ReferenceProfile()
	input := []int{0, 3, 2, 2, 1, 0, 3, 3, 3, 1}

	first := encodeSymbols(t, p, input)
	second := encodeSymbols(t, p, input)
	if !bytes.Equal(first, second) {
		t.Errorf("encodings differ:\n%x\n%x", first, second)
	}
}

// TestCorruption flips every bit of a coded stream in turn. Flips ahead of
// the final bits always change the result; some are reported as errors.
func TestCorruption(t *testing.T) {
	p := &Profile{
		Symbols:   9,
		EOF:       8,
		Precision: 16,
		Initial:   []float64{0.3, 0.2, 0.15, 0.1, 0.1, 0.05, 0.05, 0.05, 0},
		Policy:    PolicyConfig{Kind: PolicyIncrement},
	}

	rng := rand.New(rand.NewSource(8))
	input := make([]int, 300)
	for i := range input {
		input[i] = rng.Intn(8)
	}
	encoded := encodeSymbols(t, p, input)

	detected := 0
	for pos := 0; pos < len(encoded)*8; pos++ {
		corrupt := slices.Clone(encoded)
		corrupt[pos/8] ^= 0x80 >> (pos % 8)

		decoded, err := Decode(bytes.NewReader(corrupt), p, WithMaxSymbols(2*len(input)))
		switch {
		case errors.Is(err, arithcode.ErrDecodingRange),
			errors.Is(err, arithcode.ErrPrematureEOF),
			errors.Is(err, ErrTooManySymbols):
			detected++
		case err != nil:
			t.Fatalf("flip %d: unexpected error %v", pos, err)
		case pos < len(encoded)*8-16 && slices.Equal(decoded, input):
			t.Errorf("flip %d: decoded the original message", pos)
		}
	}

	t.Logf("%d of %d flips reported as errors", detected, len(encoded)*8)
	if detected == 0 {
		t.Error("no flip was reported as an error")
	}
}

func TestMaxSymbols(t *testing.T) {
	p := ReferenceProfile()
	input := make([]int, 100)

	encoded := encodeSymbols(t, p, input)
	_, err := Decode(bytes.NewReader(encoded), p, WithMaxSymbols(50))
	if !errors.Is(err, ErrTooManySymbols) {
		t.Errorf("Decode = %v, want ErrTooManySymbols", err)
	}

	decoded, err := Decode(bytes.NewReader(encoded), p, WithMaxSymbols(100))
	if err != nil || len(decoded) != 100 {
		t.Errorf("Decode at the limit = %d symbols, %v", len(decoded), err)
	}
}

func TestEncoderErrors(t *testing.T) {
	p := ReferenceProfile()

	enc, err := NewEncoder(&bytes.Buffer{}, p)
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.Write(4); !errors.Is(err, ErrReservedSymbol) {
		t.Errorf("Write(eof) = %v, want ErrReservedSymbol", err)
	}
	if err := enc.Write(5); !errors.Is(err, arithcode.ErrCodingRange) {
		t.Errorf("Write(5) = %v, want ErrCodingRange", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); !errors.Is(err, arithcode.ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
	if err := enc.Write(0); !errors.Is(err, arithcode.ErrClosed) {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}

	forbidding := &Profile{
		Symbols: 3,
		EOF:     2,
		Initial: []float64{1, 0, 0},
		Policy:  PolicyConfig{Kind: PolicyContext, Contexts: []ContextConfig{{Symbol: 0, PMF: []float64{0.5, 0.25, 0.25}}}},
	}
	if err := Encode(&bytes.Buffer{}, forbidding, []int{0, 1, 0}); err != nil {
		t.Errorf("Encode with bumped zero probabilities = %v", err)
	}
}

func TestDecoderErrors(t *testing.T) {
	p := ReferenceProfile()

	if _, err := Decode(bytes.NewReader(nil), p); !errors.Is(err, arithcode.ErrPrematureEOF) {
		t.Errorf("Decode(empty) = %v, want ErrPrematureEOF", err)
	}

	bad := ReferenceProfile()
	bad.EOF = 7
	if _, err := NewDecoder(bytes.NewReader([]byte{0}), bad); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("NewDecoder with invalid profile = %v, want ErrInvalidProfile", err)
	}
}

func TestText(t *testing.T) {
	p, err := LoadProfile("testdata/bigram.toml")
	if err != nil {
		t.Fatal(err)
	}

	for _, text := range []string{"", "a", "abba", "abcdabcdaaab", strings.Repeat("ab", 500) + "cd"} {
		var buf bytes.Buffer
		if err := EncodeText(&buf, p, text); err != nil {
			t.Fatalf("EncodeText(%q) failed: %v", text, err)
		}
		decoded, err := DecodeText(&buf, p)
		if err != nil {
			t.Fatalf("DecodeText failed: %v", err)
		}
		if decoded != text {
			t.Errorf("decoded %q, want %q", decoded, text)
		}
	}

	if err := EncodeText(&bytes.Buffer{}, p, "abx"); !errors.Is(err, ErrUnknownUnit) {
		t.Errorf("EncodeText with unknown unit = %v, want ErrUnknownUnit", err)
	}
	if err := EncodeText(&bytes.Buffer{}, ReferenceProfile(), "a"); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("EncodeText without units = %v, want ErrInvalidProfile", err)
	}
}

func TestConcurrentSessions(t *testing.T) {
	p := ReferenceProfile()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for worker := 0; worker < 16; worker++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			input := make([]int, 500+rng.Intn(500))
			for i := range input {
				input[i] = rng.Intn(4)
			}

			var buf bytes.Buffer
			if err := Encode(&buf, p, input); err != nil {
				errs <- err
				return
			}
			decoded, err := Decode(&buf, p)
			if err != nil {
				errs <- err
				return
			}
			if !slices.Equal(decoded, input) {
				errs <- errors.New("round trip mismatch")
			}
		}(int64(worker))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestLogger(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p := ReferenceProfile()
	var buf bytes.Buffer
	if err := Encode(&buf, p, []int{1, 2, 3}, WithLogger(log)); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(&buf, p, WithLogger(log)); err != nil {
		t.Fatal(err)
	}

	for _, msg := range []string{"encode session finished", "decode session finished", "symbols=3"} {
		if !strings.Contains(logs.String(), msg) {
			t.Errorf("log does not contain %q:\n%s", msg, logs.String())
		}
	}
}
