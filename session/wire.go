package session

import (
	"math"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the binary profile encoding.
const (
	fieldSymbols   protowire.Number = 1
	fieldEOF       protowire.Number = 2
	fieldWidth     protowire.Number = 3
	fieldPrecision protowire.Number = 4
	fieldUnits     protowire.Number = 5
	fieldInitial   protowire.Number = 6
	fieldPolicy    protowire.Number = 7

	fieldPolicyKind     protowire.Number = 1
	fieldPolicyNext     protowire.Number = 2
	fieldPolicyAmount   protowire.Number = 3
	fieldPolicyLimit    protowire.Number = 4
	fieldPolicyContexts protowire.Number = 5

	fieldContextSymbol protowire.Number = 1
	fieldContextPMF    protowire.Number = 2
)

// MarshalBinary encodes the profile in protobuf wire format, so that peers
// can exchange or compare the configuration they code with.
func (p *Profile) MarshalBinary() ([]byte, error) {
	var b []byte
	b = appendVarint(b, fieldSymbols, uint64(p.Symbols))
	b = appendVarint(b, fieldEOF, uint64(p.EOF))
	b = appendVarint(b, fieldWidth, uint64(p.Width))
	b = appendVarint(b, fieldPrecision, uint64(p.Precision))
	if p.Units != "" {
		b = protowire.AppendTag(b, fieldUnits, protowire.BytesType)
		b = protowire.AppendString(b, p.Units)
	}
	b = appendPMF(b, fieldInitial, p.Initial)

	var policy []byte
	if p.Policy.Kind != "" {
		policy = protowire.AppendTag(policy, fieldPolicyKind, protowire.BytesType)
		policy = protowire.AppendString(policy, p.Policy.Kind)
	}
	policy = appendPMF(policy, fieldPolicyNext, p.Policy.Next)
	policy = appendVarint(policy, fieldPolicyAmount, p.Policy.Amount)
	policy = appendVarint(policy, fieldPolicyLimit, p.Policy.Limit)
	for _, ctx := range p.Policy.Contexts {
		var c []byte
		c = appendVarint(c, fieldContextSymbol, uint64(ctx.Symbol))
		c = appendPMF(c, fieldContextPMF, ctx.PMF)
		policy = protowire.AppendTag(policy, fieldPolicyContexts, protowire.BytesType)
		policy = protowire.AppendBytes(policy, c)
	}
	if len(policy) > 0 {
		b = protowire.AppendTag(b, fieldPolicy, protowire.BytesType)
		b = protowire.AppendBytes(b, policy)
	}
	return b, nil
}

// UnmarshalBinary decodes a profile written by MarshalBinary.
// Unknown fields are skipped.
func (p *Profile) UnmarshalBinary(b []byte) error {
	var decoded Profile
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldSymbols && typ == protowire.VarintType:
			return consumeInt(b, &decoded.Symbols)
		case num == fieldEOF && typ == protowire.VarintType:
			return consumeInt(b, &decoded.EOF)
		case num == fieldWidth && typ == protowire.VarintType:
			return consumeUint(b, &decoded.Width)
		case num == fieldPrecision && typ == protowire.VarintType:
			return consumeUint(b, &decoded.Precision)
		case num == fieldUnits && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			decoded.Units = v
			return n, nil
		case num == fieldInitial && typ == protowire.BytesType:
			return consumePMF(b, &decoded.Initial)
		case num == fieldPolicy && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			return n, decoded.Policy.unmarshal(v)
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err != nil {
		return errors.Wrap(err, "unmarshal profile")
	}
	*p = decoded
	return nil
}

func (c *PolicyConfig) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldPolicyKind && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			c.Kind = v
			return n, nil
		case num == fieldPolicyNext && typ == protowire.BytesType:
			return consumePMF(b, &c.Next)
		case num == fieldPolicyAmount && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			c.Amount = v
			return n, nil
		case num == fieldPolicyLimit && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			c.Limit = v
			return n, nil
		case num == fieldPolicyContexts && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			var ctx ContextConfig
			if err := ctx.unmarshal(v); err != nil {
				return n, err
			}
			c.Contexts = append(c.Contexts, ctx)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

func (c *ContextConfig) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldContextSymbol && typ == protowire.VarintType:
			return consumeInt(b, &c.Symbol)
		case num == fieldContextPMF && typ == protowire.BytesType:
			return consumePMF(b, &c.PMF)
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// consumeFields calls field for every field in b. field returns the number
// of bytes of the value it consumed, or a negative protowire error code.
func consumeFields(b []byte, field func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.WithStack(protowire.ParseError(n))
		}
		b = b[n:]

		n, err := field(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			return errors.Wrapf(protowire.ParseError(n), "field %d", num)
		}
		b = b[n:]
	}
	return nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// appendPMF writes probabilities as a packed repeated double.
func appendPMF(b []byte, num protowire.Number, pmf []float64) []byte {
	if len(pmf) == 0 {
		return b
	}
	packed := make([]byte, 0, 8*len(pmf))
	for _, p := range pmf {
		packed = protowire.AppendFixed64(packed, math.Float64bits(p))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func consumePMF(b []byte, pmf *[]float64) (int, error) {
	packed, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}
	for len(packed) > 0 {
		v, m := protowire.ConsumeFixed64(packed)
		if m < 0 {
			return 0, errors.WithStack(protowire.ParseError(m))
		}
		*pmf = append(*pmf, math.Float64frombits(v))
		packed = packed[m:]
	}
	return n, nil
}

func consumeInt(b []byte, dst *int) (int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = int(int64(v))
	}
	return n, nil
}

func consumeUint(b []byte, dst *uint) (int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = uint(v)
	}
	return n, nil
}
