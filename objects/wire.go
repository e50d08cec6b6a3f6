package objects

import (
	"github.com/clawvcs/claw/clawerr"
	"github.com/clawvcs/claw/id"
	"google.golang.org/protobuf/encoding/protowire"
)

// wireField is one decoded (field_number, wire_type, value) triple.
// Decode builds a flat, order-preserving list of these per message and
// each kind's decoder filters by field number, which is enough to
// reconstruct repeated fields in their original source order (the
// determinism rule in spec §4.1) without needing a schema.
type wireField struct {
	Num    protowire.Number
	Typ    protowire.Type
	Varint uint64
	Raw    []byte // populated for BytesType only
}

func parseFields(b []byte) ([]wireField, error) {
	var fields []wireField
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, clawerr.ErrDeserialization
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, clawerr.ErrDeserialization
			}
			b = b[n:]
			fields = append(fields, wireField{Num: num, Typ: typ, Varint: v})
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, clawerr.ErrDeserialization
			}
			b = b[n:]
			raw := make([]byte, len(v))
			copy(raw, v)
			fields = append(fields, wireField{Num: num, Typ: typ, Raw: raw})
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, clawerr.ErrDeserialization
			}
			b = b[n:]
			fields = append(fields, wireField{Num: num, Typ: typ, Varint: v})
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, clawerr.ErrDeserialization
			}
			b = b[n:]
			fields = append(fields, wireField{Num: num, Typ: typ, Varint: uint64(v)})
		default:
			return nil, clawerr.ErrDeserialization
		}
	}
	return fields, nil
}

func fieldsFor(fields []wireField, num protowire.Number) []wireField {
	var out []wireField
	for _, f := range fields {
		if f.Num == num {
			out = append(out, f)
		}
	}
	return out
}

func firstBytes(fields []wireField, num protowire.Number) ([]byte, bool) {
	for _, f := range fields {
		if f.Num == num {
			return f.Raw, true
		}
	}
	return nil, false
}

func firstString(fields []wireField, num protowire.Number) string {
	b, _ := firstBytes(fields, num)
	return string(b)
}

func firstVarint(fields []wireField, num protowire.Number) uint64 {
	for _, f := range fields {
		if f.Num == num {
			return f.Varint
		}
	}
	return 0
}

func firstVarintOk(fields []wireField, num protowire.Number) (uint64, bool) {
	for _, f := range fields {
		if f.Num == num {
			return f.Varint, true
		}
	}
	return 0, false
}

func repeatedStrings(fields []wireField, num protowire.Number) []string {
	fs := fieldsFor(fields, num)
	if len(fs) == 0 {
		return nil
	}
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f.Raw)
	}
	return out
}

func repeatedObjectIds(fields []wireField, num protowire.Number) []id.ObjectId {
	fs := fieldsFor(fields, num)
	if len(fs) == 0 {
		return nil
	}
	out := make([]id.ObjectId, len(fs))
	for i, f := range fs {
		copy(out[i][:], f.Raw)
	}
	return out
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	return appendBytesField(b, num, []byte(s))
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendObjectIdField(b []byte, num protowire.Number, oid *id.ObjectId) []byte {
	if oid == nil {
		return b
	}
	return appendBytesField(b, num, oid[:])
}

func appendObjectIdsField(b []byte, num protowire.Number, oids []id.ObjectId) []byte {
	for i := range oids {
		b = appendBytesField(b, num, oids[i][:])
	}
	return b
}

func appendStringsField(b []byte, num protowire.Number, ss []string) []byte {
	for _, s := range ss {
		b = appendBytesField(b, num, []byte(s))
	}
	return b
}

func appendMessageField(b []byte, num protowire.Number, msg []byte) []byte {
	return appendBytesField(b, num, msg)
}
