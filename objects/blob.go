package objects

// Blob holds opaque file content (spec §3). It carries no metadata of
// its own; a Tree entry is what attaches a name, mode, and codec hint
// to a Blob's ObjectId.
type Blob struct {
	Data []byte
}

func (b *Blob) Kind() Kind { return KindBlob }

func (b *Blob) Encode() []byte {
	var out []byte
	out = appendBytesField(out, 1, b.Data)
	return out
}

func decodeBlob(payload []byte) (*Blob, error) {
	fields, err := parseFields(payload)
	if err != nil {
		return nil, err
	}
	data, _ := firstBytes(fields, 1)
	return &Blob{Data: data}, nil
}
