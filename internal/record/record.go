// Package record holds the stored form of a document, shared by all
// engines so their files stay mutually readable.
package record

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/goydb/forest/pkg/model"
)

// Record is the value stored under a document key. The key itself is
// not repeated in the value.
type Record struct {
	Sequence model.Sequence `cbor:"s"`
	Deleted  bool           `cbor:"d,omitempty"`
	Meta     []byte         `cbor:"m,omitempty"`
	Body     []byte         `cbor:"b,omitempty"`
}

func Encode(rec *Record) ([]byte, error) {
	return cbor.Marshal(rec)
}

func Decode(data []byte) (*Record, error) {
	var rec Record
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Deleted peeks at the tombstone flag of an encoded record.
func Deleted(data []byte) (bool, error) {
	rec, err := Decode(data)
	if err != nil {
		return false, err
	}
	return rec.Deleted, nil
}

// ToDocument builds a document from a stored record. Decoding copies
// out of the engine owned value, the document stays valid after the
// enclosing transaction or snapshot is released.
func ToDocument(key, data []byte, content model.ContentOptions) (*model.Document, error) {
	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}
	doc := &model.Document{
		ID:       string(key),
		Sequence: rec.Sequence,
		Deleted:  rec.Deleted,
		Meta:     rec.Meta,
		BodySize: uint64(len(rec.Body)),
	}
	if content&model.MetaOnly == 0 {
		doc.Body = rec.Body
	}
	return doc, nil
}
