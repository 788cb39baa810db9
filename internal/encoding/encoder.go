// Package encoding implements the fixed-width binary encoding of RDF
// terms used as index keys throughout the store, the trie builder and
// the LeapFrog join: a 1-byte type tag followed by 16 bytes that are
// either a 128-bit xxh3 hash of the term's natural string form or, for
// small values, the value itself inlined.
//
// Adapted from the teacher's internal/encoding/encoder.go: same
// EncodedTermSize/MaxInlineStringSize layout and xxh3 hashing, trimmed
// to the rdf package's reduced literal model (datatype-carrying
// Literal rather than a dozen TermType subvariants) and with its own
// local tag byte space instead of reusing rdf.TermType for storage
// subtypes.
package encoding

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/graphon-db/graphon/pkg/rdf"
	"github.com/graphon-db/graphon/pkg/store"
	"github.com/zeebo/xxh3"
)

const (
	MaxInlineStringSize = 16
	// EncodedTermSize must match len(store.EncodedTerm{}).
	EncodedTermSize = 17
)

// Tag bytes for store.EncodedTerm[0]. These are local to the storage
// encoding, distinct from rdf.TermType (which only distinguishes the
// four RDF term kinds at the model level).
const (
	TagNamedNode byte = iota + 1
	TagBlankNodeNumeric
	TagBlankNodeHashed
	TagLiteralPlainInline
	TagLiteralPlainHashed
	TagLiteralLang
	TagLiteralInteger
	TagLiteralDecimal
	TagLiteralDouble
	TagLiteralBoolean
	TagLiteralDateTime
	TagLiteralOtherTyped
	TagQuotedTriple
)

// TermEncoder encodes rdf.Term values into fixed-size index keys.
type TermEncoder struct{}

func NewTermEncoder() *TermEncoder { return &TermEncoder{} }

// Hash128 computes a 128-bit xxh3 hash of s, big-endian encoded.
func (e *TermEncoder) Hash128(s string) [16]byte {
	h := xxh3.Hash128([]byte(s))
	var out [16]byte
	binary.BigEndian.PutUint64(out[0:8], h.Hi)
	binary.BigEndian.PutUint64(out[8:16], h.Lo)
	return out
}

// EncodeTerm encodes term into a fixed-size key. When the value can't
// be inlined, it also returns the string that must be interned into
// the id2str table for later reconstruction.
func (e *TermEncoder) EncodeTerm(term rdf.Term) (store.EncodedTerm, *string, error) {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return e.encodeNamedNode(t)
	case *rdf.BlankNode:
		return e.encodeBlankNode(t)
	case *rdf.Literal:
		return e.encodeLiteral(t)
	case *rdf.QuotedTriple:
		return e.encodeQuotedTriple(t)
	default:
		var zero store.EncodedTerm
		return zero, nil, fmt.Errorf("encoding: unknown term type %T", term)
	}
}

func (e *TermEncoder) encodeNamedNode(n *rdf.NamedNode) (store.EncodedTerm, *string, error) {
	var enc store.EncodedTerm
	enc[0] = TagNamedNode
	h := e.Hash128(n.IRI)
	copy(enc[1:], h[:])
	return enc, &n.IRI, nil
}

func (e *TermEncoder) encodeBlankNode(b *rdf.BlankNode) (store.EncodedTerm, *string, error) {
	var enc store.EncodedTerm
	if num, err := strconv.ParseUint(b.ID, 10, 64); err == nil {
		enc[0] = TagBlankNodeNumeric
		binary.BigEndian.PutUint64(enc[1:9], num)
		return enc, nil, nil
	}
	enc[0] = TagBlankNodeHashed
	h := e.Hash128(b.ID)
	copy(enc[1:], h[:])
	return enc, &b.ID, nil
}

func (e *TermEncoder) encodeLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	if lit.Language != "" {
		return e.encodeLangLiteral(lit)
	}
	if lit.Datatype != nil {
		switch lit.Datatype.IRI {
		case rdf.XSDInteger.IRI:
			return e.encodeIntegerLiteral(lit)
		case rdf.XSDDecimal.IRI:
			return e.encodeDecimalLiteral(lit)
		case rdf.XSDDouble.IRI, rdf.XSDFloat.IRI:
			return e.encodeDoubleLiteral(lit)
		case rdf.XSDBoolean.IRI:
			return e.encodeBooleanLiteral(lit)
		case rdf.XSDDateTime.IRI:
			return e.encodeDateTimeLiteral(lit)
		case rdf.XSDString.IRI:
			return e.encodePlainLiteral(lit)
		default:
			return e.encodeTypedLiteral(lit)
		}
	}
	return e.encodePlainLiteral(lit)
}

func (e *TermEncoder) encodePlainLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var enc store.EncodedTerm
	if len(lit.Value) <= MaxInlineStringSize {
		enc[0] = TagLiteralPlainInline
		copy(enc[1:], []byte(lit.Value))
		return enc, nil, nil
	}
	enc[0] = TagLiteralPlainHashed
	h := e.Hash128(lit.Value)
	copy(enc[1:], h[:])
	return enc, &lit.Value, nil
}

func (e *TermEncoder) encodeLangLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var enc store.EncodedTerm
	enc[0] = TagLiteralLang
	combined := lit.Value + "@" + lit.Language
	h := e.Hash128(combined)
	copy(enc[1:], h[:])
	return enc, &combined, nil
}

func (e *TermEncoder) encodeTypedLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var enc store.EncodedTerm
	enc[0] = TagLiteralOtherTyped
	combined := lit.Value + "^^" + lit.Datatype.IRI
	h := e.Hash128(combined)
	copy(enc[1:], h[:])
	return enc, &combined, nil
}

func (e *TermEncoder) encodeIntegerLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var enc store.EncodedTerm
	enc[0] = TagLiteralInteger
	v, err := strconv.ParseInt(lit.Value, 10, 64)
	if err != nil {
		return enc, nil, fmt.Errorf("encoding: invalid integer literal %q: %w", lit.Value, err)
	}
	binary.BigEndian.PutUint64(enc[1:9], uint64(v))
	return enc, nil, nil
}

func (e *TermEncoder) encodeDecimalLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var enc store.EncodedTerm
	enc[0] = TagLiteralDecimal
	v, err := strconv.ParseFloat(lit.Value, 64)
	if err != nil {
		return enc, nil, fmt.Errorf("encoding: invalid decimal literal %q: %w", lit.Value, err)
	}
	binary.BigEndian.PutUint64(enc[1:9], math.Float64bits(v))
	return enc, nil, nil
}

func (e *TermEncoder) encodeDoubleLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var enc store.EncodedTerm
	enc[0] = TagLiteralDouble
	v, err := strconv.ParseFloat(lit.Value, 64)
	if err != nil {
		return enc, nil, fmt.Errorf("encoding: invalid double literal %q: %w", lit.Value, err)
	}
	binary.BigEndian.PutUint64(enc[1:9], math.Float64bits(v))
	return enc, nil, nil
}

func (e *TermEncoder) encodeBooleanLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var enc store.EncodedTerm
	enc[0] = TagLiteralBoolean
	v, err := strconv.ParseBool(lit.Value)
	if err != nil {
		return enc, nil, fmt.Errorf("encoding: invalid boolean literal %q: %w", lit.Value, err)
	}
	if v {
		enc[1] = 1
	}
	return enc, nil, nil
}

func (e *TermEncoder) encodeDateTimeLiteral(lit *rdf.Literal) (store.EncodedTerm, *string, error) {
	var enc store.EncodedTerm
	enc[0] = TagLiteralDateTime
	t, err := time.Parse(time.RFC3339, lit.Value)
	if err != nil {
		t, err = time.ParseInLocation("2006-01-02T15:04:05", lit.Value, time.UTC)
		if err != nil {
			return enc, nil, fmt.Errorf("encoding: invalid dateTime literal %q: %w", lit.Value, err)
		}
	}
	binary.BigEndian.PutUint64(enc[1:9], uint64(t.UnixNano()))
	return enc, nil, nil
}

func (e *TermEncoder) encodeQuotedTriple(qt *rdf.QuotedTriple) (store.EncodedTerm, *string, error) {
	var enc store.EncodedTerm
	enc[0] = TagQuotedTriple
	serialized := qt.String()
	h := e.Hash128(serialized)
	copy(enc[1:], h[:])
	return enc, &serialized, nil
}

// EncodeQuadKey concatenates a sequence of encoded term positions into
// one index key, preserving big-endian lexicographic ordering.
func (e *TermEncoder) EncodeQuadKey(terms ...store.EncodedTerm) []byte {
	out := make([]byte, 0, len(terms)*EncodedTermSize)
	for _, t := range terms {
		out = append(out, t[:]...)
	}
	return out
}

// GetTag extracts the storage tag byte from an encoded term.
func GetTag(enc store.EncodedTerm) byte { return enc[0] }
