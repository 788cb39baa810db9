package encoding

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/graphon-db/graphon/pkg/rdf"
	"github.com/graphon-db/graphon/pkg/store"
)

// TermDecoder reconstructs rdf.Term values from encoded keys, using an
// id2str lookup for the tags that were hashed or too large to inline.
type TermDecoder struct{}

func NewTermDecoder() *TermDecoder { return &TermDecoder{} }

// DecodeTerm reconstructs a term from its encoded form. stringValue
// must be supplied whenever EncodeTerm returned a non-nil string for
// the same term (the caller looks it up in the id2str table by hash).
func (d *TermDecoder) DecodeTerm(enc store.EncodedTerm, stringValue *string) (rdf.Term, error) {
	switch GetTag(enc) {
	case TagNamedNode:
		if stringValue == nil {
			return nil, fmt.Errorf("encoding: missing id2str entry for named node")
		}
		return rdf.NewNamedNode(*stringValue), nil

	case TagBlankNodeNumeric:
		id := binary.BigEndian.Uint64(enc[1:9])
		return rdf.NewBlankNode(strconv.FormatUint(id, 10)), nil

	case TagBlankNodeHashed:
		if stringValue == nil {
			return nil, fmt.Errorf("encoding: missing id2str entry for blank node")
		}
		return rdf.NewBlankNode(*stringValue), nil

	case TagLiteralPlainInline:
		end := 1
		for end < EncodedTermSize && enc[end] != 0 {
			end++
		}
		return rdf.NewLiteral(string(enc[1:end])), nil

	case TagLiteralPlainHashed:
		if stringValue == nil {
			return nil, fmt.Errorf("encoding: missing id2str entry for literal")
		}
		return rdf.NewLiteral(*stringValue), nil

	case TagLiteralLang:
		if stringValue == nil {
			return nil, fmt.Errorf("encoding: missing id2str entry for lang literal")
		}
		if i := strings.LastIndexByte(*stringValue, '@'); i >= 0 {
			return rdf.NewLiteralWithLanguage((*stringValue)[:i], (*stringValue)[i+1:]), nil
		}
		return rdf.NewLiteral(*stringValue), nil

	case TagLiteralOtherTyped:
		if stringValue == nil {
			return nil, fmt.Errorf("encoding: missing id2str entry for typed literal")
		}
		if i := strings.LastIndex(*stringValue, "^^"); i >= 0 {
			return rdf.NewLiteralWithDatatype((*stringValue)[:i], rdf.NewNamedNode((*stringValue)[i+2:])), nil
		}
		return rdf.NewLiteral(*stringValue), nil

	case TagLiteralInteger:
		v := int64(binary.BigEndian.Uint64(enc[1:9]))
		return rdf.NewLiteralWithDatatype(strconv.FormatInt(v, 10), rdf.XSDInteger), nil

	case TagLiteralDecimal:
		v := math.Float64frombits(binary.BigEndian.Uint64(enc[1:9]))
		return rdf.NewLiteralWithDatatype(strconv.FormatFloat(v, 'f', -1, 64), rdf.XSDDecimal), nil

	case TagLiteralDouble:
		v := math.Float64frombits(binary.BigEndian.Uint64(enc[1:9]))
		return rdf.NewLiteralWithDatatype(strconv.FormatFloat(v, 'g', -1, 64), rdf.XSDDouble), nil

	case TagLiteralBoolean:
		return rdf.NewLiteralWithDatatype(strconv.FormatBool(enc[1] != 0), rdf.XSDBoolean), nil

	case TagLiteralDateTime:
		nanos := int64(binary.BigEndian.Uint64(enc[1:9]))
		t := time.Unix(0, nanos).UTC()
		return rdf.NewLiteralWithDatatype(t.Format(time.RFC3339), rdf.XSDDateTime), nil

	case TagQuotedTriple:
		if stringValue == nil {
			return nil, fmt.Errorf("encoding: missing id2str entry for quoted triple")
		}
		return nil, fmt.Errorf("encoding: quoted triple decoding from serialized form not supported: %s", *stringValue)

	default:
		return nil, fmt.Errorf("encoding: unknown tag %d", GetTag(enc))
	}
}
