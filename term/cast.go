package term

import (
	"fmt"
	"strconv"

	"github.com/spf13/cast"
)

// CastError reports a failed XSD cast, per §4.1: "string->numeric fails on
// unparsable input".
type CastError struct {
	From, To string
	Reason   string
}

func (e *CastError) Error() string {
	return fmt.Sprintf("term: cannot cast %q to %s: %s", e.From, e.To, e.Reason)
}

// ToInteger casts t to xsd:integer following XPath Functions and Operators:
// numerics truncate toward zero, strings must parse as an integer, booleans
// map to 0/1.
func ToInteger(t Term) (Term, error) {
	if t.kind != KindLiteral {
		return Unbound, &CastError{From: t.String(), To: XSDInteger, Reason: "not a literal"}
	}
	switch t.datatype {
	case XSDBoolean:
		if t.lexical == "true" || t.lexical == "1" {
			return NewLiteral("1", "", XSDInteger), nil
		}
		return NewLiteral("0", "", XSDInteger), nil
	case XSDInteger:
		return t, nil
	default:
		i, err := cast.ToInt64E(t.lexical)
		if err != nil {
			f, ferr := cast.ToFloat64E(t.lexical)
			if ferr != nil || !t.IsNumeric() {
				return Unbound, &CastError{From: t.lexical, To: XSDInteger, Reason: err.Error()}
			}
			i = int64(f)
		}
		return NewLiteral(strconv.FormatInt(i, 10), "", XSDInteger), nil
	}
}

// ToDouble casts t to xsd:double.
func ToDouble(t Term) (Term, error) {
	if t.kind != KindLiteral {
		return Unbound, &CastError{From: t.String(), To: XSDDouble, Reason: "not a literal"}
	}
	f, err := cast.ToFloat64E(t.lexical)
	if err != nil {
		return Unbound, &CastError{From: t.lexical, To: XSDDouble, Reason: err.Error()}
	}
	return NewLiteral(strconv.FormatFloat(f, 'g', -1, 64), "", XSDDouble), nil
}

// ToBoolean casts t to xsd:boolean via EBV.
func ToBoolean(t Term) (Term, error) {
	b, err := EBV(t)
	if err != nil {
		return Unbound, err
	}
	return NewBoolean(b), nil
}

// ToSimpleString casts any term to a simple (xsd:string) literal: the STR()
// function's semantics, not a generic cast, but shared here since both
// reduce to "lexical form, stripped of any datatype/language annotation".
func ToSimpleString(t Term) Term {
	switch t.kind {
	case KindIRI, KindBlankNode:
		return NewSimpleLiteral(t.lexical)
	case KindLiteral:
		return NewSimpleLiteral(t.lexical)
	default:
		return NewSimpleLiteral("")
	}
}
