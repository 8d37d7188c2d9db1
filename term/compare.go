package term

import (
	"math"
	"strconv"
	"time"
)

// Mode selects which of the three coexisting comparison semantics of §4.1
// a caller wants.
type Mode int

const (
	// ModeTermEquality is strict: same kind, byte-equal lexical form,
	// matching datatype IRI, matching language tag.
	ModeTermEquality Mode = iota
	// ModeXQuery promotes numerics (integer/decimal/float/double, in that
	// order) and compares dates by instant; mismatched types are a type error.
	ModeXQuery
	// ModeRDFTermEqual is XQuery equality, except mismatched simple-literal
	// vs IRI vs blank-node comparisons raise a SPARQL type error, and unknown
	// datatype comparisons return Incomparable rather than erroring.
	ModeRDFTermEqual
)

// TypeError is returned by Compare/Equal when operand kinds cannot be
// reconciled under the requested Mode.
type TypeError struct {
	Reason string
}

func (e *TypeError) Error() string { return "term: type error: " + e.Reason }

// Incomparable is returned (as the error) by Compare under ModeRDFTermEqual
// when two literals have unknown, unrelated datatypes: the comparison
// result is neither equal nor ordered, just undecidable.
var Incomparable = &TypeError{Reason: "incomparable datatypes"}

// numericRank gives the promotion order integer < decimal < float < double.
func numericRank(datatype string) int {
	switch datatype {
	case XSDInteger:
		return 0
	case XSDDecimal:
		return 1
	case XSDFloat:
		return 2
	case XSDDouble:
		return 3
	default:
		return -1
	}
}

// asFloat parses a numeric literal's lexical form as float64. This is the
// single promotion representation used for ordering; exactness beyond
// float64 is not attempted (the teacher's sql/types package similarly
// normalizes through a common numeric representation for ordering).
func asFloat(t Term) (float64, bool) {
	if t.kind != KindLiteral {
		return 0, false
	}
	switch t.datatype {
	case XSDInteger, XSDDecimal, XSDFloat, XSDDouble:
		f, err := strconv.ParseFloat(t.lexical, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case XSDBoolean:
		if t.lexical == "true" || t.lexical == "1" {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func asTime(t Term) (time.Time, bool) {
	if t.kind != KindLiteral {
		return time.Time{}, false
	}
	switch t.datatype {
	case XSDDateTime:
		if tt, err := time.Parse(time.RFC3339, t.lexical); err == nil {
			return tt.UTC(), true
		}
		if tt, err := time.Parse("2006-01-02T15:04:05", t.lexical); err == nil {
			return tt.UTC(), true
		}
	case XSDDate:
		if tt, err := time.Parse("2006-01-02", t.lexical); err == nil {
			return tt.UTC(), true
		}
	case XSDTime:
		if tt, err := time.Parse("15:04:05", t.lexical); err == nil {
			return tt.UTC(), true
		}
	}
	return time.Time{}, false
}

// doubleApproxEqual implements §4.1's scaled-epsilon comparison: using
// frexp of the larger magnitude, delta = ldexp(eps, exponent); a-b beyond
// +/-delta decides the ordering, otherwise the values are equal. This
// avoids spurious inequalities at the float64 representation boundary.
func doubleApproxEqual(a, b, eps float64) int {
	diff := a - b
	mag := math.Abs(a)
	if bm := math.Abs(b); bm > mag {
		mag = bm
	}
	_, exp := math.Frexp(mag)
	delta := math.Ldexp(eps, exp)
	switch {
	case diff > delta:
		return 1
	case diff < -delta:
		return -1
	default:
		return 0
	}
}

const defaultEpsilon = 1e-9

// Equal reports term equality under the given Mode. err is non-nil only
// when the terms' kinds/datatypes cannot be reconciled under Mode (a SPARQL
// type error); in ModeRDFTermEqual an unknown-datatype mismatch instead
// yields ok == false, err == Incomparable.
func Equal(a, b Term, mode Mode) (ok bool, err error) {
	c, err := Compare(a, b, mode)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}

// Compare returns -1/0/1 per §4.1. Under ModeTermEquality only 0 (equal)
// or a nonzero "not equal" sentinel value is meaningful; ordering beyond
// equal/not-equal is undefined for ModeTermEquality and such callers should
// use Equal instead.
func Compare(a, b Term, mode Mode) (int, error) {
	if a.kind == KindUnbound || b.kind == KindUnbound {
		return 0, &TypeError{Reason: "comparison operand is unbound"}
	}

	switch mode {
	case ModeTermEquality:
		if a.kind != b.kind {
			return 1, nil
		}
		if a.kind == KindLiteral {
			if a.lexical == b.lexical && a.datatype == b.datatype && a.language == b.language {
				return 0, nil
			}
			return 1, nil
		}
		if a.lexical == b.lexical {
			return 0, nil
		}
		return 1, nil

	case ModeXQuery, ModeRDFTermEqual:
		if a.kind != b.kind {
			if mode == ModeRDFTermEqual && isSimpleOrIRIOrBlank(a) && isSimpleOrIRIOrBlank(b) {
				return 1, &TypeError{Reason: "cannot compare " + a.kind.String() + " with " + b.kind.String()}
			}
			if mode == ModeXQuery {
				return 1, &TypeError{Reason: "cannot compare " + a.kind.String() + " with " + b.kind.String()}
			}
			return 1, nil
		}

		if a.kind != KindLiteral {
			// IRI or blank node: compare by lexical form.
			if a.lexical == b.lexical {
				return 0, nil
			}
			if a.lexical < b.lexical {
				return -1, nil
			}
			return 1, nil
		}

		// Both literals.
		if a.IsNumeric() && b.IsNumeric() {
			af, _ := asFloat(a)
			bf, _ := asFloat(b)
			if a.datatype == XSDDouble || b.datatype == XSDDouble ||
				a.datatype == XSDFloat || b.datatype == XSDFloat {
				return doubleApproxEqual(af, bf, defaultEpsilon), nil
			}
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			default:
				return 0, nil
			}
		}

		if at, aok := asTime(a); aok {
			if bt, bok := asTime(b); bok {
				switch {
				case at.Before(bt):
					return -1, nil
				case at.After(bt):
					return 1, nil
				default:
					return 0, nil
				}
			}
		}

		if a.datatype == b.datatype || (a.datatype == XSDString && b.datatype == XSDString) {
			if a.language != b.language {
				return 1, &TypeError{Reason: "language tag mismatch"}
			}
			switch {
			case a.lexical == b.lexical:
				return 0, nil
			case a.lexical < b.lexical:
				return -1, nil
			default:
				return 1, nil
			}
		}

		// Mismatched, unrelated datatypes.
		if mode == ModeRDFTermEqual {
			return 1, Incomparable
		}
		return 1, &TypeError{Reason: "cannot compare literals of datatype " + a.datatype + " and " + b.datatype}

	default:
		return 1, &TypeError{Reason: "unknown comparison mode"}
	}
}

func isSimpleOrIRIOrBlank(t Term) bool {
	return t.kind == KindIRI || t.kind == KindBlankNode || t.IsSimpleLiteral()
}

// EBV computes SPARQL's effective boolean value (§4.1/§4.3): booleans keep
// their value; numerics are true iff nonzero and not NaN; simple/xsd:string
// literals are true iff non-empty; any other term is a type error.
func EBV(t Term) (bool, error) {
	if t.kind == KindUnbound {
		return false, &TypeError{Reason: "EBV of unbound value"}
	}
	if t.kind != KindLiteral {
		return false, &TypeError{Reason: "EBV of non-literal term"}
	}
	switch t.datatype {
	case XSDBoolean:
		return t.lexical == "true" || t.lexical == "1", nil
	case XSDInteger, XSDDecimal, XSDFloat, XSDDouble:
		f, ok := asFloat(t)
		if !ok {
			return false, &TypeError{Reason: "malformed numeric literal"}
		}
		if math.IsNaN(f) {
			return false, nil
		}
		return f != 0, nil
	case XSDString:
		if t.language != "" {
			return false, &TypeError{Reason: "EBV of language-tagged literal"}
		}
		return t.lexical != "", nil
	default:
		return false, &TypeError{Reason: "EBV undefined for datatype " + t.datatype}
	}
}
