package expr

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/sparqlgo/engine/internal/regex"
	"github.com/sparqlgo/engine/term"
)

// EvalError is the "error" arm of spec §4.3's three-valued logic
// (term | unbound | error). It is returned as a normal Go error from Eval,
// but callers in expr/rowsource never treat it as fatal: a Filter rowsource
// turns it into "row rejected" and most operators propagate it per the
// truth tables below, never as a panic or a process-level abort (spec §9's
// "do not use host-language exceptions for row-level errors").
type EvalError struct {
	Reason string
}

func (e *EvalError) Error() string { return "expr: " + e.Reason }

func errf(format string, args ...interface{}) error {
	return &EvalError{Reason: fmt.Sprintf(format, args...)}
}

// Eval recursively evaluates e against ctx and returns a term.Term. The
// result is unbound (term.Unbound, nil) when the expression legitimately
// has no value, or a non-nil error when it is the "error" arm.
func Eval(ctx *Context, e *Expr) (term.Term, error) {
	switch e.Op {
	case OpLiteral:
		return e.Literal, nil
	case OpVariable:
		v := e.Variable
		if v == nil {
			return term.Unbound, errf("nil variable reference")
		}
		return ctx.Row.Get(v.Offset), nil

	case OpBound:
		v, err := Eval(ctx, e.Args[0])
		// BOUND never raises unbound: any evaluation error on the inner
		// variable lookup still yields a plain boolean.
		if err != nil {
			return term.NewBoolean(false), nil
		}
		return term.NewBoolean(!v.IsUnbound()), nil

	case OpAnd:
		return evalAnd(ctx, e.Args[0], e.Args[1])
	case OpOr:
		return evalOr(ctx, e.Args[0], e.Args[1])
	case OpNot:
		v, err := Eval(ctx, e.Args[0])
		if err != nil {
			return term.Unbound, err
		}
		if v.IsUnbound() {
			return term.Unbound, nil
		}
		b, err := term.EBV(v)
		if err != nil {
			return term.Unbound, err
		}
		return term.NewBoolean(!b), nil

	case OpEq, OpNeq, OpLt, OpLe, OpGt, OpGe:
		return evalRelational(ctx, e)
	case OpSameTerm:
		a, aerr := Eval(ctx, e.Args[0])
		b, berr := Eval(ctx, e.Args[1])
		if aerr != nil || berr != nil {
			return term.NewBoolean(false), nil
		}
		if a.IsUnbound() || b.IsUnbound() {
			return term.NewBoolean(false), nil
		}
		ok, _ := term.Equal(a, b, term.ModeTermEquality)
		return term.NewBoolean(ok), nil

	case OpIn, OpNotIn:
		return evalIn(ctx, e)

	case OpUPlus, OpUMinus, OpPlus, OpMinus, OpStar, OpSlash, OpRem:
		return evalArithmetic(ctx, e)

	case OpIsIRI:
		return evalTermTest(ctx, e.Args[0], func(t term.Term) bool { return t.Kind() == term.KindIRI })
	case OpIsBlank:
		return evalTermTest(ctx, e.Args[0], func(t term.Term) bool { return t.Kind() == term.KindBlankNode })
	case OpIsLiteral:
		return evalTermTest(ctx, e.Args[0], func(t term.Term) bool { return t.Kind() == term.KindLiteral })
	case OpIsNumeric:
		return evalTermTest(ctx, e.Args[0], func(t term.Term) bool { return t.IsNumeric() })

	case OpStr:
		return evalUnboundPropagating(ctx, e.Args[0], func(t term.Term) (term.Term, error) {
			return term.ToSimpleString(t), nil
		})
	case OpLang:
		return evalUnboundPropagating(ctx, e.Args[0], func(t term.Term) (term.Term, error) {
			if t.Kind() != term.KindLiteral {
				return term.Unbound, errf("LANG() of non-literal")
			}
			return term.NewSimpleLiteral(t.Language()), nil
		})
	case OpDatatype:
		return evalUnboundPropagating(ctx, e.Args[0], func(t term.Term) (term.Term, error) {
			if t.Kind() != term.KindLiteral {
				return term.Unbound, errf("DATATYPE() of non-literal")
			}
			return term.NewIRI(t.Datatype()), nil
		})
	case OpIRI:
		return evalUnboundPropagating(ctx, e.Args[0], func(t term.Term) (term.Term, error) {
			switch t.Kind() {
			case term.KindIRI:
				return t, nil
			case term.KindLiteral:
				return term.NewIRI(t.Lexical()), nil
			default:
				return term.Unbound, errf("IRI() of blank node")
			}
		})
	case OpBNode:
		return evalBNode(ctx, e)
	case OpStrDT:
		return evalStrDT(ctx, e)
	case OpStrLang:
		return evalStrLang(ctx, e)

	case OpStrLen, OpUCase, OpLCase, OpEncodeForURI:
		return evalStringUnary(ctx, e)
	case OpStrStarts, OpStrEnds, OpContains:
		return evalStringBoolBinary(ctx, e)
	case OpSubstr:
		return evalSubstr(ctx, e)
	case OpConcat:
		return evalConcat(ctx, e)
	case OpStrBefore, OpStrAfter:
		return evalStrBeforeAfter(ctx, e)
	case OpLangMatches:
		return evalLangMatches(ctx, e)
	case OpRegex:
		return evalRegex(ctx, e)
	case OpReplace:
		return evalReplace(ctx, e)

	case OpAbs, OpCeil, OpFloor, OpRound:
		return evalNumericUnary(ctx, e)
	case OpRand:
		return term.NewLiteral(strconv.FormatFloat(ctx.Rand.Float64(), 'g', -1, 64), "", term.XSDDouble), nil

	case OpNow:
		return term.NewLiteral(ctx.Now.UTC().Format("2006-01-02T15:04:05Z"), "", term.XSDDateTime), nil
	case OpYear, OpMonth, OpDay, OpHours, OpMinutes, OpSeconds, OpTimezone, OpTZ:
		return evalDateTimePart(ctx, e)

	case OpMD5, OpSHA1, OpSHA224, OpSHA256, OpSHA384, OpSHA512:
		return evalDigest(ctx, e)
	case OpUUID:
		return term.NewIRI("urn:uuid:" + randomUUID(ctx).String()), nil
	case OpStrUUID:
		return term.NewSimpleLiteral(randomUUID(ctx).String()), nil

	case OpIf:
		return evalIf(ctx, e)
	case OpCoalesce:
		return evalCoalesce(ctx, e)

	case OpExists:
		return evalExists(ctx, e, false)
	case OpNotExists:
		return evalExists(ctx, e, true)

	default:
		return term.Unbound, errf("unimplemented operator %v", e.Op)
	}
}

// evalAnd implements §4.3's short-circuiting AND truth table:
// false ∧ X = false for any X (including unbound/error);
// true ∧ error = error; true ∧ unbound = unbound; true ∧ true = true.
func evalAnd(ctx *Context, l, r *Expr) (term.Term, error) {
	lv, lerr := evalAsTriState(ctx, l)
	if lv.known && !lv.value {
		return term.NewBoolean(false), nil
	}
	rv, rerr := evalAsTriState(ctx, r)
	if rv.known && !rv.value {
		return term.NewBoolean(false), nil
	}
	if lerr != nil {
		if rv.known && rv.value {
			return term.Unbound, lerr
		}
		if !rv.known && rerr == nil {
			return term.Unbound, lerr
		}
	}
	if rerr != nil {
		return term.Unbound, rerr
	}
	if !lv.known || !rv.known {
		return term.Unbound, nil
	}
	return term.NewBoolean(lv.value && rv.value), nil
}

// evalOr is AND's dual: true ∨ X = true; false ∨ error = error;
// false ∨ unbound = unbound.
func evalOr(ctx *Context, l, r *Expr) (term.Term, error) {
	lv, lerr := evalAsTriState(ctx, l)
	if lv.known && lv.value {
		return term.NewBoolean(true), nil
	}
	rv, rerr := evalAsTriState(ctx, r)
	if rv.known && rv.value {
		return term.NewBoolean(true), nil
	}
	if lerr != nil {
		if rv.known && !rv.value {
			return term.Unbound, lerr
		}
		if !rv.known && rerr == nil {
			return term.Unbound, lerr
		}
	}
	if rerr != nil {
		return term.Unbound, rerr
	}
	if !lv.known || !rv.known {
		return term.Unbound, nil
	}
	return term.NewBoolean(false), nil
}

type triState struct {
	known bool // false means "unbound"
	value bool
}

// evalAsTriState reduces an operand to {true, false, unknown(=unbound)},
// returning the evaluation error (if any) alongside so AND/OR can still
// apply their short-circuit rules before deciding whether the error
// actually surfaces.
func evalAsTriState(ctx *Context, e *Expr) (triState, error) {
	v, err := Eval(ctx, e)
	if err != nil {
		return triState{}, err
	}
	if v.IsUnbound() {
		return triState{known: false}, nil
	}
	b, err := term.EBV(v)
	if err != nil {
		return triState{}, err
	}
	return triState{known: true, value: b}, nil
}

// evalRelational implements: comparisons on unbound (either side) return
// false, never unbound or error (§4.3).
func evalRelational(ctx *Context, e *Expr) (term.Term, error) {
	a, aerr := Eval(ctx, e.Args[0])
	b, berr := Eval(ctx, e.Args[1])
	if aerr != nil || berr != nil || a.IsUnbound() || b.IsUnbound() {
		return term.NewBoolean(false), nil
	}

	if e.Op == OpEq || e.Op == OpNeq {
		ok, err := term.Equal(a, b, term.ModeRDFTermEqual)
		if err != nil {
			if err == term.Incomparable {
				return term.NewBoolean(false), nil
			}
			return term.Unbound, err
		}
		if e.Op == OpEq {
			return term.NewBoolean(ok), nil
		}
		return term.NewBoolean(!ok), nil
	}

	cmp, err := term.Compare(a, b, term.ModeXQuery)
	if err != nil {
		return term.Unbound, err
	}
	switch e.Op {
	case OpLt:
		return term.NewBoolean(cmp < 0), nil
	case OpLe:
		return term.NewBoolean(cmp <= 0), nil
	case OpGt:
		return term.NewBoolean(cmp > 0), nil
	default: // OpGe
		return term.NewBoolean(cmp >= 0), nil
	}
}

// evalIn implements IN/NOT IN: any unbound operand (the tested value or any
// list member whose comparison would need it) makes the result false,
// per §4.3.
func evalIn(ctx *Context, e *Expr) (term.Term, error) {
	v, err := Eval(ctx, e.Args[0])
	if err != nil || v.IsUnbound() {
		return term.NewBoolean(false), nil
	}
	found := false
	for _, candidate := range e.Args[1:] {
		cv, err := Eval(ctx, candidate)
		if err != nil {
			continue
		}
		if cv.IsUnbound() {
			return term.NewBoolean(false), nil
		}
		ok, err := term.Equal(v, cv, term.ModeRDFTermEqual)
		if err == nil && ok {
			found = true
			break
		}
	}
	if e.Op == OpIn {
		return term.NewBoolean(found), nil
	}
	return term.NewBoolean(!found), nil
}

// evalUnboundPropagating implements the default rule: read the operand; if
// it's unbound, propagate unbound; otherwise apply fn.
func evalUnboundPropagating(ctx *Context, arg *Expr, fn func(term.Term) (term.Term, error)) (term.Term, error) {
	v, err := Eval(ctx, arg)
	if err != nil {
		return term.Unbound, err
	}
	if v.IsUnbound() {
		return term.Unbound, nil
	}
	return fn(v)
}

func evalTermTest(ctx *Context, arg *Expr, test func(term.Term) bool) (term.Term, error) {
	v, err := Eval(ctx, arg)
	if err != nil {
		return term.Unbound, err
	}
	if v.IsUnbound() {
		return term.Unbound, nil
	}
	return term.NewBoolean(test(v)), nil
}

func evalIf(ctx *Context, e *Expr) (term.Term, error) {
	c, err := Eval(ctx, e.Args[0])
	if err != nil {
		return term.Unbound, err
	}
	var cond bool
	if !c.IsUnbound() {
		cond, err = term.EBV(c)
		if err != nil {
			return term.Unbound, err
		}
	}
	if cond {
		return Eval(ctx, e.Args[1])
	}
	return Eval(ctx, e.Args[2])
}

// evalCoalesce returns the first argument that evaluates without error to
// a defined (non-unbound) value; errors only if every argument errors.
func evalCoalesce(ctx *Context, e *Expr) (term.Term, error) {
	var lastErr error = errf("COALESCE of zero arguments")
	allErr := true
	for _, a := range e.Args {
		v, err := Eval(ctx, a)
		if err != nil {
			lastErr = err
			continue
		}
		if v.IsUnbound() {
			allErr = false
			continue
		}
		return v, nil
	}
	if !allErr {
		return term.Unbound, nil
	}
	return term.Unbound, lastErr
}

func evalExists(ctx *Context, e *Expr, negate bool) (term.Term, error) {
	if e.Inner == nil {
		return term.Unbound, errf("EXISTS with no inner plan bound")
	}
	found, err := e.Inner.HasAnyRow(ctx)
	if err != nil {
		return term.Unbound, err
	}
	if negate {
		found = !found
	}
	return term.NewBoolean(found), nil
}

func evalBNode(ctx *Context, e *Expr) (term.Term, error) {
	if len(e.Args) == 0 {
		return term.NewBlankNode(randomUUID(ctx).String()), nil
	}
	v, err := Eval(ctx, e.Args[0])
	if err != nil {
		return term.Unbound, err
	}
	if v.IsUnbound() {
		return term.Unbound, nil
	}
	return term.NewBlankNode(v.Lexical()), nil
}

func evalStrDT(ctx *Context, e *Expr) (term.Term, error) {
	lex, lerr := Eval(ctx, e.Args[0])
	dt, derr := Eval(ctx, e.Args[1])
	if lerr != nil || derr != nil {
		if lerr != nil {
			return term.Unbound, lerr
		}
		return term.Unbound, derr
	}
	if lex.IsUnbound() || dt.IsUnbound() {
		return term.Unbound, nil
	}
	iri, ok := dt.IRI()
	if !ok {
		return term.Unbound, errf("STRDT() datatype must be an IRI")
	}
	return term.NewLiteral(lex.Lexical(), "", iri), nil
}

func evalStrLang(ctx *Context, e *Expr) (term.Term, error) {
	lex, lerr := Eval(ctx, e.Args[0])
	lang, langErr := Eval(ctx, e.Args[1])
	if lerr != nil {
		return term.Unbound, lerr
	}
	if langErr != nil {
		return term.Unbound, langErr
	}
	if lex.IsUnbound() || lang.IsUnbound() {
		return term.Unbound, nil
	}
	return term.NewLiteral(lex.Lexical(), lang.Lexical(), ""), nil
}

func requireString(t term.Term) (string, error) {
	if t.Kind() != term.KindLiteral {
		return "", errf("expected a string literal, got %s", t.Kind())
	}
	return t.Lexical(), nil
}

func evalStringUnary(ctx *Context, e *Expr) (term.Term, error) {
	v, err := Eval(ctx, e.Args[0])
	if err != nil {
		return term.Unbound, err
	}
	if v.IsUnbound() {
		return term.Unbound, nil
	}
	s, err := requireString(v)
	if err != nil {
		return term.Unbound, err
	}
	switch e.Op {
	case OpStrLen:
		return term.NewLiteral(strconv.Itoa(len([]rune(s))), "", term.XSDInteger), nil
	case OpUCase:
		return reclothe(v, strings.ToUpper(s)), nil
	case OpLCase:
		return reclothe(v, strings.ToLower(s)), nil
	case OpEncodeForURI:
		return term.NewSimpleLiteral(url.QueryEscape(s)), nil
	}
	return term.Unbound, errf("unreachable string unary op")
}

// reclothe rebuilds a literal with a new lexical form but the same
// language/datatype annotation as the original, for functions like UCASE
// that preserve a literal's language tag.
func reclothe(original term.Term, lexical string) term.Term {
	if original.Language() != "" {
		return term.NewLiteral(lexical, original.Language(), "")
	}
	return term.NewLiteral(lexical, "", original.Datatype())
}

func evalStringBoolBinary(ctx *Context, e *Expr) (term.Term, error) {
	a, aerr := Eval(ctx, e.Args[0])
	b, berr := Eval(ctx, e.Args[1])
	if aerr != nil || berr != nil || a.IsUnbound() || b.IsUnbound() {
		return term.NewBoolean(false), nil
	}
	as, err := requireString(a)
	if err != nil {
		return term.Unbound, err
	}
	bs, err := requireString(b)
	if err != nil {
		return term.Unbound, err
	}
	switch e.Op {
	case OpStrStarts:
		return term.NewBoolean(strings.HasPrefix(as, bs)), nil
	case OpStrEnds:
		return term.NewBoolean(strings.HasSuffix(as, bs)), nil
	default: // OpContains
		return term.NewBoolean(strings.Contains(as, bs)), nil
	}
}

func evalSubstr(ctx *Context, e *Expr) (term.Term, error) {
	v, err := Eval(ctx, e.Args[0])
	if err != nil {
		return term.Unbound, err
	}
	if v.IsUnbound() {
		return term.Unbound, nil
	}
	s, err := requireString(v)
	if err != nil {
		return term.Unbound, err
	}
	runes := []rune(s)

	startT, err := Eval(ctx, e.Args[1])
	if err != nil {
		return term.Unbound, err
	}
	startF, _ := xqueryFloat(startT)
	start := int(math.Round(startF)) - 1
	length := len(runes) - start
	if len(e.Args) > 2 {
		lenT, err := Eval(ctx, e.Args[2])
		if err != nil {
			return term.Unbound, err
		}
		lf, _ := xqueryFloat(lenT)
		length = int(math.Round(lf))
	}
	if start < 0 {
		length += start
		start = 0
	}
	if start > len(runes) {
		start = len(runes)
	}
	end := start + length
	if end < start {
		end = start
	}
	if end > len(runes) {
		end = len(runes)
	}
	return reclothe(v, string(runes[start:end])), nil
}

func xqueryFloat(t term.Term) (float64, error) {
	f, err := strconv.ParseFloat(t.Lexical(), 64)
	if err != nil {
		return 0, errf("expected a numeric literal: %v", err)
	}
	return f, nil
}

func evalConcat(ctx *Context, e *Expr) (term.Term, error) {
	var b strings.Builder
	for _, a := range e.Args {
		v, err := Eval(ctx, a)
		if err != nil {
			return term.Unbound, err
		}
		if v.IsUnbound() {
			return term.Unbound, nil
		}
		s, err := requireString(v)
		if err != nil {
			return term.Unbound, err
		}
		b.WriteString(s)
	}
	return term.NewSimpleLiteral(b.String()), nil
}

func evalStrBeforeAfter(ctx *Context, e *Expr) (term.Term, error) {
	a, aerr := Eval(ctx, e.Args[0])
	b, berr := Eval(ctx, e.Args[1])
	if aerr != nil {
		return term.Unbound, aerr
	}
	if berr != nil {
		return term.Unbound, berr
	}
	if a.IsUnbound() || b.IsUnbound() {
		return term.Unbound, nil
	}
	as, err := requireString(a)
	if err != nil {
		return term.Unbound, err
	}
	bs, err := requireString(b)
	if err != nil {
		return term.Unbound, err
	}
	idx := strings.Index(as, bs)
	if idx < 0 {
		return term.NewSimpleLiteral(""), nil
	}
	if e.Op == OpStrBefore {
		return reclothe(a, as[:idx]), nil
	}
	return reclothe(a, as[idx+len(bs):]), nil
}

func evalLangMatches(ctx *Context, e *Expr) (term.Term, error) {
	a, aerr := Eval(ctx, e.Args[0])
	b, berr := Eval(ctx, e.Args[1])
	if aerr != nil || berr != nil || a.IsUnbound() || b.IsUnbound() {
		return term.NewBoolean(false), nil
	}
	lang := strings.ToLower(a.Lexical())
	pattern := strings.ToLower(b.Lexical())
	if pattern == "*" {
		return term.NewBoolean(lang != ""), nil
	}
	return term.NewBoolean(lang == pattern || strings.HasPrefix(lang, pattern+"-")), nil
}

func evalRegex(ctx *Context, e *Expr) (term.Term, error) {
	v, verr := Eval(ctx, e.Args[0])
	p, perr := Eval(ctx, e.Args[1])
	if verr != nil || perr != nil || v.IsUnbound() || p.IsUnbound() {
		return term.NewBoolean(false), nil
	}
	flags := ""
	if len(e.Args) > 2 {
		f, err := Eval(ctx, e.Args[2])
		if err == nil && !f.IsUnbound() {
			flags = f.Lexical()
		}
	}
	m, err := regex.Compile(p.Lexical(), flags)
	if err != nil {
		return term.Unbound, errf("REGEX: %v", err)
	}
	return term.NewBoolean(m.MatchString(v.Lexical())), nil
}

func evalReplace(ctx *Context, e *Expr) (term.Term, error) {
	v, err := Eval(ctx, e.Args[0])
	if err != nil {
		return term.Unbound, err
	}
	if v.IsUnbound() {
		return term.Unbound, nil
	}
	p, err := Eval(ctx, e.Args[1])
	if err != nil {
		return term.Unbound, err
	}
	repl, err := Eval(ctx, e.Args[2])
	if err != nil {
		return term.Unbound, err
	}
	flags := ""
	if len(e.Args) > 3 {
		f, err := Eval(ctx, e.Args[3])
		if err == nil && !f.IsUnbound() {
			flags = f.Lexical()
		}
	}
	m, err := regex.Compile(p.Lexical(), flags)
	if err != nil {
		return term.Unbound, errf("REPLACE: %v", err)
	}
	out := m.ReplaceAllString(v.Lexical(), convertBackrefs(repl.Lexical()))
	return reclothe(v, out), nil
}

// convertBackrefs turns XPath-style "$1" backreferences into Go regexp's
// "${1}" syntax.
func convertBackrefs(repl string) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		if repl[i] == '$' && i+1 < len(repl) && repl[i+1] >= '0' && repl[i+1] <= '9' {
			j := i + 1
			for j < len(repl) && repl[j] >= '0' && repl[j] <= '9' {
				j++
			}
			b.WriteString("${" + repl[i+1:j] + "}")
			i = j - 1
			continue
		}
		b.WriteByte(repl[i])
	}
	return b.String()
}

func evalNumericUnary(ctx *Context, e *Expr) (term.Term, error) {
	v, err := Eval(ctx, e.Args[0])
	if err != nil {
		return term.Unbound, err
	}
	if v.IsUnbound() {
		return term.Unbound, nil
	}
	if !v.IsNumeric() {
		return term.Unbound, errf("numeric function on non-numeric term")
	}
	f, err := xqueryFloat(v)
	if err != nil {
		return term.Unbound, err
	}
	var result float64
	switch e.Op {
	case OpAbs:
		result = math.Abs(f)
	case OpCeil:
		result = math.Ceil(f)
	case OpFloor:
		result = math.Floor(f)
	case OpRound:
		result = math.Floor(f + 0.5)
	}
	if v.Datatype() == term.XSDInteger {
		return term.NewLiteral(strconv.FormatInt(int64(result), 10), "", term.XSDInteger), nil
	}
	return term.NewLiteral(strconv.FormatFloat(result, 'g', -1, 64), "", v.Datatype()), nil
}

func evalDateTimePart(ctx *Context, e *Expr) (term.Term, error) {
	v, err := Eval(ctx, e.Args[0])
	if err != nil {
		return term.Unbound, err
	}
	if v.IsUnbound() {
		return term.Unbound, nil
	}
	t, ok := parseDateTimeLexical(v.Lexical())
	if !ok {
		return term.Unbound, errf("expected a dateTime literal")
	}
	switch e.Op {
	case OpYear:
		return term.NewLiteral(strconv.Itoa(t.Year()), "", term.XSDInteger), nil
	case OpMonth:
		return term.NewLiteral(strconv.Itoa(int(t.Month())), "", term.XSDInteger), nil
	case OpDay:
		return term.NewLiteral(strconv.Itoa(t.Day()), "", term.XSDInteger), nil
	case OpHours:
		return term.NewLiteral(strconv.Itoa(t.Hour()), "", term.XSDInteger), nil
	case OpMinutes:
		return term.NewLiteral(strconv.Itoa(t.Minute()), "", term.XSDInteger), nil
	case OpSeconds:
		return term.NewLiteral(strconv.Itoa(t.Second()), "", term.XSDDecimal), nil
	case OpTimezone:
		_, off := t.Zone()
		return term.NewLiteral(formatXSDDuration(off), "", "http://www.w3.org/2001/XMLSchema#dayTimeDuration"), nil
	default: // OpTZ
		_, off := t.Zone()
		if off == 0 {
			return term.NewSimpleLiteral("Z"), nil
		}
		sign := "+"
		if off < 0 {
			sign = "-"
			off = -off
		}
		return term.NewSimpleLiteral(fmt.Sprintf("%s%02d:%02d", sign, off/3600, (off%3600)/60)), nil
	}
}

func formatXSDDuration(offsetSeconds int) string {
	if offsetSeconds == 0 {
		return "PT0S"
	}
	sign := ""
	if offsetSeconds < 0 {
		sign = "-"
		offsetSeconds = -offsetSeconds
	}
	h := offsetSeconds / 3600
	m := (offsetSeconds % 3600) / 60
	return fmt.Sprintf("%sPT%dH%dM", sign, h, m)
}

func evalDigest(ctx *Context, e *Expr) (term.Term, error) {
	v, err := Eval(ctx, e.Args[0])
	if err != nil {
		return term.Unbound, err
	}
	if v.IsUnbound() {
		return term.Unbound, nil
	}
	s, err := requireString(v)
	if err != nil {
		return term.Unbound, err
	}
	var sum []byte
	switch e.Op {
	case OpMD5:
		h := md5.Sum([]byte(s))
		sum = h[:]
	case OpSHA1:
		h := sha1.Sum([]byte(s))
		sum = h[:]
	case OpSHA224:
		h := sha256.Sum224([]byte(s))
		sum = h[:]
	case OpSHA256:
		h := sha256.Sum256([]byte(s))
		sum = h[:]
	case OpSHA384:
		h := sha512.Sum384([]byte(s))
		sum = h[:]
	case OpSHA512:
		h := sha512.Sum512([]byte(s))
		sum = h[:]
	}
	return term.NewSimpleLiteral(hex.EncodeToString(sum)), nil
}

// numericRank orders the SPARQL numeric promotion ladder integer < decimal
// < float < double (§4.1); -1 means "not one of the fast-path numerics".
func numericRank(datatype string) int {
	switch datatype {
	case term.XSDInteger:
		return 0
	case term.XSDDecimal:
		return 1
	case term.XSDFloat:
		return 2
	case term.XSDDouble:
		return 3
	default:
		return -1
	}
}

// promotedDatatype returns the wider of two numeric datatypes under the
// promotion ladder.
func promotedDatatype(a, b string) string {
	if numericRank(a) >= numericRank(b) {
		return a
	}
	return b
}

// evalArithmetic implements unary +/- and binary +,-,*,/ over numeric
// operands, type-promoting to the wider of the two datatypes. Per §4.3,
// a non-numeric operand (including unbound) makes the whole expression the
// error arm, not unbound — arithmetic does not participate in the
// unbound-propagation rule the way string/term functions do.
func evalArithmetic(ctx *Context, e *Expr) (term.Term, error) {
	if e.Op == OpUPlus || e.Op == OpUMinus {
		v, err := Eval(ctx, e.Args[0])
		if err != nil {
			return term.Unbound, err
		}
		if v.IsUnbound() || !v.IsNumeric() {
			return term.Unbound, errf("arithmetic on a non-numeric operand")
		}
		f, err := xqueryFloat(v)
		if err != nil {
			return term.Unbound, err
		}
		if e.Op == OpUMinus {
			f = -f
		}
		return formatNumeric(f, v.Datatype()), nil
	}

	a, aerr := Eval(ctx, e.Args[0])
	if aerr != nil {
		return term.Unbound, aerr
	}
	b, berr := Eval(ctx, e.Args[1])
	if berr != nil {
		return term.Unbound, berr
	}
	if a.IsUnbound() || b.IsUnbound() || !a.IsNumeric() || !b.IsNumeric() {
		return term.Unbound, errf("arithmetic on a non-numeric operand")
	}
	af, err := xqueryFloat(a)
	if err != nil {
		return term.Unbound, err
	}
	bf, err := xqueryFloat(b)
	if err != nil {
		return term.Unbound, err
	}
	dt := promotedDatatype(a.Datatype(), b.Datatype())

	var result float64
	switch e.Op {
	case OpPlus:
		result = af + bf
	case OpMinus:
		result = af - bf
	case OpStar:
		result = af * bf
	case OpSlash:
		if bf == 0 {
			if dt == term.XSDInteger || dt == term.XSDDecimal {
				return term.Unbound, errf("division by zero")
			}
			// float/double division by zero follows IEEE 754 (Inf/NaN), per
			// XPath's op:numeric-divide for those types.
			dt = term.XSDDouble
		}
		result = af / bf
		if dt == term.XSDInteger {
			dt = term.XSDDecimal
		}
	case OpRem:
		if bf == 0 {
			return term.Unbound, errf("modulo by zero")
		}
		result = math.Mod(af, bf)
	}
	return formatNumeric(result, dt), nil
}

func formatNumeric(f float64, datatype string) term.Term {
	if datatype == term.XSDInteger && f == math.Trunc(f) {
		return term.NewLiteral(strconv.FormatInt(int64(f), 10), "", term.XSDInteger)
	}
	return term.NewLiteral(strconv.FormatFloat(f, 'g', -1, 64), "", datatype)
}

// parseDateTimeLexical parses an xsd:dateTime (or plain date) lexical form
// into a time.Time, trying the common RFC3339-ish encodings producers in
// this codebase emit.
func parseDateTimeLexical(lexical string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, lexical); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// randomUUID draws 16 bytes from ctx's PRNG (not a global source, so query
// determinism — spec §8 property 1 — holds under a fixed RAND_SEED even
// for UUID()/STRUUID()) and sets the RFC 4122 version-4/variant bits.
func randomUUID(ctx *Context) uuid.UUID {
	var b [16]byte
	ctx.Rand.Read(b[:])
	b[6] = (b[6] & 0x0F) | 0x40
	b[8] = (b[8] & 0x3F) | 0x80
	id, _ := uuid.FromBytes(b[:])
	return id
}
