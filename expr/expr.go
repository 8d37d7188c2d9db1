// Package expr implements the SPARQL expression evaluator of spec §4.3:
// a recursive evaluator over a small expression-tree vocabulary, with
// three-valued logic (term | unbound | error) and SPARQL's exact
// propagation rules for each operator.
package expr

import (
	"math/rand"
	"time"

	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// Op enumerates the expression operators named in spec §4.3.
type Op int

const (
	OpAnd Op = iota
	OpOr
	OpNot
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
	OpSameTerm
	OpIn
	OpNotIn
	OpUPlus
	OpUMinus
	OpPlus
	OpMinus
	OpStar
	OpSlash
	OpRem
	OpBound
	OpIsIRI
	OpIsBlank
	OpIsLiteral
	OpIsNumeric
	OpStr
	OpLang
	OpDatatype
	OpIRI
	OpBNode
	OpStrDT
	OpStrLang
	OpStrLen
	OpUCase
	OpLCase
	OpStrStarts
	OpStrEnds
	OpContains
	OpSubstr
	OpConcat
	OpStrBefore
	OpStrAfter
	OpEncodeForURI
	OpLangMatches
	OpRegex
	OpReplace
	OpAbs
	OpCeil
	OpFloor
	OpRound
	OpRand
	OpNow
	OpYear
	OpMonth
	OpDay
	OpHours
	OpMinutes
	OpSeconds
	OpTimezone
	OpTZ
	OpMD5
	OpSHA1
	OpSHA224
	OpSHA256
	OpSHA384
	OpSHA512
	OpUUID
	OpStrUUID
	OpIf
	OpCoalesce
	OpExists
	OpNotExists
	OpLiteral
	OpVariable
)

// Expr is an expression-tree node. It implements algebra.Expr (the
// ExprNode marker method) so algebra.Node.Filter/ExtendExpr/OrderKey.Expr
// can hold *Expr values without expr importing algebra.
type Expr struct {
	Op       Op
	Args     []*Expr
	Literal  term.Term
	Variable *scope.Variable
	// Inner is the sub-plan driven by EXISTS/NOT EXISTS, held behind the
	// narrow ExistsRunner interface to avoid an import cycle between expr
	// and rowsource (rowsource already depends on expr to build
	// Filter/Extend rowsources).
	Inner ExistsRunner
}

// ExprNode marks Expr as implementing algebra.Expr.
func (*Expr) ExprNode() {}

// ExistsRunner is the minimal capability EXISTS/NOT EXISTS needs from an
// inner rowsource: run it to the first row (or confirm there is none).
// engine/exec's ExistsBridge implements it; rowsource.RowSource does not,
// since its own HasAnyRow takes an *engine.Context. Keeping the dependency
// this narrow is what lets expr avoid importing rowsource.
type ExistsRunner interface {
	HasAnyRow(ctx *Context) (bool, error)
}

// Leaf constructors.

func Lit(t term.Term) *Expr               { return &Expr{Op: OpLiteral, Literal: t} }
func VarRef(v *scope.Variable) *Expr      { return &Expr{Op: OpVariable, Variable: v} }
func unary(op Op, a *Expr) *Expr          { return &Expr{Op: op, Args: []*Expr{a}} }
func binary(op Op, a, b *Expr) *Expr      { return &Expr{Op: op, Args: []*Expr{a, b}} }
func nary(op Op, args ...*Expr) *Expr     { return &Expr{Op: op, Args: args} }

func And(a, b *Expr) *Expr      { return binary(OpAnd, a, b) }
func Or(a, b *Expr) *Expr       { return binary(OpOr, a, b) }
func Not(a *Expr) *Expr         { return unary(OpNot, a) }
func Eq(a, b *Expr) *Expr       { return binary(OpEq, a, b) }
func Neq(a, b *Expr) *Expr      { return binary(OpNeq, a, b) }
func Lt(a, b *Expr) *Expr       { return binary(OpLt, a, b) }
func Le(a, b *Expr) *Expr       { return binary(OpLe, a, b) }
func Gt(a, b *Expr) *Expr       { return binary(OpGt, a, b) }
func Ge(a, b *Expr) *Expr       { return binary(OpGe, a, b) }
func SameTerm(a, b *Expr) *Expr { return binary(OpSameTerm, a, b) }
func In(a *Expr, list ...*Expr) *Expr {
	return &Expr{Op: OpIn, Args: append([]*Expr{a}, list...)}
}
func NotIn(a *Expr, list ...*Expr) *Expr {
	return &Expr{Op: OpNotIn, Args: append([]*Expr{a}, list...)}
}
func UPlus(a *Expr) *Expr  { return unary(OpUPlus, a) }
func UMinus(a *Expr) *Expr { return unary(OpUMinus, a) }
func Plus(a, b *Expr) *Expr  { return binary(OpPlus, a, b) }
func Minus(a, b *Expr) *Expr { return binary(OpMinus, a, b) }
func Star(a, b *Expr) *Expr  { return binary(OpStar, a, b) }
func Slash(a, b *Expr) *Expr { return binary(OpSlash, a, b) }
func Rem(a, b *Expr) *Expr   { return binary(OpRem, a, b) }
func Bound(a *Expr) *Expr      { return unary(OpBound, a) }
func IsIRI(a *Expr) *Expr       { return unary(OpIsIRI, a) }
func IsBlank(a *Expr) *Expr     { return unary(OpIsBlank, a) }
func IsLiteral(a *Expr) *Expr   { return unary(OpIsLiteral, a) }
func IsNumeric(a *Expr) *Expr   { return unary(OpIsNumeric, a) }
func Str(a *Expr) *Expr         { return unary(OpStr, a) }
func Lang(a *Expr) *Expr        { return unary(OpLang, a) }
func Datatype(a *Expr) *Expr    { return unary(OpDatatype, a) }
func IRI(a *Expr) *Expr         { return unary(OpIRI, a) }
func BNode(args ...*Expr) *Expr { return &Expr{Op: OpBNode, Args: args} }
func StrDT(a, b *Expr) *Expr    { return binary(OpStrDT, a, b) }
func StrLang(a, b *Expr) *Expr  { return binary(OpStrLang, a, b) }
func StrLen(a *Expr) *Expr      { return unary(OpStrLen, a) }
func UCase(a *Expr) *Expr       { return unary(OpUCase, a) }
func LCase(a *Expr) *Expr       { return unary(OpLCase, a) }
func StrStarts(a, b *Expr) *Expr { return binary(OpStrStarts, a, b) }
func StrEnds(a, b *Expr) *Expr   { return binary(OpStrEnds, a, b) }
func Contains(a, b *Expr) *Expr  { return binary(OpContains, a, b) }
func Substr(args ...*Expr) *Expr { return nary(OpSubstr, args...) }
func Concat(args ...*Expr) *Expr { return nary(OpConcat, args...) }
func StrBefore(a, b *Expr) *Expr { return binary(OpStrBefore, a, b) }
func StrAfter(a, b *Expr) *Expr  { return binary(OpStrAfter, a, b) }
func EncodeForURI(a *Expr) *Expr { return unary(OpEncodeForURI, a) }
func LangMatches(a, b *Expr) *Expr { return binary(OpLangMatches, a, b) }
func Regex(args ...*Expr) *Expr    { return nary(OpRegex, args...) }
func Replace(args ...*Expr) *Expr  { return nary(OpReplace, args...) }
func Abs(a *Expr) *Expr   { return unary(OpAbs, a) }
func Ceil(a *Expr) *Expr  { return unary(OpCeil, a) }
func Floor(a *Expr) *Expr { return unary(OpFloor, a) }
func Round(a *Expr) *Expr { return unary(OpRound, a) }
func Rand() *Expr         { return &Expr{Op: OpRand} }
func Now() *Expr          { return &Expr{Op: OpNow} }
func Year(a *Expr) *Expr     { return unary(OpYear, a) }
func Month(a *Expr) *Expr    { return unary(OpMonth, a) }
func Day(a *Expr) *Expr      { return unary(OpDay, a) }
func Hours(a *Expr) *Expr    { return unary(OpHours, a) }
func Minutes(a *Expr) *Expr  { return unary(OpMinutes, a) }
func Seconds(a *Expr) *Expr  { return unary(OpSeconds, a) }
func Timezone(a *Expr) *Expr { return unary(OpTimezone, a) }
func TZ(a *Expr) *Expr       { return unary(OpTZ, a) }
func MD5(a *Expr) *Expr    { return unary(OpMD5, a) }
func SHA1(a *Expr) *Expr   { return unary(OpSHA1, a) }
func SHA224(a *Expr) *Expr { return unary(OpSHA224, a) }
func SHA256(a *Expr) *Expr { return unary(OpSHA256, a) }
func SHA384(a *Expr) *Expr { return unary(OpSHA384, a) }
func SHA512(a *Expr) *Expr { return unary(OpSHA512, a) }
func UUID() *Expr    { return &Expr{Op: OpUUID} }
func StrUUID() *Expr { return &Expr{Op: OpStrUUID} }
func If(c, t, e *Expr) *Expr         { return &Expr{Op: OpIf, Args: []*Expr{c, t, e}} }
func Coalesce(args ...*Expr) *Expr   { return nary(OpCoalesce, args...) }
func Exists(inner ExistsRunner) *Expr    { return &Expr{Op: OpExists, Inner: inner} }
func NotExists(inner ExistsRunner) *Expr { return &Expr{Op: OpNotExists, Inner: inner} }

// Walk calls visit on e and recursively on every argument, depth-first,
// pre-order. EXISTS/NOT EXISTS's Inner is opaque here (it is a separately
// planned rowsource by the time Walk would see it) and is not descended
// into.
func Walk(e *Expr, visit func(*Expr)) {
	if e == nil {
		return
	}
	visit(e)
	for _, a := range e.Args {
		Walk(a, visit)
	}
}

// Vars returns the distinct variables e references, in first-occurrence
// order, used by package correlate to build the correlation set of spec
// §4.8.
func Vars(e *Expr) []*scope.Variable {
	var out []*scope.Variable
	seen := map[*scope.Variable]bool{}
	Walk(e, func(n *Expr) {
		if n.Op == OpVariable && n.Variable != nil && !seen[n.Variable] {
			seen[n.Variable] = true
			out = append(out, n.Variable)
		}
	})
	return out
}

// Context is the evaluation context of spec §4.3: the current row's
// variables table (for variable lookup), a PRNG seeded once per query, a
// "now" instant frozen at query start, and evaluation flags.
type Context struct {
	Row   *scope.Row
	Table *scope.Table
	Rand  *rand.Rand
	Now   time.Time
	NoNet bool // corresponds to the NO_NET environment flag, spec §6
	// Engine is the query's engine.Context, carried here only so an
	// ExistsRunner bridge (rowsource package) can drive its inner
	// RowSource's Init/ReadRow/Finish when EXISTS/NOT EXISTS is evaluated.
	// Eval itself never touches this field.
	Engine *engine.Context
}

// NewContext builds an evaluation context. seed == 0 means "seed from
// time.Now()", matching spec §6's RAND_SEED default.
func NewContext(row *scope.Row, table *scope.Table, seed int64) *Context {
	now := time.Now()
	if seed == 0 {
		seed = now.UnixNano()
	}
	return &Context{
		Row:   row,
		Table: table,
		Rand:  rand.New(rand.NewSource(seed)),
		Now:   now.UTC(),
	}
}
