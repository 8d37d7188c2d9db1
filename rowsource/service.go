package rowsource

import (
	"io"

	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/engine/errs"
	"github.com/sparqlgo/engine/scope"
)

// Service implements spec §4.5's Service node. Federated SERVICE execution
// is explicitly a stub (SPEC_FULL.md's non-goals carry forward "no query
// federation beyond a stub SERVICE iterator"): there is no wired HTTP
// client to actually dispatch the sub-query to a remote endpoint. Every
// evaluation fails with errs.ErrEvalRuntime; SilentOnErr (SPARQL's SERVICE
// SILENT) converts that failure into zero rows instead of propagating it,
// same as a real endpoint timing out.
type Service struct {
	IRI         string
	IRIVar      *scope.Variable
	HasVarIRI   bool
	SilentOnErr bool
	Child       RowSource

	table  *scope.Table
	failed error
}

func NewService(iri string, hasVarIRI bool, iriVar *scope.Variable, silent bool, child RowSource) *Service {
	return &Service{IRI: iri, IRIVar: iriVar, HasVarIRI: hasVarIRI, SilentOnErr: silent, Child: child}
}

func (s *Service) EnsureVariables() *scope.Table {
	if s.table == nil {
		s.table = s.Child.EnsureVariables()
	}
	return s.table
}

func (s *Service) Init(ctx *engine.Context) error {
	s.table = s.Child.EnsureVariables()
	s.failed = errs.ErrEvalRuntime.New("SERVICE is a stub: no federated endpoint is wired")
	return nil
}

func (s *Service) Finish(ctx *engine.Context) error { return nil }

func (s *Service) ReadRow(ctx *engine.Context) (*Row, error) {
	if s.SilentOnErr {
		return nil, io.EOF
	}
	return nil, s.failed
}

func (s *Service) HasAnyRow(ctx *engine.Context) (bool, error) {
	if s.SilentOnErr {
		return false, nil
	}
	return false, s.failed
}
