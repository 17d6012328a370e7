// Package formula is the engine's external formula collaborator: it
// compiles cell formula text and evaluates it against a sheet,
// exposing only Parse, Evaluate, Expression, and ReferencedCells. The
// engine package treats a *Handle as opaque.
//
// Rather than hand-writing a lexer and parser, formula compiles
// expressions with github.com/expr-lang/expr: a cell reference like
// A1 is just an undefined identifier as far as expr is concerned, and
// expr.AllowUndefinedVariables lets the compiled program carry it as
// an unresolved constant we can both enumerate (ReferencedCells) and
// supply at evaluation time (Evaluate).
package formula

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/sheetkit/engine/internal/cellvalue"
	"github.com/sheetkit/engine/position"
)

// cellReferenceShape matches the bare A1-style token grammar (letters
// then digits) regardless of range, so an out-of-range reference like
// A99999 can be told apart from an ordinary unresolved identifier.
var cellReferenceShape = regexp.MustCompile(`^[A-Z]+[0-9]+$`)

// SheetView is the read-only capability a formula needs from the
// sheet during evaluation. The engine's Sheet implements it; formula
// never imports the engine package, avoiding an import cycle between
// "the cell that owns a Handle" and "the Handle that evaluates against
// the sheet owning it".
type SheetView interface {
	GetCell(pos position.Position) (CellView, bool)
	PrintableSize() (rows, cols int)
}

// CellView exposes just enough of a cell for formula evaluation: its
// projected value. view is threaded through so a referenced cell that
// is itself a formula can recursively evaluate (and cache) its own
// result, rather than this package needing its own notion of "the
// sheet" beyond SheetView.
type CellView interface {
	Value(view SheetView) cellvalue.Value
}

// Handle is an opaque, parsed formula.
type Handle struct {
	expression string // canonicalized source, without the leading '='
	program    *vm.Program
	refs       []position.Position // sorted, unique
}

var compileOptions = []expr.Option{
	expr.Env(map[string]any{}),
	expr.AllowUndefinedVariables(),
	expr.Optimize(false),
	expr.DisableAllBuiltins(),
	sumFunction,
	averageFunction,
	minFunction,
	maxFunction,
	countFunction,
}

// Parse compiles formula text (with the leading '=' already stripped
// by the caller) into a Handle. A syntactically invalid expression, or
// one that references a position outside the addressable grid, is
// returned as an error, which the engine surfaces as FormulaSyntax.
func Parse(text string) (*Handle, error) {
	canon := Canonicalize(text)

	program, err := expr.Compile(canon, compileOptions...)
	if err != nil {
		return nil, fmt.Errorf("formula: %w", err)
	}
	if err := rejectOutOfRangeReferences(program); err != nil {
		return nil, err
	}

	return &Handle{
		expression: canon,
		program:    program,
		refs:       referencedCells(program),
	}, nil
}

// rejectOutOfRangeReferences fails a formula that mentions a token
// shaped like a cell reference (letters then digits) but outside
// [0, MaxRows) x [0, MaxCols), e.g. A99999. Left unchecked, such a
// token would just be an ordinary unresolved identifier to expr,
// silently reading as zero or surfacing as #VALUE!, when an
// out-of-range reference should be rejected outright.
func rejectOutOfRangeReferences(program *vm.Program) error {
	for _, c := range program.Constants {
		name, ok := c.(string)
		if !ok || !cellReferenceShape.MatchString(name) {
			continue
		}
		if _, ok := position.FromString(name); !ok {
			return fmt.Errorf("formula: cell reference %q is out of range", name)
		}
	}
	return nil
}

// Expression returns the normalized formula text, without the leading
// '=' (the engine's Cell prepends that).
func (h *Handle) Expression() string {
	return h.expression
}

// ReferencedCells returns the sorted, unique positions the formula
// mentions.
func (h *Handle) ReferencedCells() []position.Position {
	return h.refs
}

// Evaluate runs the formula against view. Every referenced cell is
// resolved to a numeric operand first: an absent cell reads as zero,
// an out-of-range reference is #REF!, and a non-numeric cell value is
// #VALUE!. A reference that resolves to such an error is handed to the
// program as that error Value instead of a number, so COUNT can skip
// it; if the program then fails or yields a non-number, the result is
// the error of the first such reference in ReferencedCells order.
func (h *Handle) Evaluate(view SheetView) cellvalue.Value {
	vars := make(map[string]any, len(h.refs))
	var firstErr *cellvalue.ErrorKind
	for _, ref := range h.refs {
		n, errKind := resolveOperand(view, ref)
		if errKind != nil {
			if firstErr == nil {
				firstErr = errKind
			}
			vars[ref.String()] = cellvalue.Err(*errKind)
			continue
		}
		vars[ref.String()] = n
	}

	out, err := expr.Run(h.program, vars)
	if err != nil {
		if firstErr != nil {
			return cellvalue.Err(*firstErr)
		}
		return cellvalue.Err(classifyRuntimeError(err))
	}

	switch n := out.(type) {
	case float64:
		// expr's runtime.Divide works in float64 and never errors on a
		// zero divisor: 1/0 is +Inf, 0/0 is NaN, -1/0 is -Inf. None of
		// those is a legal Cell Value, so they are the signal that a
		// division by zero happened, not a genuine numeric result.
		if math.IsInf(n, 0) || math.IsNaN(n) {
			return cellvalue.Err(cellvalue.ErrDiv0)
		}
		return cellvalue.Number(n)
	case int:
		return cellvalue.Number(float64(n))
	case bool:
		if n {
			return cellvalue.Number(1)
		}
		return cellvalue.Number(0)
	default:
		if firstErr != nil {
			return cellvalue.Err(*firstErr)
		}
		return cellvalue.Err(cellvalue.ErrValue)
	}
}

func resolveOperand(view SheetView, ref position.Position) (float64, *cellvalue.ErrorKind) {
	if !ref.IsValid() {
		e := cellvalue.ErrRef
		return 0, &e
	}
	cell, ok := view.GetCell(ref)
	if !ok {
		return 0, nil // an absent referenced cell reads as zero
	}
	return cell.Value(view).AsNumber()
}

func classifyRuntimeError(err error) cellvalue.ErrorKind {
	if strings.Contains(err.Error(), "division by zero") {
		return cellvalue.ErrDiv0
	}
	return cellvalue.ErrValue
}

// referencedCells recovers the cell references a compiled program
// depends on: expr surfaces every identifier AllowUndefinedVariables
// could not resolve against Env as a string constant in the bytecode.
// Anything that isn't a well-formed A1-style position (an unregistered
// function name, a stray identifier) is not a cell reference and is
// ignored here; it surfaces as #VALUE! at evaluation time instead,
// since it has no entry in Evaluate's vars map.
func referencedCells(program *vm.Program) []position.Position {
	seen := make(map[position.Position]struct{})
	for _, c := range program.Constants {
		name, ok := c.(string)
		if !ok {
			continue
		}
		pos, ok := position.FromString(name)
		if !ok {
			continue
		}
		seen[pos] = struct{}{}
	}

	refs := make([]position.Position, 0, len(seen))
	for p := range seen {
		refs = append(refs, p)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Row != refs[j].Row {
			return refs[i].Row < refs[j].Row
		}
		return refs[i].Col < refs[j].Col
	})
	return refs
}
