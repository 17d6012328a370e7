// Package engine implements a dependency-aware spreadsheet: a sparse
// grid of cells whose formulas are parsed and evaluated by the
// formula package, with cycle detection on every edit and transitive
// cache invalidation on every change that could affect a dependent
// cell.
package engine

import (
	"github.com/sheetkit/engine/formula"
	"github.com/sheetkit/engine/internal/cellvalue"
	"github.com/sheetkit/engine/internal/depgraph"
	"github.com/sheetkit/engine/internal/grid"
	"github.com/sheetkit/engine/position"
)

// Sheet is the engine's single unit of state: a Grid of cells plus the
// DependencyGraph tracking which formulas reference which positions.
// Sheet exclusively owns every Cell it stores; a Cell's only path back
// to the sheet is the formula.SheetView handed to it at evaluation
// time, never a stored back-reference.
type Sheet struct {
	cells *grid.Grid[*Cell]
	graph *depgraph.Graph
}

// New creates an empty Sheet.
func New() *Sheet {
	return &Sheet{
		cells: grid.New[*Cell](),
		graph: depgraph.New(),
	}
}

// view returns the formula.SheetView this Sheet presents to formula
// evaluation. It exists only because formula.SheetView.GetCell and
// Sheet's own public GetCell disagree on return shape (CellView,bool
// vs *Cell,error); the underlying lookup is identical.
func (s *Sheet) view() formula.SheetView {
	return sheetView{s}
}

type sheetView struct{ sheet *Sheet }

func (v sheetView) GetCell(pos position.Position) (formula.CellView, bool) {
	c, ok, _ := v.sheet.lookup(pos)
	if !ok {
		return nil, false
	}
	return c, true
}

func (v sheetView) PrintableSize() (rows, cols int) {
	return v.sheet.PrintableSize()
}

// lookup is the validated core both GetCell and the formula.SheetView
// adapter build on: it fails only with InvalidPosition for an
// out-of-range pos, and reports an absent cell as ok == false.
func (s *Sheet) lookup(pos position.Position) (*Cell, bool, error) {
	if !pos.IsValid() {
		return nil, false, newError(InvalidPosition, "position %s is out of range", pos)
	}
	c, ok, _ := s.cells.Get(pos)
	return c, ok, nil
}

// GetCell returns the cell at pos, or nil if the position holds no
// cell. It fails only on an out-of-range position.
func (s *Sheet) GetCell(pos position.Position) (*Cell, error) {
	c, _, err := s.lookup(pos)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SetCell parses text and installs it at pos, replacing whatever was
// there. The edit is atomic from the caller's perspective: a
// FormulaSyntax or CircularDependency failure leaves the sheet bit-
// identical to its pre-call state.
func (s *Sheet) SetCell(pos position.Position, text string) error {
	if !pos.IsValid() {
		return newError(InvalidPosition, "position %s is out of range", pos)
	}

	candidate, err := newCell(text)
	if err != nil {
		return newError(FormulaSyntax, "%v", err)
	}

	oldRefs := s.referencedCellsAt(pos)
	newRefs := candidate.GetReferencedCells()
	refsAdd, refsDel := diffRefs(oldRefs, newRefs)

	for _, r := range refsAdd {
		if s.wouldCycle(pos, r, refsDel) {
			return newError(CircularDependency, "setting %s would create a circular reference through %s", pos, r)
		}
	}

	for _, r := range newRefs {
		if _, ok, _ := s.lookup(r); !ok {
			if err := s.SetCell(r, ""); err != nil {
				return err
			}
		}
	}

	for _, r := range refsAdd {
		s.graph.AddEdge(r, pos)
	}
	for _, r := range refsDel {
		s.graph.RemoveEdge(r, pos)
	}

	cell := candidate
	s.cells.Set(pos, &cell)

	s.invalidateCacheTransitive(pos)
	return nil
}

// ClearCell removes whatever is at pos. Clearing an absent position is
// a no-op. Every referrer of pos has its cache invalidated, so
// re-reading one re-evaluates its formula against the now-empty pos,
// per the absent-cell-reads-as-zero convention.
func (s *Sheet) ClearCell(pos position.Position) error {
	if !pos.IsValid() {
		return newError(InvalidPosition, "position %s is out of range", pos)
	}

	c, ok, _ := s.lookup(pos)
	if !ok {
		return nil
	}

	for _, r := range c.GetReferencedCells() {
		s.graph.RemoveEdge(r, pos)
	}
	_ = s.cells.Clear(pos)

	s.invalidateCacheTransitive(pos)
	return nil
}

// PrintableSize returns the minimal bounding box, top-left (0,0), that
// contains every non-empty cell. An empty Sheet reports (0,0).
func (s *Sheet) PrintableSize() (rows, cols int) {
	sz := s.cells.PrintableSize()
	return sz.Rows, sz.Cols
}

func (s *Sheet) referencedCellsAt(pos position.Position) []position.Position {
	c, ok, _ := s.lookup(pos)
	if !ok {
		return nil
	}
	return c.GetReferencedCells()
}

func diffRefs(oldRefs, newRefs []position.Position) (add, del []position.Position) {
	oldSet := make(map[position.Position]struct{}, len(oldRefs))
	for _, r := range oldRefs {
		oldSet[r] = struct{}{}
	}
	newSet := make(map[position.Position]struct{}, len(newRefs))
	for _, r := range newRefs {
		newSet[r] = struct{}{}
	}
	for r := range newSet {
		if _, ok := oldSet[r]; !ok {
			add = append(add, r)
		}
	}
	for r := range oldSet {
		if _, ok := newSet[r]; !ok {
			del = append(del, r)
		}
	}
	return add, del
}

// wouldCycle asks: if pos were to additionally refer to refAdd, and no
// longer refer to any position in refsDel, would a cycle be reachable
// from pos? That is the case exactly when refAdd already refers to pos,
// directly or transitively. It walks refs_from depth-first from pos,
// over every cell that refers to pos, and reports true the moment it
// reaches refAdd; an edge from a position in refsDel to pos is skipped.
//
// A formula that refers to its own cell is always a cycle, seeded or
// not, so that case short-circuits before the walk starts.
func (s *Sheet) wouldCycle(pos, refAdd position.Position, refsDel []position.Position) bool {
	if refAdd == pos {
		return true
	}

	delSet := make(map[position.Position]struct{}, len(refsDel))
	for _, r := range refsDel {
		delSet[r] = struct{}{}
	}

	discovered := map[position.Position]struct{}{pos: {}}
	stack := []position.Position{pos}

	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, n := range s.graph.EdgesInto(v) {
			if n == pos {
				if _, removing := delSet[v]; removing {
					continue
				}
			}
			if n == refAdd {
				return true
			}
			if _, seen := discovered[n]; seen {
				continue
			}
			discovered[n] = struct{}{}
			stack = append(stack, n)
		}
	}
	return false
}

// invalidateCacheTransitive walks refs_from depth-first from pos,
// clearing the cache of every visited cell. A discovered-set guards
// against re-entry even though the formula graph is, by construction,
// acyclic.
func (s *Sheet) invalidateCacheTransitive(pos position.Position) {
	discovered := map[position.Position]struct{}{pos: {}}
	stack := []position.Position{pos}

	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if c, ok, _ := s.lookup(v); ok {
			c.InvalidateCache()
		}

		for _, n := range s.graph.EdgesInto(v) {
			if _, seen := discovered[n]; !seen {
				discovered[n] = struct{}{}
				stack = append(stack, n)
			}
		}
	}
}

// GetValue returns the projected value at pos: "" for an absent cell,
// matching GetCell's own "no cell here" convention.
func (s *Sheet) GetValue(pos position.Position) (cellvalue.Value, error) {
	c, err := s.GetCell(pos)
	if err != nil {
		return cellvalue.Value{}, err
	}
	if c == nil {
		return cellvalue.Text(""), nil
	}
	return c.GetValue(s.view()), nil
}

// GetText returns the re-enterable text at pos: "" for an absent cell.
func (s *Sheet) GetText(pos position.Position) (string, error) {
	c, err := s.GetCell(pos)
	if err != nil {
		return "", err
	}
	if c == nil {
		return "", nil
	}
	return c.GetText(), nil
}
