package engine

import (
	"strings"

	"github.com/sheetkit/engine/formula"
	"github.com/sheetkit/engine/internal/cellvalue"
	"github.com/sheetkit/engine/position"
)

// FormulaSign and EscapeSign are the two characters that give cell
// text special meaning: a leading '=' starts a formula, a leading '\''
// escapes what would otherwise be read as the cell's literal value and
// is stripped by GetValue but kept verbatim in GetText.
const (
	FormulaSign = '='
	EscapeSign  = '\''
)

// cellKind tags which arm of the Cell union is live.
type cellKind uint8

const (
	cellEmpty cellKind = iota
	cellText
	cellFormula
)

// Cell is an addressable unit of sheet content: empty, a literal text
// string, or a parsed formula. A Cell never outlives the grid slot
// that owns it; replacing or clearing a cell discards the old value
// outright, there is no history.
//
// The formula arm holds a *formula.Handle plus the cached result of
// its last evaluation. The cache is logically-mutable: InvalidateCache
// clears it without the cell's externally-visible content (GetText)
// changing, so it carries no exported setter of its own.
type Cell struct {
	kind     cellKind
	text     string // verbatim input for cellText; unused otherwise
	handle   *formula.Handle
	cache    cellvalue.Value
	hasCache bool
}

// newCell builds a Cell from raw input text the way SetCell receives
// it from the caller: the empty string becomes Empty, a string
// starting with '=' and at least one more character is parsed as a
// Formula, and everything else is Text. A malformed formula is
// reported as err and the returned Cell is the zero value.
func newCell(text string) (Cell, error) {
	if text == "" {
		return Cell{kind: cellEmpty}, nil
	}
	if len(text) > 1 && text[0] == FormulaSign {
		handle, err := formula.Parse(text[1:])
		if err != nil {
			return Cell{}, err
		}
		return Cell{kind: cellFormula, handle: handle}, nil
	}
	return Cell{kind: cellText, text: text}, nil
}

// GetText returns the cell's content the way it would be re-entered:
// verbatim for Empty/Text, or '=' plus the formula's normalized
// expression for Formula cells.
func (c *Cell) GetText() string {
	switch c.kind {
	case cellText:
		return c.text
	case cellFormula:
		return string(FormulaSign) + c.handle.Expression()
	default:
		return ""
	}
}

// GetReferencedCells returns the sorted, unique positions a Formula
// cell's expression mentions. Empty and Text cells reference nothing.
func (c *Cell) GetReferencedCells() []position.Position {
	if c.kind != cellFormula {
		return nil
	}
	return c.handle.ReferencedCells()
}

// GetValue projects the cell to the value a reader (or another
// formula, through formula.CellView) sees: the escape marker is
// stripped from Text, and a Formula is evaluated, or served from
// cache, against view.
func (c *Cell) GetValue(view formula.SheetView) cellvalue.Value {
	switch c.kind {
	case cellText:
		if strings.HasPrefix(c.text, string(EscapeSign)) {
			return cellvalue.Text(c.text[1:])
		}
		return cellvalue.Text(c.text)
	case cellFormula:
		if c.hasCache {
			return c.cache
		}
		c.cache = c.handle.Evaluate(view)
		c.hasCache = true
		return c.cache
	default:
		return cellvalue.Text("")
	}
}

// Value implements formula.CellView so a Cell can stand in as the
// GetCell result a formula evaluates against. It is GetValue under
// another name: view is threaded through so a referenced cell that is
// itself an uncached Formula evaluates (and caches) its own result on
// demand, exactly as a direct GetValue call would. The sheet view is
// passed in at evaluation time rather than embedded in the cell, so a
// Cell never holds a back-reference to the sheet that owns it.
func (c *Cell) Value(view formula.SheetView) cellvalue.Value {
	return c.GetValue(view)
}

// InvalidateCache clears a Formula cell's memoized evaluation result.
// A no-op on Empty/Text cells, which never cache anything.
func (c *Cell) InvalidateCache() {
	c.hasCache = false
	c.cache = cellvalue.Value{}
}

