// Package grid implements a two-level sparse storage abstraction: a
// generalized 2D store for any per-cell data, addressed by Position,
// that only retains memory proportional to the number of non-empty
// cells.
package grid

import (
	"fmt"

	"github.com/sheetkit/engine/internal/sparsemap"
	"github.com/sheetkit/engine/position"
)

// ErrInvalidPosition is returned by every Grid operation when handed a
// Position outside the addressable range.
type ErrInvalidPosition struct {
	Pos position.Position
}

func (e *ErrInvalidPosition) Error() string {
	return fmt.Sprintf("grid: invalid position %v", e.Pos)
}

// Size is the printable bounding box of a Grid.
type Size struct {
	Rows int
	Cols int
}

// Grid is a sparse two-level store, row-major: a SparseIndexedMap of
// rows, each row itself a SparseIndexedMap of columns. Rows with no
// columns are erased entirely, so Count reflects only non-empty cells
// and an empty Grid costs nothing beyond its zero value.
type Grid[T any] struct {
	rows sparsemap.Map[*sparsemap.Map[T]]
}

// New creates an empty Grid.
func New[T any]() *Grid[T] {
	return &Grid[T]{}
}

func checkValid(pos position.Position) error {
	if !pos.IsValid() {
		return &ErrInvalidPosition{Pos: pos}
	}
	return nil
}

// Set stores data at pos, overwriting any prior value.
func (g *Grid[T]) Set(pos position.Position, data T) error {
	if err := checkValid(pos); err != nil {
		return err
	}
	row, ok := g.rows.Get(pos.Row)
	if !ok {
		row = sparsemap.New[T]()
		g.rows.Overwrite(pos.Row, row)
	}
	row.Overwrite(pos.Col, data)
	return nil
}

// Get returns the data at pos, or ok == false if the row or column is
// absent.
func (g *Grid[T]) Get(pos position.Position) (data T, ok bool, err error) {
	if err = checkValid(pos); err != nil {
		return data, false, err
	}
	row, rowOK := g.rows.Get(pos.Row)
	if !rowOK {
		return data, false, nil
	}
	data, ok = row.Get(pos.Col)
	return data, ok, nil
}

// Clear removes the entry at pos, if any. It is a no-op if pos is
// absent, and erases the row entirely once its last column is cleared.
func (g *Grid[T]) Clear(pos position.Position) error {
	if err := checkValid(pos); err != nil {
		return err
	}
	row, ok := g.rows.Get(pos.Row)
	if !ok {
		return nil
	}
	if row.Count(pos.Col) == 0 {
		return nil
	}
	_ = row.Erase(pos.Col)
	if row.Empty() {
		_ = g.rows.Erase(pos.Row)
	}
	return nil
}

// Count returns the total number of non-empty cells across all rows.
func (g *Grid[T]) Count() int {
	total := 0
	g.rows.Range(func(_ int, row *sparsemap.Map[T]) bool {
		total += row.Size()
		return true
	})
	return total
}

// PrintableSize returns the minimal bounding box whose top-left is
// (0,0) and that contains every non-empty cell. An empty Grid reports
// {0,0}.
func (g *Grid[T]) PrintableSize() Size {
	if g.rows.Empty() {
		return Size{}
	}
	size := Size{Rows: g.rows.BackIndex() + 1}
	g.rows.Range(func(_ int, row *sparsemap.Map[T]) bool {
		if !row.Empty() {
			if cols := row.BackIndex() + 1; cols > size.Cols {
				size.Cols = cols
			}
		}
		return true
	})
	return size
}
