package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetkit/engine/internal/cellvalue"
	"github.com/sheetkit/engine/position"
)

// fakeSheet is a minimal, in-memory formula.SheetView used only to
// exercise Handle.Evaluate without pulling in the root engine package.
type fakeSheet struct {
	cells map[position.Position]cellvalue.Value
	rows  int
	cols  int
}

func newFakeSheet() *fakeSheet {
	return &fakeSheet{cells: map[position.Position]cellvalue.Value{}}
}

func (s *fakeSheet) set(text string, v cellvalue.Value) *fakeSheet {
	s.cells[position.MustFromString(text)] = v
	return s
}

func (s *fakeSheet) GetCell(pos position.Position) (CellView, bool) {
	v, ok := s.cells[pos]
	if !ok {
		return nil, false
	}
	return fakeCell{v}, true
}

func (s *fakeSheet) PrintableSize() (rows, cols int) {
	return s.rows, s.cols
}

type fakeCell struct{ v cellvalue.Value }

func (c fakeCell) Value(SheetView) cellvalue.Value { return c.v }

func TestParseRejectsSyntaxError(t *testing.T) {
	_, err := Parse("A1 + + ")
	assert.Error(t, err)
}

func TestEvaluateArithmetic(t *testing.T) {
	h, err := Parse("1+2*3")
	require.NoError(t, err)

	v := h.Evaluate(newFakeSheet())
	require.Equal(t, cellvalue.KindNumber, v.Kind)
	assert.Equal(t, 7.0, v.Number)
}

func TestEvaluateCellReference(t *testing.T) {
	h, err := Parse("A1+3")
	require.NoError(t, err)

	sheet := newFakeSheet().set("A1", cellvalue.Number(2))
	v := h.Evaluate(sheet)
	require.Equal(t, cellvalue.KindNumber, v.Kind)
	assert.Equal(t, 5.0, v.Number)
}

func TestEvaluateAbsentReferenceReadsAsZero(t *testing.T) {
	h, err := Parse("A1+3")
	require.NoError(t, err)

	v := h.Evaluate(newFakeSheet())
	require.Equal(t, cellvalue.KindNumber, v.Kind)
	assert.Equal(t, 3.0, v.Number)
}

func TestEvaluateDivisionByZero(t *testing.T) {
	h, err := Parse("1/0")
	require.NoError(t, err)

	v := h.Evaluate(newFakeSheet())
	require.Equal(t, cellvalue.KindError, v.Kind)
	assert.Equal(t, cellvalue.ErrDiv0, v.Error)
}

func TestEvaluateNonNumericOperandIsValueError(t *testing.T) {
	h, err := Parse("A1+1")
	require.NoError(t, err)

	sheet := newFakeSheet().set("A1", cellvalue.Text("hello"))
	v := h.Evaluate(sheet)
	require.Equal(t, cellvalue.KindError, v.Kind)
	assert.Equal(t, cellvalue.ErrValue, v.Error)
}

func TestEvaluatePropagatesReferencedError(t *testing.T) {
	h, err := Parse("A1+1")
	require.NoError(t, err)

	sheet := newFakeSheet().set("A1", cellvalue.Err(cellvalue.ErrRef))
	v := h.Evaluate(sheet)
	require.Equal(t, cellvalue.KindError, v.Kind)
	assert.Equal(t, cellvalue.ErrRef, v.Error)
}

func TestReferencedCellsSortedAndUnique(t *testing.T) {
	h, err := Parse("B2+A1+B2+A1")
	require.NoError(t, err)

	refs := h.ReferencedCells()
	require.Len(t, refs, 2)
	assert.Equal(t, position.MustFromString("A1"), refs[0])
	assert.Equal(t, position.MustFromString("B2"), refs[1])
}

func TestExpressionIsCanonicalized(t *testing.T) {
	h, err := Parse("a1 + 3")
	require.NoError(t, err)
	assert.Equal(t, "A1+3", h.Expression())
}

func TestSumAverageMinMaxCount(t *testing.T) {
	sheet := newFakeSheet().
		set("A1", cellvalue.Number(1)).
		set("A2", cellvalue.Number(2)).
		set("A3", cellvalue.Number(3))

	cases := map[string]float64{
		"SUM(A1,A2,A3)":     6,
		"AVERAGE(A1,A2,A3)": 2,
		"MIN(A1,A2,A3)":     1,
		"MAX(A1,A2,A3)":     3,
		"COUNT(A1,A2,A3)":   3,
	}
	for expr, want := range cases {
		h, err := Parse(expr)
		require.NoError(t, err, expr)
		v := h.Evaluate(sheet)
		require.Equal(t, cellvalue.KindNumber, v.Kind, expr)
		assert.Equal(t, want, v.Number, expr)
	}
}

func TestCountIgnoresNonNumericArguments(t *testing.T) {
	sheet := newFakeSheet().
		set("A1", cellvalue.Number(1)).
		set("A2", cellvalue.Text("x"))

	h, err := Parse("COUNT(A1,A2)")
	require.NoError(t, err)
	v := h.Evaluate(sheet)
	require.Equal(t, cellvalue.KindNumber, v.Kind)
	assert.Equal(t, 1.0, v.Number)
}
