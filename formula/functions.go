package formula

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
)

// errDivisionByZero's text is matched by classifyRuntimeError, which
// maps it to cellvalue.ErrDiv0 instead of the generic ErrValue bucket.
var errDivisionByZero = errors.New("division by zero")

// Built-in aggregate functions. Each takes an explicit, comma-separated
// argument list of cell references or numeric literals. A literal
// arrives as int or float64; a reference arrives as the float64 its
// cell resolves to, or, when that cell is non-numeric or holds an
// error, as that error cellvalue.Value (see Handle.Evaluate). There is
// no range syntax, so every argument is named individually.
var (
	sumFunction     = expr.Function("SUM", sumImpl)
	averageFunction = expr.Function("AVERAGE", averageImpl)
	minFunction     = expr.Function("MIN", minImpl)
	maxFunction     = expr.Function("MAX", maxImpl)
	countFunction   = expr.Function("COUNT", countImpl)
)

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("formula: non-numeric argument %v", v)
	}
}

func sumImpl(args ...any) (any, error) {
	total := 0.0
	for _, a := range args {
		n, err := toFloat(a)
		if err != nil {
			return nil, err
		}
		total += n
	}
	return total, nil
}

func averageImpl(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, errDivisionByZero
	}
	total, err := sumImpl(args...)
	if err != nil {
		return nil, err
	}
	return total.(float64) / float64(len(args)), nil
}

func minImpl(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("formula: MIN needs at least one argument")
	}
	best, err := toFloat(args[0])
	if err != nil {
		return nil, err
	}
	for _, a := range args[1:] {
		n, err := toFloat(a)
		if err != nil {
			return nil, err
		}
		if n < best {
			best = n
		}
	}
	return best, nil
}

func maxImpl(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("formula: MAX needs at least one argument")
	}
	best, err := toFloat(args[0])
	if err != nil {
		return nil, err
	}
	for _, a := range args[1:] {
		n, err := toFloat(a)
		if err != nil {
			return nil, err
		}
		if n > best {
			best = n
		}
	}
	return best, nil
}

// countImpl counts only numeric arguments and never errors, matching
// spreadsheet convention where COUNT silently ignores non-numbers.
func countImpl(args ...any) (any, error) {
	n := 0
	for _, a := range args {
		if _, err := toFloat(a); err == nil {
			n++
		}
	}
	return float64(n), nil
}
