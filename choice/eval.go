package choice

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

type evalEnv struct {
	raw []byte
}

// Evaluate runs the compiled statements against doc in order, returning the
// value produced by the first statement that matches. A runtime error
// raised while evaluating a single top-level statement is caught and that
// statement is skipped in favor of the next one, per this package's
// single-statement error-isolation policy. If no statement matches,
// Evaluate returns Absent and a nil error.
func (prog *Program) Evaluate(doc any) (any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("choice: marshaling document: %w", err)
	}
	env := &evalEnv{raw: raw}

	for _, stmt := range prog.Statements {
		value, matched, err := evalBranch(stmt, env)
		if err != nil {
			continue
		}
		if matched {
			return value, nil
		}
	}
	return Absent, nil
}

// IsExhaustive reports whether branch is guaranteed to produce a value for
// any document, ignoring runtime errors: true for a bare literal, or for a
// when/then/else whose both arms are themselves exhaustive.
func IsExhaustive(branch *Branch) bool {
	if branch == nil {
		return false
	}
	switch branch.Kind {
	case BranchLiteral:
		return true
	case BranchWhen:
		return branch.Else != nil && IsExhaustive(branch.Then) && IsExhaustive(branch.Else)
	default:
		return false
	}
}

func evalBranch(branch *Branch, env *evalEnv) (value any, matched bool, err error) {
	switch branch.Kind {
	case BranchLiteral:
		v, err := evalTerm(branch.Literal, env)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	case BranchWhen:
		ok, err := evalExpr(branch.Cond, env)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return evalBranch(branch.Then, env)
		}
		if branch.Else == nil {
			return nil, false, nil
		}
		return evalBranch(branch.Else, env)
	default:
		return nil, false, fmt.Errorf("choice: unknown branch kind %q", branch.Kind)
	}
}

func evalExpr(expr *Expr, env *evalEnv) (bool, error) {
	switch expr.Kind {
	case ExprAnd:
		left, err := evalExpr(expr.Left, env)
		if err != nil {
			return false, err
		}
		if !left {
			return false, nil
		}
		return evalExpr(expr.Right, env)
	case ExprOr:
		left, err := evalExpr(expr.Left, env)
		if err != nil {
			return false, err
		}
		if left {
			return true, nil
		}
		return evalExpr(expr.Right, env)
	case ExprNot:
		v, err := evalExpr(expr.Operand, env)
		if err != nil {
			return false, err
		}
		return !v, nil
	case ExprExist:
		v, err := queryPath(env.raw, expr.Path)
		if err != nil {
			return false, err
		}
		return !IsAbsent(v), nil
	case ExprCmp:
		return evalComparison(expr, env)
	default:
		return false, fmt.Errorf("choice: unknown expression kind %q", expr.Kind)
	}
}

func evalComparison(expr *Expr, env *evalEnv) (bool, error) {
	left, err := evalTerm(expr.LTerm, env)
	if err != nil {
		return false, err
	}
	right, err := evalTerm(expr.RTerm, env)
	if err != nil {
		return false, err
	}

	switch expr.Op {
	case OpEq:
		return valuesEqual(left, right), nil
	case OpNeq:
		return !valuesEqual(left, right), nil
	case OpGt, OpLt, OpGte, OpLte:
		lf, lok := asFloat(left)
		rf, rok := asFloat(right)
		if !lok || !rok {
			return false, fmt.Errorf("choice: operator %q requires numeric operands, got %T and %T", expr.Op, left, right)
		}
		switch expr.Op {
		case OpGt:
			return lf > rf, nil
		case OpLt:
			return lf < rf, nil
		case OpGte:
			return lf >= rf, nil
		default:
			return lf <= rf, nil
		}
	case OpContains:
		return containsValue(left, right)
	case OpStartsWith:
		ls, lok := left.(string)
		rs, rok := right.(string)
		if !lok || !rok {
			return false, fmt.Errorf("choice: operator %q requires string operands", expr.Op)
		}
		return strings.HasPrefix(ls, rs), nil
	case OpEndsWith:
		ls, lok := left.(string)
		rs, rok := right.(string)
		if !lok || !rok {
			return false, fmt.Errorf("choice: operator %q requires string operands", expr.Op)
		}
		return strings.HasSuffix(ls, rs), nil
	default:
		return false, &InvalidOperatorError{Operator: expr.Op}
	}
}

func containsValue(container, needle any) (bool, error) {
	switch c := container.(type) {
	case string:
		s, ok := needle.(string)
		if !ok {
			return false, fmt.Errorf("choice: %q requires a string needle when the container is a string", OpContains)
		}
		return strings.Contains(c, s), nil
	case []any:
		for _, item := range c {
			if valuesEqual(item, needle) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("choice: %q is not supported on %T", OpContains, container)
	}
}

func valuesEqual(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func evalTerm(term *Term, env *evalEnv) (any, error) {
	switch term.Kind {
	case TermPath:
		return queryPath(env.raw, term.Path)
	case TermString:
		return term.Str, nil
	case TermNumber:
		return term.Num, nil
	case TermBool:
		return term.Bool, nil
	case TermNull:
		return nil, nil
	case TermList:
		out := make([]any, len(term.List))
		for i, item := range term.List {
			v, err := evalTerm(item, env)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case TermMap:
		out := make(map[string]any, len(term.Map))
		for _, entry := range term.Map {
			v, err := evalTerm(entry.Value, env)
			if err != nil {
				return nil, err
			}
			out[entry.Key] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("choice: unknown term kind %q", term.Kind)
	}
}
