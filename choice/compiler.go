package choice

import (
	"fmt"
	"regexp"
	"strings"
)

// Options configures Compile.
type Options struct {
	// AllowMissingDefault, when true, permits a statement list whose last
	// top-level statement is not guaranteed to match every document. In
	// that case Evaluate returns Absent instead of a resolved value when
	// nothing matches, mirroring the original implementation's silent
	// fall-through to None. When false (the default), Compile rejects
	// such a statement list with a *MalformedStatementError.
	AllowMissingDefault bool
}

var tagPattern = regexp.MustCompile(`#[A-Za-z0-9_-]+`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// resolveTags rewrites every #tag occurrence in statement to a quoted
// string literal naming stateRefs[tag], per spec: "Prior to compilation,
// each #tag is rewritten to a quoted string literal equal to the
// referenced state's name." A tag absent from stateRefs is a compile-time
// *UnknownTagError.
func resolveTags(statement string, stateRefs map[string]string) (string, error) {
	var firstErr error
	resolved := tagPattern.ReplaceAllStringFunc(statement, func(tag string) string {
		name, ok := stateRefs[tag[1:]]
		if !ok {
			if firstErr == nil {
				firstErr = &UnknownTagError{Tag: tag[1:]}
			}
			return tag
		}
		return "'" + name + "'"
	})
	if firstErr != nil {
		return "", firstErr
	}
	return resolved, nil
}

// normalize collapses runs of whitespace to a single space and trims the
// ends, so that statements differing only in formatting hash identically.
func normalize(statement string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(statement, " "))
}

// Compile turns statements into a runnable Program, resolving #tag
// references against stateRefs, consulting cache for a hit before parsing,
// and saving a fresh compilation back to cache (if non-nil) before
// returning it. Compile always returns the Program it loaded back from
// cache after a fresh compile, not the one it just built in memory, so
// that the returned Program matches exactly what future cache hits will
// see.
func Compile(name string, statements []string, stateRefs map[string]string, cache *Cache, opts Options) (*Program, error) {
	if len(statements) == 0 {
		return nil, &MalformedStatementError{Statement: "", Reason: "a choice state needs at least one statement"}
	}

	normalized := make([]string, len(statements))
	for i, raw := range statements {
		resolved, err := resolveTags(raw, stateRefs)
		if err != nil {
			return nil, err
		}
		normalized[i] = normalize(resolved)
	}

	hash := ContentHash(name, normalized)
	if cache != nil {
		if prog, ok := cache.Load(name, hash); ok {
			// The hash does not cover opts, so a program cached under
			// AllowMissingDefault is checked again here.
			if !opts.AllowMissingDefault && (len(prog.Statements) == 0 || !IsExhaustive(prog.Statements[len(prog.Statements)-1])) {
				return nil, &MalformedStatementError{
					Statement: normalized[len(normalized)-1],
					Reason:    "the last statement must be an unconditional default (a bare literal, or a when/then/else whose every branch resolves to a value)",
				}
			}
			return prog, nil
		}
	}

	statementsBranches := make([]*Branch, len(normalized))
	params := make(map[string]string)
	for i, stmt := range normalized {
		branch, stmtParams, err := parseOneStatement(stmt)
		if err != nil {
			return nil, err
		}
		statementsBranches[i] = branch
		for path := range stmtParams {
			if _, ok := params[path]; !ok {
				params[path] = fmt.Sprintf("p%d", len(params))
			}
		}
	}

	if !opts.AllowMissingDefault {
		last := statementsBranches[len(statementsBranches)-1]
		if !IsExhaustive(last) {
			return nil, &MalformedStatementError{
				Statement: normalized[len(normalized)-1],
				Reason:    "the last statement must be an unconditional default (a bare literal, or a when/then/else whose every branch resolves to a value)",
			}
		}
	}

	prog := &Program{
		ChoiceName: name,
		Statements: statementsBranches,
		ParamPaths: params,
	}

	if cache == nil {
		return prog, nil
	}

	if err := cache.Save(name, hash, prog); err != nil {
		return nil, fmt.Errorf("choice: saving compiled program: %w", err)
	}
	reloaded, ok := cache.Load(name, hash)
	if !ok {
		return nil, fmt.Errorf("choice: compiled program for %q could not be reloaded from cache after saving", name)
	}
	return reloaded, nil
}
