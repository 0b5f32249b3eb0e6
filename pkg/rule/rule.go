// Package rule compiles expr-lang expressions into keel reducers,
// predicates and mappers. Expression-backed derivations keep action
// payloads as plain data, so recorded dispatches can be serialized,
// audited and replayed without function values.
package rule

import (
	"context"
	"fmt"
	"sync"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/zoobzio/keel"
)

// programs caches compiled expressions by source text.
var programs sync.Map

func compile(expression string) (*exprvm.Program, error) {
	if expression == "" {
		return nil, fmt.Errorf("rule: expression must not be empty")
	}
	if cached, ok := programs.Load(expression); ok {
		return cached.(*exprvm.Program), nil
	}
	program, err := exprlang.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("rule: compile %q: %w", expression, err)
	}
	programs.Store(expression, program)
	return program, nil
}

// Reducer compiles expression into a keel.Reducer. The expression sees
// the current state as "state" and the action payload as "payload"; its
// result becomes the new state. Evaluation failures fail the dispatch
// and leave state unchanged.
func Reducer(expression string) (keel.Reducer, error) {
	program, err := compile(expression)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, state, payload any) keel.Result {
		out, err := exprlang.Run(program, map[string]any{
			"state":   state,
			"payload": payload,
		})
		if err != nil {
			return keel.Fail(fmt.Errorf("rule: eval %q: %w", expression, err))
		}
		return keel.Done(out)
	}, nil
}

// Predicate compiles expression into a predicate for keel.FilterPayload.
// The expression sees each element as "value" and must produce a bool;
// elements whose evaluation fails or yields a non-bool are dropped.
func Predicate(expression string) (func(any) bool, error) {
	program, err := compile(expression)
	if err != nil {
		return nil, err
	}
	return func(value any) bool {
		out, err := exprlang.Run(program, map[string]any{"value": value})
		if err != nil {
			return false
		}
		keep, ok := out.(bool)
		return ok && keep
	}, nil
}

// Mapper compiles expression into a mapping function for
// keel.MapPayload. The expression sees each element as "value"; an
// element whose evaluation fails is kept unchanged.
func Mapper(expression string) (func(any) any, error) {
	program, err := compile(expression)
	if err != nil {
		return nil, err
	}
	return func(value any) any {
		out, err := exprlang.Run(program, map[string]any{"value": value})
		if err != nil {
			return value
		}
		return out
	}, nil
}

// Transformer compiles expression into a transform function for
// keel.TransformPayload. The current value at the path is bound to
// "value", with the same failure contract as Mapper.
func Transformer(expression string) (func(any) any, error) {
	return Mapper(expression)
}
