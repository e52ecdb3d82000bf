package prompt

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/compiler"
	"github.com/risor-io/risor/modules/all"
	"github.com/risor-io/risor/object"
	"github.com/risor-io/risor/parser"
)

// RisorScript is a parsed Risor expression. Bytecode compilation happens per
// evaluation because the set of global names is only known once the caller
// supplies its variables.
type RisorScript struct {
	engine *RisorEngine
	source string
}

func (s *RisorScript) Evaluate(ctx context.Context, globals map[string]any) (Value, error) {
	combinedGlobals := make(map[string]any)
	for name, value := range s.engine.globals {
		combinedGlobals[name] = value
	}
	for name, value := range globals {
		combinedGlobals[name] = value
	}

	globalNames := make([]string, 0, len(combinedGlobals))
	for name := range combinedGlobals {
		globalNames = append(globalNames, name)
	}
	sort.Strings(globalNames)

	ast, err := parser.Parse(ctx, s.source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template expression: %w", err)
	}
	code, err := compiler.Compile(ast, compiler.WithGlobalNames(globalNames))
	if err != nil {
		return nil, fmt.Errorf("failed to compile template expression: %w", err)
	}

	value, err := risor.EvalCode(ctx, code, risor.WithGlobals(combinedGlobals))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate template expression: %w", err)
	}
	return &RisorValue{obj: value}, nil
}

// RisorEngine compiles template expressions with Risor.
type RisorEngine struct {
	globals map[string]any
}

// NewRisorEngine creates an engine with the given default globals.
func NewRisorEngine(globals map[string]any) *RisorEngine {
	return &RisorEngine{globals: globals}
}

func (e *RisorEngine) Compile(ctx context.Context, code string) (Script, error) {
	// Parse now so malformed expressions fail at template build time.
	if _, err := parser.Parse(ctx, code); err != nil {
		return nil, err
	}
	return &RisorScript{engine: e, source: code}, nil
}

// RisorValue wraps a Risor object as a Value.
type RisorValue struct {
	obj object.Object
}

func (value *RisorValue) Value() any {
	switch o := value.obj.(type) {
	case *object.String:
		return o.Value()
	case *object.Int:
		return o.Value()
	case *object.Float:
		return o.Value()
	case *object.Bool:
		return o.Value()
	case *object.Time:
		return o.Value()
	case *object.NilType:
		return nil
	case *object.List:
		var result []any
		for _, item := range o.Value() {
			result = append(result, (&RisorValue{obj: item}).Value())
		}
		return result
	case *object.Map:
		result := make(map[string]any)
		for key, item := range o.Value() {
			result[key] = (&RisorValue{obj: item}).Value()
		}
		return result
	default:
		// Fallback to string representation
		return o.Inspect()
	}
}

func (value *RisorValue) IsTruthy() bool {
	switch obj := value.obj.(type) {
	case *object.Bool:
		return obj.Value()
	case *object.Int:
		return obj.Value() != 0
	case *object.Float:
		return obj.Value() != 0.0
	case *object.List:
		return len(obj.Value()) > 0
	case *object.Map:
		return len(obj.Value()) > 0
	case *object.String:
		val := obj.Value()
		return val != "" && strings.ToLower(val) != "false"
	default:
		return obj.IsTruthy()
	}
}

func (value *RisorValue) String() string {
	switch v := value.obj.(type) {
	case *object.String:
		return v.Value()
	case *object.Int:
		return fmt.Sprintf("%d", v.Value())
	case *object.Float:
		return fmt.Sprintf("%g", v.Value())
	case *object.Bool:
		return fmt.Sprintf("%t", v.Value())
	case *object.Time:
		return v.Value().Format(time.RFC3339)
	case *object.NilType:
		return ""
	case *object.List:
		// Double newline between each item
		var items []string
		for _, item := range v.Value() {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return strings.Join(items, "\n\n")
	case *object.Map:
		// Double newline between each key-value pair
		var items []string
		for k, item := range v.Value() {
			items = append(items, fmt.Sprintf("%s: %v", k, item))
		}
		return strings.Join(items, "\n\n")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", value.obj)
	}
}

// DefaultGlobals returns the Risor builtins made available to template
// expressions.
func DefaultGlobals() map[string]any {
	globals := map[string]any{}
	for name, value := range all.Builtins() {
		globals[name] = value
	}
	return globals
}
