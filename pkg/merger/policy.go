package merger

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/traingraph/traingraph/pkg/timetable"
)

// PolicyError marks an invalid filter combination. It is raised at
// configuration validation time, before any fetch happens.
type PolicyError struct {
	Detail string
}

func (err *PolicyError) Error() string {
	return fmt.Sprintf("invalid policy: %s", err.Detail)
}

// Policy controls which tracks make it into the final timetable and in what
// order. The zero value keeps everything.
type Policy struct {
	Direction timetable.Direction // DirectionUp, DirectionDown or empty for either
	Limit     int                 // 0 means unlimited

	AlwaysInclude   []string // identifiers that bypass direction, limit and filter
	IgnoreOperators []string

	Filter *vm.Program

	WindowStart time.Time
	WindowEnd   time.Time
}

func (policy Policy) Validate() error {
	if policy.Limit < 0 {
		return &PolicyError{Detail: fmt.Sprintf("limit must be positive, got %d", policy.Limit)}
	}

	switch policy.Direction {
	case "", timetable.DirectionUp, timetable.DirectionDown:
	default:
		return &PolicyError{Detail: fmt.Sprintf("unknown direction %q", policy.Direction)}
	}

	if !policy.WindowEnd.After(policy.WindowStart) {
		return &PolicyError{Detail: "window end must be after window start"}
	}

	return nil
}

// FilterEnv is the environment a service filter expression is evaluated
// against, once per remote track.
type FilterEnv struct {
	Headcode  string
	Operator  string
	Direction string
}

func CompileFilter(source string) (*vm.Program, error) {
	program, err := expr.Compile(source, expr.Env(FilterEnv{}), expr.AsBool())
	if err != nil {
		return nil, &PolicyError{Detail: fmt.Sprintf("invalid filter expression: %v", err)}
	}

	return program, nil
}
