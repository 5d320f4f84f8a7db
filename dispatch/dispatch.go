// Package dispatch turns a model specification string into a typed call descriptor. A
// specification is classified exactly once, when the Call is built; engines switch on
// Call.Kind and read the parsed name and arguments, never the rendered expression.
package dispatch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/forecastkit/magi/errs"
)

// DataVar is the name fit expressions use to reference the working series
const DataVar = "rdata"

var (
	ErrEmptySpec      = errors.New("empty model specification")
	ErrUnbalanced     = errors.New("unbalanced parentheses in model specification")
	ErrInvalidName    = errors.New("invalid callable name in model specification")
	ErrInvalidHorizon = errors.New("horizon must be positive")
	ErrInvalidLevel   = errors.New("confidence level must be within (0, 100)")
	ErrMissingArg     = errors.New("argument not present")
	ErrInvalidArg     = errors.New("argument cannot be parsed")
)

// Outputs are the named values every call requests from an engine
var Outputs = []string{"model", "method", "mean", "lower", "upper", "level", "x", "residuals", "fitted"}

// Kind is the call shape a specification dispatches to
type Kind int

const (
	// KindDirect is a forecasting function applied straight to the data: fn(data, h, levels)
	KindDirect Kind = iota

	// KindBaseline is one of the reserved naive baselines. It shares the direct call shape.
	KindBaseline

	// KindFitForecast fits the expression on the data, then forecasts the fitted model
	KindFitForecast
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindBaseline:
		return "baseline"
	case KindFitForecast:
		return "fit-forecast"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Arg is a single argument of a specification. Positional arguments have an empty Key.
type Arg struct {
	Key   string
	Value string
}

func (a Arg) String() string {
	if a.Key == "" {
		return a.Value
	}
	return a.Key + "=" + a.Value
}

type Args []Arg

// Positional returns the values of all arguments passed without a key
func (a Args) Positional() []string {
	var res []string
	for _, arg := range a {
		if arg.Key == "" {
			res = append(res, arg.Value)
		}
	}
	return res
}

// Lookup returns the raw value of the last argument named key
func (a Args) Lookup(key string) (string, bool) {
	for i := len(a) - 1; i >= 0; i-- {
		if a[i].Key == key {
			return a[i].Value, true
		}
	}
	return "", false
}

// Has reports whether an argument named key is present
func (a Args) Has(key string) bool {
	_, ok := a.Lookup(key)
	return ok
}

// Int returns the integer argument named key or def when absent
func (a Args) Int(key string, def int) (int, error) {
	val, ok := a.Lookup(key)
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSuffix(val, "L"))
	if err != nil {
		return 0, fmt.Errorf("%s=%s, %w", key, val, ErrInvalidArg)
	}
	return v, nil
}

// Float returns the numeric argument named key or def when absent
func (a Args) Float(key string, def float64) (float64, error) {
	val, ok := a.Lookup(key)
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%s, %w", key, val, ErrInvalidArg)
	}
	return v, nil
}

// Bool returns the logical argument named key or def when absent. TRUE, T, FALSE and F are
// accepted alongside the usual Go spellings.
func (a Args) Bool(key string, def bool) (bool, error) {
	val, ok := a.Lookup(key)
	if !ok {
		return def, nil
	}
	switch val {
	case "TRUE", "T":
		return true, nil
	case "FALSE", "F":
		return false, nil
	}
	v, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s=%s, %w", key, val, ErrInvalidArg)
	}
	return v, nil
}

// Ints returns an integer vector argument written as c(1,1,0). A scalar is read as a vector
// of length one.
func (a Args) Ints(key string) ([]int, error) {
	val, ok := a.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%s, %w", key, ErrMissingArg)
	}
	inner := val
	if strings.HasPrefix(val, "c(") && strings.HasSuffix(val, ")") {
		inner = val[2 : len(val)-1]
	}
	parts := strings.Split(inner, ",")
	res := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSuffix(strings.TrimSpace(p), "L")
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%s=%s, %w", key, val, ErrInvalidArg)
		}
		res = append(res, v)
	}
	return res, nil
}

// Spec is a parsed model specification
type Spec struct {
	Raw  string
	Name string
	Args Args
}

// Parse splits a specification into its callable name and arguments. Arguments are split on
// top level commas so nested vectors such as order=c(1,1,0) stay intact.
func Parse(spec string) (Spec, error) {
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return Spec{}, fmt.Errorf("%w: %w", errs.ErrConfiguration, ErrEmptySpec)
	}

	if err := checkBalanced(raw); err != nil {
		return Spec{}, fmt.Errorf("%q, %w: %w", raw, errs.ErrConfiguration, err)
	}

	res := Spec{Raw: raw}
	open := strings.IndexByte(raw, '(')
	if open < 0 {
		res.Name = raw
	} else {
		res.Name = strings.TrimSpace(raw[:open])
		if !strings.HasSuffix(raw, ")") {
			return Spec{}, fmt.Errorf("%q has trailing text after the argument list, %w: %w", raw, errs.ErrConfiguration, ErrUnbalanced)
		}
		args, err := splitArgs(raw[open+1 : len(raw)-1])
		if err != nil {
			return Spec{}, fmt.Errorf("%q, %w: %w", raw, errs.ErrConfiguration, err)
		}
		res.Args = args
	}

	if !validName(res.Name) {
		return Spec{}, fmt.Errorf("%q, %w: %w", raw, errs.ErrConfiguration, ErrInvalidName)
	}
	return res, nil
}

// Extra returns the arguments other than the working data reference
func (s Spec) Extra() Args {
	var res Args
	for _, arg := range s.Args {
		if arg.Key == "" && arg.Value == DataVar {
			continue
		}
		if arg.Key == "y" && arg.Value == DataVar {
			continue
		}
		res = append(res, arg)
	}
	return res
}

func checkBalanced(s string) error {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return ErrUnbalanced
			}
		}
	}
	if depth != 0 {
		return ErrUnbalanced
	}
	return nil
}

func splitArgs(s string) (Args, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var (
		args  Args
		depth int
		start int
	)
	flush := func(end int) error {
		arg, err := parseArg(s[start:end])
		if err != nil {
			return err
		}
		args = append(args, arg)
		return nil
	}
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				if err := flush(i); err != nil {
					return nil, err
				}
				start = i + 1
			}
		}
	}
	if err := flush(len(s)); err != nil {
		return nil, err
	}
	return args, nil
}

func parseArg(s string) (Arg, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Arg{}, fmt.Errorf("empty argument, %w", ErrInvalidArg)
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case '=':
			if depth != 0 {
				continue
			}
			// comparisons are values, not keyword arguments
			if i+1 < len(s) && s[i+1] == '=' {
				return Arg{Value: s}, nil
			}
			key := strings.TrimSpace(s[:i])
			val := strings.TrimSpace(s[i+1:])
			if key == "" || val == "" {
				return Arg{}, fmt.Errorf("%q, %w", s, ErrInvalidArg)
			}
			return Arg{Key: key, Value: val}, nil
		}
	}
	return Arg{Value: s}, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '.', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Call is a ready to execute request against an engine
type Call struct {
	Kind    Kind
	Spec    Spec
	Horizon int
	Levels  []float64
}

// NewCall classifies spec and validates the horizon and confidence level. A callable name
// ending in f is a direct forecast, the exact names naive and snaive are baselines, anything
// else is a fit expression followed by a generic forecast.
func NewCall(spec string, horizon int, level float64) (Call, error) {
	s, err := Parse(spec)
	if err != nil {
		return Call{}, err
	}
	if horizon <= 0 {
		return Call{}, fmt.Errorf("got %d, %w: %w", horizon, errs.ErrConfiguration, ErrInvalidHorizon)
	}
	if level <= 0 || level >= 100 {
		return Call{}, fmt.Errorf("got %.2f, %w: %w", level, errs.ErrConfiguration, ErrInvalidLevel)
	}

	return Call{
		Kind:    Classify(s),
		Spec:    s,
		Horizon: horizon,
		Levels:  []float64{level},
	}, nil
}

// Classify returns the call shape of a parsed specification
func Classify(s Spec) Kind {
	if strings.HasSuffix(s.Name, "f") {
		return KindDirect
	}
	if s.Raw == "naive" || s.Raw == "snaive" {
		return KindBaseline
	}
	return KindFitForecast
}

// Name returns the callable name of the specification
func (c Call) Name() string {
	return c.Spec.Name
}

// Level returns the first requested confidence level
func (c Call) Level() float64 {
	if len(c.Levels) == 0 {
		return 0
	}
	return c.Levels[0]
}

// Outputs returns the values requested from the engine
func (c Call) Outputs() []string {
	res := make([]string, len(Outputs))
	copy(res, Outputs)
	return res
}

// Expr renders the call as an engine expression for logs and descriptions
func (c Call) Expr() string {
	levels := make([]string, 0, len(c.Levels))
	for _, l := range c.Levels {
		levels = append(levels, strconv.FormatFloat(l, 'g', -1, 64))
	}
	lvl := strings.Join(levels, ",")

	switch c.Kind {
	case KindDirect, KindBaseline:
		parts := []string{DataVar, fmt.Sprintf("h=%d", c.Horizon), fmt.Sprintf("level=c(%s)", lvl)}
		for _, arg := range c.Spec.Extra() {
			parts = append(parts, arg.String())
		}
		return fmt.Sprintf("%s(%s)", c.Spec.Name, strings.Join(parts, ","))
	default:
		return fmt.Sprintf("forecast(%s,h=%d,level=c(%s))", c.Spec.Raw, c.Horizon, lvl)
	}
}

func (c Call) String() string {
	return c.Expr()
}
