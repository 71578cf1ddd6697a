package main

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/onloopai/onloop/internal/tools"
)

// registerDemoTools wires the two catalog entries simple enough to
// implement without a real device: calculator and device_info. Every
// other DefaultCatalog spec is left unregistered; the registry reports
// tool_not_found if the model calls one, exactly as it would for any
// capability the host application hasn't wired up yet.
func registerDemoTools(registry *tools.Registry) {
	registry.Register(&calculatorTool{})
	registry.Register(&deviceInfoTool{})
}

type calculatorTool struct{}

func (calculatorTool) Name() string        { return "calculator" }
func (calculatorTool) Description() string { return "Evaluates a mathematical expression and returns the result." }
func (calculatorTool) ParametersSchema() tools.Schema {
	return tools.Schema{
		Type: "object",
		Properties: map[string]tools.SchemaProperty{
			"expression": {Type: "string", Description: "The expression to evaluate, e.g. \"2 + 2\"."},
		},
		Required: []string{"expression"},
	}
}

func (calculatorTool) Execute(ctx context.Context, args map[string]any) (*tools.Output, error) {
	expr, _ := args["expression"].(string)
	if strings.TrimSpace(expr) == "" {
		return tools.Error("missing required argument: expression"), nil
	}
	result, err := evalArithmetic(expr)
	if err != nil {
		return tools.Error(fmt.Sprintf("could not evaluate %q: %s", expr, err)), nil
	}
	return tools.Success(fmt.Sprintf("%s = %s", strings.TrimSpace(expr), formatNumber(result))), nil
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type deviceInfoTool struct{}

func (deviceInfoTool) Name() string        { return "device_info" }
func (deviceInfoTool) Description() string { return "Returns information about the current device (OS, CPU architecture, CPU count)." }
func (deviceInfoTool) ParametersSchema() tools.Schema {
	return tools.Schema{Type: "object"}
}

func (deviceInfoTool) Execute(ctx context.Context, args map[string]any) (*tools.Output, error) {
	return tools.Success(fmt.Sprintf("os=%s arch=%s cpus=%d", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())), nil
}

// evalArithmetic is a tiny recursive-descent evaluator over +, -, *, /, unary
// minus, and parentheses on float64 literals — just enough for calculator
// demo calls. It is not a general expression language.
func evalArithmetic(expr string) (float64, error) {
	p := &arithParser{input: expr}
	p.skipSpace()
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected trailing input at %d", p.pos)
	}
	return v, nil
}

type arithParser struct {
	input string
	pos   int
}

func (p *arithParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *arithParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *arithParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *arithParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *arithParser) parseFactor() (float64, error) {
	p.skipSpace()
	if p.peek() == '-' {
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	}
	if p.peek() == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, fmt.Errorf("expected ')' at %d", p.pos)
		}
		p.pos++
		return v, nil
	}
	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] == '.' || (p.input[p.pos] >= '0' && p.input[p.pos] <= '9')) {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at %d", p.pos)
	}
	return strconv.ParseFloat(p.input[start:p.pos], 64)
}
