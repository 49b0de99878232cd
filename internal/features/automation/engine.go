package automation

import (
	"context"
	"sort"
	"strconv"
	"strings"

	common_models "go-sitter/internal/common/models"
	"go-sitter/internal/features/booking"
	"go-sitter/pkg/clock"

	"go.uber.org/zap"
)

// Engine evaluates every enabled rule against a booking-change event.
// All matching rules fire — this is deliberately not a first-match decision
// tree, so an approval rule and a pricing rule can both act on one event.
type Engine struct {
	Rules      Repository
	Contexts   *ContextBuilder
	Executor   Executor
	Executions ExecutionRepository
	Clock      clock.Clock
	Log        *zap.Logger
}

func NewEngine(
	rules Repository,
	contexts *ContextBuilder,
	executor Executor,
	executions ExecutionRepository,
	clk clock.Clock,
	log *zap.Logger,
) *Engine {
	return &Engine{
		Rules:      rules,
		Contexts:   contexts,
		Executor:   executor,
		Executions: executions,
		Clock:      clk,
		Log:        log,
	}
}

// Evaluate runs one pass: enabled rules in ascending priority order, context
// built once per booking, conditions AND-combined per rule. Returns the ids
// of the rules that fired, in execution order.
func (e *Engine) Evaluate(ctx context.Context, bk *booking.Booking, change booking.ChangeKind) ([]string, error) {
	rules, err := e.Rules.ListEnabled(ctx)
	if err != nil {
		return nil, &common_models.StoreError{Op: "load rules", Err: err}
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})

	evalCtx := e.Contexts.Build(ctx, bk)

	var fired []string
	for i := range rules {
		rule := &rules[i]

		conditions, err := compileConditions(rule)
		if err != nil {
			// Stored rules are validated at load; anything malformed that
			// slipped in is skipped, never evaluated with defaults.
			e.Log.Warn("skipping malformed rule", zap.String("rule", rule.Name), zap.Error(err))
			continue
		}
		if !matches(conditions, evalCtx) {
			continue
		}

		// Action failures are logged inside the executor and do not abort
		// sibling actions or subsequent rules.
		e.Executor.ExecuteActions(ctx, rule, bk)
		fired = append(fired, rule.ID.Hex())

		execution := &RuleExecution{
			RuleID:     rule.ID.Hex(),
			BookingID:  bk.ID.Hex(),
			Change:     string(change),
			ExecutedAt: e.Clock.Now(),
			Context:    evalCtx.Snapshot(),
		}
		if err := e.Executions.Append(ctx, execution); err != nil {
			e.Log.Error("failed to record rule execution",
				zap.String("rule", rule.Name), zap.Error(err))
		}
	}
	return fired, nil
}

// compiledCondition carries the literal resolved once into its tagged form
// (number or text) instead of being re-parsed at every evaluation.
type compiledCondition struct {
	field  string
	op     Operator
	text   string
	number float64
}

func compileConditions(rule *Rule) ([]compiledCondition, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	compiled := make([]compiledCondition, 0, len(rule.Conditions))
	for _, cond := range rule.Conditions {
		cc := compiledCondition{field: cond.Field, op: cond.Operator, text: cond.Value}
		if numericOperators[cond.Operator] {
			// Validate guarantees this parses.
			cc.number, _ = strconv.ParseFloat(cond.Value, 64)
		}
		compiled = append(compiled, cc)
	}
	return compiled, nil
}

// matches applies every condition; the first failure short-circuits this rule
// only, never the pass.
func matches(conditions []compiledCondition, evalCtx *EvaluationContext) bool {
	for _, cond := range conditions {
		if !evaluateCondition(cond, evalCtx) {
			return false
		}
	}
	return true
}

func evaluateCondition(cond compiledCondition, evalCtx *EvaluationContext) bool {
	resolved := evalCtx.Resolve(cond.field)

	switch cond.op {
	case OperatorEquals:
		return resolved == cond.text
	case OperatorNotEquals:
		return resolved != cond.text
	case OperatorContains:
		return strings.Contains(resolved, cond.text)
	case OperatorIsNull:
		return resolved == ""
	case OperatorIsNotNull:
		return resolved != ""
	case OperatorGreaterThan:
		return asNumber(resolved) > cond.number
	case OperatorGreaterThanOrEqual:
		return asNumber(resolved) >= cond.number
	case OperatorLessThan:
		return asNumber(resolved) < cond.number
	case OperatorLessThanOrEqual:
		return asNumber(resolved) <= cond.number
	default:
		return false
	}
}

// asNumber parses the resolved context value; unparsable values read as 0 so
// a rule pass always completes deterministically.
func asNumber(value string) float64 {
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return n
}
