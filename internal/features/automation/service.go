package automation

import (
	"context"
)

type Service interface {
	CreateRule(ctx context.Context, rule *Rule) error
	GetRule(ctx context.Context, id string) (*Rule, error)
	ListRules(ctx context.Context) ([]Rule, error)
	SetRuleEnabled(ctx context.Context, id string, enabled bool) error
	DeleteRule(ctx context.Context, id string) error
	ListExecutions(ctx context.Context, bookingID string, limit int64) ([]RuleExecution, error)
}

type ServiceImpl struct {
	Repo       Repository
	Executions ExecutionRepository
}

func NewService(repo Repository, executions ExecutionRepository) Service {
	return &ServiceImpl{Repo: repo, Executions: executions}
}

// CreateRule validates the definition before persisting; malformed rules are
// a ConfigurationError here, never a surprise at evaluation time.
func (s *ServiceImpl) CreateRule(ctx context.Context, rule *Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	return s.Repo.Create(ctx, rule)
}

func (s *ServiceImpl) GetRule(ctx context.Context, id string) (*Rule, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *ServiceImpl) ListRules(ctx context.Context) ([]Rule, error) {
	return s.Repo.List(ctx)
}

// SetRuleEnabled is the only mutation a stored rule supports.
func (s *ServiceImpl) SetRuleEnabled(ctx context.Context, id string, enabled bool) error {
	return s.Repo.SetEnabled(ctx, id, enabled)
}

func (s *ServiceImpl) DeleteRule(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

func (s *ServiceImpl) ListExecutions(ctx context.Context, bookingID string, limit int64) ([]RuleExecution, error) {
	return s.Executions.List(ctx, bookingID, limit)
}
