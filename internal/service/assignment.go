package service

import (
	"context"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/repository"
)

// AssignmentResolver picks the agent a newly routed ticket goes to. It is an
// interface so the single-agent-per-department simplification stays out of
// the intake flow.
type AssignmentResolver interface {
	// ResolveAssignee returns the agent for the department, or nil when the
	// department currently has no active agent.
	ResolveAssignee(ctx context.Context, dept domain.Department) (*domain.User, error)
}

type singleAgentResolver struct {
	users repository.UserRepository
}

// NewSingleAgentResolver resolves to the sole active agent of a department.
func NewSingleAgentResolver(users repository.UserRepository) AssignmentResolver {
	return &singleAgentResolver{users: users}
}

func (r *singleAgentResolver) ResolveAssignee(ctx context.Context, dept domain.Department) (*domain.User, error) {
	return r.users.FindActiveAgentByDepartment(ctx, dept)
}
