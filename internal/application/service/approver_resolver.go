package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spmflow/spm-workflow/internal/application/port"
	"github.com/spmflow/spm-workflow/internal/domain/entity"
)

// Monetary tier boundaries for approver selection. These encode audited
// business policy and are deliberately not configurable.
const (
	TierJefeMax     = 20000.0
	TierGerente1Max = 100000.0
)

// ApproverResolver maps a requester and a computed total to the user that
// must approve the request. A tier picks one hierarchy field; if that field
// is empty or does not resolve, the hierarchy is scanned in fixed order.
// An empty result means "no approver" and is not an error.
type ApproverResolver struct {
	users port.UserRepository
}

// NewApproverResolver creates a new ApproverResolver
func NewApproverResolver(users port.UserRepository) *ApproverResolver {
	return &ApproverResolver{users: users}
}

// Resolve returns the user id of the required approver, or "" when no
// hierarchy contact resolves to an existing user
func (r *ApproverResolver) Resolve(ctx context.Context, requester *entity.User, totalAmount float64) (string, error) {
	if requester == nil {
		return "", nil
	}

	tiered := r.tierField(requester, totalAmount)
	if id, err := r.lookup(ctx, tiered); err != nil {
		return "", err
	} else if id != "" {
		return id, nil
	}

	// Fallback: first resolvable contact in fixed hierarchy order
	for _, contact := range []string{requester.Jefe, requester.Gerente1, requester.Gerente2} {
		id, err := r.lookup(ctx, contact)
		if err != nil {
			return "", err
		}
		if id != "" {
			return id, nil
		}
	}
	return "", nil
}

func (r *ApproverResolver) tierField(requester *entity.User, totalAmount float64) string {
	switch {
	case totalAmount <= TierJefeMax:
		return requester.Jefe
	case totalAmount <= TierGerente1Max:
		return requester.Gerente1
	default:
		return requester.Gerente2
	}
}

// lookup resolves a hierarchy email reference to a user id, case-insensitively
func (r *ApproverResolver) lookup(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", nil
	}
	user, err := r.users.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("lookup approver %s: %w", email, err)
	}
	if user == nil {
		return "", nil
	}
	return user.ID, nil
}
