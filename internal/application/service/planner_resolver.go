package service

import (
	"context"
	"fmt"

	"github.com/spmflow/spm-workflow/internal/application/port"
	"github.com/spmflow/spm-workflow/internal/domain/entity"
)

// PlannerAssignmentResolver maps (centro, sector, almacén) to a planner by
// evaluating assignment rules in strict specificity order:
//
//  1. exact match on (centro, sector, almacén)
//  2. (centro, sector) with the almacén filter unset
//  3. centro alone with both narrower filters unset
//
// Within a tier the earliest-created active rule wins. No match yields ""
// and the request stays approved-but-unassigned.
type PlannerAssignmentResolver struct {
	rules port.PlannerRuleRepository
}

// NewPlannerAssignmentResolver creates a new PlannerAssignmentResolver
func NewPlannerAssignmentResolver(rules port.PlannerRuleRepository) *PlannerAssignmentResolver {
	return &PlannerAssignmentResolver{rules: rules}
}

// Resolve returns the planner id for the given coordinates, or "" when no
// active rule matches
func (r *PlannerAssignmentResolver) Resolve(ctx context.Context, centro, sector, almacen string) (string, error) {
	rules, err := r.rules.ListActiveByCentro(ctx, centro)
	if err != nil {
		return "", fmt.Errorf("list planner rules for centro %s: %w", centro, err)
	}

	matchers := []func(rule *entity.PlannerRule) bool{
		func(rule *entity.PlannerRule) bool {
			return rule.Sector == sector && rule.Sector != "" && rule.Almacen == almacen && rule.Almacen != ""
		},
		func(rule *entity.PlannerRule) bool {
			return rule.Sector == sector && rule.Sector != "" && rule.Almacen == ""
		},
		func(rule *entity.PlannerRule) bool {
			return rule.Sector == "" && rule.Almacen == ""
		},
	}

	// rules arrive ordered by creation, so the first hit per tier is the
	// earliest-created rule of that tier
	for _, matches := range matchers {
		for _, rule := range rules {
			if rule.Centro == centro && matches(rule) {
				return rule.PlannerID, nil
			}
		}
	}
	return "", nil
}
