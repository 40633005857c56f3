package entitlements

import "strings"

type Plan string

const (
	PlanFree    Plan = "free"
	PlanCreator Plan = "creator"
	PlanStudio  Plan = "studio"
)

// ParsePlan normalizes a stored plan string; anything unknown maps to free.
func ParsePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanCreator):
		return PlanCreator
	case string(PlanStudio):
		return PlanStudio
	default:
		return PlanFree
	}
}

// Rank orders plans so the best of several subscriptions wins.
func Rank(plan Plan) int {
	switch plan {
	case PlanStudio:
		return 2
	case PlanCreator:
		return 1
	default:
		return 0
	}
}

// IsPaid reports whether the plan is a billable tier.
func IsPaid(plan Plan) bool {
	return plan != PlanFree
}

// MonthlyRewriteQuota returns how many rewrite requests a plan includes per month.
// 0 means unlimited.
func MonthlyRewriteQuota(plan Plan) int {
	switch plan {
	case PlanStudio:
		return 0
	case PlanCreator:
		return 500
	default:
		return 25
	}
}

// CanCustomVoices reports whether the plan may create custom voice presets.
func CanCustomVoices(plan Plan) bool {
	return plan == PlanCreator || plan == PlanStudio
}

// MaxDraftBytes returns the largest draft a plan may submit for rewriting.
func MaxDraftBytes(plan Plan) int64 {
	switch plan {
	case PlanStudio:
		return 2 * 1024 * 1024
	case PlanCreator:
		return 512 * 1024
	default:
		return 64 * 1024
	}
}
