package entitlements

import "testing"

func TestParsePlan(t *testing.T) {
	tests := []struct {
		in   string
		want Plan
	}{
		{in: "free", want: PlanFree},
		{in: "creator", want: PlanCreator},
		{in: "studio", want: PlanStudio},
		{in: "STUDIO", want: PlanStudio},
		{in: " creator ", want: PlanCreator},
		{in: "invalid", want: PlanFree},
		{in: "", want: PlanFree},
	}

	for _, tt := range tests {
		if got := ParsePlan(tt.in); got != tt.want {
			t.Fatalf("ParsePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRank(t *testing.T) {
	if Rank(PlanFree) >= Rank(PlanCreator) {
		t.Fatalf("expected creator to outrank free")
	}
	if Rank(PlanCreator) >= Rank(PlanStudio) {
		t.Fatalf("expected studio to outrank creator")
	}
}

func TestIsPaid(t *testing.T) {
	if IsPaid(PlanFree) {
		t.Fatalf("free must not be billable")
	}
	for _, p := range []Plan{PlanCreator, PlanStudio} {
		if !IsPaid(p) {
			t.Fatalf("expected plan %q to be billable", p)
		}
	}
}
