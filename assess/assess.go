// Package assess provides the credit assessment collaborator: given the
// facts of a case, it produces a narrative analysis and the limit flags
// consumed by downstream routing.
package assess

import (
	"context"
	"fmt"
)

// Facts are the inputs to a credit assessment.
type Facts struct {
	CustomerID         string
	CreditLimit        float64
	OutstandingBalance float64
	OrderAmount        float64

	// Policy is the credit policy document text included in the analysis
	// prompt.
	Policy string
}

// AvailableCredit returns the credit headroom for the case.
func (f Facts) AvailableCredit() float64 {
	return f.CreditLimit - f.OutstandingBalance
}

// Assessment is the result of a credit assessment. WithinLimits and
// NeedsEscalation feed conditional routing; Narrative is kept for the
// decision record.
type Assessment struct {
	Narrative       string  `json:"narrative"`
	AvailableCredit float64 `json:"available_credit"`
	OrderAmount     float64 `json:"order_amount"`
	WithinLimits    bool    `json:"within_limits"`
	NeedsEscalation bool    `json:"needs_escalation"`
}

// Service assesses the creditworthiness of a case.
//
// Implementations are stateless per call and constructed once per process.
// The limit flags must be deterministic functions of the facts; only the
// narrative may come from a model.
type Service interface {
	Assess(ctx context.Context, facts Facts) (Assessment, error)
}

// UtilizationThreshold is the credit utilization above which a
// within-limits order still needs management review, matching the default
// policy's "max credit utilization 80%".
const UtilizationThreshold = 0.80

// Evaluate computes the deterministic part of an assessment: available
// credit, the within-limits comparison, and the escalation flag. All Service
// implementations build on this so routing never depends on model output.
//
// An order outside limits is not flagged for escalation; it is rejected
// outright by policy verification. Escalation is for orders the policy
// covers but that push utilization past the threshold.
func Evaluate(facts Facts) Assessment {
	available := facts.AvailableCredit()
	within := available >= facts.OrderAmount

	needsEscalation := false
	if within && facts.CreditLimit > 0 {
		projected := (facts.OutstandingBalance + facts.OrderAmount) / facts.CreditLimit
		needsEscalation = projected > UtilizationThreshold
	}

	return Assessment{
		AvailableCredit: available,
		OrderAmount:     facts.OrderAmount,
		WithinLimits:    within,
		NeedsEscalation: needsEscalation,
	}
}

// RuleService is a deterministic Service with a generated narrative. It is
// the default assessor and the one used in tests: same facts, same output,
// no external calls.
type RuleService struct{}

// NewRuleService creates the rule-based assessor.
func NewRuleService() *RuleService {
	return &RuleService{}
}

// Assess implements Service.
func (s *RuleService) Assess(_ context.Context, facts Facts) (Assessment, error) {
	a := Evaluate(facts)
	switch {
	case !a.WithinLimits:
		a.Narrative = fmt.Sprintf(
			"Order amount $%.2f exceeds available credit $%.2f; order is outside policy limits.",
			a.OrderAmount, a.AvailableCredit)
	case a.NeedsEscalation:
		a.Narrative = fmt.Sprintf(
			"Order amount $%.2f fits available credit $%.2f but pushes utilization past %.0f%%; management review required.",
			a.OrderAmount, a.AvailableCredit, UtilizationThreshold*100)
	default:
		a.Narrative = fmt.Sprintf(
			"Available credit $%.2f covers order amount $%.2f; order is within policy limits.",
			a.AvailableCredit, a.OrderAmount)
	}
	return a, nil
}
