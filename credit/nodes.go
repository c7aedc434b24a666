package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/mshields/arflow/assess"
	"github.com/mshields/arflow/flow"
)

// Node names in the approval graph.
const (
	NodeLoadData     = "load_data"
	NodeCheckCust    = "check_customer"
	NodeCreditCheck  = "credit_check"
	NodePolicyVerify = "policy_verification"
	NodeApprove      = "approve_order"
	NodeReject       = "reject_order"
	NodeEscalate     = "escalate_to_management"
	NodeDocument     = "document_approval"
	NodeCommunicate  = "communicate_decision"
)

// loadData fetches the customer and order records for the case and attaches
// the policy document. A lookup failure is recorded in state, not raised:
// the customer check downstream then routes the case to rejection.
func loadData(source DataSource, policy string) flow.NodeFunc {
	return func(ctx context.Context, s flow.State) flow.NodeResult {
		customerID := s.GetString(FieldCustomerID)

		c, err := source.FetchCase(ctx, customerID)
		if err != nil {
			return flow.NodeResult{Updates: flow.State{
				FieldCustomer:       map[string]any{},
				FieldOrder:          map[string]any{},
				FieldPolicy:         policy,
				FieldDecisionReason: fmt.Sprintf("Error loading case data: %v", err),
			}}
		}

		return flow.NodeResult{Updates: flow.State{
			FieldCustomer: c.Customer,
			FieldOrder:    c.Order,
			FieldPolicy:   policy,
		}}
	}
}

// checkCustomer verifies the case refers to a known customer. New or unknown
// customers are rejected per policy without escalation.
func checkCustomer() flow.NodeFunc {
	return func(_ context.Context, s flow.State) flow.NodeResult {
		customer := s.GetMap(FieldCustomer)
		id, _ := customer[ColCustomerID].(string)
		return flow.NodeResult{Updates: flow.State{
			FieldCustomerExists: id != "",
		}}
	}
}

// creditCheck runs the assessment collaborator over the case facts. If the
// collaborator is unreachable, the node degrades to the safest outcome: a
// failed assessment that policy verification rejects and flags for a human.
func creditCheck(assessor assess.Service) flow.NodeFunc {
	return func(ctx context.Context, s flow.State) flow.NodeResult {
		customer := s.GetMap(FieldCustomer)
		order := s.GetMap(FieldOrder)

		facts := assess.Facts{
			CustomerID:         s.GetString(FieldCustomerID),
			CreditLimit:        numField(customer, ColCreditLimit),
			OutstandingBalance: numField(customer, ColOutstandingBalance),
			OrderAmount:        numField(order, ColTurnover),
			Policy:             s.GetString(FieldPolicy),
		}

		a, err := assessor.Assess(ctx, facts)
		if err != nil {
			return flow.NodeResult{Updates: flow.State{
				FieldAssessment: map[string]any{
					"narrative":        fmt.Sprintf("Error in credit assessment: %v", err),
					"available_credit": facts.AvailableCredit(),
					"order_amount":     facts.OrderAmount,
					"within_limits":    false,
					"needs_escalation": true,
				},
			}}
		}

		return flow.NodeResult{Updates: flow.State{
			FieldAssessment: map[string]any{
				"narrative":        a.Narrative,
				"available_credit": a.AvailableCredit,
				"order_amount":     a.OrderAmount,
				"within_limits":    a.WithinLimits,
				"needs_escalation": a.NeedsEscalation,
			},
		}}
	}
}

// policyVerify turns the assessment into a provisional decision. Rejection
// takes precedence over escalation: a case outside limits never reaches
// management review.
func policyVerify() flow.NodeFunc {
	return func(_ context.Context, s flow.State) flow.NodeResult {
		a := s.GetMap(FieldAssessment)

		if len(a) == 0 {
			return flow.NodeResult{Updates: flow.State{
				FieldApprovalStatus: StatusRejected,
				FieldDecisionReason: "Order rejected due to missing credit assessment data",
				FieldRequiresHuman:  false,
			}}
		}

		within, _ := a["within_limits"].(bool)
		if !within {
			return flow.NodeResult{Updates: flow.State{
				FieldApprovalStatus: StatusRejected,
				FieldDecisionReason: fmt.Sprintf("Order amount ($%v) exceeds available credit ($%v)",
					a["order_amount"], a["available_credit"]),
				FieldRequiresHuman: false,
			}}
		}

		escalate, _ := a["needs_escalation"].(bool)
		return flow.NodeResult{Updates: flow.State{
			FieldApprovalStatus: StatusApproved,
			FieldDecisionReason: "Order is within credit limits and complies with policy",
			FieldRequiresHuman:  escalate,
		}}
	}
}

// escalate is the decision node. On first entry it suspends with a payload
// describing the case for the reviewer. On re-entry after resume the
// injected decision is present, so the node finishes instead: it maps the
// decision onto an approval status. Anything other than an explicit approval
// is treated as rejection.
func escalate() flow.NodeFunc {
	return func(_ context.Context, s flow.State) flow.NodeResult {
		if decision, ok := s[flow.DecisionField]; ok {
			return flow.NodeResult{Updates: flow.State{
				FieldApprovalStatus: decisionStatus(decision),
				FieldDecisionReason: "Decision made by management after review",
				FieldRequiresHuman:  false,
			}}
		}

		customer := s.GetMap(FieldCustomer)
		order := s.GetMap(FieldOrder)
		return flow.NodeResult{Suspend: &flow.SuspendRequest{
			Payload: map[string]any{
				"customer_id":         customer[ColCustomerID],
				"order_value":         order[ColTurnover],
				"credit_limit":        customer[ColCreditLimit],
				"outstanding_balance": customer[ColOutstandingBalance],
				"escalation_reason":   s.GetString(FieldDecisionReason),
			},
		}}
	}
}

// decisionStatus normalizes an external decision value to an approval
// status. Approval must be explicit; everything else rejects.
func decisionStatus(decision any) string {
	switch v := decision.(type) {
	case bool:
		if v {
			return StatusApproved
		}
	case string:
		if v == StatusApproved {
			return StatusApproved
		}
	}
	return StatusRejected
}

// approveOrder stamps the final approval.
func approveOrder() flow.NodeFunc {
	return func(_ context.Context, _ flow.State) flow.NodeResult {
		return flow.NodeResult{Updates: flow.State{
			FieldApprovalStatus: StatusApproved,
			FieldDecisionReason: "Order approved within credit policy guidelines",
		}}
	}
}

// rejectOrder stamps the final rejection, preserving the reason recorded
// upstream.
func rejectOrder() flow.NodeFunc {
	return func(_ context.Context, s flow.State) flow.NodeResult {
		reason := s.GetString(FieldDecisionReason)
		if reason == "" {
			reason = "Failed credit policy check"
		}
		return flow.NodeResult{Updates: flow.State{
			FieldApprovalStatus: StatusRejected,
			FieldDecisionReason: reason,
		}}
	}
}

// documentApproval records the decision for the accounting system of record.
func documentApproval() flow.NodeFunc {
	return func(_ context.Context, _ flow.State) flow.NodeResult {
		return flow.NodeResult{Updates: flow.State{
			FieldDocumented:   true,
			FieldDocumentedAt: time.Now().UTC().Format(time.RFC3339),
		}}
	}
}

// communicateDecision informs the relevant teams. The sink is
// fire-and-forget: its failure is recorded in state but never aborts
// completion.
func communicateDecision(sink NotificationSink) flow.NodeFunc {
	return func(ctx context.Context, s flow.State) flow.NodeResult {
		sent := true
		if err := sink.Notify(ctx, s); err != nil {
			sent = false
		}
		return flow.NodeResult{Updates: flow.State{
			FieldCommunicated: true,
			FieldNotified:     sent,
		}}
	}
}

// numField reads a numeric record field, tolerating the types CSV parsing
// and JSON round-trips produce.
func numField(record map[string]any, key string) float64 {
	switch v := record[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
