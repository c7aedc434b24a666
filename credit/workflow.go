package credit

import (
	"errors"

	"github.com/mshields/arflow/assess"
	"github.com/mshields/arflow/flow"
)

// Routing keys used by the conditional edge sets.
const (
	routeExisting  = "existing_customer"
	routeNew       = "new_customer"
	routeEscalate  = "requires_escalation"
	routeApprove   = "approve_order"
	routeReject    = "reject_order"
	routeRejectNow = "rejected"
	routeApproved  = "approved"
)

// Deps are the external collaborators the workflow calls out to.
type Deps struct {
	// Source retrieves customer and order records.
	Source DataSource

	// Assessor performs the credit assessment.
	Assessor assess.Service

	// Notifier is told about final decisions.
	Notifier NotificationSink

	// Policy is the credit policy document text. Empty selects
	// DefaultPolicy.
	Policy string
}

// Build wires the approval graph:
//
//	load_data → check_customer ─┬─ existing → credit_check → policy_verification ─┬─ escalation → escalate_to_management ─┬─ approved → approve_order
//	                            └─ new ────→ reject_order                         ├─ approve ──→ approve_order            └─ rejected → reject_order
//	                                                                              └─ reject ───→ reject_order
//	approve_order → document_approval → communicate_decision (terminal)
//	reject_order → communicate_decision
//
// An approved management decision routes through approve_order rather than
// straight to documentation, so both terminal branches stamp status and
// reason in one place.
func Build(deps Deps) (*flow.Definition, error) {
	if deps.Source == nil {
		return nil, errors.New("data source is required")
	}
	if deps.Assessor == nil {
		return nil, errors.New("assessor is required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	policy := deps.Policy
	if policy == "" {
		policy = DefaultPolicy
	}

	def := flow.NewDefinition()

	nodes := map[string]flow.Node{
		NodeLoadData:     loadData(deps.Source, policy),
		NodeCheckCust:    checkCustomer(),
		NodeCreditCheck:  creditCheck(deps.Assessor),
		NodePolicyVerify: policyVerify(),
		NodeApprove:      approveOrder(),
		NodeReject:       rejectOrder(),
		NodeEscalate:     escalate(),
		NodeDocument:     documentApproval(),
		NodeCommunicate:  communicateDecision(deps.Notifier),
	}
	for name, node := range nodes {
		if err := def.AddNode(name, node); err != nil {
			return nil, err
		}
	}

	if err := def.SetEntry(NodeLoadData); err != nil {
		return nil, err
	}
	if err := def.AddEdge(NodeLoadData, NodeCheckCust); err != nil {
		return nil, err
	}

	// New customers are rejected per policy; they never reach assessment.
	if err := def.AddConditionalEdges(NodeCheckCust, func(s flow.State) string {
		if s.GetBool(FieldCustomerExists) {
			return routeExisting
		}
		return routeNew
	}, map[string]string{
		routeExisting: NodeCreditCheck,
		routeNew:      NodeReject,
	}); err != nil {
		return nil, err
	}

	if err := def.AddEdge(NodeCreditCheck, NodePolicyVerify); err != nil {
		return nil, err
	}

	// Rejection takes precedence over escalation: a case already rejected
	// by policy never suspends for management review.
	if err := def.AddConditionalEdges(NodePolicyVerify, func(s flow.State) string {
		if s.GetString(FieldApprovalStatus) == StatusRejected {
			return routeReject
		}
		if s.GetBool(FieldRequiresHuman) {
			return routeEscalate
		}
		return routeApprove
	}, map[string]string{
		routeEscalate: NodeEscalate,
		routeApprove:  NodeApprove,
		routeReject:   NodeReject,
	}); err != nil {
		return nil, err
	}

	if err := def.AddConditionalEdges(NodeEscalate, func(s flow.State) string {
		return s.GetString(FieldApprovalStatus)
	}, map[string]string{
		routeApproved:  NodeApprove,
		routeRejectNow: NodeReject,
	}); err != nil {
		return nil, err
	}

	if err := def.AddEdge(NodeApprove, NodeDocument); err != nil {
		return nil, err
	}
	if err := def.AddEdge(NodeDocument, NodeCommunicate); err != nil {
		return nil, err
	}
	if err := def.AddEdge(NodeReject, NodeCommunicate); err != nil {
		return nil, err
	}

	if err := def.Compile(); err != nil {
		return nil, err
	}
	return def, nil
}
