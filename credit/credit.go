// Package credit implements the accounts-receivable credit approval workflow
// on top of the flow engine: load the case, verify the customer, assess
// creditworthiness, verify against policy, and approve, reject, or escalate
// to management for a human decision.
package credit

import (
	"context"
	"errors"

	"github.com/mshields/arflow/flow"
)

// State field names. The workflow state document uses these keys; predicates
// and the host API read them by name, so they are part of the contract.
const (
	// FieldCustomerID is the only field callers must supply in the initial
	// state: the customer the case concerns.
	FieldCustomerID = "customer_id"

	FieldCustomer       = "customer_data"
	FieldOrder          = "order_data"
	FieldPolicy         = "policy_content"
	FieldAssessment     = "credit_assessment"
	FieldApprovalStatus = "approval_status"
	FieldDecisionReason = "decision_reason"
	FieldRequiresHuman  = "requires_human"
	FieldCustomerExists = "customer_exists"
	FieldDocumented     = "documentation_complete"
	FieldDocumentedAt   = "documentation_timestamp"
	FieldCommunicated   = "communication_complete"
	FieldNotified       = "notification_sent"
)

// Approval outcomes stored under FieldApprovalStatus. Every completed run
// carries one of these.
const (
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Customer and order record keys, matching the master data column names.
const (
	ColCustomerID         = "Customer_ID"
	ColCreditLimit        = "Credit_Limit"
	ColOutstandingBalance = "Outstanding_Balance"
	ColOrderID            = "Order_ID"
	ColTurnover           = "turnover"
)

// ErrCaseNotFound is returned by a DataSource when no case exists for the
// requested customer.
var ErrCaseNotFound = errors.New("case not found")

// Case is one approval case: the customer's master record and the sales
// order under review. Both records are generic field maps keyed by the Col*
// constants.
type Case struct {
	Customer map[string]any
	Order    map[string]any
}

// DataSource retrieves cases from the record store. Implementations live
// outside the workflow core; nodes translate any failure into state fields
// rather than letting it escape the node contract.
type DataSource interface {
	FetchCase(ctx context.Context, customerID string) (Case, error)
}

// NotificationSink is told about final decisions. It is fire-and-forget
// from the workflow's perspective: a notification failure never aborts run
// completion.
type NotificationSink interface {
	Notify(ctx context.Context, finalState flow.State) error
}
