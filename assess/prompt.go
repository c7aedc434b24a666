package assess

import (
	"fmt"
	"strings"
)

// BuildPrompt constructs the analysis prompt shared by all model-backed
// assessors. The response format mirrors what every provider is asked to
// produce so ParseNarrative can handle any of them.
func BuildPrompt(facts Facts) string {
	var sb strings.Builder
	sb.WriteString("You are a chartered accountant on an accounts receivable credit risk team.\n")
	sb.WriteString("Assess the creditworthiness of a customer against company policy using their credit limit, outstanding balance, and order amount.\n\n")
	sb.WriteString("Policy:\n")
	sb.WriteString(facts.Policy)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Customer Information:\n- Credit Limit: $%.2f\n- Outstanding Balance: $%.2f\n\n", facts.CreditLimit, facts.OutstandingBalance)
	fmt.Fprintf(&sb, "Order Information:\n- Order Amount: $%.2f\n\n", facts.OrderAmount)
	sb.WriteString("FORMAT YOUR RESPONSE EXACTLY LIKE THIS:\n")
	sb.WriteString("ANALYSIS: [detailed assessment]\n")
	sb.WriteString("WITHIN_LIMITS: [Yes/No]\n")
	sb.WriteString("NEEDS_ESCALATION: [Yes/No]\n")
	return sb.String()
}

// ParseNarrative extracts the ANALYSIS section from a model response. If the
// response does not follow the requested format the whole text is kept;
// routing never depends on the narrative, so a malformed response only
// degrades the decision record.
func ParseNarrative(response string) string {
	response = strings.TrimSpace(response)
	idx := strings.Index(response, "ANALYSIS:")
	if idx == -1 {
		return response
	}
	section := response[idx+len("ANALYSIS:"):]
	for _, marker := range []string{"WITHIN_LIMITS:", "NEEDS_ESCALATION:"} {
		if end := strings.Index(section, marker); end != -1 {
			section = section[:end]
		}
	}
	return strings.TrimSpace(section)
}
