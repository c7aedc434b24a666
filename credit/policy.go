package credit

import "os"

// DefaultPolicy is used when no policy document is available. Its thresholds
// match the deterministic assessment rules in package assess.
const DefaultPolicy = "DEFAULT_CREDIT_POLICY: Max credit utilization 80%, Min credit score 650"

// LoadPolicy reads the credit policy document from path, falling back to
// DefaultPolicy when the file is missing or unreadable. A missing policy
// file must not prevent case processing.
func LoadPolicy(path string) string {
	if path == "" {
		return DefaultPolicy
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultPolicy
	}
	return string(data)
}
