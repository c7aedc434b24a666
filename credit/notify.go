package credit

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mshields/arflow/flow"
)

// LogNotifier is a NotificationSink that writes decisions to a writer. It
// stands in for the sales/logistics notification channel in deployments
// that have none.
type LogNotifier struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewLogNotifier creates a notifier writing to the given writer. A nil
// writer defaults to os.Stdout.
func NewLogNotifier(writer io.Writer) *LogNotifier {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogNotifier{writer: writer}
}

// Notify implements NotificationSink.
func (n *LogNotifier) Notify(_ context.Context, finalState flow.State) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, err := fmt.Fprintf(n.writer, "[decision] customer=%s status=%s reason=%q\n",
		finalState.GetString(FieldCustomerID),
		finalState.GetString(FieldApprovalStatus),
		finalState.GetString(FieldDecisionReason))
	return err
}
