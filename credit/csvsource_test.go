package credit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	customerCSV := strings.Join([]string{
		"Customer_ID,Customer_Name,Credit_Limit,Outstanding_Balance",
		"CUST001,Acme Manufacturing,50000,15000",
		"CUST002,Globex Retail,30000,28000",
		"CUST004,No Orders Ltd,10000,0",
	}, "\n")
	orderCSV := strings.Join([]string{
		"Order_ID,Customer_ID,turnover",
		"ORD100,CUST001,12500",
		"ORD101,CUST001,900",
		"ORD102,CUST002,45000",
	}, "\n")

	if err := os.WriteFile(filepath.Join(dir, "customer_master.csv"), []byte(customerCSV), 0o644); err != nil {
		t.Fatalf("writing customer master: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sales_order.csv"), []byte(orderCSV), 0o644); err != nil {
		t.Fatalf("writing sales orders: %v", err)
	}
	return dir
}

func TestCSVDataSource(t *testing.T) {
	ctx := context.Background()

	t.Run("missing files fail construction", func(t *testing.T) {
		if _, err := NewCSVDataSource(t.TempDir()); err == nil {
			t.Error("expected error for an empty data directory")
		}
	})

	source, err := NewCSVDataSource(writeTestData(t))
	if err != nil {
		t.Fatalf("NewCSVDataSource failed: %v", err)
	}

	t.Run("fetches customer and first pending order", func(t *testing.T) {
		c, err := source.FetchCase(ctx, "CUST001")
		if err != nil {
			t.Fatalf("FetchCase failed: %v", err)
		}
		if c.Customer[ColCustomerID] != "CUST001" {
			t.Errorf("customer = %v", c.Customer)
		}
		if c.Customer[ColCreditLimit] != 50000.0 {
			t.Errorf("credit limit should parse to float64, got %T %v",
				c.Customer[ColCreditLimit], c.Customer[ColCreditLimit])
		}
		if c.Order[ColOrderID] != "ORD100" {
			t.Errorf("expected the first order per customer, got %v", c.Order[ColOrderID])
		}
		if c.Order[ColTurnover] != 12500.0 {
			t.Errorf("turnover = %v", c.Order[ColTurnover])
		}
	})

	t.Run("ID columns stay strings", func(t *testing.T) {
		c, _ := source.FetchCase(ctx, "CUST001")
		if _, ok := c.Order[ColOrderID].(string); !ok {
			t.Errorf("order ID parsed as %T", c.Order[ColOrderID])
		}
	})

	t.Run("unknown customer is not a case", func(t *testing.T) {
		_, err := source.FetchCase(ctx, "CUST999")
		if !errors.Is(err, ErrCaseNotFound) {
			t.Errorf("expected ErrCaseNotFound, got %v", err)
		}
	})

	t.Run("customer without a pending order is not a case", func(t *testing.T) {
		_, err := source.FetchCase(ctx, "CUST004")
		if !errors.Is(err, ErrCaseNotFound) {
			t.Errorf("expected ErrCaseNotFound, got %v", err)
		}
	})

	t.Run("customers lists only those with pending orders", func(t *testing.T) {
		ids := source.Customers()
		if len(ids) != 2 {
			t.Fatalf("Customers = %v", ids)
		}
		seen := map[string]bool{}
		for _, id := range ids {
			seen[id] = true
		}
		if !seen["CUST001"] || !seen["CUST002"] {
			t.Errorf("Customers = %v", ids)
		}
	})
}

func TestLogNotifier(t *testing.T) {
	var sb strings.Builder
	notifier := NewLogNotifier(&sb)

	state := map[string]any{
		FieldCustomerID:     "CUST001",
		FieldApprovalStatus: StatusApproved,
		FieldDecisionReason: "Order approved within credit policy guidelines",
	}
	if err := notifier.Notify(context.Background(), state); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	line := sb.String()
	if !strings.Contains(line, "CUST001") || !strings.Contains(line, StatusApproved) {
		t.Errorf("notification line = %q", line)
	}
}
