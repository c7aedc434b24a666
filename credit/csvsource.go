package credit

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// CSVDataSource serves cases from customer master and sales order CSV
// exports, the interchange format the surrounding accounting system
// produces. Both files are loaded once at construction; lookups are
// in-memory and read-only afterwards.
//
// Expected files in the data directory:
//   - customer_master.csv: Customer_ID, Credit_Limit, Outstanding_Balance, ...
//   - sales_order.csv: Order_ID, Customer_ID, turnover, ...
type CSVDataSource struct {
	customers map[string]map[string]any
	orders    map[string]map[string]any
}

// NewCSVDataSource loads the CSV exports from dir.
func NewCSVDataSource(dir string) (*CSVDataSource, error) {
	customers, err := loadCSV(filepath.Join(dir, "customer_master.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to load customer master: %w", err)
	}
	orders, err := loadCSV(filepath.Join(dir, "sales_order.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to load sales orders: %w", err)
	}

	s := &CSVDataSource{
		customers: make(map[string]map[string]any, len(customers)),
		orders:    make(map[string]map[string]any, len(orders)),
	}
	for _, row := range customers {
		if id, ok := row[ColCustomerID].(string); ok && id != "" {
			s.customers[id] = row
		}
	}
	// Keep the first order per customer; one case is one order under review.
	for _, row := range orders {
		if id, ok := row[ColCustomerID].(string); ok && id != "" {
			if _, exists := s.orders[id]; !exists {
				s.orders[id] = row
			}
		}
	}
	return s, nil
}

// FetchCase implements DataSource. A customer without a pending order is not
// a case.
func (s *CSVDataSource) FetchCase(_ context.Context, customerID string) (Case, error) {
	customer, ok := s.customers[customerID]
	if !ok {
		return Case{}, fmt.Errorf("customer %q: %w", customerID, ErrCaseNotFound)
	}
	order, ok := s.orders[customerID]
	if !ok {
		return Case{}, fmt.Errorf("no pending order for customer %q: %w", customerID, ErrCaseNotFound)
	}
	return Case{Customer: customer, Order: order}, nil
}

// Customers returns the IDs of customers that have a pending order.
func (s *CSVDataSource) Customers() []string {
	ids := make([]string, 0, len(s.orders))
	for id := range s.orders {
		if _, ok := s.customers[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// loadCSV reads a headered CSV file into one field map per row. Numeric
// cells become float64, everything else stays a string.
func loadCSV(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", filepath.Base(path))
	}

	header := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i >= len(record) {
				break
			}
			cell := record[i]
			if n, err := strconv.ParseFloat(cell, 64); err == nil && col != ColCustomerID && col != ColOrderID {
				row[col] = n
			} else {
				row[col] = cell
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
