// Package pgx implements the GraphStore interface on PostgreSQL. Scans and
// aggregate counts run as SQL; bounded path traversal and neighborhood
// expansion run in Go over edge lists hydrated into the in-memory index.
package pgx

import (
	"context"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gridline/fraudgraph/backend/pkg/common"
	"github.com/gridline/fraudgraph/backend/pkg/store"
	"github.com/gridline/fraudgraph/backend/pkg/store/memory"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

// GraphDBStorage implements the GraphStore interface on a PostgreSQL
// relationship schema.
type GraphDBStorage struct {
	conn pgxIConn
}

// NewGraphDBStorageWithConnection creates a GraphDBStorage using an existing
// database connection or pool.
func NewGraphDBStorageWithConnection(conn pgxIConn) *GraphDBStorage {
	return &GraphDBStorage{conn: conn}
}

func (s *GraphDBStorage) ResolveCompany(ctx context.Context, id string) (common.Company, error) {
	var c common.Company
	err := s.conn.QueryRow(ctx,
		`SELECT id, name, risk_score FROM companies WHERE lower(id) = lower($1)`,
		id,
	).Scan(&c.ID, &c.Name, &c.RiskScore)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Company{}, store.ErrNotFound
	}
	if err != nil {
		return common.Company{}, fmt.Errorf("resolve company: %w", err)
	}
	return c, nil
}

func (s *GraphDBStorage) ShareholderByID(ctx context.Context, id string) (common.Shareholder, error) {
	var sh common.Shareholder
	err := s.conn.QueryRow(ctx,
		`SELECT id, name, type FROM shareholders WHERE id = $1`,
		id,
	).Scan(&sh.ID, &sh.Name, &sh.Type)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Shareholder{}, store.ErrNotFound
	}
	if err != nil {
		return common.Shareholder{}, fmt.Errorf("shareholder by id: %w", err)
	}
	return sh, nil
}

func (s *GraphDBStorage) HighRiskAuditors(ctx context.Context) ([]common.Auditor, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, name, risk_level FROM auditors WHERE risk_level = $1 ORDER BY id`,
		common.RiskHigh,
	)
	if err != nil {
		return nil, fmt.Errorf("high risk auditors: %w", err)
	}
	defer rows.Close()

	var out []common.Auditor
	for rows.Next() {
		var a common.Auditor
		if err := rows.Scan(&a.ID, &a.Name, &a.RiskLevel); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *GraphDBStorage) CompaniesAuditedBy(ctx context.Context, auditorID string) ([]string, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT company_id FROM audits WHERE auditor_id = $1 ORDER BY company_id`,
		auditorID,
	)
	if err != nil {
		return nil, fmt.Errorf("companies audited by: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *GraphDBStorage) SubsidiaryPaths(ctx context.Context, rootID string, minEdges, maxEdges int) ([][]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT child_id, parent_id FROM subsidiaries`)
	if err != nil {
		return nil, fmt.Errorf("subsidiary edges: %w", err)
	}
	defer rows.Close()

	idx := memory.NewIndex()
	for rows.Next() {
		var child, parent string
		if err := rows.Scan(&child, &parent); err != nil {
			return nil, err
		}
		idx.AddSubsidiary(child, parent)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return idx.SubsidiaryPaths(ctx, rootID, minEdges, maxEdges)
}

func (s *GraphDBStorage) SupplyEdges(ctx context.Context, minVolume float64) ([]common.SupplyEdge, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT supplier_id, customer_id, annual_volume
		   FROM supplies
		  WHERE annual_volume >= $1
		  ORDER BY supplier_id, customer_id`,
		minVolume,
	)
	if err != nil {
		return nil, fmt.Errorf("supply edges: %w", err)
	}
	defer rows.Close()

	var out []common.SupplyEdge
	for rows.Next() {
		var e common.SupplyEdge
		if err := rows.Scan(&e.Supplier, &e.Customer, &e.AnnualVolume); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *GraphDBStorage) SuppliersOf(ctx context.Context, companyID string) ([]common.SupplyEdge, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT supplier_id, customer_id, annual_volume
		   FROM supplies
		  WHERE customer_id = $1
		  ORDER BY supplier_id`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("suppliers of: %w", err)
	}
	defer rows.Close()

	var out []common.SupplyEdge
	for rows.Next() {
		var e common.SupplyEdge
		if err := rows.Scan(&e.Supplier, &e.Customer, &e.AnnualVolume); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *GraphDBStorage) OwnershipEdges(ctx context.Context, minPercentage float64) ([]common.OwnershipEdge, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT shareholder_id, company_id, percentage
		   FROM ownerships
		  WHERE percentage >= $1
		  ORDER BY shareholder_id, company_id`,
		minPercentage,
	)
	if err != nil {
		return nil, fmt.Errorf("ownership edges: %w", err)
	}
	defer rows.Close()

	var out []common.OwnershipEdge
	for rows.Next() {
		var e common.OwnershipEdge
		if err := rows.Scan(&e.Shareholder, &e.Company, &e.Percentage); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *GraphDBStorage) IssuedInvoiceCount(ctx context.Context, companyID string) (int, error) {
	var n int
	err := s.conn.QueryRow(ctx,
		`SELECT count(DISTINCT invoice_id) FROM invoice_issues WHERE company_id = $1`,
		companyID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("issued invoice count: %w", err)
	}
	return n, nil
}

func (s *GraphDBStorage) PaidInvoiceCount(ctx context.Context, companyID string) (int, error) {
	var n int
	err := s.conn.QueryRow(ctx,
		`SELECT count(DISTINCT invoice_id) FROM invoice_payments WHERE company_id = $1`,
		companyID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("paid invoice count: %w", err)
	}
	return n, nil
}

func (s *GraphDBStorage) SharedInvoiceCount(ctx context.Context, supplierID, payerID string) (int, error) {
	var n int
	err := s.conn.QueryRow(ctx,
		`SELECT count(DISTINCT i.invoice_id)
		   FROM invoice_issues i
		   JOIN invoice_payments p ON p.invoice_id = i.invoice_id
		  WHERE i.company_id = $1 AND p.company_id = $2`,
		supplierID, payerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("shared invoice count: %w", err)
	}
	return n, nil
}

// Neighborhood hydrates the typed relationship edges and node metadata into
// the in-memory index and expands there. Invoice edges are excluded from the
// visualization by construction.
func (s *GraphDBStorage) Neighborhood(ctx context.Context, companyID string, hops int) (*common.Neighborhood, error) {
	center, err := s.ResolveCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	idx := memory.NewIndex()

	rows, err := s.conn.Query(ctx, `SELECT id, name, risk_score FROM companies`)
	if err != nil {
		return nil, fmt.Errorf("neighborhood companies: %w", err)
	}
	for rows.Next() {
		var c common.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.RiskScore); err != nil {
			rows.Close()
			return nil, err
		}
		idx.AddCompany(c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.conn.Query(ctx, `SELECT id, name, risk_level FROM auditors`)
	if err != nil {
		return nil, fmt.Errorf("neighborhood auditors: %w", err)
	}
	for rows.Next() {
		var a common.Auditor
		if err := rows.Scan(&a.ID, &a.Name, &a.RiskLevel); err != nil {
			rows.Close()
			return nil, err
		}
		idx.AddAuditor(a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.conn.Query(ctx, `SELECT id, name, type FROM shareholders`)
	if err != nil {
		return nil, fmt.Errorf("neighborhood shareholders: %w", err)
	}
	for rows.Next() {
		var sh common.Shareholder
		if err := rows.Scan(&sh.ID, &sh.Name, &sh.Type); err != nil {
			rows.Close()
			return nil, err
		}
		idx.AddShareholder(sh)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	supplies, err := s.SupplyEdges(ctx, 0)
	if err != nil {
		return nil, err
	}
	for _, e := range supplies {
		idx.AddSupply(e.Supplier, e.Customer, e.AnnualVolume)
	}

	rows, err = s.conn.Query(ctx, `SELECT child_id, parent_id FROM subsidiaries`)
	if err != nil {
		return nil, fmt.Errorf("neighborhood subsidiaries: %w", err)
	}
	for rows.Next() {
		var child, parent string
		if err := rows.Scan(&child, &parent); err != nil {
			rows.Close()
			return nil, err
		}
		idx.AddSubsidiary(child, parent)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ownerships, err := s.OwnershipEdges(ctx, 0)
	if err != nil {
		return nil, err
	}
	for _, e := range ownerships {
		idx.AddOwnership(e.Shareholder, e.Company, e.Percentage)
	}

	rows, err = s.conn.Query(ctx, `SELECT company_id, auditor_id FROM audits`)
	if err != nil {
		return nil, fmt.Errorf("neighborhood audits: %w", err)
	}
	for rows.Next() {
		var company, auditor string
		if err := rows.Scan(&company, &auditor); err != nil {
			rows.Close()
			return nil, err
		}
		idx.AddAudit(company, auditor)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return idx.Neighborhood(ctx, center.ID, hops)
}

var _ store.GraphStore = (*GraphDBStorage)(nil)
