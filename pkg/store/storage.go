package store

import (
	"context"
	"errors"

	"github.com/gridline/fraudgraph/backend/pkg/common"
)

// ErrNotFound is returned when a node identifier does not resolve to any
// node in the graph.
var ErrNotFound = errors.New("node not found")

// GraphStore is the read-only traversal and aggregation capability the
// detection engine depends on. Implementations materialize every result
// before returning; the engine never writes through this interface.
//
// The four primitive capabilities are node lookup by label and property,
// bounded-length path enumeration, weight-filtered relationship scans, and
// invoice aggregate counts. Neighborhood extraction exists purely for the
// visualization payload.
type GraphStore interface {
	// ResolveCompany looks up a company by identifier, case-insensitively,
	// and returns the canonical record. Returns ErrNotFound if no company
	// matches.
	ResolveCompany(ctx context.Context, id string) (common.Company, error)

	// ShareholderByID returns the shareholder with the given identifier.
	ShareholderByID(ctx context.Context, id string) (common.Shareholder, error)

	// HighRiskAuditors returns every auditor whose risk level is HIGH.
	HighRiskAuditors(ctx context.Context) ([]common.Auditor, error)

	// CompaniesAuditedBy returns the identifiers of all companies with an
	// AUDITED_BY relationship to the given auditor.
	CompaniesAuditedBy(ctx context.Context, auditorID string) ([]string, error)

	// SubsidiaryPaths enumerates simple directed SUBSIDIARY_OF paths rooted
	// at the given company, with between minEdges and maxEdges edges. Each
	// path is the full ordered node sequence including the root.
	SubsidiaryPaths(ctx context.Context, rootID string, minEdges, maxEdges int) ([][]string, error)

	// SupplyEdges returns every SUPPLIES relationship with annual volume of
	// at least minVolume. A minVolume of zero returns all supply edges.
	SupplyEdges(ctx context.Context, minVolume float64) ([]common.SupplyEdge, error)

	// SuppliersOf returns the SUPPLIES edges pointing at the given company,
	// regardless of volume.
	SuppliersOf(ctx context.Context, companyID string) ([]common.SupplyEdge, error)

	// OwnershipEdges returns every OWNS_SHARE relationship with a percentage
	// of at least minPercentage. A minPercentage of zero returns all
	// ownership edges.
	OwnershipEdges(ctx context.Context, minPercentage float64) ([]common.OwnershipEdge, error)

	// IssuedInvoiceCount returns the number of distinct invoices the company
	// issued (ISSUES_TO).
	IssuedInvoiceCount(ctx context.Context, companyID string) (int, error)

	// PaidInvoiceCount returns the number of distinct invoices the company
	// paid (PAYS).
	PaidInvoiceCount(ctx context.Context, companyID string) (int, error)

	// SharedInvoiceCount returns the number of distinct invoices issued by
	// the supplier that the payer also paid.
	SharedInvoiceCount(ctx context.Context, supplierID, payerID string) (int, error)

	// Neighborhood returns the subgraph reachable from the company within
	// the given number of hops, treating edges as undirected for reach but
	// reporting them directed. Invoice nodes are excluded. Returns
	// ErrNotFound if the company does not exist.
	Neighborhood(ctx context.Context, companyID string, hops int) (*common.Neighborhood, error)
}
