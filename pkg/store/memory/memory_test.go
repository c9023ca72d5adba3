package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/gridline/fraudgraph/backend/pkg/common"
	"github.com/gridline/fraudgraph/backend/pkg/store"
)

func TestResolveCompany_CaseInsensitive(t *testing.T) {
	idx := NewIndex()
	idx.AddCompany(common.Company{ID: "Acme Holdings", Name: "Acme Holdings", RiskScore: 0.3})

	for _, query := range []string{"Acme Holdings", "acme holdings", "ACME HOLDINGS"} {
		c, err := idx.ResolveCompany(context.Background(), query)
		if err != nil {
			t.Fatalf("resolve %q: expected nil error, got %v", query, err)
		}
		if c.ID != "Acme Holdings" {
			t.Fatalf("resolve %q: expected canonical identifier, got %q", query, c.ID)
		}
	}

	_, err := idx.ResolveCompany(context.Background(), "nobody")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestShareholderByID(t *testing.T) {
	idx := NewIndex()
	idx.AddShareholder(common.Shareholder{ID: "S", Name: "Holder", Type: "PERSON"})

	s, err := idx.ShareholderByID(context.Background(), "S")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if s.Name != "Holder" {
		t.Fatalf("expected Holder, got %q", s.Name)
	}

	_, err = idx.ShareholderByID(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHighRiskAuditors_FiltersByLevel(t *testing.T) {
	idx := NewIndex()
	idx.AddAuditor(common.Auditor{ID: "a1", Name: "One", RiskLevel: common.RiskHigh})
	idx.AddAuditor(common.Auditor{ID: "a2", Name: "Two", RiskLevel: common.RiskMedium})
	idx.AddAuditor(common.Auditor{ID: "a3", Name: "Three", RiskLevel: common.RiskHigh})

	auditors, err := idx.HighRiskAuditors(context.Background())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(auditors) != 2 || auditors[0].ID != "a1" || auditors[1].ID != "a3" {
		t.Fatalf("expected sorted HIGH auditors a1, a3, got %+v", auditors)
	}
}

func TestSubsidiaryPaths_Bounds(t *testing.T) {
	idx := NewIndex()
	// A -> B -> C -> D -> E, child to parent.
	chain := []string{"A", "B", "C", "D", "E"}
	for i := 0; i+1 < len(chain); i++ {
		idx.AddSubsidiary(chain[i], chain[i+1])
	}

	paths, err := idx.SubsidiaryPaths(context.Background(), "A", 3, 3)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(paths) != 1 || len(paths[0]) != 4 {
		t.Fatalf("expected one 4-company path, got %v", paths)
	}

	paths, err = idx.SubsidiaryPaths(context.Background(), "A", 3, 10)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected paths at 3 and 4 edges, got %v", paths)
	}
}

func TestSubsidiaryPaths_CycleSafe(t *testing.T) {
	idx := NewIndex()
	idx.AddSubsidiary("A", "B")
	idx.AddSubsidiary("B", "C")
	idx.AddSubsidiary("C", "A")

	paths, err := idx.SubsidiaryPaths(context.Background(), "A", 1, 10)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	// A node never repeats on a path, so traversal terminates at C.
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %v", paths)
	}
}

func TestSubsidiaryPaths_Cancellation(t *testing.T) {
	idx := NewIndex()
	idx.AddSubsidiary("A", "B")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.SubsidiaryPaths(ctx, "A", 1, 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSupplyEdges_VolumeFilter(t *testing.T) {
	idx := NewIndex()
	idx.AddSupply("A", "B", 100)
	idx.AddSupply("B", "C", 50)
	idx.AddSupply("C", "A", 80)

	edges, err := idx.SupplyEdges(context.Background(), 80)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges at volume >= 80, got %+v", edges)
	}
	if edges[0].Supplier != "A" || edges[1].Supplier != "C" {
		t.Fatalf("expected deterministic ordering, got %+v", edges)
	}
}

func TestSuppliersOf(t *testing.T) {
	idx := NewIndex()
	idx.AddSupply("X", "T", 10)
	idx.AddSupply("Y", "T", 20)
	idx.AddSupply("T", "Z", 30)

	edges, err := idx.SuppliersOf(context.Background(), "T")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(edges) != 2 || edges[0].Supplier != "X" || edges[1].Supplier != "Y" {
		t.Fatalf("expected suppliers X and Y, got %+v", edges)
	}
}

func TestOwnershipEdges_PercentageFilter(t *testing.T) {
	idx := NewIndex()
	idx.AddOwnership("S1", "C1", 40)
	idx.AddOwnership("S2", "C1", 10)

	edges, err := idx.OwnershipEdges(context.Background(), 25)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(edges) != 1 || edges[0].Shareholder != "S1" {
		t.Fatalf("expected only the 40%% stake, got %+v", edges)
	}
}

func TestInvoiceCounts(t *testing.T) {
	idx := NewIndex()
	idx.AddIssuedInvoice("X", "i1")
	idx.AddIssuedInvoice("X", "i2")
	idx.AddIssuedInvoice("X", "i2") // duplicate edges collapse
	idx.AddPaidInvoice("T", "i1")
	idx.AddPaidInvoice("T", "i3")

	issued, err := idx.IssuedInvoiceCount(context.Background(), "X")
	if err != nil || issued != 2 {
		t.Fatalf("expected 2 issued, got %d (%v)", issued, err)
	}
	paid, err := idx.PaidInvoiceCount(context.Background(), "T")
	if err != nil || paid != 2 {
		t.Fatalf("expected 2 paid, got %d (%v)", paid, err)
	}
	shared, err := idx.SharedInvoiceCount(context.Background(), "X", "T")
	if err != nil || shared != 1 {
		t.Fatalf("expected 1 shared, got %d (%v)", shared, err)
	}
}

func TestNeighborhood_TwoHops(t *testing.T) {
	idx := NewIndex()
	idx.AddCompany(common.Company{ID: "Center", Name: "Center", RiskScore: 0.9})
	idx.AddCompany(common.Company{ID: "Near", Name: "Near"})
	idx.AddCompany(common.Company{ID: "Far", Name: "Far"})
	idx.AddCompany(common.Company{ID: "Beyond", Name: "Beyond"})
	idx.AddAuditor(common.Auditor{ID: "Aud", Name: "Aud", RiskLevel: common.RiskHigh})

	idx.AddSupply("Near", "Center", 100)
	idx.AddSubsidiary("Far", "Near")
	idx.AddSupply("Beyond", "Far", 100) // 3 hops out
	idx.AddAudit("Center", "Aud")

	n, err := idx.Neighborhood(context.Background(), "center", 2)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if n.Center.ID != "Center" {
		t.Fatalf("expected resolved center, got %+v", n.Center)
	}

	got := make(map[string]string)
	for _, node := range n.Nodes {
		got[node.ID] = node.Type
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 neighbors within 2 hops, got %v", got)
	}
	if got["Near"] != "Company" || got["Far"] != "Company" || got["Aud"] != "Auditor" {
		t.Fatalf("unexpected neighbor typing: %v", got)
	}
	if _, leaked := got["Beyond"]; leaked {
		t.Fatal("expected 3-hop node excluded")
	}

	for _, e := range n.Edges {
		if e.From == "Beyond" || e.To == "Beyond" {
			t.Fatalf("expected no edges to excluded nodes, got %+v", e)
		}
	}
	foundAudit := false
	for _, e := range n.Edges {
		if e.Type == common.RelAuditedBy && e.From == "Center" && e.To == "Aud" {
			foundAudit = true
		}
	}
	if !foundAudit {
		t.Fatal("expected the audit edge in the neighborhood")
	}
}

func TestNeighborhood_UnknownCompany(t *testing.T) {
	idx := NewIndex()
	_, err := idx.Neighborhood(context.Background(), "ghost", 2)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
