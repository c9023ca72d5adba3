package detect

import (
	"context"
	"fmt"
	"testing"

	"github.com/gridline/fraudgraph/backend/pkg/common"
	"github.com/gridline/fraudgraph/backend/pkg/store/memory"
)

// influenceFixture builds the hidden influence pattern: shareholder S owns
// 40% of supplier X, X supplies target T, and 9 of the 10 invoices T paid
// were issued by X.
func influenceFixture() *memory.Index {
	idx := memory.NewIndex()
	idx.AddCompany(common.Company{ID: "T", Name: "T"})
	idx.AddCompany(common.Company{ID: "X", Name: "X"})
	idx.AddShareholder(common.Shareholder{ID: "S", Name: "Silent Partner", Type: "PERSON"})
	idx.AddSupply("X", "T", 500)
	idx.AddOwnership("S", "X", 40)
	for i := 0; i < 10; i++ {
		inv := fmt.Sprintf("inv-%d", i)
		idx.AddPaidInvoice("T", inv)
		if i < 9 {
			idx.AddIssuedInvoice("X", inv)
		}
	}
	return idx
}

func target() common.Company {
	return common.Company{ID: "T", Name: "T"}
}

func TestInfluenceAnalyzer_HiddenInfluenceMatch(t *testing.T) {
	a := NewInfluenceAnalyzer(influenceFixture(), DefaultParams(), nil)
	matches, opportunity, err := a.Detect(context.Background(), target())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}

	m := matches[0]
	if m.ShareholderID != "S" || m.SupplierID != "X" || m.TargetID != "T" {
		t.Fatalf("unexpected path attribution: %+v", m)
	}
	if m.OwnershipPct != 40 {
		t.Fatalf("expected ownership 40, got %v", m.OwnershipPct)
	}
	if m.SupplierInvoices != 9 || m.TotalInvoices != 10 {
		t.Fatalf("expected 9/10 invoices, got %d/%d", m.SupplierInvoices, m.TotalInvoices)
	}
	if !almostEqual(m.ConcentrationPct, 90) {
		t.Fatalf("expected concentration 90, got %v", m.ConcentrationPct)
	}
	if m.InfluenceScore <= centralityCutoff || m.InfluenceScore >= 1 {
		t.Fatalf("expected a computed influence score in (0.01, 1), got %v", m.InfluenceScore)
	}
	want := 0.7*m.InfluenceScore + 0.3*(40.0/50.0) + 0.3*0.9
	if want > 1 {
		want = 1
	}
	if !almostEqual(m.OpportunityScore, want) {
		t.Fatalf("expected opportunity %v, got %v", want, m.OpportunityScore)
	}
	if !almostEqual(opportunity, m.OpportunityScore) {
		t.Fatalf("expected contribution %v, got %v", m.OpportunityScore, opportunity)
	}
}

func TestInfluenceAnalyzer_ZeroPaidInvoicesIsNonMatch(t *testing.T) {
	idx := memory.NewIndex()
	idx.AddCompany(common.Company{ID: "T", Name: "T"})
	idx.AddCompany(common.Company{ID: "X", Name: "X"})
	idx.AddShareholder(common.Shareholder{ID: "S", Name: "Silent Partner", Type: "PERSON"})
	idx.AddSupply("X", "T", 500)
	idx.AddOwnership("S", "X", 40)

	a := NewInfluenceAnalyzer(idx, DefaultParams(), nil)
	matches, opportunity, err := a.Detect(context.Background(), target())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(matches) != 0 || opportunity != 0 {
		t.Fatalf("expected no matches with zero paid invoices, got %d matches opportunity %v", len(matches), opportunity)
	}
}

func TestInfluenceAnalyzer_DirectSupplierIsNotHidden(t *testing.T) {
	idx := influenceFixture()
	// The shareholder also supplies the target directly, so the influence
	// is not hidden.
	idx.AddCompany(common.Company{ID: "S", Name: "S"})
	idx.AddSupply("S", "T", 100)

	a := NewInfluenceAnalyzer(idx, DefaultParams(), nil)
	matches, _, err := a.Detect(context.Background(), target())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no matches for a direct supplier, got %d", len(matches))
	}
}

func TestInfluenceAnalyzer_BelowThresholds(t *testing.T) {
	t.Run("ownership", func(t *testing.T) {
		idx := influenceFixture()
		idx.AddShareholder(common.Shareholder{ID: "S2", Name: "Minor", Type: "PERSON"})
		idx.AddOwnership("S2", "X", 10)

		a := NewInfluenceAnalyzer(idx, DefaultParams(), nil)
		matches, _, err := a.Detect(context.Background(), target())
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		for _, m := range matches {
			if m.ShareholderID == "S2" {
				t.Fatalf("expected S2 excluded below the ownership threshold, got %+v", m)
			}
		}
	})

	t.Run("concentration", func(t *testing.T) {
		idx := memory.NewIndex()
		idx.AddCompany(common.Company{ID: "T", Name: "T"})
		idx.AddCompany(common.Company{ID: "X", Name: "X"})
		idx.AddShareholder(common.Shareholder{ID: "S", Name: "Silent Partner", Type: "PERSON"})
		idx.AddSupply("X", "T", 500)
		idx.AddOwnership("S", "X", 40)
		for i := 0; i < 10; i++ {
			inv := fmt.Sprintf("inv-%d", i)
			idx.AddPaidInvoice("T", inv)
			if i < 7 {
				idx.AddIssuedInvoice("X", inv)
			}
		}

		a := NewInfluenceAnalyzer(idx, DefaultParams(), nil)
		matches, _, err := a.Detect(context.Background(), target())
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if len(matches) != 0 {
			t.Fatalf("expected no matches at 70%% concentration, got %d", len(matches))
		}
	})
}

func TestInfluenceAnalyzer_Ordering(t *testing.T) {
	idx := influenceFixture()
	// Second supplier with full concentration overlap via a second
	// shareholder; it must sort ahead of the 90% path.
	idx.AddCompany(common.Company{ID: "Y", Name: "Y"})
	idx.AddShareholder(common.Shareholder{ID: "S2", Name: "Quiet Owner", Type: "COMPANY"})
	idx.AddSupply("Y", "T", 300)
	idx.AddOwnership("S2", "Y", 60)
	for i := 0; i < 10; i++ {
		idx.AddIssuedInvoice("Y", fmt.Sprintf("inv-%d", i))
	}

	a := NewInfluenceAnalyzer(idx, DefaultParams(), nil)
	matches, _, err := a.Detect(context.Background(), target())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ShareholderID != "S2" || matches[1].ShareholderID != "S" {
		t.Fatalf("expected concentration-descending order, got %s then %s",
			matches[0].ShareholderID, matches[1].ShareholderID)
	}
}

type staticCache struct {
	scores map[string]float64
	sets   int
}

func (c *staticCache) Get(ctx context.Context) (map[string]float64, bool) {
	return c.scores, c.scores != nil
}

func (c *staticCache) Set(ctx context.Context, scores map[string]float64) {
	c.scores = scores
	c.sets++
}

func TestInfluenceAnalyzer_CentralityCache(t *testing.T) {
	cache := &staticCache{scores: map[string]float64{"S": 0.5}}
	a := NewInfluenceAnalyzer(influenceFixture(), DefaultParams(), cache)

	matches, _, err := a.Detect(context.Background(), target())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(matches) != 1 || !almostEqual(matches[0].InfluenceScore, 0.5) {
		t.Fatalf("expected cached influence score 0.5, got %+v", matches)
	}
	if cache.sets != 0 {
		t.Fatalf("expected no cache write on hit, got %d", cache.sets)
	}

	cache.scores = nil
	if _, _, err := a.Detect(context.Background(), target()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected one cache write on miss, got %d", cache.sets)
	}
}

func TestPageRank_ConservesTotalScore(t *testing.T) {
	edges := []common.OwnershipEdge{
		{Shareholder: "S1", Company: "C1", Percentage: 60},
		{Shareholder: "S1", Company: "C2", Percentage: 40},
		{Shareholder: "S2", Company: "C2", Percentage: 100},
		{Shareholder: "S3", Company: "C3", Percentage: 25},
	}
	scores := pageRank(edges)
	if len(scores) != 6 {
		t.Fatalf("expected 6 ranked nodes, got %d", len(scores))
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	if !almostEqual(sum, 1) {
		t.Fatalf("expected scores to sum to 1, got %v", sum)
	}

	// C2 receives weight from two shareholders, C3 from one minor stake.
	if scores[rankNode{nodeCompany, "C2"}] <= scores[rankNode{nodeCompany, "C3"}] {
		t.Fatalf("expected C2 ranked above C3: %v vs %v",
			scores[rankNode{nodeCompany, "C2"}], scores[rankNode{nodeCompany, "C3"}])
	}
}

func TestPageRank_Deterministic(t *testing.T) {
	edges := []common.OwnershipEdge{
		{Shareholder: "S1", Company: "C1", Percentage: 60},
		{Shareholder: "S2", Company: "C1", Percentage: 40},
	}
	first := pageRank(edges)
	second := pageRank(edges)
	for node, score := range first {
		if second[node] != score {
			t.Fatalf("expected identical scores for %v, got %v and %v", node, score, second[node])
		}
	}
}

func TestPageRank_EmptyGraph(t *testing.T) {
	if scores := pageRank(nil); scores != nil {
		t.Fatalf("expected nil scores for empty graph, got %v", scores)
	}
}
