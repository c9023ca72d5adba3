package detect

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gridline/fraudgraph/backend/pkg/common"
	"github.com/gridline/fraudgraph/backend/pkg/logger"
	logmem "github.com/gridline/fraudgraph/backend/pkg/logger/memory"
	"github.com/gridline/fraudgraph/backend/pkg/store"
	"github.com/gridline/fraudgraph/backend/pkg/store/memory"
)

func TestAnalyzer_UnknownCompany(t *testing.T) {
	a := NewAnalyzer(memory.NewIndex(), DefaultParams(), nil)
	_, err := a.Analyze(context.Background(), "ghost")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAnalyzer_CleanCompany(t *testing.T) {
	idx := memory.NewIndex()
	idx.AddCompany(common.Company{ID: "Clean Corp", Name: "Clean Corp"})

	a := NewAnalyzer(idx, DefaultParams(), nil)
	result, err := a.Analyze(context.Background(), "Clean Corp")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.RiskScore != 0 || result.OpportunityScore != 0 {
		t.Fatalf("expected zero scores, got risk %v opportunity %v", result.RiskScore, result.OpportunityScore)
	}
	if result.Patterns.ShellChains == nil || len(result.Patterns.ShellChains) != 0 {
		t.Fatalf("expected empty non-nil shell chains, got %#v", result.Patterns.ShellChains)
	}
	if result.Patterns.CircularTrades == nil || len(result.Patterns.CircularTrades) != 0 {
		t.Fatalf("expected empty non-nil circular trades, got %#v", result.Patterns.CircularTrades)
	}
	if result.Patterns.HiddenInfluence == nil || len(result.Patterns.HiddenInfluence) != 0 {
		t.Fatalf("expected empty non-nil hidden influence, got %#v", result.Patterns.HiddenInfluence)
	}
}

func TestAnalyzer_CaseInsensitiveResolution(t *testing.T) {
	idx := memory.NewIndex()
	idx.AddCompany(common.Company{ID: "Acme Holdings", Name: "Acme Holdings"})

	a := NewAnalyzer(idx, DefaultParams(), nil)
	result, err := a.Analyze(context.Background(), "acme holdings")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.Company.ID != "Acme Holdings" {
		t.Fatalf("expected canonical identifier, got %q", result.Company.ID)
	}
}

func TestAnalyzer_RiskIsMaxOfDetectors(t *testing.T) {
	// Shell chain (0.95) plus an isolated triangle (0.9125) around the same
	// company.
	idx := shellFixture()
	idx.AddCompany(common.Company{ID: "Q", Name: "Q"})
	idx.AddCompany(common.Company{ID: "R", Name: "R"})
	idx.AddSupply("A", "Q", 100)
	idx.AddSupply("Q", "R", 90)
	idx.AddSupply("R", "A", 120)

	a := NewAnalyzer(idx, DefaultParams(), nil)
	result, err := a.Analyze(context.Background(), "A")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(result.Patterns.ShellChains) != 1 {
		t.Fatalf("expected 1 shell chain, got %d", len(result.Patterns.ShellChains))
	}
	if len(result.Patterns.CircularTrades) != 1 {
		t.Fatalf("expected 1 trade cycle, got %d", len(result.Patterns.CircularTrades))
	}
	if result.RiskScore != 0.95 {
		t.Fatalf("expected risk 0.95, got %v", result.RiskScore)
	}
}

func TestAnalyzer_OpportunityFromInfluence(t *testing.T) {
	a := NewAnalyzer(influenceFixture(), DefaultParams(), nil)
	result, err := a.Analyze(context.Background(), "T")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(result.Patterns.HiddenInfluence) != 1 {
		t.Fatalf("expected 1 influence match, got %d", len(result.Patterns.HiddenInfluence))
	}
	if !almostEqual(result.OpportunityScore, result.Patterns.HiddenInfluence[0].OpportunityScore) {
		t.Fatalf("expected opportunity %v, got %v",
			result.Patterns.HiddenInfluence[0].OpportunityScore, result.OpportunityScore)
	}
	if result.OpportunityScore <= 0 || result.OpportunityScore > 1 {
		t.Fatalf("expected opportunity in (0, 1], got %v", result.OpportunityScore)
	}
}

// stallingStore delays ownership scans until the caller's context expires,
// simulating a detector that exceeds its time budget.
type stallingStore struct {
	store.GraphStore
}

func (s stallingStore) OwnershipEdges(ctx context.Context, minPercentage float64) ([]common.OwnershipEdge, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAnalyzer_DetectorTimeoutIsSoft(t *testing.T) {
	capture := logmem.NewMemoryLogger()
	logger.Init(capture)
	defer logger.Init()

	idx := influenceFixture()
	a := NewAnalyzer(stallingStore{idx}, DefaultParams(), nil)
	a.timeout = 20 * time.Millisecond

	result, err := a.Analyze(context.Background(), "T")
	if err != nil {
		t.Fatalf("expected timeout to degrade, got %v", err)
	}
	if len(result.Patterns.HiddenInfluence) != 0 || result.OpportunityScore != 0 {
		t.Fatalf("expected empty influence contribution, got %+v", result.Patterns.HiddenInfluence)
	}

	warned := false
	for _, e := range capture.Entries() {
		if e.Level == "WARN" && strings.Contains(e.Message, "timed out") {
			warned = true
		}
	}
	if !warned {
		t.Fatal("expected a timeout warning")
	}
}

func TestAnalyzer_StoreFailureIsFatal(t *testing.T) {
	idx := influenceFixture()
	a := NewAnalyzer(failingStore{idx}, DefaultParams(), nil)

	_, err := a.Analyze(context.Background(), "T")
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected the store failure to propagate, got %v", err)
	}
}

// failingStore breaks ownership scans outright.
type failingStore struct {
	store.GraphStore
}

func (s failingStore) OwnershipEdges(ctx context.Context, minPercentage float64) ([]common.OwnershipEdge, error) {
	return nil, errors.New("connection reset")
}
