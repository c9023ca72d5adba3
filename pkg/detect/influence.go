package detect

import (
	"context"
	"sort"

	"github.com/gridline/fraudgraph/backend/pkg/common"
	"github.com/gridline/fraudgraph/backend/pkg/logger"
	"github.com/gridline/fraudgraph/backend/pkg/store"
)

const (
	dampingFactor      = 0.85
	pageRankIterations = 20
	centralityCutoff   = 0.01

	// A shareholder missing from the centrality map is treated as having
	// low but nonzero influence, never excluded.
	defaultInfluence = 0.1
)

// CentralityCache memoizes the shareholder centrality map across analyses.
// The centrality pass does not depend on the target company, so a bounded
// staleness window is acceptable. A nil cache means recompute every time.
type CentralityCache interface {
	Get(ctx context.Context) (map[string]float64, bool)
	Set(ctx context.Context, scores map[string]float64)
}

// InfluenceMatch is a shareholder with outsized indirect influence over the
// target company through an intermediary supplier.
type InfluenceMatch struct {
	ShareholderID    string  `json:"shareholder_id"`
	ShareholderName  string  `json:"shareholder_name"`
	ShareholderType  string  `json:"shareholder_type"`
	SupplierID       string  `json:"supplier_id"`
	SupplierName     string  `json:"supplier_name"`
	TargetID         string  `json:"target_id"`
	TargetName       string  `json:"target_name"`
	OwnershipPct     float64 `json:"ownership_pct"`
	SupplierInvoices int     `json:"supplier_invoices"`
	TotalInvoices    int     `json:"total_invoices"`
	ConcentrationPct float64 `json:"concentration_pct"`
	InfluenceScore   float64 `json:"influence_score"`
	OpportunityScore float64 `json:"opportunity_score"`
}

// InfluenceAnalyzer runs the centrality pass over the ownership graph and
// the per-company hidden influence pattern search that consumes it.
type InfluenceAnalyzer struct {
	store  store.GraphStore
	params Params
	cache  CentralityCache
}

func NewInfluenceAnalyzer(st store.GraphStore, params Params, cache CentralityCache) *InfluenceAnalyzer {
	return &InfluenceAnalyzer{store: st, params: params.withDefaults(), cache: cache}
}

// Centrality returns the influence score of every shareholder scoring above
// the reporting cutoff, computed by 20 fixed iterations of weighted PageRank
// over the full ownership graph.
func (a *InfluenceAnalyzer) Centrality(ctx context.Context) (map[string]float64, error) {
	if a.cache != nil {
		if scores, ok := a.cache.Get(ctx); ok {
			logger.Debug("[Influence] Centrality served from cache", "shareholders", len(scores))
			return scores, nil
		}
	}

	edges, err := a.store.OwnershipEdges(ctx, 0)
	if err != nil {
		return nil, err
	}

	ranks := pageRank(edges)
	scores := make(map[string]float64)
	for node, score := range ranks {
		if node.kind == nodeShareholder && score > centralityCutoff {
			scores[node.id] = score
		}
	}
	logger.Debug("[Influence] Centrality computed", "shareholders", len(scores))

	if a.cache != nil {
		a.cache.Set(ctx, scores)
	}
	return scores, nil
}

// Detect returns every hidden influence path ending at the target, ordered
// by concentration percentage descending, and the opportunity contribution:
// the maximum opportunity score, or 0 with no match.
func (a *InfluenceAnalyzer) Detect(ctx context.Context, target common.Company) ([]InfluenceMatch, float64, error) {
	influence, err := a.Centrality(ctx)
	if err != nil {
		return nil, 0, err
	}

	suppliers, err := a.store.SuppliersOf(ctx, target.ID)
	if err != nil {
		return nil, 0, err
	}
	if len(suppliers) == 0 {
		return nil, 0, nil
	}
	supplierSet := make(map[string]bool, len(suppliers))
	for _, e := range suppliers {
		supplierSet[e.Supplier] = true
	}

	totalPaid, err := a.store.PaidInvoiceCount(ctx, target.ID)
	if err != nil {
		return nil, 0, err
	}
	// A target that paid no invoices has an undefined concentration ratio;
	// that is a non-match, not a default.
	if totalPaid == 0 {
		return nil, 0, nil
	}

	ownerships, err := a.store.OwnershipEdges(ctx, a.params.MinOwnership)
	if err != nil {
		return nil, 0, err
	}

	var matches []InfluenceMatch
	for _, owned := range ownerships {
		if !supplierSet[owned.Company] {
			continue
		}
		// The pattern requires hidden influence: a shareholder that also
		// supplies the target directly is not hidden.
		if supplierSet[owned.Shareholder] {
			continue
		}

		shared, err := a.store.SharedInvoiceCount(ctx, owned.Company, target.ID)
		if err != nil {
			return nil, 0, err
		}
		concentration := float64(shared) / float64(totalPaid) * 100
		if concentration < a.params.MinConcentration {
			continue
		}

		shareholder, err := a.store.ShareholderByID(ctx, owned.Shareholder)
		if err != nil {
			return nil, 0, err
		}
		supplier, err := a.store.ResolveCompany(ctx, owned.Company)
		if err != nil {
			return nil, 0, err
		}

		score, ok := influence[owned.Shareholder]
		if !ok {
			score = defaultInfluence
		}

		ownershipFactor := owned.Percentage / 50
		if ownershipFactor > 1 {
			ownershipFactor = 1
		}
		opportunity := 0.7*score + 0.3*ownershipFactor + 0.3*(concentration/100)
		if opportunity > 1 {
			opportunity = 1
		}

		matches = append(matches, InfluenceMatch{
			ShareholderID:    shareholder.ID,
			ShareholderName:  shareholder.Name,
			ShareholderType:  shareholder.Type,
			SupplierID:       supplier.ID,
			SupplierName:     supplier.Name,
			TargetID:         target.ID,
			TargetName:       target.Name,
			OwnershipPct:     owned.Percentage,
			SupplierInvoices: shared,
			TotalInvoices:    totalPaid,
			ConcentrationPct: concentration,
			InfluenceScore:   score,
			OpportunityScore: opportunity,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].ConcentrationPct != matches[j].ConcentrationPct {
			return matches[i].ConcentrationPct > matches[j].ConcentrationPct
		}
		if matches[i].OwnershipPct != matches[j].OwnershipPct {
			return matches[i].OwnershipPct > matches[j].OwnershipPct
		}
		return matches[i].ShareholderID < matches[j].ShareholderID
	})

	logger.Debug("[Influence] Hidden influence paths matched", "target", target.ID, "count", len(matches))

	best := 0.0
	for _, m := range matches {
		if m.OpportunityScore > best {
			best = m.OpportunityScore
		}
	}
	return matches, best, nil
}

type nodeKind int

const (
	nodeShareholder nodeKind = iota
	nodeCompany
)

type rankNode struct {
	kind nodeKind
	id   string
}

// pageRank runs the weighted random-walk formulation over the ownership
// graph: shareholders point at the companies they own, edge weight is the
// ownership percentage. Exactly pageRankIterations iterations, no
// convergence check, so identical inputs always produce identical scores.
// Dangling mass (companies have no outgoing edges) is redistributed
// uniformly, which keeps the total score sum at 1.
func pageRank(edges []common.OwnershipEdge) map[rankNode]float64 {
	outWeight := make(map[rankNode]float64)
	nodes := make(map[rankNode]struct{})
	for _, e := range edges {
		from := rankNode{nodeShareholder, e.Shareholder}
		to := rankNode{nodeCompany, e.Company}
		nodes[from] = struct{}{}
		nodes[to] = struct{}{}
		outWeight[from] += e.Percentage
	}
	n := len(nodes)
	if n == 0 {
		return nil
	}

	scores := make(map[rankNode]float64, n)
	for node := range nodes {
		scores[node] = 1 / float64(n)
	}

	for i := 0; i < pageRankIterations; i++ {
		dangling := 0.0
		for node, score := range scores {
			if outWeight[node] == 0 {
				dangling += score
			}
		}

		next := make(map[rankNode]float64, n)
		base := (1-dampingFactor)/float64(n) + dampingFactor*dangling/float64(n)
		for node := range nodes {
			next[node] = base
		}
		for _, e := range edges {
			from := rankNode{nodeShareholder, e.Shareholder}
			to := rankNode{nodeCompany, e.Company}
			if outWeight[from] == 0 {
				continue
			}
			next[to] += dampingFactor * scores[from] * e.Percentage / outWeight[from]
		}
		scores = next
	}
	return scores
}
