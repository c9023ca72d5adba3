package detect

import (
	"context"
	"sort"

	"github.com/gridline/fraudgraph/backend/pkg/logger"
	"github.com/gridline/fraudgraph/backend/pkg/store"
)

// Cycle risk is a base of 0.80 plus up to 0.15 for isolation.
const (
	cycleRiskBase  = 0.80
	cycleRiskSpan  = 0.15
	cycleRiskFloor = 0.80
	cycleRiskCeil  = 0.95
)

// TradeCycle is a closed loop of SUPPLIES relationships with high internal
// volume relative to its external supply connections.
type TradeCycle struct {
	Cycle               []string `json:"cycle"`
	CycleLength         int      `json:"cycle_length"`
	TotalVolume         float64  `json:"total_volume"`
	AvgVolume           float64  `json:"avg_volume"`
	ExternalConnections int      `json:"external_connections"`
	IsolationScore      float64  `json:"isolation_score"`
	RiskScore           float64  `json:"risk_score"`
}

// sccFunc computes strongly connected components of a directed graph given
// as sorted adjacency lists. Pluggable so large-cycle detection can degrade
// gracefully when the computation is unavailable.
type sccFunc func(adjacency map[string][]string) ([][]string, error)

// CircularDetector finds circular trade patterns at three size classes:
// triangles, simple cycles of 4 to 8 companies, and strongly connected
// components of 9 or more companies.
type CircularDetector struct {
	store  store.GraphStore
	params Params
	scc    sccFunc
}

func NewCircularDetector(st store.GraphStore, params Params) *CircularDetector {
	return &CircularDetector{store: st, params: params.withDefaults(), scc: tarjanSCC}
}

// Detect returns every cycle containing the target company, de-duplicated on
// the sorted member set across all three strategies, and the risk
// contribution: the maximum cycle risk, or 0 with no match.
func (d *CircularDetector) Detect(ctx context.Context, targetID string) ([]TradeCycle, float64, error) {
	filtered, err := d.store.SupplyEdges(ctx, d.params.MinVolume)
	if err != nil {
		return nil, 0, err
	}
	all, err := d.store.SupplyEdges(ctx, 0)
	if err != nil {
		return nil, 0, err
	}

	// Volume-filtered adjacency for cycle enumeration.
	weight := make(map[string]map[string]float64)
	next := make(map[string][]string)
	for _, e := range filtered {
		if e.Supplier == e.Customer {
			continue
		}
		if weight[e.Supplier] == nil {
			weight[e.Supplier] = make(map[string]float64)
		}
		if _, dup := weight[e.Supplier][e.Customer]; !dup {
			next[e.Supplier] = append(next[e.Supplier], e.Customer)
		}
		weight[e.Supplier][e.Customer] = e.AnnualVolume
	}
	for node := range next {
		sort.Strings(next[node])
	}

	// Unfiltered outgoing supply targets, for the isolation metric.
	outAll := make(map[string]map[string]struct{})
	for _, e := range all {
		if outAll[e.Supplier] == nil {
			outAll[e.Supplier] = make(map[string]struct{})
		}
		outAll[e.Supplier][e.Customer] = struct{}{}
	}

	seen := make(map[string]bool)
	var cycles []TradeCycle
	record := func(members []string, totalVolume float64) {
		sig := chainSignature(members)
		if seen[sig] {
			return
		}
		seen[sig] = true
		cycles = append(cycles, d.buildCycle(members, totalVolume, outAll))
	}

	d.detectTriangles(weight, record)
	if err := d.detectMediumCycles(ctx, next, weight, record); err != nil {
		return nil, 0, err
	}

	// Large cycles are best-effort: an unavailable SCC computation must not
	// abort the remaining strategies.
	if err := d.detectLargeComponents(next, weight, record); err != nil {
		logger.Warn("[Circular] Large cycle detection unavailable, skipping", "err", err)
	}

	var targeted []TradeCycle
	for _, c := range cycles {
		for _, member := range c.Cycle {
			if member == targetID {
				targeted = append(targeted, c)
				break
			}
		}
	}

	sort.Slice(targeted, func(i, j int) bool {
		if targeted[i].RiskScore != targeted[j].RiskScore {
			return targeted[i].RiskScore > targeted[j].RiskScore
		}
		if targeted[i].IsolationScore != targeted[j].IsolationScore {
			return targeted[i].IsolationScore > targeted[j].IsolationScore
		}
		return chainSignature(targeted[i].Cycle) < chainSignature(targeted[j].Cycle)
	})

	logger.Debug("[Circular] Cycles matched", "target", targetID, "count", len(targeted))

	risk := 0.0
	for _, c := range targeted {
		if c.RiskScore > risk {
			risk = c.RiskScore
		}
	}
	return targeted, risk, nil
}

func (d *CircularDetector) detectTriangles(weight map[string]map[string]float64, record func([]string, float64)) {
	nodes := make([]string, 0, len(weight))
	for n := range weight {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	for _, a := range nodes {
		for b, wab := range weight[a] {
			if b <= a {
				continue
			}
			for c, wbc := range weight[b] {
				if c <= a || c == b {
					continue
				}
				wca, closed := weight[c][a]
				if !closed {
					continue
				}
				record([]string{a, b, c}, wab+wbc+wca)
			}
		}
	}
}

func (d *CircularDetector) detectMediumCycles(ctx context.Context, next map[string][]string, weight map[string]map[string]float64, record func([]string, float64)) error {
	starts := make([]string, 0, len(next))
	for n := range next {
		starts = append(starts, n)
	}
	sort.Strings(starts)

	for _, start := range starts {
		if err := ctx.Err(); err != nil {
			return err
		}
		onPath := map[string]bool{start: true}
		path := []string{start}

		var walk func(node string, volume float64)
		walk = func(node string, volume float64) {
			if len(path) >= mediumCycleMin && len(path) <= mediumCycleMax {
				if back, closed := weight[node][start]; closed {
					record(append([]string(nil), path...), volume+back)
				}
			}
			if len(path) == mediumCycleMax {
				return
			}
			for _, n := range next[node] {
				// Anchoring each cycle at its smallest member id prevents
				// enumerating the same loop from every rotation.
				if n <= start || onPath[n] {
					continue
				}
				onPath[n] = true
				path = append(path, n)
				walk(n, volume+weight[node][n])
				path = path[:len(path)-1]
				delete(onPath, n)
			}
		}
		walk(start, 0)
	}
	return nil
}

func (d *CircularDetector) detectLargeComponents(next map[string][]string, weight map[string]map[string]float64, record func([]string, float64)) error {
	if d.scc == nil {
		return errStrategyUnavailable
	}
	components, err := d.scc(next)
	if err != nil {
		return err
	}
	for _, members := range components {
		if len(members) < largeCycleMin {
			continue
		}
		inside := make(map[string]bool, len(members))
		for _, m := range members {
			inside[m] = true
		}
		total := 0.0
		for _, m := range members {
			for to, w := range weight[m] {
				if inside[to] {
					total += w
				}
			}
		}
		sorted := append([]string(nil), members...)
		sort.Strings(sorted)
		record(sorted, total)
	}
	return nil
}

func (d *CircularDetector) buildCycle(members []string, totalVolume float64, outAll map[string]map[string]struct{}) TradeCycle {
	inside := make(map[string]bool, len(members))
	for _, m := range members {
		inside[m] = true
	}
	external := make(map[string]struct{})
	for _, m := range members {
		for to := range outAll[m] {
			if !inside[to] {
				external[to] = struct{}{}
			}
		}
	}

	length := len(members)
	isolation := float64(length) / float64(length+len(external)+1)
	risk := cycleRiskBase + cycleRiskSpan*isolation
	if risk < cycleRiskFloor {
		risk = cycleRiskFloor
	}
	if risk > cycleRiskCeil {
		risk = cycleRiskCeil
	}

	return TradeCycle{
		Cycle:               members,
		CycleLength:         length,
		TotalVolume:         totalVolume,
		AvgVolume:           totalVolume / float64(length),
		ExternalConnections: len(external),
		IsolationScore:      isolation,
		RiskScore:           risk,
	}
}
