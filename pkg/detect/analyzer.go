package detect

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gridline/fraudgraph/backend/pkg/common"
	"github.com/gridline/fraudgraph/backend/pkg/logger"
	"github.com/gridline/fraudgraph/backend/pkg/store"
)

const defaultDetectorTimeout = 30 * time.Second

// Patterns groups the findings of the three detectors. Slices are always
// non-nil so the JSON rendering shows empty arrays, never null.
type Patterns struct {
	ShellChains     []ShellChain     `json:"shell_chains"`
	CircularTrades  []TradeCycle     `json:"circular_trades"`
	HiddenInfluence []InfluenceMatch `json:"hidden_influence"`
}

// Result is the full analysis of one company.
type Result struct {
	Company          common.Company `json:"company"`
	RiskScore        float64        `json:"risk_score"`
	OpportunityScore float64        `json:"opportunity_score"`
	Patterns         Patterns       `json:"patterns"`
}

// Analyzer resolves a company and fans the three detectors out in parallel.
type Analyzer struct {
	store     store.GraphStore
	shell     *ShellDetector
	circular  *CircularDetector
	influence *InfluenceAnalyzer
	timeout   time.Duration
}

// NewAnalyzer wires an analyzer with the given thresholds. The cache may be
// nil; centrality is then recomputed on every run.
func NewAnalyzer(st store.GraphStore, params Params, cache CentralityCache) *Analyzer {
	params = params.withDefaults()
	return &Analyzer{
		store:     st,
		shell:     NewShellDetector(st, params),
		circular:  NewCircularDetector(st, params),
		influence: NewInfluenceAnalyzer(st, params, cache),
		timeout:   defaultDetectorTimeout,
	}
}

// Analyze runs all detectors against the named company. The name is resolved
// case-insensitively; an unknown company returns store.ErrNotFound. A
// detector exceeding its time budget contributes nothing and logs a warning;
// any other detector failure fails the whole analysis.
func (a *Analyzer) Analyze(ctx context.Context, companyName string) (*Result, error) {
	company, err := a.store.ResolveCompany(ctx, companyName)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Company: company,
		Patterns: Patterns{
			ShellChains:     []ShellChain{},
			CircularTrades:  []TradeCycle{},
			HiddenInfluence: []InfluenceMatch{},
		},
	}

	var shellRisk, cycleRisk float64
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		chains, risk, err := a.runShell(gctx, company.ID)
		if err != nil {
			return err
		}
		if chains != nil {
			result.Patterns.ShellChains = chains
		}
		shellRisk = risk
		return nil
	})
	g.Go(func() error {
		cycles, risk, err := a.runCircular(gctx, company.ID)
		if err != nil {
			return err
		}
		if cycles != nil {
			result.Patterns.CircularTrades = cycles
		}
		cycleRisk = risk
		return nil
	})
	g.Go(func() error {
		matches, opportunity, err := a.runInfluence(gctx, company)
		if err != nil {
			return err
		}
		if matches != nil {
			result.Patterns.HiddenInfluence = matches
		}
		result.OpportunityScore = opportunity
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.RiskScore = shellRisk
	if cycleRisk > result.RiskScore {
		result.RiskScore = cycleRisk
	}

	logger.Info("[Analyzer] Analysis complete",
		"company", company.ID,
		"risk", result.RiskScore,
		"opportunity", result.OpportunityScore)
	return result, nil
}

func (a *Analyzer) runShell(ctx context.Context, companyID string) ([]ShellChain, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	chains, risk, err := a.shell.Detect(ctx, companyID)
	if timedOut(ctx, err) {
		logger.Warn("[Analyzer] Shell chain detection timed out, contributing nothing", "company", companyID)
		return nil, 0, nil
	}
	return chains, risk, err
}

func (a *Analyzer) runCircular(ctx context.Context, companyID string) ([]TradeCycle, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	cycles, risk, err := a.circular.Detect(ctx, companyID)
	if timedOut(ctx, err) {
		logger.Warn("[Analyzer] Circular trade detection timed out, contributing nothing", "company", companyID)
		return nil, 0, nil
	}
	return cycles, risk, err
}

func (a *Analyzer) runInfluence(ctx context.Context, company common.Company) ([]InfluenceMatch, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	matches, opportunity, err := a.influence.Detect(ctx, company)
	if timedOut(ctx, err) {
		logger.Warn("[Analyzer] Influence analysis timed out, contributing nothing", "company", company.ID)
		return nil, 0, nil
	}
	return matches, opportunity, err
}

// timedOut distinguishes this detector's own deadline from cancellation of
// the whole analysis, which must still propagate as an error.
func timedOut(ctx context.Context, err error) bool {
	return err != nil && errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded)
}
