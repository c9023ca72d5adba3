package detect

import (
	"context"
	"sort"
	"strings"

	"github.com/gridline/fraudgraph/backend/pkg/logger"
	"github.com/gridline/fraudgraph/backend/pkg/store"
)

// Shell chains are a binary pattern: a matching chain always scores 0.95.
const shellChainRiskScore = 0.95

// ChainMember is one company in a shell chain with its issued invoice count.
type ChainMember struct {
	CompanyID string `json:"company_id"`
	Invoices  int    `json:"invoices"`
}

// ShellChain is a subsidiary chain whose members all share one HIGH-risk
// auditor and all have abnormally low invoice activity.
type ShellChain struct {
	AuditorID      string        `json:"auditor_id"`
	AuditorName    string        `json:"auditor_name"`
	RiskLevel      string        `json:"risk_level"`
	Chain          []string      `json:"chain"`
	ChainLength    int           `json:"chain_length"`
	TotalInvoices  int           `json:"total_invoices"`
	AvgInvoices    float64       `json:"avg_invoices"`
	CompanyDetails []ChainMember `json:"company_details"`
	RiskScore      float64       `json:"risk_score"`
}

// ShellDetector finds shell company chains rooted in SUBSIDIARY_OF paths.
type ShellDetector struct {
	store  store.GraphStore
	params Params
}

func NewShellDetector(st store.GraphStore, params Params) *ShellDetector {
	return &ShellDetector{store: st, params: params.withDefaults()}
}

// Detect returns every shell chain containing the target company, ordered
// longest chain first with ties broken by lowest average invoice count, and
// the risk contribution: 0.95 if any chain matched, otherwise 0.
func (d *ShellDetector) Detect(ctx context.Context, targetID string) ([]ShellChain, float64, error) {
	auditors, err := d.store.HighRiskAuditors(ctx)
	if err != nil {
		return nil, 0, err
	}

	invoiceCounts := make(map[string]int)
	countInvoices := func(companyID string) (int, error) {
		if n, ok := invoiceCounts[companyID]; ok {
			return n, nil
		}
		n, err := d.store.IssuedInvoiceCount(ctx, companyID)
		if err != nil {
			return 0, err
		}
		invoiceCounts[companyID] = n
		return n, nil
	}

	seen := make(map[string]bool)
	var matches []ShellChain

	for _, auditor := range auditors {
		audited, err := d.store.CompaniesAuditedBy(ctx, auditor.ID)
		if err != nil {
			return nil, 0, err
		}
		auditedSet := make(map[string]bool, len(audited))
		for _, id := range audited {
			auditedSet[id] = true
		}

		for _, root := range audited {
			paths, err := d.store.SubsidiaryPaths(ctx, root, minSubsidiaryEdges, maxSubsidiaryEdges)
			if err != nil {
				return nil, 0, err
			}

		pathLoop:
			for _, chain := range paths {
				if len(chain) < d.params.MinChainLength {
					continue
				}
				for _, member := range chain {
					if !auditedSet[member] {
						continue pathLoop
					}
				}
				sig := auditor.ID + "|" + chainSignature(chain)
				if seen[sig] {
					continue
				}
				seen[sig] = true

				members := make([]ChainMember, 0, len(chain))
				total := 0
				lowActivity := true
				for _, member := range chain {
					n, err := countInvoices(member)
					if err != nil {
						return nil, 0, err
					}
					if n > d.params.MaxInvoices {
						lowActivity = false
						break
					}
					members = append(members, ChainMember{CompanyID: member, Invoices: n})
					total += n
				}
				if !lowActivity {
					continue
				}

				matches = append(matches, ShellChain{
					AuditorID:      auditor.ID,
					AuditorName:    auditor.Name,
					RiskLevel:      auditor.RiskLevel,
					Chain:          chain,
					ChainLength:    len(chain),
					TotalInvoices:  total,
					AvgInvoices:    float64(total) / float64(len(chain)),
					CompanyDetails: members,
					RiskScore:      shellChainRiskScore,
				})
			}
		}
	}

	var targeted []ShellChain
	for _, m := range matches {
		for _, member := range m.Chain {
			if member == targetID {
				targeted = append(targeted, m)
				break
			}
		}
	}

	sort.Slice(targeted, func(i, j int) bool {
		if targeted[i].ChainLength != targeted[j].ChainLength {
			return targeted[i].ChainLength > targeted[j].ChainLength
		}
		return targeted[i].AvgInvoices < targeted[j].AvgInvoices
	})

	logger.Debug("[Shell] Chains matched", "target", targetID, "count", len(targeted))

	if len(targeted) == 0 {
		return nil, 0, nil
	}
	return targeted, shellChainRiskScore, nil
}

// chainSignature canonicalizes a chain or cycle as its sorted member set,
// so rotations and reversals of the same node set collapse to one key.
func chainSignature(members []string) string {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
