// Package memory provides an in-process GraphStore backed by adjacency maps
// keyed by node identifier. It is the reference implementation used in tests
// and the traversal engine the pgx store delegates to after loading edges.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/gridline/fraudgraph/backend/pkg/common"
	"github.com/gridline/fraudgraph/backend/pkg/store"
)

// Index is an in-memory relationship graph. All Add methods are safe for
// concurrent use with reads; reads never mutate state.
type Index struct {
	mu sync.RWMutex

	companies    map[string]common.Company
	companyByLC  map[string]string
	auditors     map[string]common.Auditor
	shareholders map[string]common.Shareholder

	supplyOut map[string][]common.SupplyEdge
	supplyIn  map[string][]common.SupplyEdge
	parents   map[string][]string
	owns      map[string][]common.OwnershipEdge
	audited   map[string][]string

	issued map[string]map[string]struct{}
	paid   map[string]map[string]struct{}
}

func NewIndex() *Index {
	return &Index{
		companies:    make(map[string]common.Company),
		companyByLC:  make(map[string]string),
		auditors:     make(map[string]common.Auditor),
		shareholders: make(map[string]common.Shareholder),
		supplyOut:    make(map[string][]common.SupplyEdge),
		supplyIn:     make(map[string][]common.SupplyEdge),
		parents:      make(map[string][]string),
		owns:         make(map[string][]common.OwnershipEdge),
		audited:      make(map[string][]string),
		issued:       make(map[string]map[string]struct{}),
		paid:         make(map[string]map[string]struct{}),
	}
}

func (x *Index) AddCompany(c common.Company) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.companies[c.ID] = c
	x.companyByLC[strings.ToLower(c.ID)] = c.ID
}

func (x *Index) AddAuditor(a common.Auditor) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.auditors[a.ID] = a
}

func (x *Index) AddShareholder(s common.Shareholder) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.shareholders[s.ID] = s
}

// AddSupply records a SUPPLIES edge from supplier to customer.
func (x *Index) AddSupply(supplier, customer string, annualVolume float64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	e := common.SupplyEdge{Supplier: supplier, Customer: customer, AnnualVolume: annualVolume}
	x.supplyOut[supplier] = append(x.supplyOut[supplier], e)
	x.supplyIn[customer] = append(x.supplyIn[customer], e)
}

// AddSubsidiary records a SUBSIDIARY_OF edge from child to parent.
func (x *Index) AddSubsidiary(child, parent string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.parents[child] = append(x.parents[child], parent)
}

// AddOwnership records an OWNS_SHARE edge from shareholder to company.
func (x *Index) AddOwnership(shareholder, company string, percentage float64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.owns[shareholder] = append(x.owns[shareholder], common.OwnershipEdge{
		Shareholder: shareholder,
		Company:     company,
		Percentage:  percentage,
	})
}

// AddAudit records an AUDITED_BY edge from company to auditor.
func (x *Index) AddAudit(company, auditor string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.audited[auditor] = append(x.audited[auditor], company)
}

// AddIssuedInvoice records an ISSUES_TO edge from company to invoice.
func (x *Index) AddIssuedInvoice(company, invoice string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.issued[company] == nil {
		x.issued[company] = make(map[string]struct{})
	}
	x.issued[company][invoice] = struct{}{}
}

// AddPaidInvoice records a PAYS edge from company to invoice.
func (x *Index) AddPaidInvoice(company, invoice string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.paid[company] == nil {
		x.paid[company] = make(map[string]struct{})
	}
	x.paid[company][invoice] = struct{}{}
}

func (x *Index) ResolveCompany(ctx context.Context, id string) (common.Company, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	canonical, ok := x.companyByLC[strings.ToLower(id)]
	if !ok {
		return common.Company{}, store.ErrNotFound
	}
	return x.companies[canonical], nil
}

func (x *Index) ShareholderByID(ctx context.Context, id string) (common.Shareholder, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	s, ok := x.shareholders[id]
	if !ok {
		return common.Shareholder{}, store.ErrNotFound
	}
	return s, nil
}

func (x *Index) HighRiskAuditors(ctx context.Context) ([]common.Auditor, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var out []common.Auditor
	for _, a := range x.auditors {
		if a.RiskLevel == common.RiskHigh {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (x *Index) CompaniesAuditedBy(ctx context.Context, auditorID string) ([]string, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := append([]string(nil), x.audited[auditorID]...)
	sort.Strings(out)
	return out, nil
}

func (x *Index) SubsidiaryPaths(ctx context.Context, rootID string, minEdges, maxEdges int) ([][]string, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var paths [][]string
	onPath := map[string]bool{rootID: true}
	path := []string{rootID}

	var walk func(node string) error
	walk = func(node string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		edges := len(path) - 1
		if edges >= minEdges {
			paths = append(paths, append([]string(nil), path...))
		}
		if edges == maxEdges {
			return nil
		}
		next := append([]string(nil), x.parents[node]...)
		sort.Strings(next)
		for _, parent := range next {
			if onPath[parent] {
				continue
			}
			onPath[parent] = true
			path = append(path, parent)
			if err := walk(parent); err != nil {
				return err
			}
			path = path[:len(path)-1]
			delete(onPath, parent)
		}
		return nil
	}

	if err := walk(rootID); err != nil {
		return nil, err
	}
	return paths, nil
}

func (x *Index) SupplyEdges(ctx context.Context, minVolume float64) ([]common.SupplyEdge, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var out []common.SupplyEdge
	for _, edges := range x.supplyOut {
		for _, e := range edges {
			if e.AnnualVolume >= minVolume {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Supplier != out[j].Supplier {
			return out[i].Supplier < out[j].Supplier
		}
		return out[i].Customer < out[j].Customer
	})
	return out, nil
}

func (x *Index) SuppliersOf(ctx context.Context, companyID string) ([]common.SupplyEdge, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := append([]common.SupplyEdge(nil), x.supplyIn[companyID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Supplier < out[j].Supplier })
	return out, nil
}

func (x *Index) OwnershipEdges(ctx context.Context, minPercentage float64) ([]common.OwnershipEdge, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var out []common.OwnershipEdge
	for _, edges := range x.owns {
		for _, e := range edges {
			if e.Percentage >= minPercentage {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Shareholder != out[j].Shareholder {
			return out[i].Shareholder < out[j].Shareholder
		}
		return out[i].Company < out[j].Company
	})
	return out, nil
}

func (x *Index) IssuedInvoiceCount(ctx context.Context, companyID string) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.issued[companyID]), nil
}

func (x *Index) PaidInvoiceCount(ctx context.Context, companyID string) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.paid[companyID]), nil
}

func (x *Index) SharedInvoiceCount(ctx context.Context, supplierID, payerID string) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	issued := x.issued[supplierID]
	paid := x.paid[payerID]
	count := 0
	for inv := range issued {
		if _, ok := paid[inv]; ok {
			count++
		}
	}
	return count, nil
}

func (x *Index) Neighborhood(ctx context.Context, companyID string, hops int) (*common.Neighborhood, error) {
	center, err := x.ResolveCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	adjacent := x.undirectedAdjacency()

	reached := map[string]bool{center.ID: true}
	frontier := []string{center.ID}
	for hop := 0; hop < hops; hop++ {
		var next []string
		for _, node := range frontier {
			for _, n := range adjacent[node] {
				if !reached[n] {
					reached[n] = true
					next = append(next, n)
				}
			}
		}
		frontier = next
	}

	n := &common.Neighborhood{Center: center}
	var ids []string
	for id := range reached {
		if id == center.ID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		n.Nodes = append(n.Nodes, x.describeNode(id))
	}

	for _, e := range x.allTypedEdges() {
		if reached[e.From] && reached[e.To] {
			n.Edges = append(n.Edges, e)
		}
	}
	return n, nil
}

func (x *Index) describeNode(id string) common.GraphNode {
	if c, ok := x.companies[id]; ok {
		return common.GraphNode{ID: id, Type: "Company", RiskScore: c.RiskScore}
	}
	if _, ok := x.auditors[id]; ok {
		return common.GraphNode{ID: id, Type: "Auditor"}
	}
	if _, ok := x.shareholders[id]; ok {
		return common.GraphNode{ID: id, Type: "Shareholder"}
	}
	return common.GraphNode{ID: id, Type: "Unknown"}
}

func (x *Index) undirectedAdjacency() map[string][]string {
	adj := make(map[string][]string)
	link := func(a, b string) {
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	for _, e := range x.allTypedEdges() {
		link(e.From, e.To)
	}
	for node := range adj {
		sort.Strings(adj[node])
	}
	return adj
}

func (x *Index) allTypedEdges() []common.GraphEdge {
	var edges []common.GraphEdge
	var suppliers []string
	for s := range x.supplyOut {
		suppliers = append(suppliers, s)
	}
	sort.Strings(suppliers)
	for _, s := range suppliers {
		for _, e := range x.supplyOut[s] {
			edges = append(edges, common.GraphEdge{From: e.Supplier, To: e.Customer, Type: common.RelSupplies, Weight: e.AnnualVolume})
		}
	}
	var children []string
	for c := range x.parents {
		children = append(children, c)
	}
	sort.Strings(children)
	for _, c := range children {
		for _, p := range x.parents[c] {
			edges = append(edges, common.GraphEdge{From: c, To: p, Type: common.RelSubsidiaryOf, Weight: 1})
		}
	}
	var holders []string
	for h := range x.owns {
		holders = append(holders, h)
	}
	sort.Strings(holders)
	for _, h := range holders {
		for _, e := range x.owns[h] {
			edges = append(edges, common.GraphEdge{From: e.Shareholder, To: e.Company, Type: common.RelOwnsShare, Weight: e.Percentage})
		}
	}
	var auditors []string
	for a := range x.audited {
		auditors = append(auditors, a)
	}
	sort.Strings(auditors)
	for _, a := range auditors {
		for _, c := range x.audited[a] {
			edges = append(edges, common.GraphEdge{From: c, To: a, Type: common.RelAuditedBy, Weight: 1})
		}
	}
	return edges
}

var _ store.GraphStore = (*Index)(nil)
