package common

// Company is a business entity in the relationship graph. RiskScore is the
// externally provided baseline in [0,1], not a computed score.
type Company struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	RiskScore float64 `json:"risk_score"`
}

// Auditor audits companies. RiskLevel is categorical: LOW, MEDIUM or HIGH.
type Auditor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	RiskLevel string `json:"risk_level"`
}

// Shareholder holds ownership stakes in companies. Type distinguishes
// individuals from corporate entities.
type Shareholder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Auditor risk levels.
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// Relationship types as they appear in the graph and in visualization
// payloads.
const (
	RelSupplies     = "SUPPLIES"
	RelSubsidiaryOf = "SUBSIDIARY_OF"
	RelOwnsShare    = "OWNS_SHARE"
	RelAuditedBy    = "AUDITED_BY"
)

// SupplyEdge is a directed SUPPLIES relationship between two companies,
// weighted by annual trade volume.
type SupplyEdge struct {
	Supplier     string  `json:"supplier"`
	Customer     string  `json:"customer"`
	AnnualVolume float64 `json:"annual_volume"`
}

// OwnershipEdge is a directed OWNS_SHARE relationship from a shareholder to
// a company, weighted by ownership percentage.
type OwnershipEdge struct {
	Shareholder string  `json:"shareholder"`
	Company     string  `json:"company"`
	Percentage  float64 `json:"percentage"`
}

// GraphNode is a typed node in a neighborhood extract. RiskScore is zero for
// node types that carry no baseline risk.
type GraphNode struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	RiskScore float64 `json:"risk_score"`
}

// GraphEdge is a directed, typed, weighted edge in a neighborhood extract.
type GraphEdge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
}

// Neighborhood is the bounded subgraph around a center company, used for
// downstream visualization. Invoices are never included.
type Neighborhood struct {
	Center Company     `json:"center"`
	Nodes  []GraphNode `json:"nodes"`
	Edges  []GraphEdge `json:"edges"`
}
