// Package detect implements the fraud pattern detection engine: shell chain
// detection, circular trade detection, hidden influence analysis, and the
// orchestration that folds them into one risk and one opportunity score per
// company. All detection runs read-only against a store.GraphStore.
package detect

// Params holds the detection thresholds. Zero values are replaced by the
// defaults, so Params{} behaves like DefaultParams().
type Params struct {
	// MinChainLength is the minimum number of companies in a shell chain.
	MinChainLength int
	// MaxInvoices is the most issued invoices a shell chain member may have.
	MaxInvoices int
	// MinVolume is the minimum annual volume for a supply edge to count
	// towards a circular trade cycle.
	MinVolume float64
	// MinOwnership is the minimum ownership percentage for a hidden
	// influence path.
	MinOwnership float64
	// MinConcentration is the minimum invoice concentration percentage for
	// a hidden influence path.
	MinConcentration float64
}

// DefaultParams returns the standard detection thresholds.
func DefaultParams() Params {
	return Params{
		MinChainLength:   4,
		MaxInvoices:      2,
		MinVolume:        80,
		MinOwnership:     25,
		MinConcentration: 80,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.MinChainLength <= 0 {
		p.MinChainLength = d.MinChainLength
	}
	if p.MaxInvoices <= 0 {
		p.MaxInvoices = d.MaxInvoices
	}
	if p.MinVolume <= 0 {
		p.MinVolume = d.MinVolume
	}
	if p.MinOwnership <= 0 {
		p.MinOwnership = d.MinOwnership
	}
	if p.MinConcentration <= 0 {
		p.MinConcentration = d.MinConcentration
	}
	return p
}

// Subsidiary chains are traversed between 3 and 10 SUBSIDIARY_OF edges deep,
// giving 4 to 11 companies per chain.
const (
	minSubsidiaryEdges = 3
	maxSubsidiaryEdges = 10
)

// Cycle size classes for circular trade detection.
const (
	mediumCycleMin = 4
	mediumCycleMax = 8
	largeCycleMin  = 9
)
