// Package params holds protocol constants, the hardfork schedule, and the
// runtime configuration consumed by the execution core.
package params

// SpecID enumerates the hardforks in activation order. Comparisons use the
// ordering, so feature gates read as spec.Enabled(Berlin).
type SpecID uint8

const (
	Frontier SpecID = iota
	FrontierThawing
	Homestead
	DAOFork
	TangerineWhistle // EIP-150
	SpuriousDragon   // EIP-155, EIP-158, EIP-161, EIP-170
	Byzantium
	Constantinople
	Petersburg
	Istanbul
	MuirGlacier
	Berlin // EIP-2929, EIP-2930
	London // EIP-1559, EIP-3529
	ArrowGlacier
	GrayGlacier
	Merge    // EIP-4399 prevrandao
	Shanghai // EIP-3651, EIP-3855, EIP-3860
	Cancun   // EIP-1153, EIP-4844, EIP-5656, EIP-6780, EIP-7516
	Prague   // EIP-2537, EIP-2935, EIP-7623, EIP-7702
	Osaka    // EIP-7825, EOF
)

var specNames = [...]string{
	"Frontier", "FrontierThawing", "Homestead", "DAOFork", "TangerineWhistle",
	"SpuriousDragon", "Byzantium", "Constantinople", "Petersburg", "Istanbul",
	"MuirGlacier", "Berlin", "London", "ArrowGlacier", "GrayGlacier", "Merge",
	"Shanghai", "Cancun", "Prague", "Osaka",
}

// String returns the canonical hardfork name.
func (s SpecID) String() string {
	if int(s) < len(specNames) {
		return specNames[s]
	}
	return "Unknown"
}

// Enabled reports whether this spec includes the rules of other, i.e.
// whether other activates at or before s.
func (s SpecID) Enabled(other SpecID) bool {
	return s >= other
}
