package model

// Tier is the ordinal engagement classification derived from a score.
type Tier string

// Tiers, lowest to highest.
const (
	TierNone Tier = "none"
	TierCold Tier = "cold"
	TierWarm Tier = "warm"
	TierHot  Tier = "hot"
)

// Rank returns the ordinal position of the tier. Unknown tiers rank
// lowest so comparisons stay total.
func (t Tier) Rank() int {
	switch t {
	case TierCold:
		return 1
	case TierWarm:
		return 2
	case TierHot:
		return 3
	default:
		return 0
	}
}
