package models

type Tier string

const (
	TierBronze Tier = "Bronze"
	TierSilver Tier = "Silver"
	TierGold   Tier = "Gold"
)

const (
	silverThreshold = 1000
	goldThreshold   = 2000
)

// TierFor classifies a user by lifetime earned points.
func TierFor(lifetime int64) Tier {
	switch {
	case lifetime >= goldThreshold:
		return TierGold
	case lifetime >= silverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// NextTier returns the following tier and the lifetime points needed to reach
// it. Gold has no next tier.
func NextTier(lifetime int64) (Tier, int64, bool) {
	switch TierFor(lifetime) {
	case TierBronze:
		return TierSilver, silverThreshold - lifetime, true
	case TierSilver:
		return TierGold, goldThreshold - lifetime, true
	default:
		return "", 0, false
	}
}
