package quiz

// Tier is the qualitative bucket a final score percentage falls into.
type Tier string

const (
	TierExpert Tier = "expert"
	TierHigh   Tier = "high"
	TierMid    Tier = "mid"
	TierLow    Tier = "low"
	TierBottom Tier = "bottom"
)

type tierRange struct {
	min, max int
	tier     Tier
	message  string
}

// Ordered, exhaustive and non-overlapping over [0,100]; first match wins.
var tierRanges = []tierRange{
	{90, 100, TierExpert, "¡Hala Madrid! You're a true Madridista!"},
	{70, 89, TierHigh, "Great job! You know your Real Madrid history well!"},
	{50, 69, TierMid, "Good effort! Keep learning about Los Blancos!"},
	{30, 49, TierLow, "Not bad! Time to brush up on your Real Madrid knowledge!"},
	{0, 29, TierBottom, "Keep trying! Every Madridista starts somewhere!"},
}

// Classify maps a score percentage to its tier. Values outside [0,100] are clamped.
func Classify(percentage int) Tier {
	percentage = max(0, min(100, percentage))
	for _, r := range tierRanges {
		if percentage >= r.min && percentage <= r.max {
			return r.tier
		}
	}
	return TierBottom
}

// Message is the line shown on the result screen for the tier.
func (t Tier) Message() string {
	for _, r := range tierRanges {
		if r.tier == t {
			return r.message
		}
	}
	return tierRanges[len(tierRanges)-1].message
}
