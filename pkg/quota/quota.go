// Package quota decides whether an organization may add another account.
//
// The policy only evaluates numbers it is handed. The limit itself comes from a Config value
// and an organization flag read by the caller.
package quota

// Defaults used when nothing else is configured.
const (
	DefaultMaximum    = 10
	UnlimitedMaximum  = 1000000
	DefaultFlagKey    = "feature_no_user_limit"
	DefaultFlagEnable = "1"
)

// Config sizes the seat limit. It is passed explicitly to every caller.
type Config struct {
	DefaultMaximum   int
	UnlimitedMaximum int
	FlagKey          string
	FlagEnabledValue string
}

// DefaultConfig returns the limits used by hosted organizations.
func DefaultConfig() Config {
	return Config{
		DefaultMaximum:   DefaultMaximum,
		UnlimitedMaximum: UnlimitedMaximum,
		FlagKey:          DefaultFlagKey,
		FlagEnabledValue: DefaultFlagEnable,
	}
}

// Snapshot is the organization's seat usage at one point in time.
type Snapshot struct {
	CurrentCount int  `json:"current_count"`
	Maximum      int  `json:"maximum"`
	Unlimited    bool `json:"unlimited"`
}

// Resolve builds a Snapshot from the organization's flag value and its current account count.
func Resolve(cfg Config, flagValue string, count int) Snapshot {
	if cfg.FlagKey != "" && flagValue == cfg.FlagEnabledValue {
		return Snapshot{CurrentCount: count, Maximum: cfg.UnlimitedMaximum, Unlimited: true}
	}
	return Snapshot{CurrentCount: count, Maximum: cfg.DefaultMaximum}
}

// CanCreate reports whether one more account fits.
func CanCreate(s Snapshot) bool {
	return s.Unlimited || s.CurrentCount < s.Maximum
}

// Remaining returns how many accounts may still be created, never negative.
func Remaining(s Snapshot) int {
	if s.CurrentCount >= s.Maximum {
		return 0
	}
	return s.Maximum - s.CurrentCount
}
