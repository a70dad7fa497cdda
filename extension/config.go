package extension

import "time"

// Config holds the Tollgate extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.tollgate" or "tollgate" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Owner is the caller identity allowed to administer the engine.
	Owner string `json:"owner" mapstructure:"owner" yaml:"owner"`

	// Custody is the account that holds pulled charges and parked
	// credentials (default: "tollgate").
	Custody string `json:"custody" mapstructure:"custody" yaml:"custody"`

	// FeeBasisPoints is the platform cut taken from every charge,
	// in basis points (default: 500, i.e. 5%).
	FeeBasisPoints int `json:"fee_basis_points" mapstructure:"fee_basis_points" yaml:"fee_basis_points"`

	// Binding selects how customers bind to contractors:
	// "exclusive" (one contractor per customer) or "per_contractor"
	// (one subscription per pair). Default: "exclusive".
	Binding string `json:"binding" mapstructure:"binding" yaml:"binding"`

	// RenewalRule selects how renewals extend the paid window:
	// "additive" (stack on the prior expiry) or "from_now".
	// Default: "additive".
	RenewalRule string `json:"renewal_rule" mapstructure:"renewal_rule" yaml:"renewal_rule"`

	// PresetTerms makes the engine charge each contractor's registered
	// per-cycle price instead of the amount named in the request.
	PresetTerms bool `json:"preset_terms" mapstructure:"preset_terms" yaml:"preset_terms"`

	// DefaultCycle is the cycle length used by the preset terms
	// resolver when the request leaves it unset (default: 720h).
	DefaultCycle time.Duration `json:"default_cycle" mapstructure:"default_cycle" yaml:"default_cycle"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Custody:        "tollgate",
		FeeBasisPoints: 500,
		Binding:        "exclusive",
		RenewalRule:    "additive",
		DefaultCycle:   30 * 24 * time.Hour,
	}
}
