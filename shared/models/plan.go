package models

// Plan is one subscription tier from the plan catalog. The gateway reads
// plans only to derive quota limits; billing is handled elsewhere.
type Plan struct {
	Name              string `yaml:"name" json:"name"`
	MaxUsers          int    `yaml:"max_users" json:"max_users"`
	MaxTokensPerMonth int64  `yaml:"max_tokens_per_month" json:"max_tokens_per_month"`
}

// PlanCatalog is the parsed plans configuration file.
type PlanCatalog struct {
	Plans       map[string]Plan `yaml:"plans"`
	DefaultPlan string          `yaml:"default_plan"`
}

// Limits returns the monthly token limit for a plan key, falling back to
// the catalog default when the key is unknown.
func (c *PlanCatalog) Limits(plan string) Plan {
	if p, ok := c.Plans[plan]; ok {
		return p
	}
	return c.Plans[c.DefaultPlan]
}
