package types

import (
	"errors"
	"fmt"
	"strings"
)

// Finding is a single compliance rule violation describing a cloud resource.
// Only the fields the relay renders are modelled; unknown fields are ignored.
type Finding struct {
	Rule    *Rule    `json:"rule"`
	Entity  *Entity  `json:"entity"`
	Account *Account `json:"account"`

	Status     string `json:"status,omitempty"`
	ReportTime string `json:"reportTime,omitempty"`
	Region     string `json:"region,omitempty"`

	// FindingKey identifies the finding in the compliance engine. Logged only.
	FindingKey string `json:"findingKey,omitempty"`
}

// Rule describes the compliance rule that was violated.
type Rule struct {
	Name     string `json:"name"`
	Severity string `json:"severity"`
	RuleID   string `json:"ruleId,omitempty"`
}

// Entity is the cloud resource the finding was raised against.
type Entity struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Region string `json:"region,omitempty"`
}

// Account is the cloud account that owns the entity.
type Account struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Vendor string `json:"vendor"`

	// CloudAccountID is the compliance engine's identifier for the account,
	// distinct from the vendor's own account number.
	CloudAccountID string `json:"dome9CloudAccountId"`
}

// Validate reports every required field missing from f.
// Rule, Entity and Account must be present; the rule severity and account
// vendor must be non-empty because later stages case-fold them.
func (f *Finding) Validate() error {
	var missing []string
	if f.Rule == nil {
		missing = append(missing, "rule")
	} else if strings.TrimSpace(f.Rule.Severity) == "" {
		missing = append(missing, "rule.severity")
	}
	if f.Entity == nil {
		missing = append(missing, "entity")
	}
	if f.Account == nil {
		missing = append(missing, "account")
	} else if strings.TrimSpace(f.Account.Vendor) == "" {
		missing = append(missing, "account.vendor")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// EffectiveRegion returns the top-level region, falling back to the entity's
// own region when the finding does not carry one.
func (f *Finding) EffectiveRegion() string {
	if f.Region != "" {
		return f.Region
	}
	if f.Entity != nil {
		return f.Entity.Region
	}
	return ""
}

// ErrIncomplete is returned by Validate when required fields are absent.
var ErrIncomplete = errors.New("finding is missing required fields")
