// Package policy provides the YAML-based business limits applied by the
// ledger engine.
package policy

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/rumor-ml/commons.systems/bankledger/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var embeddedPolicy []byte

// Policy holds the operating limits for the ledger.
//
// Policies should be created via YAML loading: New, LoadEmbedded or
// LoadFromFile. All methods validate invariants:
//   - every account type has a positive withdrawal ceiling
//   - MaxDescriptionLength > 0
//   - 0 <= MinAge <= MaxAge
//   - OpeningBalance >= 0
//   - SuperuserPassword and DefaultPassword are non-empty
//
// WARNING: Direct struct construction bypasses validation. Fields are exported
// for YAML unmarshaling and testing; always prefer the loaders.
type Policy struct {
	SuperuserPassword    string           `yaml:"superuser_password"`
	DefaultPassword      string           `yaml:"default_password"`
	OpeningBalance       int64            `yaml:"opening_balance"`
	MaxDescriptionLength int              `yaml:"max_description_length"`
	MinAge               int              `yaml:"min_age"`
	MaxAge               int              `yaml:"max_age"`
	WithdrawalLimits     map[string]int64 `yaml:"withdrawal_limits"`
}

// New creates a validated policy from YAML data.
func New(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML policy (check syntax, indentation, and field names): %w", err)
	}

	if p.SuperuserPassword == "" {
		return nil, fmt.Errorf("superuser_password cannot be empty")
	}
	if p.DefaultPassword == "" {
		return nil, fmt.Errorf("default_password cannot be empty")
	}
	if p.OpeningBalance < 0 {
		return nil, fmt.Errorf("opening_balance cannot be negative, got %d", p.OpeningBalance)
	}
	if p.MaxDescriptionLength <= 0 {
		return nil, fmt.Errorf("max_description_length must be positive, got %d", p.MaxDescriptionLength)
	}
	if p.MinAge < 0 || p.MinAge > p.MaxAge {
		return nil, fmt.Errorf("age bounds [%d,%d] are invalid", p.MinAge, p.MaxAge)
	}

	for _, t := range []domain.AccountType{domain.AccountTypeSavings, domain.AccountTypeCurrent} {
		limit, ok := p.WithdrawalLimits[string(t)]
		if !ok {
			return nil, fmt.Errorf("withdrawal_limits missing account type %q", t)
		}
		if limit <= 0 {
			return nil, fmt.Errorf("withdrawal limit for %q must be positive, got %d", t, limit)
		}
	}
	for name := range p.WithdrawalLimits {
		if !domain.ValidateAccountType(domain.AccountType(name)) {
			return nil, fmt.Errorf("withdrawal_limits contains unknown account type %q", name)
		}
	}

	return &p, nil
}

// LoadEmbedded loads the embedded policy.yaml file.
func LoadEmbedded() (*Policy, error) {
	p, err := New(embeddedPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded policy (possible binary corruption): %w", err)
	}
	return p, nil
}

// LoadFromFile loads a policy from a filesystem path.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	p, err := New(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy from %q: %w", path, err)
	}
	return p, nil
}

// WithdrawalLimit returns the per-transaction withdrawal ceiling for an
// account type.
func (p *Policy) WithdrawalLimit(t domain.AccountType) int64 {
	return p.WithdrawalLimits[string(t)]
}
