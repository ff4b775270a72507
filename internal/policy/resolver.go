// Package policy maps organizational roles to vault collection grants.
package policy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/keelworks/vaultward/internal/vault"
)

// DefaultRole is the table entry applied when a role has no mapping.
const DefaultRole = "default"

// Collection is one role-policy table entry.
type Collection struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	ReadOnly      bool   `yaml:"readOnly"`
	HidePasswords bool   `yaml:"hidePasswords"`
	Manage        bool   `yaml:"manage"`
}

// Resolver resolves a role to collection grants. It is a pure function of the
// static table plus the input role: no I/O, fully deterministic.
type Resolver struct {
	baseline Collection
	roles    map[string][]Collection
}

type tableFile struct {
	Baseline Collection              `yaml:"baseline"`
	Roles    map[string][]Collection `yaml:"roles"`
}

// Load reads the role-policy table from a YAML file.
func Load(path string) (*Resolver, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read table: %w", err)
	}
	var table tableFile
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("policy: parse table: %w", err)
	}
	return NewResolver(table.Baseline, table.Roles)
}

// NewResolver builds a Resolver from an in-memory table.
func NewResolver(baseline Collection, roles map[string][]Collection) (*Resolver, error) {
	if baseline.ID == "" {
		return nil, errors.New("policy: baseline collection required")
	}
	if roles == nil {
		roles = map[string][]Collection{}
	}
	return &Resolver{baseline: baseline, roles: roles}, nil
}

// Grants resolves a role to collection grants. Lookup falls back from the
// exact role to its lower-cased form to the default entry. The baseline
// collection is always present in the result, and duplicates are removed.
func (r *Resolver) Grants(role string) []vault.CollectionGrant {
	collections := r.resolve(role)
	grants := make([]vault.CollectionGrant, 0, len(collections))
	seen := make(map[string]bool, len(collections))
	for _, c := range collections {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		grants = append(grants, vault.CollectionGrant{
			ID:            c.ID,
			ReadOnly:      c.ReadOnly,
			HidePasswords: c.HidePasswords,
			Manage:        c.Manage,
		})
	}
	return grants
}

// CollectionNames returns the human-readable collection names for a role, in
// resolution order, for user-facing messages.
func (r *Resolver) CollectionNames(role string) []string {
	collections := r.resolve(role)
	names := make([]string, 0, len(collections))
	seen := make(map[string]bool, len(collections))
	for _, c := range collections {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		names = append(names, c.Name)
	}
	return names
}

func (r *Resolver) resolve(role string) []Collection {
	collections, ok := r.roles[role]
	if !ok {
		collections, ok = r.roles[strings.ToLower(role)]
	}
	if !ok {
		collections = r.roles[DefaultRole]
	}
	for _, c := range collections {
		if c.ID == r.baseline.ID {
			return collections
		}
	}
	return append(append([]Collection(nil), collections...), r.baseline)
}
