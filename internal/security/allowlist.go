// Package security holds the user allowlist consulted before any
// message reaches the agent.
package security

import (
	"encoding/json"
	"fmt"
	"os"
)

// Allowlist is a set of permitted user ids. A nil *Allowlist means no
// filtering at all; an empty one denies everybody.
type Allowlist struct {
	ids map[string]struct{}
}

func NewAllowlist(initial ...string) *Allowlist {
	a := &Allowlist{ids: make(map[string]struct{})}
	for _, id := range initial {
		a.ids[id] = struct{}{}
	}
	return a
}

// FromFile loads a JSON array of user ids. A missing file yields an
// empty allowlist, which denies everybody until ids are added.
func FromFile(path string) (*Allowlist, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewAllowlist(), nil
		}
		return nil, fmt.Errorf("read allowlist %s: %w", path, err)
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("parse allowlist %s: %w", path, err)
	}
	return NewAllowlist(ids...), nil
}

func (a *Allowlist) Add(id string) {
	a.ids[id] = struct{}{}
}

func (a *Allowlist) Has(id string) bool {
	_, ok := a.ids[id]
	return ok
}

func (a *Allowlist) IDs() []string {
	out := make([]string, 0, len(a.ids))
	for id := range a.ids {
		out = append(out, id)
	}
	return out
}
