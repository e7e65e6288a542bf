package taxonomy

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Changes lists the intent ids that differ between two snapshots.
type Changes struct {
	Added   []string
	Removed []string
	Changed []string
}

// Empty reports whether the snapshots define the same intents.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// Diff compares two snapshots intent by intent. A nil old snapshot reports
// every intent of new as added.
func Diff(old, new *Taxonomy) Changes {
	var c Changes
	if new == nil {
		return c
	}
	for _, d := range new.intents {
		if old == nil {
			c.Added = append(c.Added, d.ID)
			continue
		}
		prev, ok := old.Lookup(d.ID)
		switch {
		case !ok:
			c.Added = append(c.Added, d.ID)
		case !sameIntent(prev, d):
			c.Changed = append(c.Changed, d.ID)
		}
	}
	if old != nil {
		for _, d := range old.intents {
			if _, ok := new.Lookup(d.ID); !ok {
				c.Removed = append(c.Removed, d.ID)
			}
		}
	}
	return c
}

func sameIntent(a, b IntentDefinition) bool {
	return cmp.Equal(a, b, cmpopts.IgnoreUnexported(IntentDefinition{}), cmpopts.EquateEmpty())
}
