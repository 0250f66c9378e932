package cliconfig

import (
	"github.com/bft-labs/logtap/internal/domain"
	"github.com/bft-labs/logtap/internal/filter"
)

// FilterPrefix namespaces the filters derived from configuration, so a
// reload can replace them without touching filters added by other code.
const FilterPrefix = "config:"

// Filter names installed by Filters.
const (
	FilterMinPriority = FilterPrefix + "min-priority"
	FilterTags        = FilterPrefix + "tags"
	FilterPIDs        = FilterPrefix + "pids"
	FilterGrep        = FilterPrefix + "grep"
)

// Filters builds the record filters described by c, keyed by name.
// Unset criteria produce no entry.
func (c Config) Filters() (map[string]filter.Predicate, error) {
	out := make(map[string]filter.Predicate)
	if c.MinPriority != "" {
		p, err := domain.ParsePriority(c.MinPriority)
		if err != nil {
			return nil, err
		}
		out[FilterMinPriority] = filter.MinPriority(p)
	}
	if len(c.Tags) > 0 {
		out[FilterTags] = filter.Tags(c.Tags...)
	}
	if len(c.PIDs) > 0 {
		out[FilterPIDs] = filter.PIDs(c.PIDs...)
	}
	if c.Grep != "" {
		out[FilterGrep] = filter.MessageContains(c.Grep)
	}
	return out, nil
}
