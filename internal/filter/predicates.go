package filter

import (
	"strings"

	"github.com/bft-labs/logtap/internal/domain"
)

// MinPriority accepts records at or above p.
func MinPriority(p domain.Priority) Predicate {
	return func(rec domain.Record) bool {
		return rec.Priority >= p
	}
}

// Tags accepts records whose tag is one of tags.
func Tags(tags ...string) Predicate {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return func(rec domain.Record) bool {
		_, ok := set[rec.Tag]
		return ok
	}
}

// PIDs accepts records from one of pids.
func PIDs(pids ...int) Predicate {
	set := make(map[int]struct{}, len(pids))
	for _, p := range pids {
		set[p] = struct{}{}
	}
	return func(rec domain.Record) bool {
		_, ok := set[rec.PID]
		return ok
	}
}

// MessageContains accepts records whose message contains substr, ignoring case.
func MessageContains(substr string) Predicate {
	needle := strings.ToLower(substr)
	return func(rec domain.Record) bool {
		return strings.Contains(strings.ToLower(rec.Message), needle)
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(rec domain.Record) bool {
		return !p(rec)
	}
}
