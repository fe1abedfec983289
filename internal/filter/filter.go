// Package filter implements the pure predicate evaluated against each
// parsed record: time bounds, level set membership, and module set
// membership.
package filter

import (
	"time"

	"github.com/coffersTech/logtail/internal/record"
)

// Spec is a filter specification built from request query parameters.
type Spec struct {
	From   *time.Time
	To     *time.Time
	Level  map[string]struct{} // empty/nil: no level constraint
	Module map[string]struct{} // empty/nil: no module constraint
	Limit  int                 // 0: unlimited
	Offset int                 // bulk reads only
}

// NewLevelSet builds a level-constraint set from comma-separated keywords.
func NewLevelSet(levels []string) map[string]struct{} {
	return toSet(levels)
}

// NewModuleSet builds a module-constraint set from comma-separated keywords.
func NewModuleSet(modules []string) map[string]struct{} {
	return toSet(modules)
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// Match reports whether rec satisfies spec. A record whose Time fails to
// parse — i.e. a permissive, non-strict record with a synthesized time is
// fine, but a record with a zero Time is not — is rejected whenever any
// time bound is set, and accepted otherwise.
func Match(rec record.Record, spec Spec) bool {
	if len(spec.Level) > 0 {
		if _, ok := spec.Level[rec.Level]; !ok {
			return false
		}
	}
	if len(spec.Module) > 0 {
		if rec.Module == "" {
			return false
		}
		if _, ok := spec.Module[rec.Module]; !ok {
			return false
		}
	}
	if spec.From != nil || spec.To != nil {
		if rec.Time.IsZero() {
			return false
		}
	}
	if spec.From != nil && rec.Time.Before(*spec.From) {
		return false
	}
	if spec.To != nil && rec.Time.After(*spec.To) {
		return false
	}
	return true
}
