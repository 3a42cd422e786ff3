/*
resolver.go - Override precedence chain

PURPOSE:
  Resolves the effective value of each tunable parameter (capacity,
  overtime multiplier, tier-2 threshold, tier-2 multiplier) for one user
  on one calendar day.

PRECEDENCE (first defined value wins):
  1. Per-day override for the date  (only when the override mode is perDay)
  2. Weekly override for the date's weekday (only when the mode is weekly);
     a weekday with no value falls through to step 3, never straight to
     the profile
  3. User-level override value (any mode)
  4. Profile capacity - capacity only, gated by UseProfileCapacity
  5. Global calculation default

INVALID VALUES:
  Override values are stored as strings. A value that does not parse as a
  finite float is treated as absent and the chain continues; an invalid
  value must never short-circuit resolution.

SEE ALSO:
  - daycontext.go: Consumes resolved capacity
  - allocator.go:  Consumes resolved multipliers and thresholds
*/
package engine

import (
	"math"
	"strconv"
)

// Resolver walks the override precedence chain against one configuration
// snapshot. It is stateless; a single Resolver serves the whole run.
type Resolver struct {
	config *Snapshot
}

// NewResolver creates a resolver over the given snapshot.
func NewResolver(config *Snapshot) *Resolver {
	return &Resolver{config: config}
}

// Resolve returns the effective value of a parameter for a user on a date.
func (r *Resolver) Resolve(param Parameter, userID, dateKey string) float64 {
	if ov, ok := r.config.OverrideFor(userID); ok {
		if v, ok := resolveOverride(ov, param, dateKey); ok {
			return v
		}
	}

	if param == ParamCapacity && r.config.Params.UseProfileCapacity {
		if p, ok := r.config.ProfileFor(userID); ok && p.Capacity != nil {
			return *p.Capacity
		}
	}

	return r.defaultFor(param)
}

// Capacity, Multiplier, Tier2Threshold and Tier2Multiplier are convenience
// wrappers for the four instantiations of Resolve.
func (r *Resolver) Capacity(userID, dateKey string) float64 {
	return r.Resolve(ParamCapacity, userID, dateKey)
}

func (r *Resolver) Multiplier(userID, dateKey string) float64 {
	return r.Resolve(ParamMultiplier, userID, dateKey)
}

func (r *Resolver) Tier2Threshold(userID, dateKey string) float64 {
	return r.Resolve(ParamTier2Threshold, userID, dateKey)
}

func (r *Resolver) Tier2Multiplier(userID, dateKey string) float64 {
	return r.Resolve(ParamTier2Multiplier, userID, dateKey)
}

func (r *Resolver) defaultFor(param Parameter) float64 {
	p := r.config.Params
	switch param {
	case ParamCapacity:
		return p.DailyThreshold
	case ParamMultiplier:
		return p.OvertimeMultiplier
	case ParamTier2Threshold:
		return p.Tier2ThresholdHours
	case ParamTier2Multiplier:
		return p.Tier2Multiplier
	default:
		return 0
	}
}

// resolveOverride walks steps 1-3 of the chain within one override record.
func resolveOverride(ov Override, param Parameter, dateKey string) (float64, bool) {
	if ov.Mode == OverridePerDay {
		if ps, ok := ov.Days[dateKey]; ok {
			if v, ok := parseFloat(ps.Get(param)); ok {
				return v, true
			}
		}
	}

	if ov.Mode == OverrideWeekly {
		if ps, ok := ov.Weekly[WeekdayName(dateKey)]; ok {
			if v, ok := parseFloat(ps.Get(param)); ok {
				return v, true
			}
		}
	}

	if v, ok := parseFloat(ov.Values.Get(param)); ok {
		return v, true
	}
	return 0, false
}

// parseFloat parses a stored override value. Empty strings, parse errors,
// NaN and infinities all count as absent.
func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
