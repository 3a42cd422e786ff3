/*
allocator.go - Entry classification, tail attribution, tier splitting

PURPOSE:
  Turns one user-day's raw entries into per-entry hour splits:
  regular vs. overtime against the day's effective capacity, then
  tier 1 vs. tier 2 against the user's running overtime total.

TAIL ATTRIBUTION:
  Work entries are processed in ascending start order. A running
  per-day counter of consumed work hours decides each entry's split:

    counter >= capacity            -> entire duration is overtime
    counter + duration <= capacity -> entire duration is regular
    otherwise                      -> regular fills the gap to capacity,
                                      the rest is overtime

  The counter always advances by the full duration, so overtime lands on
  the latest work of the day ("last-in is overtime first"), never
  pro-rated across entries.

BREAKS AND PTO:
  Break and holiday/time-off tagged entries are always fully regular and
  never advance the day counter: they are invisible to the allocation of
  the surrounding work entries.

TIER SPLIT:
  A per-user accumulator of overtime hours, carried across days in
  chronological order within one run, splits each entry's overtime at the
  tier-2 threshold. A threshold of zero (or none) keeps everything in
  tier 1. The accumulator advances by the entry's full overtime after the
  split is taken.
*/
package engine

import "sort"

// stableSortByStart orders entries ascending by start timestamp. ISO-8601
// timestamps compare chronologically as strings; a stable sort preserves
// source order for identical starts.
func stableSortByStart(entries []TimeEntry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Start < entries[j].Start })
}

// HourSplit is the allocation result for one entry.
type HourSplit struct {
	Kind     Kind
	Hours    float64
	Regular  float64
	Overtime float64
	Tier1    float64
	Tier2    float64
}

// Allocator performs per-day allocation, threading the per-user overtime
// accumulator across calls. One Allocator is created per user per run.
type Allocator struct {
	resolver *Resolver

	// overtimeSoFar is the running overtime total for this user, across
	// days, within one invocation of the engine.
	overtimeSoFar float64
}

// NewAllocator creates an allocator for one user, starting the overtime
// accumulator at zero.
func NewAllocator(resolver *Resolver) *Allocator {
	return &Allocator{resolver: resolver}
}

// OvertimeSoFar exposes the running accumulator, for aggregation checks.
func (a *Allocator) OvertimeSoFar() float64 { return a.overtimeSoFar }

// AllocateDay splits one day's entries. Entries are returned in processing
// order (ascending start). The day's capacity comes from meta; the tier-2
// threshold is resolved per day but applied against the cross-day
// accumulator.
func (a *Allocator) AllocateDay(userID, dateKey string, meta DayMeta, entries []TimeEntry) []HourSplit {
	sorted := make([]TimeEntry, len(entries))
	copy(sorted, entries)
	stableSortByStart(sorted)

	threshold := a.resolver.Tier2Threshold(userID, dateKey)

	splits := make([]HourSplit, 0, len(sorted))
	var dayWork float64 // work hours consumed so far today

	for _, e := range sorted {
		hours := EntryHours(e)
		split := HourSplit{Kind: Classify(e.Type), Hours: hours}

		if split.Kind != KindWork {
			// Breaks and PTO are fully regular and skip the day counter.
			split.Regular = hours
			splits = append(splits, split)
			continue
		}

		switch {
		case dayWork >= meta.Capacity:
			split.Overtime = hours
		case dayWork+hours <= meta.Capacity:
			split.Regular = hours
		default:
			split.Regular = meta.Capacity - dayWork
			split.Overtime = hours - split.Regular
		}
		dayWork += hours

		split.Tier1, split.Tier2 = a.splitTiers(split.Overtime, threshold)
		splits = append(splits, split)
	}
	return splits
}

// splitTiers divides an entry's overtime between tiers against the running
// accumulator, then advances the accumulator by the full amount.
func (a *Allocator) splitTiers(overtime, threshold float64) (tier1, tier2 float64) {
	if overtime <= 0 {
		return 0, 0
	}
	defer func() { a.overtimeSoFar += overtime }()

	if threshold <= 0 {
		return overtime, 0
	}

	before := a.overtimeSoFar
	after := before + overtime
	switch {
	case before >= threshold:
		return 0, overtime
	case after <= threshold:
		return overtime, 0
	default:
		tier1 = threshold - before
		return tier1, overtime - tier1
	}
}
