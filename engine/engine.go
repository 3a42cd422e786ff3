/*
engine.go - Top-level analysis pass

PURPOSE:
  Drives the single deterministic pass over users x days:

    for each known (or synthesized) user:
        reset the overtime accumulator
        for each date in the range, in order:
            build the day context (daycontext.go)
            allocate that day's entries (allocator.go)
            price each entry (amounts.go)
            fold into day and user totals (aggregator.go)
    sort users by display name

  There is no I/O and no failure mode beyond malformed input, which
  degrades: entries without a usable date are skipped, unknown users are
  synthesized from the entry's embedded name, and an absent range yields
  an empty report by contract (callers probe before a range is chosen).
*/
package engine

import "sort"

// PlaceholderUserName labels entries whose user is unknown and carries no
// display name of its own.
const PlaceholderUserName = "Unknown user"

// Analyze runs the full report computation. It is pure: identical input
// yields bit-identical output, and the input is never mutated.
func Analyze(input Input) *Report {
	if input.Range.Start == "" || input.Range.End == "" {
		return &Report{Users: []UserAnalysis{}}
	}
	dateKeys := DateKeysInRange(input.Range)
	if len(dateKeys) == 0 {
		return &Report{Users: []UserAnalysis{}}
	}

	config := input.Config
	resolver := NewResolver(&config)
	builder := NewDayBuilder(&config, resolver)
	basis := config.Params.Basis()

	byUserDay, entryNames := groupEntries(input.Entries)
	users := knownUsers(&config, byUserDay, entryNames)

	results := make([]UserAnalysis, 0, len(users))
	for _, u := range users {
		results = append(results, analyzeUser(u, dateKeys, byUserDay[u.ID], resolver, builder, basis))
	}
	sortUsers(results)
	return &Report{Users: results}
}

// analyzeUser runs the per-day fold for one user. The allocator carries
// the running overtime accumulator across days; it is created fresh here
// so nothing leaks between users or invocations.
func analyzeUser(
	u User,
	dateKeys []string,
	days map[string][]TimeEntry,
	resolver *Resolver,
	builder *DayBuilder,
	basis AmountBasis,
) UserAnalysis {
	alloc := NewAllocator(resolver)
	acc := &accumulator{}

	dayMap := make(map[string]*DayData, len(dateKeys))
	for _, dateKey := range dateKeys {
		entries := days[dateKey]
		meta := builder.Build(u.ID, dateKey, entries)
		acc.addDay(meta)

		day := &DayData{Meta: meta}
		if len(entries) > 0 {
			day.Entries = processDay(u.ID, dateKey, meta, entries, alloc, resolver, acc, basis)
		}
		dayMap[dateKey] = day
	}

	return UserAnalysis{
		UserID:   u.ID,
		UserName: u.Name,
		Days:     dayMap,
		Totals:   acc.finalize(),
	}
}

// processDay allocates, prices, and accumulates one day's entries.
func processDay(
	userID, dateKey string,
	meta DayMeta,
	entries []TimeEntry,
	alloc *Allocator,
	resolver *Resolver,
	acc *accumulator,
	basis AmountBasis,
) []EntryResult {
	splits := alloc.AllocateDay(userID, dateKey, meta, entries)

	multiplier := resolver.Multiplier(userID, dateKey)
	tier2Multiplier := resolver.Tier2Multiplier(userID, dateKey)

	// AllocateDay returns splits in its own (sorted) order; re-sort the
	// entries the same way so results pair up.
	sorted := sortedByStart(entries)

	results := make([]EntryResult, len(splits))
	for i, split := range splits {
		e := sorted[i]
		amounts := Price(split, Rates{Earned: e.EarnedRate, Cost: e.CostRate}, multiplier, tier2Multiplier)
		acc.addEntry(split, amounts, e.Billable, basis)

		results[i] = EntryResult{
			Entry: e,
			Analysis: EntryAnalysis{
				Kind:          split.Kind,
				Hours:         RoundHours(split.Hours),
				RegularHours:  RoundHours(split.Regular),
				OvertimeHours: RoundHours(split.Overtime),
				Tier1Hours:    RoundHours(split.Tier1),
				Tier2Hours:    RoundHours(split.Tier2),
				Earned:        amounts.Earned.Rounded(),
				Cost:          amounts.Cost.Rounded(),
				Profit:        amounts.Profit.Rounded(),
				PrimaryAmount: RoundCurrency(amounts.Primary(basis).TotalWithOvertime),
			},
		}
	}
	return results
}

// groupEntries buckets entries by user and date key, skipping entries with
// no usable date. It also collects the display names embedded on entries,
// used to synthesize unknown users.
func groupEntries(entries []TimeEntry) (map[string]map[string][]TimeEntry, map[string]string) {
	byUserDay := make(map[string]map[string][]TimeEntry)
	names := make(map[string]string)

	for _, e := range entries {
		dateKey, ok := EntryDateKey(e)
		if !ok {
			continue
		}
		days := byUserDay[e.UserID]
		if days == nil {
			days = make(map[string][]TimeEntry)
			byUserDay[e.UserID] = days
		}
		days[dateKey] = append(days[dateKey], e)
		if e.UserName != "" && names[e.UserID] == "" {
			names[e.UserID] = e.UserName
		}
	}
	return byUserDay, names
}

// knownUsers merges the configured user list with users synthesized from
// entries whose user is not configured, so no entry silently drops out of
// the totals. Synthesized users take the entry's embedded display name,
// falling back to a placeholder.
func knownUsers(config *Snapshot, byUserDay map[string]map[string][]TimeEntry, entryNames map[string]string) []User {
	users := make([]User, 0, len(config.Users))
	seen := make(map[string]bool, len(config.Users))
	for _, u := range config.Users {
		users = append(users, u)
		seen[u.ID] = true
	}

	// Deterministic order for synthesized users: sorted by ID.
	var extra []string
	for id := range byUserDay {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		name := entryNames[id]
		if name == "" {
			name = PlaceholderUserName
		}
		users = append(users, User{ID: id, Name: name})
	}
	return users
}

func sortedByStart(entries []TimeEntry) []TimeEntry {
	out := make([]TimeEntry, len(entries))
	copy(out, entries)
	stableSortByStart(out)
	return out
}
