package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/overtime-engine/engine"
)

func TestMapEntry_NestedAmountWinsOverFlatRates(t *testing.T) {
	w := wireEntry{ID: "e1", UserID: "u1", EarnedRate: 1111, CostRate: 999}
	w.TimeInterval.Start = "2025-03-10T08:00:00Z"
	w.TimeInterval.Duration = "PT8H"
	w.Amount = &struct {
		Earned int64 `json:"earned"`
		Cost   int64 `json:"cost"`
	}{Earned: 4000, Cost: 2500}

	e := mapEntry(w)
	assert.Equal(t, int64(4000), e.EarnedRate)
	assert.Equal(t, int64(2500), e.CostRate)
	assert.Equal(t, "PT8H", e.Duration)
}

func TestMapEntry_FlatRatesWhenNoAmountObject(t *testing.T) {
	w := wireEntry{ID: "e1", UserID: "u1", EarnedRate: 1111, CostRate: 999, Type: "BREAK"}
	e := mapEntry(w)
	assert.Equal(t, int64(1111), e.EarnedRate)
	assert.Equal(t, int64(999), e.CostRate)
	assert.Equal(t, engine.TypeBreak, e.Type)
}
