package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"active", "completed", "abandoned"} {
		status, err := ParseStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, Status(valid), status)
	}

	_, err := ParseStatus("paused")
	assert.Error(t, err)

	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestHasCompletedDay(t *testing.T) {
	e := &Enrollment{CompletedDays: []int{1, 2, 5}}

	assert.True(t, HasCompletedDay(e, 1))
	assert.True(t, HasCompletedDay(e, 5))
	assert.False(t, HasCompletedDay(e, 3))
	assert.False(t, HasCompletedDay(e, 6))

	empty := &Enrollment{CompletedDays: []int{}}
	assert.False(t, HasCompletedDay(empty, 1))
}

func TestProgressPercent(t *testing.T) {
	def := &Definition{DurationDays: 21}

	tests := []struct {
		completed []int
		want      int
	}{
		{[]int{}, 0},
		{[]int{1, 2, 3}, 14},       // 3/21 = 14.28..., rounds down
		{[]int{1, 2, 3, 4, 5}, 24}, // 5/21 = 23.8..., rounds up
		{make21(), 100},
	}
	for _, tt := range tests {
		e := &Enrollment{CompletedDays: tt.completed}
		assert.Equal(t, tt.want, ProgressPercent(e, def), "completed=%d", len(tt.completed))
	}

	half := &Enrollment{CompletedDays: []int{1}}
	assert.Equal(t, 50, ProgressPercent(half, &Definition{DurationDays: 2}))
}

func make21() []int {
	days := make([]int, 21)
	for i := range days {
		days[i] = i + 1
	}
	return days
}

func TestDaysRemaining(t *testing.T) {
	def := &Definition{DurationDays: 7}

	assert.Equal(t, 7, DaysRemaining(&Enrollment{CompletedDays: []int{}}, def))
	assert.Equal(t, 4, DaysRemaining(&Enrollment{CompletedDays: []int{1, 2, 3}}, def))
	assert.Equal(t, 0, DaysRemaining(&Enrollment{CompletedDays: []int{1, 2, 3, 4, 5, 6, 7}}, def))

	// More completed days than the duration clamps to zero instead of going negative.
	over := &Enrollment{CompletedDays: []int{1, 2, 3, 4, 5, 6, 7, 8}}
	assert.Equal(t, 0, DaysRemaining(over, def))
}

func TestIsCheckedInToday(t *testing.T) {
	// A normally maintained record has CurrentDay one past the last completed day.
	e := &Enrollment{CurrentDay: 4, CompletedDays: []int{1, 2, 3}}
	assert.False(t, IsCheckedInToday(e))

	// A row where the current slot is already in the ledger reads as checked in.
	seeded := &Enrollment{CurrentDay: 3, CompletedDays: []int{1, 2, 3}}
	assert.True(t, IsCheckedInToday(seeded))
}

func TestTipForDay(t *testing.T) {
	def := &Definition{
		DurationDays: 21,
		DailyTips: map[int]string{
			1: "Start with a glass of warm water and lemon.",
			7: "One week down. Try the beetroot blend today.",
		},
	}

	assert.Equal(t, "Start with a glass of warm water and lemon.", TipForDay(def, 1))
	assert.Equal(t, "One week down. Try the beetroot blend today.", TipForDay(def, 7))
	assert.Equal(t, DefaultTip, TipForDay(def, 2))
	assert.Equal(t, DefaultTip, TipForDay(def, 99))

	// Nil map and empty-string tips both fall back.
	assert.Equal(t, DefaultTip, TipForDay(&Definition{}, 1))
	assert.Equal(t, DefaultTip, TipForDay(&Definition{DailyTips: map[int]string{3: ""}}, 3))
}

func TestMilestonesReached(t *testing.T) {
	def := &Definition{
		DurationDays: 21,
		Milestones: []Milestone{
			{Day: 3, Description: "First 3 days done"},
			{Day: 7, Description: "One week strong"},
			{Day: 14, Description: "Two weeks in"},
			{Day: 21, Description: "Transformation complete"},
		},
	}

	none := MilestonesReached(&Enrollment{CompletedDays: []int{1, 2}}, def)
	assert.Empty(t, none)

	some := MilestonesReached(&Enrollment{CompletedDays: []int{1, 2, 3, 4, 5, 6, 7}}, def)
	require.Len(t, some, 2)
	assert.Equal(t, 3, some[0].Day)
	assert.Equal(t, 7, some[1].Day)

	all := MilestonesReached(&Enrollment{CompletedDays: make21()}, def)
	assert.Len(t, all, 4)
}
