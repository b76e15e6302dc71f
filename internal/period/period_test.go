package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-06")
	require.NoError(t, err)
	assert.Equal(t, Month{Year: 2024, Month: time.June}, m)
	assert.Equal(t, "2024-06", m.String())

	for _, bad := range []string{"", "2024-6", "24-06", "2024-13", "2024-00", "1999-12", "2101-01", "2024/06", "2024-06-01"} {
		_, err := ParseMonth(bad)
		assert.ErrorIs(t, err, ErrInvalidMonth, "input %q", bad)
	}
}

func TestMonth_Next(t *testing.T) {
	assert.Equal(t, Month{Year: 2024, Month: time.July}, Month{Year: 2024, Month: time.June}.Next())
	assert.Equal(t, Month{Year: 2025, Month: time.January}, Month{Year: 2024, Month: time.December}.Next())
}

func TestWindow_ConsecutiveMonthsHaveNoGaps(t *testing.T) {
	calc := NewCalculator(time.UTC)
	m := Month{Year: 2023, Month: time.January}
	for i := 0; i < 36; i++ {
		w := calc.Window(m, nil)
		next := calc.Window(m.Next(), nil)
		assert.True(t, w.End.Equal(next.Start), "month %s", m)
		assert.True(t, w.Start.Before(w.End))
		m = m.Next()
	}
}

func TestWindow_AnchorInsideMonthMovesStart(t *testing.T) {
	calc := NewCalculator(time.UTC)
	m := Month{Year: 2024, Month: time.June}
	anchor := time.Date(2024, time.June, 10, 15, 0, 0, 0, time.UTC)

	w := calc.Window(m, &anchor)

	assert.True(t, w.Start.Equal(anchor), "start should be the exact anchor instant, got %s", w.Start)
	assert.True(t, w.End.Equal(time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)))
}

func TestWindow_AnchorOutsideMonthIsIgnored(t *testing.T) {
	calc := NewCalculator(time.UTC)
	m := Month{Year: 2024, Month: time.June}
	monthStart := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	before := time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC)
	after := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, calc.Window(m, &before).Start.Equal(monthStart))
	assert.True(t, calc.Window(m, &after).Start.Equal(monthStart))
}

func TestWindow_AnchorAtMonthStartIsInside(t *testing.T) {
	calc := NewCalculator(time.UTC)
	m := Month{Year: 2024, Month: time.June}
	anchor := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, calc.Window(m, &anchor).Start.Equal(anchor))
}

func TestWindow_ZeroAnchorFallsBackToMonthStart(t *testing.T) {
	calc := NewCalculator(time.UTC)
	m := Month{Year: 2024, Month: time.June}
	var zero time.Time

	w := calc.Window(m, &zero)

	assert.True(t, w.Start.Equal(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)))
}

func TestWindow_UsesCalculatorLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	calc := NewCalculator(loc)

	w := calc.MonthWindow(Month{Year: 2024, Month: time.June})

	assert.True(t, w.Start.Equal(time.Date(2024, time.June, 1, 5, 0, 0, 0, time.UTC)))
	assert.Equal(t, Month{Year: 2024, Month: time.May}, calc.MonthOf(time.Date(2024, time.June, 1, 3, 0, 0, 0, time.UTC)))
}

func TestWindow_Contains(t *testing.T) {
	w := Window{
		Start: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, w.Contains(w.Start))
	assert.False(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.Start.Add(-time.Nanosecond)))
}
