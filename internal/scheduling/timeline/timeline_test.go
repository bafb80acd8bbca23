package timeline

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
)

func iv(t *testing.T, startHour, startMin, endHour, endMin int) domain.Interval {
	t.Helper()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // понедельник
	interval, err := domain.NewInterval(
		day.Add(time.Duration(startHour)*time.Hour+time.Duration(startMin)*time.Minute),
		day.Add(time.Duration(endHour)*time.Hour+time.Duration(endMin)*time.Minute),
	)
	require.NoError(t, err)
	return interval
}

func TestInsertAndQuery(t *testing.T) {
	tl := New("prof-1")

	require.NoError(t, tl.Insert(iv(t, 10, 0, 11, 0), "a1"))
	require.NoError(t, tl.Insert(iv(t, 12, 0, 13, 0), "a2"))

	assert.False(t, tl.IsFree(iv(t, 10, 30, 11, 30)))
	assert.True(t, tl.IsFree(iv(t, 11, 0, 12, 0)))

	withID, busy := tl.Conflicting(iv(t, 12, 30, 14, 0))
	assert.True(t, busy)
	assert.Equal(t, "a2", withID)
}

func TestInsertConflictRejected(t *testing.T) {
	tl := New("prof-1")
	require.NoError(t, tl.Insert(iv(t, 10, 0, 11, 0), "a1"))

	err := tl.Insert(iv(t, 10, 30, 11, 30), "a2")
	require.ErrorIs(t, err, ErrConflict)

	// Отклоненная вставка не оставляет следов
	assert.Equal(t, 1, tl.Len())
	assert.True(t, tl.IsFree(iv(t, 11, 0, 12, 0)))
}

func TestTouchingBoundariesDoNotConflict(t *testing.T) {
	tl := New("room-1")
	require.NoError(t, tl.Insert(iv(t, 10, 0, 11, 0), "a1"))
	require.NoError(t, tl.Insert(iv(t, 11, 0, 12, 0), "a2"))
	require.NoError(t, tl.Insert(iv(t, 9, 0, 10, 0), "a3"))

	entries := tl.LiveEntries()
	require.Len(t, entries, 3)
	// Порядок по началу интервала
	assert.Equal(t, "a3", entries[0].AppointmentID)
	assert.Equal(t, "a1", entries[1].AppointmentID)
	assert.Equal(t, "a2", entries[2].AppointmentID)
}

func TestRemoveFreesSlotAndKeepsHistory(t *testing.T) {
	tl := New("prof-1")
	require.NoError(t, tl.Insert(iv(t, 10, 0, 11, 0), "a1"))

	tl.Remove("a1")

	assert.True(t, tl.IsFree(iv(t, 10, 0, 11, 0)))
	assert.Equal(t, 1, tl.Len(), "отмененная запись остается в истории")
	assert.Empty(t, tl.LiveEntries())

	// Слот можно занять повторно
	require.NoError(t, tl.Insert(iv(t, 10, 0, 11, 0), "a2"))
}

func TestRemoveIsIdempotent(t *testing.T) {
	tl := New("prof-1")
	require.NoError(t, tl.Insert(iv(t, 10, 0, 11, 0), "a1"))

	tl.Remove("a1")
	tl.Remove("a1")
	tl.Remove("unknown")

	assert.Empty(t, tl.LiveEntries())
}

func TestDeleteAndReinsertForReschedule(t *testing.T) {
	tl := New("prof-1")
	require.NoError(t, tl.Insert(iv(t, 10, 0, 11, 0), "a1"))

	removed, ok := tl.Delete("a1")
	require.True(t, ok)
	assert.Equal(t, 0, tl.Len())

	// Восстановление старой записи после отклоненного переноса
	require.NoError(t, tl.Insert(removed.Interval, removed.AppointmentID))
	assert.False(t, tl.IsFree(iv(t, 10, 0, 11, 0)))

	_, ok = tl.Delete("unknown")
	assert.False(t, ok)
}

func TestReactivate(t *testing.T) {
	tl := New("prof-1")
	require.NoError(t, tl.Insert(iv(t, 10, 0, 11, 0), "a1"))

	tl.Remove("a1")
	require.True(t, tl.IsFree(iv(t, 10, 0, 11, 0)))

	tl.Reactivate("a1")
	assert.False(t, tl.IsFree(iv(t, 10, 0, 11, 0)))
}

func TestDuplicateInsertRejected(t *testing.T) {
	tl := New("prof-1")
	require.NoError(t, tl.Insert(iv(t, 10, 0, 11, 0), "a1"))

	err := tl.Insert(iv(t, 14, 0, 15, 0), "a1")
	require.ErrorIs(t, err, ErrDuplicateEntry)
}

// Свойство непересечения на случайных наборах интервалов: вставка
// принимается тогда и только тогда, когда интервал не задевает ни одну
// живую запись, и живые записи остаются попарно непересекающимися.
// Сид фиксирован, прогон воспроизводим.
func TestInsertRandomIntervalSets(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	for round := 0; round < 50; round++ {
		tl := New("prof-1")
		accepted := make(map[string]domain.Interval)

		for n := 0; n < 80; n++ {
			startMin := rng.Intn(23 * 60)
			length := 5 + rng.Intn(180)
			interval, err := domain.NewInterval(
				day.Add(time.Duration(startMin)*time.Minute),
				day.Add(time.Duration(startMin+length)*time.Minute),
			)
			require.NoError(t, err)

			overlapsLive := false
			for _, existing := range accepted {
				if existing.Overlaps(interval) {
					overlapsLive = true
					break
				}
			}

			id := fmt.Sprintf("a-%d-%d", round, n)
			err = tl.Insert(interval, id)
			if overlapsLive {
				require.ErrorIs(t, err, ErrConflict, "round=%d n=%d", round, n)
			} else {
				require.NoError(t, err, "round=%d n=%d", round, n)
				accepted[id] = interval
			}

			// Иногда освобождаем случайную живую запись
			if len(accepted) > 0 && rng.Intn(4) == 0 {
				for victim := range accepted {
					tl.Remove(victim)
					delete(accepted, victim)
					break
				}
			}
		}

		entries := tl.LiveEntries()
		require.Len(t, entries, len(accepted))
		for i := 0; i < len(entries); i++ {
			for j := i + 1; j < len(entries); j++ {
				assert.False(t, entries[i].Interval.Overlaps(entries[j].Interval),
					"round=%d: живые записи %s и %s пересекаются",
					round, entries[i].AppointmentID, entries[j].AppointmentID)
			}
		}
	}
}

func TestQueryOverLongHistory(t *testing.T) {
	tl := New("prof-1")
	day := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	// Месяцы истории: по 10 приемов в день
	for d := 0; d < 90; d++ {
		for s := 0; s < 10; s++ {
			start := day.AddDate(0, 0, d).Add(time.Duration(s) * time.Hour)
			interval, err := domain.NewInterval(start, start.Add(45*time.Minute))
			require.NoError(t, err)
			require.NoError(t, tl.Insert(interval, fmt.Sprintf("a-%d-%d", d, s)))
		}
	}

	// Свободные четверти часа между приемами остаются свободными
	free, err := domain.NewInterval(
		day.AddDate(0, 0, 45).Add(3*time.Hour+45*time.Minute),
		day.AddDate(0, 0, 45).Add(4*time.Hour),
	)
	require.NoError(t, err)
	assert.True(t, tl.IsFree(free))

	busy, err := domain.NewInterval(
		day.AddDate(0, 0, 45).Add(3*time.Hour),
		day.AddDate(0, 0, 45).Add(3*time.Hour+30*time.Minute),
	)
	require.NoError(t, err)
	withID, conflict := tl.Conflicting(busy)
	assert.True(t, conflict)
	assert.Equal(t, "a-45-3", withID)
}
