// Package timeline хранит занятые интервалы одного ресурса (специалиста или
// кабинета) в отсортированном по началу виде и отвечает на вопрос
// "свободен ли интервал" за O(log n + k).
package timeline

import (
	"fmt"
	"sort"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
)

// Entry запись таймлайна: интервал, занятый одним appointment.
// Отменённые записи остаются в структуре с Active=false - история
// сохраняется, но в проверках занятости они не участвуют.
type Entry struct {
	Interval      domain.Interval
	AppointmentID string
	Active        bool
}

// Timeline упорядоченный набор занятых интервалов одного ресурса.
// Инвариант: живые (Active) записи попарно не пересекаются.
//
// Структура не потокобезопасна: весь доступ сериализуется блокировками
// координатора на уровне ресурса.
type Timeline struct {
	resourceID string
	// exclusive - точка расширения для групповых сеансов: false означало бы,
	// что пересечения живых записей допустимы. Сейчас всегда true.
	exclusive bool
	entries   []*Entry // отсортированы по (Interval.Start, Interval.End)
	byID      map[string]*Entry
}

// New создает пустой таймлайн ресурса
func New(resourceID string) *Timeline {
	return &Timeline{
		resourceID: resourceID,
		exclusive:  true,
		byID:       make(map[string]*Entry),
	}
}

// ResourceID возвращает идентификатор ресурса
func (t *Timeline) ResourceID() string {
	return t.resourceID
}

// Len возвращает общее число записей, включая неактивные
func (t *Timeline) Len() int {
	return len(t.entries)
}

// searchAfter возвращает индекс первой записи с Start >= границы
func (t *Timeline) searchAfter(boundary domain.Interval) int {
	return sort.Search(len(t.entries), func(i int) bool {
		return !t.entries[i].Interval.Start.Before(boundary.End)
	})
}

// Conflicting возвращает appointment id живой записи, пересекающейся с
// интервалом, если такая есть.
//
// Записи с Start >= iv.End пересекаться не могут. Идем влево от этой
// границы: ближайшая живая запись имеет максимальный End среди живых
// записей левее (живые записи не пересекаются, значит их правые границы
// растут вместе с левыми) - если и она не задевает iv, дальше искать нечего.
func (t *Timeline) Conflicting(iv domain.Interval) (string, bool) {
	for j := t.searchAfter(iv) - 1; j >= 0; j-- {
		e := t.entries[j]
		if !e.Active {
			continue
		}
		if e.Interval.End.After(iv.Start) {
			return e.AppointmentID, true
		}
		break
	}
	return "", false
}

// IsFree проверяет, что ни одна живая запись не пересекается с интервалом
func (t *Timeline) IsFree(iv domain.Interval) bool {
	_, busy := t.Conflicting(iv)
	return !busy
}

// Insert добавляет живую запись, сохраняя сортировку.
// Возвращает ErrConflict, если интервал пересекается с живой записью,
// и ErrDuplicateEntry при повторном appointment id.
func (t *Timeline) Insert(iv domain.Interval, appointmentID string) error {
	if _, ok := t.byID[appointmentID]; ok {
		return fmt.Errorf("%w: id=%s resource=%s", ErrDuplicateEntry, appointmentID, t.resourceID)
	}
	if t.exclusive {
		if withID, busy := t.Conflicting(iv); busy {
			return fmt.Errorf("%w: resource=%s busy_with=%s", ErrConflict, t.resourceID, withID)
		}
	}

	entry := &Entry{Interval: iv, AppointmentID: appointmentID, Active: true}

	pos := sort.Search(len(t.entries), func(i int) bool {
		return iv.Before(t.entries[i].Interval)
	})

	t.entries = append(t.entries, nil)
	copy(t.entries[pos+1:], t.entries[pos:])
	t.entries[pos] = entry
	t.byID[appointmentID] = entry

	return nil
}

// Remove помечает запись неактивной. Идемпотентна: повторный вызов и
// вызов для отсутствующего id ничего не меняют.
func (t *Timeline) Remove(appointmentID string) {
	if e, ok := t.byID[appointmentID]; ok {
		e.Active = false
	}
}

// Reactivate возвращает запись в живое состояние. Используется
// координатором для отката: под блокировками ресурса слот не мог быть
// занят кем-то другим.
func (t *Timeline) Reactivate(appointmentID string) {
	if e, ok := t.byID[appointmentID]; ok {
		e.Active = true
	}
}

// Delete физически удаляет запись (путь переноса: старый интервал не
// является историей, у appointment появляется новый). Возвращает удаленную
// запись для возможного восстановления через Insert.
func (t *Timeline) Delete(appointmentID string) (Entry, bool) {
	e, ok := t.byID[appointmentID]
	if !ok {
		return Entry{}, false
	}

	for i, candidate := range t.entries {
		if candidate == e {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			break
		}
	}
	delete(t.byID, appointmentID)
	return *e, true
}

// LiveEntries возвращает копии живых записей в порядке возрастания начала
func (t *Timeline) LiveEntries() []Entry {
	result := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		if e.Active {
			result = append(result, *e)
		}
	}
	return result
}
