package coordinator

import (
	"context"
	"fmt"
	"sync"
)

// lockTable выдает по одной блокировке на ресурс. Блокировки строятся на
// канальных семафорах, чтобы ожидание уважало дедлайн вызывающего.
//
// Дисциплина против дедлоков: каждая операция берет блокировки строго в
// отсортированном порядке идентификаторов ресурсов - acquire требует
// заранее отсортированный список.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]chan struct{})}
}

func (lt *lockTable) lockFor(resourceID string) chan struct{} {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	ch, ok := lt.locks[resourceID]
	if !ok {
		ch = make(chan struct{}, 1)
		lt.locks[resourceID] = ch
	}
	return ch
}

// acquire берет блокировки всех ресурсов в переданном (отсортированном)
// порядке. При истечении контекста освобождает уже взятые и возвращает
// ErrBusy - частичных захватов не остается.
func (lt *lockTable) acquire(ctx context.Context, sortedIDs []string) (release func(), err error) {
	held := make([]chan struct{}, 0, len(sortedIDs))

	releaseHeld := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for _, id := range sortedIDs {
		ch := lt.lockFor(id)
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-ctx.Done():
			releaseHeld()
			return nil, fmt.Errorf("%w: resource=%s: %v", ErrBusy, id, ctx.Err())
		}
	}

	var once sync.Once
	return func() { once.Do(releaseHeld) }, nil
}
