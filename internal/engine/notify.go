package engine

import (
	"slowjams/internal/logging"
	"slowjams/internal/queue"
)

// Observer receives a snapshot after every task state change, including
// progress updates. Callbacks run synchronously on the worker goroutine
// that produced the change, so observers must return quickly and hand
// slow work off themselves.
type Observer interface {
	OnTaskUpdate(snap queue.Snapshot)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(snap queue.Snapshot)

func (f ObserverFunc) OnTaskUpdate(snap queue.Snapshot) { f(snap) }

// Subscribe registers an observer and returns a function that removes it.
func (e *Engine) Subscribe(obs Observer) func() {
	e.obsMu.Lock()
	id := e.nextObsID
	e.nextObsID++
	e.observers[id] = obs
	e.obsMu.Unlock()

	return func() {
		e.obsMu.Lock()
		delete(e.observers, id)
		e.obsMu.Unlock()
	}
}

func (e *Engine) emit(snap queue.Snapshot) {
	e.obsMu.RLock()
	observers := make([]Observer, 0, len(e.observers))
	for _, obs := range e.observers {
		observers = append(observers, obs)
	}
	e.obsMu.RUnlock()

	for _, obs := range observers {
		e.notifyOne(obs, snap)
	}
}

// notifyOne isolates observer panics so one broken subscriber cannot take
// down a worker.
func (e *Engine) notifyOne(obs Observer, snap queue.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("observer panicked",
				logging.String("task", snap.ID),
				logging.Any("panic", r),
			)
		}
	}()
	obs.OnTaskUpdate(snap)
}
