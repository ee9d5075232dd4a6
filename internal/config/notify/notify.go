// Package notify delivers change notifications for committed hint exclusion
// lists.
//
// Observers subscribe either to every change or to one language. The override
// store publishes a Change whenever a language's diff is replaced, reset or
// reloaded from storage.
package notify

import (
	"sync"

	"github.com/dshills/hintprefs/internal/setdiff"
)

// ChangeType represents the type of change.
type ChangeType int

const (
	// ChangeSet indicates a language's diff was replaced.
	ChangeSet ChangeType = iota

	// ChangeReset indicates a language's customization was dropped.
	ChangeReset

	// ChangeReload indicates stored diffs were re-read from persistence.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeReset:
		return "reset"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents a change event.
type Change struct {
	// Classifier is the language whose diff changed.
	// Empty for reload events.
	Classifier string

	// Type is the type of change.
	Type ChangeType

	// Old is the previous diff.
	Old setdiff.Diff[string]

	// New is the replacement diff.
	New setdiff.Diff[string]

	// Source identifies where the change came from.
	Source string
}

// Observer is called when a change occurs.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier manages change subscriptions.
type Notifier struct {
	mu sync.RWMutex

	globalObservers   map[uint64]Observer
	languageObservers map[string]map[uint64]Observer
	nextID            uint64

	async  bool
	buffer chan Change
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync enables asynchronous notification delivery.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan Change, bufferSize)
		}
	}
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		globalObservers:   make(map[uint64]Observer),
		languageObservers: make(map[string]map[uint64]Observer),
		done:              make(chan struct{}),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.async {
		n.wg.Add(1)
		go n.processAsync()
	}

	return n
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.globalObservers[id] = observer

	return &Subscription{id: id, notifier: n}
}

// SubscribeLanguage registers an observer for one classifier. Reload events
// reach every language observer.
func (n *Notifier) SubscribeLanguage(classifier string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++

	if n.languageObservers[classifier] == nil {
		n.languageObservers[classifier] = make(map[uint64]Observer)
	}
	n.languageObservers[classifier][id] = observer

	return &Subscription{id: id, notifier: n}
}

// Notify sends a change notification to all relevant observers.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	n.mu.RUnlock()

	if n.async {
		select {
		case n.buffer <- change:
		case <-n.done:
		}
		return
	}

	n.deliverChange(change)
}

// Close shuts down the notifier. It is safe to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.globalObservers, id)

	for classifier, observers := range n.languageObservers {
		delete(observers, id)
		if len(observers) == 0 {
			delete(n.languageObservers, classifier)
		}
	}
}

// deliverChange sends a change to all matching observers.
func (n *Notifier) deliverChange(change Change) {
	n.mu.RLock()

	var observers []Observer
	for _, obs := range n.globalObservers {
		observers = append(observers, obs)
	}

	if change.Type == ChangeReload {
		for _, langObs := range n.languageObservers {
			for _, obs := range langObs {
				observers = append(observers, obs)
			}
		}
	} else {
		for _, obs := range n.languageObservers[change.Classifier] {
			observers = append(observers, obs)
		}
	}

	n.mu.RUnlock()

	// Call observers outside the lock
	for _, obs := range observers {
		obs(change)
	}
}

func (n *Notifier) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case change := <-n.buffer:
			n.deliverChange(change)
		case <-n.done:
			// Drain remaining buffered changes
			for {
				select {
				case change := <-n.buffer:
					n.deliverChange(change)
				default:
					return
				}
			}
		}
	}
}
