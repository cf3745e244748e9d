package dispatch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"seikenbot/pkg/entities"
)

var (
	// ErrStopPropagation may be returned by a handler to prevent any later group from
	// seeing the event. Dispatch treats it as a success.
	ErrStopPropagation = errors.New("stop propagation")
	ErrBindingsFrozen  = errors.New("bindings are frozen after the first dispatch")
)

const (
	OutcomeOK      = "ok"
	OutcomeStopped = "stopped"
	OutcomeFailed  = "failed"
)

type HandlerFunc func(ctx context.Context, ev entities.Event) error

type Binding struct {
	Group   int
	Name    string
	Filter  Filter
	Handler HandlerFunc
}

// Observer is notified after every handler invocation.
type Observer interface {
	ObserveHandler(group int, name, outcome string, elapsed time.Duration)
}

type group struct {
	number   int
	bindings []Binding
}

// Dispatcher routes events through ordered groups of bindings.
// Groups are evaluated in ascending order, and inside a group only the first binding
// whose filter matches is run. A match in one group does not prevent later groups
// from being evaluated.
type Dispatcher struct {
	mu       sync.Mutex
	frozen   bool
	bindings []Binding

	freezeOnce sync.Once
	groups     []group

	observer Observer
}

func NewDispatcher(observer Observer) *Dispatcher {
	return &Dispatcher{observer: observer}
}

func (d *Dispatcher) Register(groupNumber int, name string, filter Filter, handler HandlerFunc) error {
	if filter == nil || handler == nil {
		return errors.Errorf("binding %q must have both filter and handler", name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frozen {
		return errors.Wrapf(ErrBindingsFrozen, "failed to register binding %q", name)
	}
	d.bindings = append(d.bindings, Binding{Group: groupNumber, Name: name, Filter: filter, Handler: handler})
	return nil
}

// Bindings returns registered bindings in evaluation order.
func (d *Dispatcher) Bindings() []Binding {
	d.freezeOnce.Do(d.freeze)
	var out []Binding
	for _, g := range d.groups {
		out = append(out, g.bindings...)
	}
	return out
}

func (d *Dispatcher) freeze() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frozen = true

	byNumber := make(map[int][]Binding)
	for _, b := range d.bindings {
		byNumber[b.Group] = append(byNumber[b.Group], b)
	}
	groups := make([]group, 0, len(byNumber))
	for number, bindings := range byNumber {
		groups = append(groups, group{number: number, bindings: bindings})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].number < groups[j].number })
	d.groups = groups
}

// Dispatch runs the event through all groups. An event that matches nothing is not an error.
// The first failing handler terminates processing of the event.
// Dispatch is safe for concurrent use and keeps no state between calls.
func (d *Dispatcher) Dispatch(ctx context.Context, ev entities.Event) error {
	d.freezeOnce.Do(d.freeze)

	for _, g := range d.groups {
		b, ok := g.match(ev)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "dispatch of update %d aborted before group %d", ev.UpdateID, g.number)
		}
		start := time.Now()
		err := b.Handler(ctx, ev)
		elapsed := time.Since(start)
		switch {
		case err == nil:
			d.observe(g.number, b.Name, OutcomeOK, elapsed)
		case errors.Is(err, ErrStopPropagation):
			d.observe(g.number, b.Name, OutcomeStopped, elapsed)
			return nil
		default:
			d.observe(g.number, b.Name, OutcomeFailed, elapsed)
			return errors.Wrapf(err, "handler %q in group %d failed", b.Name, g.number)
		}
	}
	return nil
}

func (g group) match(ev entities.Event) (Binding, bool) {
	for _, b := range g.bindings {
		if b.Filter(ev) {
			return b, true
		}
	}
	return Binding{}, false
}

func (d *Dispatcher) observe(groupNumber int, name, outcome string, elapsed time.Duration) {
	if d.observer != nil {
		d.observer.ObserveHandler(groupNumber, name, outcome, elapsed)
	}
}
