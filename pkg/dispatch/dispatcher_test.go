package dispatch_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"seikenbot/pkg/dispatch"
	"seikenbot/pkg/entities"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) handler(name string, result error) dispatch.HandlerFunc {
	return func(_ context.Context, _ entities.Event) error {
		r.mu.Lock()
		r.calls = append(r.calls, name)
		r.mu.Unlock()
		return result
	}
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type observation struct {
	group   int
	name    string
	outcome string
}

type fakeObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (o *fakeObserver) ObserveHandler(group int, name, outcome string, _ time.Duration) {
	o.mu.Lock()
	o.obs = append(o.obs, observation{group: group, name: name, outcome: outcome})
	o.mu.Unlock()
}

func always(entities.Event) bool { return true }
func never(entities.Event) bool  { return false }

func TestDispatchGroupsInAscendingOrder(t *testing.T) {
	rec := new(recorder)
	d := dispatch.NewDispatcher(nil)
	require.NoError(t, d.Register(2, "two", always, rec.handler("two", nil)))
	require.NoError(t, d.Register(0, "zero", always, rec.handler("zero", nil)))
	require.NoError(t, d.Register(1, "one", always, rec.handler("one", nil)))
	require.NoError(t, d.Register(-1, "minus-one", always, rec.handler("minus-one", nil)))

	require.NoError(t, d.Dispatch(context.Background(), entities.Event{Text: "hi"}))
	assert.Equal(t, []string{"minus-one", "zero", "one", "two"}, rec.Calls())
}

func TestDispatchFirstMatchWinsInsideGroup(t *testing.T) {
	rec := new(recorder)
	d := dispatch.NewDispatcher(nil)
	require.NoError(t, d.Register(0, "skipped", never, rec.handler("skipped", nil)))
	require.NoError(t, d.Register(0, "first", always, rec.handler("first", nil)))
	require.NoError(t, d.Register(0, "second", always, rec.handler("second", nil)))
	require.NoError(t, d.Register(1, "other-group", always, rec.handler("other-group", nil)))

	require.NoError(t, d.Dispatch(context.Background(), entities.Event{Text: "hi"}))
	assert.Equal(t, []string{"first", "other-group"}, rec.Calls())
}

func TestDispatchUnmatchedEventIsNoop(t *testing.T) {
	rec := new(recorder)
	d := dispatch.NewDispatcher(nil)
	require.NoError(t, d.Register(0, "text", dispatch.Text, rec.handler("text", nil)))
	require.NoError(t, d.Register(1, "voice", dispatch.Voice, rec.handler("voice", nil)))

	require.NoError(t, d.Dispatch(context.Background(), entities.Event{UpdateID: 1}))
	assert.Empty(t, rec.Calls())
}

func TestDispatchStopPropagation(t *testing.T) {
	rec := new(recorder)
	obs := new(fakeObserver)
	d := dispatch.NewDispatcher(obs)
	require.NoError(t, d.Register(0, "moderation", always, rec.handler("moderation", dispatch.ErrStopPropagation)))
	require.NoError(t, d.Register(1, "echo", always, rec.handler("echo", nil)))

	require.NoError(t, d.Dispatch(context.Background(), entities.Event{Text: "hi"}))
	assert.Equal(t, []string{"moderation"}, rec.Calls())
	assert.Equal(t, []observation{{group: 0, name: "moderation", outcome: dispatch.OutcomeStopped}}, obs.obs)
}

func TestDispatchWrappedStopPropagation(t *testing.T) {
	rec := new(recorder)
	d := dispatch.NewDispatcher(nil)
	stop := errors.Wrap(dispatch.ErrStopPropagation, "message deleted")
	require.NoError(t, d.Register(0, "moderation", always, rec.handler("moderation", stop)))
	require.NoError(t, d.Register(1, "echo", always, rec.handler("echo", nil)))

	require.NoError(t, d.Dispatch(context.Background(), entities.Event{Text: "hi"}))
	assert.Equal(t, []string{"moderation"}, rec.Calls())
}

func TestDispatchHandlerErrorTerminatesEvent(t *testing.T) {
	rec := new(recorder)
	obs := new(fakeObserver)
	d := dispatch.NewDispatcher(obs)
	failure := errors.New("telegram: not enough rights to delete a message")
	require.NoError(t, d.Register(0, "failing", always, rec.handler("failing", failure)))
	require.NoError(t, d.Register(1, "later", always, rec.handler("later", nil)))

	err := d.Dispatch(context.Background(), entities.Event{Text: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.Contains(t, err.Error(), `handler "failing" in group 0 failed`)
	assert.Equal(t, []string{"failing"}, rec.Calls())
	assert.Equal(t, []observation{{group: 0, name: "failing", outcome: dispatch.OutcomeFailed}}, obs.obs)
}

func TestDispatchIsIdempotent(t *testing.T) {
	rec := new(recorder)
	d := dispatch.NewDispatcher(nil)
	require.NoError(t, d.Register(0, "a", always, rec.handler("a", nil)))
	require.NoError(t, d.Register(1, "b", always, rec.handler("b", nil)))

	ev := entities.Event{UpdateID: 10, Text: "hi"}
	require.NoError(t, d.Dispatch(context.Background(), ev))
	require.NoError(t, d.Dispatch(context.Background(), ev))
	assert.Equal(t, []string{"a", "b", "a", "b"}, rec.Calls())
}

func TestDispatchCanceledContext(t *testing.T) {
	rec := new(recorder)
	d := dispatch.NewDispatcher(nil)
	require.NoError(t, d.Register(0, "a", always, rec.handler("a", nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.Dispatch(ctx, entities.Event{Text: "hi"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.Calls())
}

func TestRegisterAfterDispatchFails(t *testing.T) {
	d := dispatch.NewDispatcher(nil)
	require.NoError(t, d.Register(0, "a", always, new(recorder).handler("a", nil)))
	require.NoError(t, d.Dispatch(context.Background(), entities.Event{}))

	err := d.Register(1, "late", always, new(recorder).handler("late", nil))
	assert.ErrorIs(t, err, dispatch.ErrBindingsFrozen)
}

func TestRegisterRequiresFilterAndHandler(t *testing.T) {
	d := dispatch.NewDispatcher(nil)
	assert.Error(t, d.Register(0, "no-filter", nil, new(recorder).handler("x", nil)))
	assert.Error(t, d.Register(0, "no-handler", always, nil))
}

func TestBindingsOrder(t *testing.T) {
	d := dispatch.NewDispatcher(nil)
	h := new(recorder).handler("x", nil)
	require.NoError(t, d.Register(1, "b", always, h))
	require.NoError(t, d.Register(0, "a1", always, h))
	require.NoError(t, d.Register(0, "a2", always, h))

	var names []string
	for _, b := range d.Bindings() {
		names = append(names, fmt.Sprintf("%d/%s", b.Group, b.Name))
	}
	assert.Equal(t, []string{"0/a1", "0/a2", "1/b"}, names)
}

func TestConcurrentDispatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := new(recorder)
	d := dispatch.NewDispatcher(nil)
	require.NoError(t, d.Register(0, "a", always, rec.handler("a", nil)))

	const events = 50
	var wg sync.WaitGroup
	for i := range events {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.Dispatch(context.Background(), entities.Event{UpdateID: i, Text: "hi"}))
		}()
	}
	wg.Wait()
	assert.Len(t, rec.Calls(), events)
}
