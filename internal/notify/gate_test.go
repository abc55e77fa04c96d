package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geo-reminder/internal/events"
	"geo-reminder/internal/reminder"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	titles []string
	bodies []string
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, title, body string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.titles = append(d.titles, title)
	d.bodies = append(d.bodies, body)
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.titles)
}

type countingPrompter struct {
	calls   atomic.Int32
	release chan struct{}
	answer  bool
	err     error
}

func (p *countingPrompter) Prompt(ctx context.Context) (bool, error) {
	p.calls.Add(1)
	if p.release != nil {
		<-p.release
	}
	return p.answer, p.err
}

var bread = reminder.NewReminder("rem1", "", "Buy bread", "Bakery", "", reminder.Once, nil)

func TestGrantedNeverPrompts(t *testing.T) {
	p := &countingPrompter{}
	d := &recordingDispatcher{}
	g := NewGate(NewPlatform(Granted, p, d), nil)

	assert.True(t, g.EnsurePermission(context.Background()))
	shown, err := g.Notify(context.Background(), bread)
	require.NoError(t, err)
	assert.True(t, shown)
	assert.Equal(t, int32(0), p.calls.Load())
	assert.Equal(t, []string{"Reminder: Buy bread"}, d.titles)
	assert.Equal(t, []string{"You are near Bakery."}, d.bodies)
}

func TestDeniedIsSilent(t *testing.T) {
	p := &countingPrompter{answer: true}
	d := &recordingDispatcher{}
	g := NewGate(NewPlatform(Denied, p, d), nil)

	assert.False(t, g.EnsurePermission(context.Background()))
	shown, err := g.Notify(context.Background(), bread)
	require.NoError(t, err)
	assert.False(t, shown)
	assert.Equal(t, 0, d.count())
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestUnknownPromptsOnceAndIsAbsorbing(t *testing.T) {
	p := &countingPrompter{answer: false}
	d := &recordingDispatcher{}
	g := NewGate(NewPlatform(Unknown, p, d), nil)
	require.Equal(t, Unknown, g.State())

	assert.False(t, g.EnsurePermission(context.Background()))
	assert.Equal(t, Denied, g.State())
	assert.False(t, g.EnsurePermission(context.Background()))
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestConcurrentCallersShareOnePrompt(t *testing.T) {
	p := &countingPrompter{answer: true, release: make(chan struct{})}
	g := NewGate(NewPlatform(Unknown, p, &recordingDispatcher{}), nil)

	var (
		wg      sync.WaitGroup
		granted atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.EnsurePermission(context.Background()) {
				granted.Add(1)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(p.release)
	wg.Wait()

	assert.Equal(t, int32(10), granted.Load())
	assert.Equal(t, int32(1), p.calls.Load())
	assert.Equal(t, Granted, g.State())
}

func TestPromptErrorLeavesUnknown(t *testing.T) {
	p := &countingPrompter{err: errors.New("dismissed")}
	g := NewGate(NewPlatform(Unknown, p, nil), nil)
	assert.False(t, g.EnsurePermission(context.Background()))
	assert.Equal(t, Unknown, g.State())
}

func TestNilPlatformIsUnsupported(t *testing.T) {
	g := NewGate(nil, nil)
	assert.False(t, g.EnsurePermission(context.Background()))
	shown, err := g.Notify(context.Background(), bread)
	assert.NoError(t, err)
	assert.False(t, shown)
}

func TestNotifyWrapsDispatchError(t *testing.T) {
	d := &recordingDispatcher{err: errors.New("boom")}
	g := NewGate(NewPlatform(Granted, nil, d), nil)
	_, err := g.Notify(context.Background(), bread)
	assert.ErrorContains(t, err, "boom")
}

func TestPendingPrompter(t *testing.T) {
	pp := NewPendingPrompter()
	g := NewGate(NewPlatform(Unknown, pp, &recordingDispatcher{}), nil)

	result := make(chan bool, 1)
	go func() { result <- g.EnsurePermission(context.Background()) }()

	require.Eventually(t, pp.Pending, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, pp.Answer(true))
	assert.True(t, <-result)
	assert.Equal(t, Granted, g.State())
	assert.False(t, pp.Pending())
}

func TestPendingPrompterHonoursContext(t *testing.T) {
	pp := NewPendingPrompter()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := pp.Prompt(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, pp.Pending())
}

func TestParsePermissionMode(t *testing.T) {
	for mode, want := range map[string]PermissionState{"granted": Granted, "DENIED": Denied, "prompt": Unknown, "": Unknown} {
		got, err := ParsePermissionMode(mode)
		require.NoError(t, err, mode)
		assert.Equal(t, want, got, mode)
	}
	_, err := ParsePermissionMode("maybe")
	assert.Error(t, err)
}

type capturePublisher struct {
	topics []string
	events []any
}

func (c *capturePublisher) Publish(_ context.Context, topic string, event any) error {
	c.topics = append(c.topics, topic)
	c.events = append(c.events, event)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func TestEventAndMultiDispatcher(t *testing.T) {
	pub := &capturePublisher{}
	rec := &recordingDispatcher{}
	d := MultiDispatcher{EventDispatcher{Publisher: pub}, LogDispatcher{}, rec}

	require.NoError(t, d.Dispatch(context.Background(), "Reminder: x", "You are near y."))
	require.Equal(t, []string{events.TopicNotificationShown}, pub.topics)
	ev := pub.events[0].(events.NotificationShown)
	assert.Equal(t, "Reminder: x", ev.Title)
	assert.Equal(t, 1, rec.count())
}
