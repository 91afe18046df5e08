package watcher

import (
	"fmt"
	"testing"

	"github.com/hugo/termpresence/internal/config"
	"github.com/hugo/termpresence/internal/presence"
	"github.com/hugo/termpresence/pkg/window"
)

// scriptedInspector replays a fixed sequence of snapshots, one per call.
type scriptedInspector struct {
	snaps []*window.Snapshot
	errs  []error
	calls int
}

func (s *scriptedInspector) Snapshot() (*window.Snapshot, error) {
	i := s.calls
	s.calls++
	if i >= len(s.snaps) {
		i = len(s.snaps) - 1
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.snaps[i], err
}

func (s *scriptedInspector) Platform() string { return "fake" }
func (s *scriptedInspector) Close() error     { return nil }

// recordingPublisher captures every publish and clear.
type recordingPublisher struct {
	published []presence.Payload
	clears    int
	failNext  bool
}

func (p *recordingPublisher) Publish(payload presence.Payload) error {
	if p.failNext {
		p.failNext = false
		return fmt.Errorf("broadcaster unavailable")
	}
	p.published = append(p.published, payload)
	return nil
}

func (p *recordingPublisher) Clear() error {
	p.clears++
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newTestWatcher(insp *scriptedInspector, pub *recordingPublisher) *Watcher {
	return New(config.Default(), insp, pub, nil)
}

func TestTickSuppressesUnchangedActivity(t *testing.T) {
	insp := &scriptedInspector{snaps: []*window.Snapshot{
		{Title: "Termius - Settings", PID: 100},
	}}
	pub := &recordingPublisher{}
	w := newTestWatcher(insp, pub)

	for i := 0; i < 4; i++ {
		w.tick()
	}

	if len(pub.published) != 1 {
		t.Errorf("expected 1 publish for unchanged activity, got %d", len(pub.published))
	}
}

func TestTickPublishesOnActivityChange(t *testing.T) {
	insp := &scriptedInspector{snaps: []*window.Snapshot{
		{Title: "Termius - Settings", PID: 100},
		{Title: "Termius - Snippets", PID: 100},
	}}
	pub := &recordingPublisher{}
	w := newTestWatcher(insp, pub)

	w.tick()
	w.tick()

	if len(pub.published) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(pub.published))
	}
	if pub.published[0].State == pub.published[1].State {
		t.Errorf("expected distinct states, both were %q", pub.published[0].State)
	}
}

func TestTickClearsOnceWhileClosed(t *testing.T) {
	insp := &scriptedInspector{snaps: []*window.Snapshot{
		{Title: "Termius - Settings", PID: 100},
		nil,
		nil,
		nil,
	}}
	pub := &recordingPublisher{}
	w := newTestWatcher(insp, pub)

	for i := 0; i < 4; i++ {
		w.tick()
	}

	if pub.clears != 1 {
		t.Errorf("expected exactly 1 clear while app stays closed, got %d", pub.clears)
	}
}

func TestTickRepublishesAfterReopen(t *testing.T) {
	insp := &scriptedInspector{snaps: []*window.Snapshot{
		{Title: "Termius - Settings", PID: 100},
		nil,
		{Title: "Termius - Settings", PID: 101},
	}}
	pub := &recordingPublisher{}
	w := newTestWatcher(insp, pub)

	w.tick()
	w.tick()
	w.tick()

	if pub.clears != 1 {
		t.Errorf("expected 1 clear, got %d", pub.clears)
	}
	if len(pub.published) != 2 {
		t.Errorf("expected republish after reopen, got %d publishes", len(pub.published))
	}
}

func TestTickRetriesAfterPublishFailure(t *testing.T) {
	insp := &scriptedInspector{snaps: []*window.Snapshot{
		{Title: "Termius - Settings", PID: 100},
	}}
	pub := &recordingPublisher{failNext: true}
	w := newTestWatcher(insp, pub)

	w.tick()
	if len(pub.published) != 0 {
		t.Fatalf("expected first publish to fail, got %d publishes", len(pub.published))
	}

	w.tick()
	if len(pub.published) != 1 {
		t.Errorf("expected retry on next tick, got %d publishes", len(pub.published))
	}
}

func TestTickTreatsInspectionErrorAsClosed(t *testing.T) {
	insp := &scriptedInspector{
		snaps: []*window.Snapshot{
			{Title: "Termius - Settings", PID: 100},
			{Title: "Termius - Settings", PID: 100},
		},
		errs: []error{nil, fmt.Errorf("display gone")},
	}
	pub := &recordingPublisher{}
	w := newTestWatcher(insp, pub)

	w.tick()
	w.tick()

	if pub.clears != 1 {
		t.Errorf("expected clear on inspection failure, got %d", pub.clears)
	}
}

func TestShutdownClearsPresence(t *testing.T) {
	insp := &scriptedInspector{snaps: []*window.Snapshot{
		{Title: "Termius - Settings", PID: 100},
	}}
	pub := &recordingPublisher{}
	w := newTestWatcher(insp, pub)

	w.tick()
	w.shutdown()

	if pub.clears != 1 {
		t.Errorf("expected clear on shutdown, got %d", pub.clears)
	}
	if w.last != nil {
		t.Error("expected last activity reset after shutdown")
	}
}
