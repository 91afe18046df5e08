package watcher

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hugo/termpresence/internal/classifier"
	"github.com/hugo/termpresence/internal/config"
	"github.com/hugo/termpresence/internal/history"
	"github.com/hugo/termpresence/internal/models"
	"github.com/hugo/termpresence/internal/netcheck"
	"github.com/hugo/termpresence/internal/presence"
	"github.com/hugo/termpresence/pkg/window"
)

// Watcher drives the poll loop: inspect the app window, classify what the
// user is doing, and push the result to the broadcaster when it changes.
type Watcher struct {
	config     *config.Config
	inspector  window.Inspector
	checker    *netcheck.Checker
	classifier *classifier.Classifier
	publisher  presence.Publisher
	repo       *history.Repository

	stopChan chan struct{}
	running  bool

	last        *models.Activity
	lastCleared bool
}

func New(cfg *config.Config, insp window.Inspector, pub presence.Publisher, repo *history.Repository) *Watcher {
	return &Watcher{
		config:     cfg,
		inspector:  insp,
		checker:    netcheck.New(cfg),
		classifier: classifier.New(cfg),
		publisher:  pub,
		repo:       repo,
		stopChan:   make(chan struct{}),
	}
}

func (w *Watcher) Start(ctx context.Context) error {
	if w.running {
		return fmt.Errorf("watcher is already running")
	}

	w.running = true
	log.Printf("Starting watcher with %v poll interval", w.config.PollInterval())

	ticker := time.NewTicker(w.config.PollInterval())
	defer ticker.Stop()
	defer w.shutdown()

	w.tick()

	for {
		select {
		case <-ctx.Done():
			log.Println("Watcher stopped by context")
			w.running = false
			return ctx.Err()

		case <-w.stopChan:
			log.Println("Watcher stopped")
			w.running = false
			return nil

		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *Watcher) Stop() {
	if w.running {
		close(w.stopChan)
	}
}

func (w *Watcher) IsRunning() bool {
	return w.running
}

// tick runs one poll cycle. Inspection errors degrade to "app closed"
// rather than aborting the loop.
func (w *Watcher) tick() {
	snap, err := w.inspector.Snapshot()
	if err != nil {
		log.Printf("Window inspection failed: %v", err)
		snap = nil
	}

	act := w.classifier.Classify(snap, w.checker.Check)

	if act.Kind == models.Closed {
		w.clearOnce()
		return
	}
	w.lastCleared = false

	if w.last != nil && *w.last == act {
		return
	}

	start := time.Now()
	payload := presence.Build(act, w.config, start)
	if err := w.publisher.Publish(payload); err != nil {
		// Leave last unchanged so the next tick retries the same update.
		log.Printf("Failed to publish presence: %v", err)
		return
	}

	log.Printf("Presence updated: %s", act.String())
	w.last = &act
	w.record(act, payload)
}

// clearOnce clears the presence on the closed transition only, so a closed
// app does not hammer the broadcaster every tick.
func (w *Watcher) clearOnce() {
	if w.lastCleared {
		return
	}
	if err := w.publisher.Clear(); err != nil {
		log.Printf("Failed to clear presence: %v", err)
		return
	}
	log.Println("Presence cleared: app closed")
	w.lastCleared = true
	w.last = nil
}

func (w *Watcher) record(act models.Activity, payload presence.Payload) {
	if w.repo == nil {
		return
	}
	event := &models.ActivityEvent{
		Timestamp: time.Now(),
		Kind:      act.Kind.String(),
		Host:      act.Host,
		Details:   payload.Details,
		State:     payload.State,
	}
	if err := w.repo.Record(event); err != nil {
		log.Printf("Failed to record history event: %v", err)
	}
}

// shutdown clears whatever presence is still showing. Best effort: the
// broadcaster may already be gone at this point.
func (w *Watcher) shutdown() {
	if err := w.publisher.Clear(); err != nil {
		log.Printf("Final presence clear failed: %v", err)
	}
	w.last = nil
	w.lastCleared = false
}

// Current performs a one-shot inspection and classification outside the
// loop, used by the status command.
func (w *Watcher) Current() (*window.Snapshot, models.Activity, error) {
	snap, err := w.inspector.Snapshot()
	if err != nil {
		return nil, models.Activity{Kind: models.Closed}, fmt.Errorf("failed to inspect window: %w", err)
	}
	return snap, w.classifier.Classify(snap, w.checker.Check), nil
}
