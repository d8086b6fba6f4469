package pipeline

import (
	"context"
	"reflect"
	"testing"
	"time"

	"pedalkeys/internal/cadence"
	"pedalkeys/internal/controller"
	"pedalkeys/internal/decision"
	"pedalkeys/internal/device"
	"pedalkeys/internal/input"
	"pedalkeys/internal/overlay"
)

type harness struct {
	p        *Pipeline
	injector *input.LogInjector
	emitter  *input.Emitter
	board    *overlay.Board
	now      time.Time
}

func newHarness(t *testing.T, externalEnabled bool, staleAfter time.Duration) *harness {
	t.Helper()
	engine, err := decision.NewEngine(decision.DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	h := &harness{
		injector: input.NewLogInjector(),
		board:    overlay.NewBoard(),
		now:      time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	h.emitter = input.NewEmitter(h.injector)
	h.p = New(Options{
		Engine:   engine,
		Resolver: cadence.NewResolver(externalEnabled, staleAfter),
		Emitter:  h.emitter,
		Board:    h.board,
		Now:      func() time.Time { return h.now },
	})
	return h
}

func trainerCadence(rpm float64, at time.Time) device.Event {
	return device.Event{
		Device:  "trainer",
		Kind:    device.KindTrainer,
		Cadence: &cadence.Sample{RPM: rpm, Source: cadence.SourceTrainer, At: at},
	}
}

func externalCadence(rpm float64, at time.Time) device.Event {
	return device.Event{
		Device:  "external",
		Kind:    device.KindExternal,
		Cadence: &cadence.Sample{RPM: rpm, Source: cadence.SourceExternal, At: at},
	}
}

func health(id string, kind device.Kind, hl device.Health) device.Event {
	return device.Event{Device: id, Kind: kind, Health: &device.HealthChange{Health: hl}}
}

func keys(ks ...input.Key) []input.Key { return ks }

func TestCadenceScenario(t *testing.T) {
	h := newHarness(t, false, 0)

	tr := h.p.Process(trainerCadence(0, h.now))
	if !reflect.DeepEqual(tr.Pressed, keys("b")) || len(tr.Released) != 0 {
		t.Fatalf("Expected press b at 0 rpm, got %+v", tr)
	}

	tr = h.p.Process(trainerCadence(50, h.now))
	if !reflect.DeepEqual(tr.Released, keys("b")) || len(tr.Pressed) != 0 {
		t.Fatalf("Expected release b at 50 rpm, got %+v", tr)
	}

	tr = h.p.Process(trainerCadence(105, h.now))
	if !reflect.DeepEqual(tr.Pressed, keys("a", "up")) || len(tr.Released) != 0 {
		t.Fatalf("Expected press a and up at 105 rpm, got %+v", tr)
	}

	want := []string{"press b", "release b", "press a", "press up"}
	if got := h.injector.Events(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected events %v, got %v", want, got)
	}

	st := h.board.Get()
	if st.Cadence != 105 || st.Source != "Trainer" || st.Band != "boost" {
		t.Errorf("Unexpected board status %+v", st)
	}
}

func TestButtonWhileSlow(t *testing.T) {
	h := newHarness(t, false, 0)
	h.p.Process(trainerCadence(20, h.now))

	tr := h.p.Process(device.Event{
		Device: "controller:L",
		Kind:   device.KindController,
		Controller: &controller.Snapshot{
			ControllerID: "controller:L",
			Side:         controller.SideLeft,
			Buttons:      controller.NewButtonSet(controller.ButtonY),
		},
	})
	if !reflect.DeepEqual(tr.Pressed, keys("up")) {
		t.Errorf("Expected press up, got %+v", tr)
	}
	if held := h.emitter.Held(); !held.Equal(input.NewKeySet("up", "b")) {
		t.Errorf("Expected {b, up} held, got %s", held)
	}
}

func TestControllerDisconnectReleases(t *testing.T) {
	h := newHarness(t, false, 0)
	h.p.Process(trainerCadence(50, h.now))
	h.p.Process(device.Event{
		Device: "controller:R",
		Kind:   device.KindController,
		Controller: &controller.Snapshot{
			ControllerID: "controller:R",
			Side:         controller.SideRight,
			Buttons:      controller.NewButtonSet(controller.ButtonSide, controller.ButtonPaddle),
		},
	})
	if held := h.emitter.Held(); !held.Equal(input.NewKeySet("e", "right")) {
		t.Fatalf("Expected {e, right} held, got %s", held)
	}

	tr := h.p.Process(health("controller:R", device.KindController, device.HealthDisconnected))
	if len(tr.Released) != 2 {
		t.Errorf("Expected both keys released, got %+v", tr)
	}
}

func TestTrainerDisconnectClearsCadence(t *testing.T) {
	h := newHarness(t, false, 0)
	h.p.Process(trainerCadence(80, h.now))
	if !h.emitter.Held().Has("a") {
		t.Fatal("Expected a held at 80 rpm")
	}

	h.p.Process(health("trainer", device.KindTrainer, device.HealthDisconnected))
	if h.emitter.Held().Has("a") {
		t.Error("Expected a released after trainer disconnect")
	}
	if got := h.p.Resolved().Source; got != cadence.SourceNone {
		t.Errorf("Expected source None, got %s", got)
	}
	if got := h.board.Get().Health["trainer"]; got != "disconnected" {
		t.Errorf("Expected trainer disconnected on board, got %s", got)
	}
}

func TestExternalPreferredWhileFresh(t *testing.T) {
	h := newHarness(t, true, 3*time.Second)
	h.p.Process(trainerCadence(50, h.now))

	// a sample from a sensor not yet reported connected is ignored
	h.p.Process(externalCadence(90, h.now))
	if got := h.p.Resolved().Source; got != cadence.SourceTrainer {
		t.Fatalf("Expected trainer before external connects, got %s", got)
	}

	h.p.Process(health("external", device.KindExternal, device.HealthConnected))
	h.p.Process(externalCadence(90, h.now))
	if got := h.p.Resolved(); got.Source != cadence.SourceExternal || got.RPM != 90 {
		t.Fatalf("Expected external 90, got %+v", got)
	}

	// exactly at the window edge it is still fresh
	h.now = h.now.Add(3 * time.Second)
	h.p.Process(trainerCadence(50, h.now))
	if got := h.p.Resolved().Source; got != cadence.SourceExternal {
		t.Errorf("Expected external at the stale boundary, got %s", got)
	}

	h.now = h.now.Add(time.Millisecond)
	h.p.Process(trainerCadence(50, h.now))
	if got := h.p.Resolved().Source; got != cadence.SourceTrainer {
		t.Errorf("Expected trainer after external went stale, got %s", got)
	}
	if h.emitter.Held().Has("a") {
		t.Error("Expected a released once back in the coast band")
	}
}

func TestRunFallsBackWithoutEvents(t *testing.T) {
	engine, _ := decision.NewEngine(decision.DefaultConfig())
	injector := input.NewLogInjector()
	emitter := input.NewEmitter(injector)
	p := New(Options{
		Engine:   engine,
		Resolver: cadence.NewResolver(true, 50*time.Millisecond),
		Emitter:  emitter,
	})

	events := make(chan device.Event, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, events) }()

	now := time.Now()
	events <- trainerCadence(50, now)
	events <- health("external", device.KindExternal, device.HealthConnected)
	events <- externalCadence(90, now)

	deadline := time.Now().Add(time.Second)
	for !emitter.Held().Has("a") && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if !emitter.Held().Has("a") {
		t.Fatal("Expected a held from external cadence")
	}

	// no more events: the staleness timer alone must drop back to trainer
	deadline = time.Now().Add(time.Second)
	for emitter.Held().Has("a") && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if emitter.Held().Has("a") {
		t.Error("Expected a released after external went stale")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil from Run, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return on cancel")
	}
}

func TestRunReleasesAllOnShutdown(t *testing.T) {
	h := newHarness(t, false, 0)
	events := make(chan device.Event, 4)
	events <- trainerCadence(120, h.now)
	close(events)

	if err := h.p.Run(context.Background(), events); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if held := h.emitter.Held(); len(held) != 0 {
		t.Errorf("Expected nothing held after Run, got %s", held)
	}

	got := h.injector.Events()
	want := []string{"press b", "release b", "press a", "press up", "release a", "release up"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestRunReleasesAllOnCancel(t *testing.T) {
	h := newHarness(t, false, 0)
	events := make(chan device.Event)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.p.Run(ctx, events) }()

	events <- trainerCadence(120, h.now)
	deadline := time.Now().Add(2 * time.Second)
	for !h.emitter.Held().Equal(input.NewKeySet("a", "up")) {
		if time.Now().After(deadline) {
			t.Fatalf("Expected {a, up} held, got %s", h.emitter.Held())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if held := h.emitter.Held(); len(held) != 0 {
		t.Errorf("Expected nothing held after cancel, got %s", held)
	}
}

func TestPauseReleasesAndResumes(t *testing.T) {
	h := newHarness(t, false, 0)
	h.p.Process(trainerCadence(90, h.now))
	if !h.emitter.Held().Has("a") {
		t.Fatal("Expected a held at 90 rpm")
	}

	tr := h.p.setPaused(true)
	if !reflect.DeepEqual(tr.Released, keys("a")) {
		t.Errorf("Expected a released on pause, got %+v", tr)
	}
	if !h.board.Get().Paused {
		t.Error("Expected board to report paused")
	}

	// state keeps updating while paused, nothing is pressed
	tr = h.p.Process(trainerCadence(120, h.now))
	if !tr.Empty() {
		t.Errorf("Expected no transitions while paused, got %+v", tr)
	}
	if got := h.board.Get().Cadence; got != 120 {
		t.Errorf("Expected cadence 120 while paused, got %v", got)
	}

	tr = h.p.setPaused(false)
	if !reflect.DeepEqual(tr.Pressed, keys("a", "up")) {
		t.Errorf("Expected a and up pressed on resume, got %+v", tr)
	}
}

func TestTogglePauseThroughRun(t *testing.T) {
	h := newHarness(t, false, 0)
	events := make(chan device.Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.p.Run(ctx, events) }()

	h.p.TogglePause()
	deadline := time.Now().Add(time.Second)
	for !h.board.Get().Paused && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if !h.board.Get().Paused {
		t.Fatal("Expected paused after toggle")
	}

	cancel()
	<-done

	want := []string{"press b", "release b"}
	if got := h.injector.Events(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
