package window

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/procscript/pkg/logger"
)

// fakeSim は呼び出し順を記録するワールド
type fakeSim struct {
	mu    sync.Mutex
	calls []string
	ticks int
}

func (s *fakeSim) Advance(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks += n
	s.calls = append(s.calls, "advance")
}

func (s *fakeSim) DisplayNames() []string { return nil }

func (s *fakeSim) DisplayImage(string) (*image.RGBA, bool) { return nil, false }

func (s *fakeSim) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *fakeSim) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type fakeStepper struct {
	sim *fakeSim
}

func (f fakeStepper) Step() { f.sim.record("step") }

func newTestGame(opts ...Option) (*Game, *fakeSim) {
	sim := &fakeSim{}
	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	return NewGame(fakeStepper{sim: sim}, sim, opts...), sim
}

func TestLayout(t *testing.T) {
	game, _ := newTestGame()

	width, height := game.Layout(0, 0)
	if width != ScreenWidth || height != ScreenHeight {
		t.Errorf("Layout() = %dx%d, want %dx%d", width, height, ScreenWidth, ScreenHeight)
	}
}

func TestUpdateAdvancesWorldBeforeStep(t *testing.T) {
	game, sim := newTestGame()

	for i := 0; i < 3; i++ {
		if err := game.Update(); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}

	want := []string{"advance", "step", "advance", "step", "advance", "step"}
	got := sim.snapshot()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if game.Ticks() != 3 {
		t.Errorf("Ticks() = %d, want 3", game.Ticks())
	}
}

func TestUpdatePaused(t *testing.T) {
	game, sim := newTestGame()
	game.SetPaused(true)

	for i := 0; i < 5; i++ {
		if err := game.Update(); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}
	if calls := sim.snapshot(); len(calls) != 0 {
		t.Errorf("paused game ran %v", calls)
	}

	game.SetPaused(false)
	if err := game.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if game.Ticks() != 1 {
		t.Errorf("Ticks() = %d, want 1", game.Ticks())
	}
}

func TestUpdateTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr error
	}{
		{name: "タイムアウトなし", timeout: 0, wantErr: nil},
		{name: "タイムアウト前", timeout: time.Hour, wantErr: nil},
		{name: "タイムアウト後", timeout: time.Nanosecond, wantErr: ebiten.Termination},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			game, _ := newTestGame(WithTimeout(tt.timeout))
			time.Sleep(time.Millisecond)

			err := game.Update()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Update() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReloadErrorIsNotFatal(t *testing.T) {
	calls := 0
	game, _ := newTestGame(WithReload(func() error {
		calls++
		return errors.New("compile error")
	}))

	game.reload()
	if calls != 1 {
		t.Errorf("reload calls = %d, want 1", calls)
	}
	if err := game.Update(); err != nil {
		t.Errorf("Update() after failed reload = %v", err)
	}
}

func TestRunHeadless(t *testing.T) {
	t.Run("doneで終了", func(t *testing.T) {
		var game *Game
		game, sim := newTestGame(WithDone(func() bool { return game.Ticks() >= 4 }))

		if err := RunHeadless(context.Background(), game, 1000); err != nil {
			t.Fatalf("RunHeadless() error = %v", err)
		}
		if game.Ticks() != 4 {
			t.Errorf("Ticks() = %d, want 4", game.Ticks())
		}
		if sim.ticks != 4 {
			t.Errorf("world ticks = %d, want 4", sim.ticks)
		}
	})

	t.Run("タイムアウトで終了", func(t *testing.T) {
		game, _ := newTestGame(WithTimeout(30 * time.Millisecond))

		start := time.Now()
		if err := RunHeadless(context.Background(), game, 200); err != nil {
			t.Fatalf("RunHeadless() error = %v", err)
		}
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Errorf("RunHeadless() took %v", elapsed)
		}
	})

	t.Run("キャンセルで終了", func(t *testing.T) {
		game, _ := newTestGame()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := RunHeadless(ctx, game, 60); err != nil {
			t.Fatalf("RunHeadless() error = %v", err)
		}
		if game.Ticks() != 0 {
			t.Errorf("Ticks() = %d, want 0", game.Ticks())
		}
	})

	t.Run("不正なティック数", func(t *testing.T) {
		game, _ := newTestGame()
		if err := RunHeadless(context.Background(), game, 0); err == nil {
			t.Error("expected error for tick rate 0")
		}
	})
}

// TestProperty_EveryTickStepsOnce 任意回数のUpdateで進めたティック数と
// Step回数が一致する
func TestProperty_EveryTickStepsOnce(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("advance and step alternate", prop.ForAll(
		func(n int, pauseAt int) bool {
			game, sim := newTestGame()
			for i := 0; i < n; i++ {
				game.SetPaused(i == pauseAt)
				if err := game.Update(); err != nil {
					return false
				}
			}
			calls := sim.snapshot()
			if len(calls)%2 != 0 || uint64(len(calls)/2) != game.Ticks() {
				return false
			}
			for i, c := range calls {
				if (i%2 == 0) != (c == "advance") {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 50),
		gen.IntRange(-1, 50),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestDisplayScale(t *testing.T) {
	if got := displayScale(0); got != 1 {
		t.Errorf("displayScale(0) = %v, want 1", got)
	}
	if got := displayScale(ScreenHeight - 80); got != 1 {
		t.Errorf("displayScale(%d) = %v, want 1", ScreenHeight-80, got)
	}
	if got := displayScale(80); got <= 1 {
		t.Errorf("displayScale(80) = %v, want > 1", got)
	}
}
