package narration

import (
	"errors"
	"testing"
)

type fakeEngine struct {
	listener Listener
	spoken   []Utterance
	calls    []string
	volume   float64
	speakErr error
}

func (f *fakeEngine) Attach(l Listener) { f.listener = l }
func (f *fakeEngine) Speak(u Utterance) error {
	f.calls = append(f.calls, "speak")
	if f.speakErr != nil {
		return f.speakErr
	}
	f.spoken = append(f.spoken, u)
	return nil
}
func (f *fakeEngine) Pause() error  { f.calls = append(f.calls, "pause"); return nil }
func (f *fakeEngine) Resume() error { f.calls = append(f.calls, "resume"); return nil }
func (f *fakeEngine) Cancel() error { f.calls = append(f.calls, "cancel"); return nil }
func (f *fakeEngine) SetVolume(v float64) error {
	f.volume = v
	return nil
}

type queue struct{ fns []func() }

func (q *queue) dispatch(fn func()) { q.fns = append(q.fns, fn) }
func (q *queue) drain() {
	for len(q.fns) > 0 {
		fn := q.fns[0]
		q.fns = q.fns[1:]
		fn()
	}
}

func newTestNarrator() (*Narrator, *fakeEngine, *queue, *int) {
	eng := &fakeEngine{}
	q := &queue{}
	n := New(eng, q.dispatch)
	count := 0
	n.OnComplete(func() { count++ })
	return n, eng, q, &count
}

func TestSupersededCompletionIsDropped(t *testing.T) {
	n, eng, q, count := newTestNarrator()
	n.Speak("first")
	n.Speak("second")
	if len(eng.spoken) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(eng.spoken))
	}
	eng.listener.Ended(eng.spoken[0].ID)
	q.drain()
	if *count != 0 {
		t.Fatalf("stale completion delivered")
	}
	eng.listener.Ended(eng.spoken[1].ID)
	eng.listener.Ended(eng.spoken[1].ID)
	q.drain()
	if *count != 1 {
		t.Fatalf("completion count=%d, want exactly 1", *count)
	}
	if n.State() != Idle {
		t.Fatalf("state=%s after completion", n.State())
	}
}

func TestStopSuppressesCompletion(t *testing.T) {
	n, eng, q, count := newTestNarrator()
	n.Speak("hello")
	n.Stop()
	eng.listener.Ended(eng.spoken[0].ID)
	q.drain()
	if *count != 0 {
		t.Fatalf("stopped utterance completed")
	}
}

func TestPauseResumeOnlyActInMatchingState(t *testing.T) {
	n, eng, _, _ := newTestNarrator()
	n.Pause()
	n.Resume()
	if len(eng.calls) != 0 {
		t.Fatalf("idle pause/resume reached engine: %v", eng.calls)
	}
	n.Speak("x")
	n.Resume()
	n.Pause()
	n.Pause()
	if !n.Paused() {
		t.Fatalf("expected paused")
	}
	n.Resume()
	want := []string{"speak", "pause", "resume"}
	if len(eng.calls) != len(want) {
		t.Fatalf("calls=%v want %v", eng.calls, want)
	}
	for i := range want {
		if eng.calls[i] != want[i] {
			t.Fatalf("calls=%v want %v", eng.calls, want)
		}
	}
}

func TestEngineFailureCountsAsCompletion(t *testing.T) {
	n, eng, q, count := newTestNarrator()
	eng.speakErr = errors.New("boom")
	n.Speak("x")
	if n.Speaking() {
		t.Fatalf("speaking flag not cleared on failure")
	}
	if *count != 0 {
		t.Fatalf("completion delivered synchronously")
	}
	q.drain()
	if *count != 1 {
		t.Fatalf("completion count=%d, want 1", *count)
	}

	eng.speakErr = nil
	n.Speak("y")
	eng.listener.Failed(eng.spoken[0].ID, errors.New("audio device lost"))
	q.drain()
	if *count != 2 || n.State() != Idle {
		t.Fatalf("async failure not treated as completion: count=%d state=%s", *count, n.State())
	}
}

func TestSetVolumeClampsAndForwards(t *testing.T) {
	n, eng, _, _ := newTestNarrator()
	n.SetVolume(1.7)
	if eng.volume != 1 || n.Volume() != 1 {
		t.Fatalf("volume not clamped: engine=%v narrator=%v", eng.volume, n.Volume())
	}
	n.Speak("x")
	if eng.spoken[0].Volume != 1 {
		t.Fatalf("utterance volume=%v", eng.spoken[0].Volume)
	}
}
