package input

import (
	"errors"
	"reflect"
	"testing"
)

// flakyInjector fails the first failures[k] events for key k
type flakyInjector struct {
	failures map[Key]int
	events   []string
}

func (f *flakyInjector) do(action string, k Key) error {
	if f.failures[k] > 0 {
		f.failures[k]--
		return errors.New("refused")
	}
	f.events = append(f.events, action+" "+string(k))
	return nil
}

func (f *flakyInjector) Press(k Key) error   { return f.do("press", k) }
func (f *flakyInjector) Release(k Key) error { return f.do("release", k) }
func (f *flakyInjector) Close() error        { return nil }

func TestParseKey(t *testing.T) {
	cases := map[string]Key{
		"A":      "a",
		"up":     "up",
		" Esc ":  "escape",
		"return": "enter",
		"F12":    "f12",
		"7":      "7",
	}
	for in, want := range cases {
		got, err := ParseKey(in)
		if err != nil {
			t.Errorf("ParseKey(%q): unexpected error %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseKey(%q): expected %q, got %q", in, want, got)
		}
	}

	if _, err := ParseKey("hyper"); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestVirtualKeyCode(t *testing.T) {
	if vk, ok := Key("a").VirtualKeyCode(); !ok || vk != 0x41 {
		t.Errorf("Expected VK 0x41 for a, got 0x%X", vk)
	}
	if vk, ok := Key("f1").VirtualKeyCode(); !ok || vk != 0x70 {
		t.Errorf("Expected VK 0x70 for f1, got 0x%X", vk)
	}
	if vk, ok := Key("up").VirtualKeyCode(); !ok || vk != 0x26 {
		t.Errorf("Expected VK 0x26 for up, got 0x%X", vk)
	}
}

func TestKeySet(t *testing.T) {
	a := NewKeySet("a", "up", "a")
	b := NewKeySet("up", "b")

	if len(a) != 2 {
		t.Errorf("Expected duplicates to collapse, got %v", a)
	}
	if got := a.Minus(b); !reflect.DeepEqual(got, []Key{"a"}) {
		t.Errorf("Expected [a], got %v", got)
	}
	if a.Equal(b) {
		t.Error("Expected sets to differ")
	}
	if !a.Equal(NewKeySet("up", "a")) {
		t.Error("Expected equal sets regardless of order")
	}

	c := a.Clone()
	c.Add("x")
	if a.Has("x") {
		t.Error("Expected clone to be independent")
	}
	if a.String() != "{a, up}" {
		t.Errorf("Expected {a, up}, got %s", a.String())
	}
}

func TestEmitterMinimalTransitions(t *testing.T) {
	inj := &flakyInjector{failures: map[Key]int{}}
	e := NewEmitter(inj)

	tr := e.Apply(NewKeySet("b"))
	if !reflect.DeepEqual(tr.Pressed, []Key{"b"}) || len(tr.Released) != 0 {
		t.Errorf("Expected press(b), got %+v", tr)
	}

	tr = e.Apply(NewKeySet("b"))
	if !tr.Empty() {
		t.Errorf("Expected no transitions for unchanged target, got %+v", tr)
	}

	tr = e.Apply(NewKeySet("a", "up"))
	if !reflect.DeepEqual(tr.Released, []Key{"b"}) {
		t.Errorf("Expected release(b), got %v", tr.Released)
	}
	if !reflect.DeepEqual(tr.Pressed, []Key{"a", "up"}) {
		t.Errorf("Expected press(a, up), got %v", tr.Pressed)
	}

	want := []string{"press b", "release b", "press a", "press up"}
	if !reflect.DeepEqual(inj.events, want) {
		t.Errorf("Expected events %v, got %v", want, inj.events)
	}
}

func TestEmitterReleasesBeforePressing(t *testing.T) {
	inj := &flakyInjector{failures: map[Key]int{}}
	e := NewEmitter(inj)
	e.Apply(NewKeySet("left"))
	e.Apply(NewKeySet("right"))

	want := []string{"press left", "release left", "press right"}
	if !reflect.DeepEqual(inj.events, want) {
		t.Errorf("Expected events %v, got %v", want, inj.events)
	}
}

func TestEmitterRetriesOnce(t *testing.T) {
	inj := &flakyInjector{failures: map[Key]int{"a": 1}}
	e := NewEmitter(inj)

	tr := e.Apply(NewKeySet("a"))
	if !reflect.DeepEqual(tr.Pressed, []Key{"a"}) {
		t.Errorf("Expected press(a) to succeed on retry, got %+v", tr)
	}
	if !e.Held().Has("a") {
		t.Error("Expected a held")
	}
}

func TestEmitterFailedPressIsNotHeld(t *testing.T) {
	inj := &flakyInjector{failures: map[Key]int{"a": 2}}
	e := NewEmitter(inj)

	tr := e.Apply(NewKeySet("a", "b"))
	if !reflect.DeepEqual(tr.Pressed, []Key{"b"}) {
		t.Errorf("Expected only press(b), got %+v", tr)
	}
	if e.Held().Has("a") {
		t.Error("Expected a not to be recorded as held")
	}

	// next diff corrects it
	tr = e.Apply(NewKeySet("a", "b"))
	if !reflect.DeepEqual(tr.Pressed, []Key{"a"}) {
		t.Errorf("Expected press(a) on the next apply, got %+v", tr)
	}
}

func TestEmitterFailedReleaseStaysHeld(t *testing.T) {
	inj := &flakyInjector{failures: map[Key]int{}}
	e := NewEmitter(inj)
	e.Apply(NewKeySet("b"))

	inj.failures["b"] = 2
	e.Apply(NewKeySet())
	if !e.Held().Has("b") {
		t.Error("Expected b still held after a refused release")
	}

	tr := e.ReleaseAll()
	if !reflect.DeepEqual(tr.Released, []Key{"b"}) {
		t.Errorf("Expected ReleaseAll to release b, got %+v", tr)
	}
	if len(e.Held()) != 0 {
		t.Errorf("Expected nothing held, got %v", e.Held())
	}
}

func TestEmitterReleaseAllForgetsRefusedKeys(t *testing.T) {
	inj := &flakyInjector{failures: map[Key]int{}}
	e := NewEmitter(inj)
	e.Apply(NewKeySet("a", "up"))

	inj.failures["a"] = 2
	tr := e.ReleaseAll()
	if !reflect.DeepEqual(tr.Released, []Key{"up"}) {
		t.Errorf("Expected only release(up) delivered, got %+v", tr)
	}
	if held := e.Held(); len(held) != 0 {
		t.Errorf("Expected nothing held after ReleaseAll, got %s", held)
	}
}

func TestLogInjector(t *testing.T) {
	l := NewLogInjector()
	e := NewEmitter(l)
	e.Apply(NewKeySet("q"))
	e.ReleaseAll()

	want := []string{"press q", "release q"}
	if !reflect.DeepEqual(l.Events(), want) {
		t.Errorf("Expected %v, got %v", want, l.Events())
	}
}
