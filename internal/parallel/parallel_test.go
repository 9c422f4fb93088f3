package parallel

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestFramesRunsAll(t *testing.T) {
	const n = 37
	var hits [n]int32
	err := Frames(n, func(i int) error {
		atomic.AddInt32(&hits[i], 1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, h := range hits {
		if h != 1 {
			t.Errorf("frame %d ran %d times, want 1", i, h)
		}
	}
}

func TestFramesZero(t *testing.T) {
	called := false
	if err := Frames(0, func(int) error { called = true; return nil }); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("fn called for n=0")
	}
}

func TestFramesError(t *testing.T) {
	boom := errors.New("boom")
	err := Frames(8, func(i int) error {
		if i == 3 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}
