package task_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/func/seeder/internal/task"
)

func TestGroup_Do_sameKey(t *testing.T) {
	var g task.Group[string]
	first, _ := g.Do("a", func() (string, error) { return "first", nil })
	second, _ := g.Do("a", func() (string, error) { return "second", nil })

	if first != "first" {
		t.Errorf("First = %q, want = %q", first, "first")
	}
	if second != "first" {
		t.Errorf("Second = %q, want = %q", second, "first")
	}
}

func TestGroup_Do_diffKey(t *testing.T) {
	var g task.Group[string]
	_, _ = g.Do("a", func() (string, error) { return "initial", nil })
	got, _ := g.Do("b", func() (string, error) { return "update", nil })

	want := "update"
	if got != want {
		t.Errorf("Got = %q, want = %q", got, want)
	}
}

func TestGroup_Do_err(t *testing.T) {
	var g task.Group[int]
	_, err := g.Do("a", func() (int, error) {
		return 0, fmt.Errorf("err")
	})
	if err == nil {
		t.Fatal("nil error was returned")
	}

	// The error is remembered.
	_, err = g.Do("a", func() (int, error) { return 1, nil })
	if err == nil {
		t.Fatal("error was not remembered")
	}
}

func TestGroup_Do_concurrent(t *testing.T) {
	var g task.Group[int32]

	var wg sync.WaitGroup

	var calls int32
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := g.Do("a", func() (int32, error) {
				time.Sleep(10 * time.Millisecond)
				return atomic.AddInt32(&calls, 1), nil
			})
			if v != 1 {
				t.Errorf("Value = %d, want = 1", v)
			}
		}()
	}

	wg.Wait()

	if calls != 1 {
		t.Errorf("Calls = %d, want = %d", calls, 1)
	}
}
