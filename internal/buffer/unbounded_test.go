package buffer

import (
	"testing"
	"time"
)

func TestOrderPreserved(t *testing.T) {
	in, out := Unbounded[int](4, 1000)

	for i := 0; i < 100; i++ {
		in <- i
	}
	for i := 0; i < 100; i++ {
		if got := <-out; got != i {
			t.Fatalf("want %d, got %d", i, got)
		}
	}
}

func TestCloseFlushesAndClosesOut(t *testing.T) {
	in, out := Unbounded[string](2, 100)

	in <- "a"
	in <- "b"
	close(in)

	var got []string
	for v := range out {
		got = append(got, v)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("flush produced %v", got)
	}
}

func TestHardLimitEvictsOldest(t *testing.T) {
	in, out := Unbounded[int](2, 3)

	// Nothing reads out yet, so the queue fills to the limit and the
	// oldest entries get evicted.
	for i := 0; i < 5; i++ {
		in <- i
	}
	close(in)

	var got []int
	for v := range out {
		got = append(got, v)
	}
	want := []int{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("want %v, got %v", want, got)
		}
	}
}

func TestProducerNeverBlocks(t *testing.T) {
	in, _ := Unbounded[int](2, 10)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			in <- i
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer blocked on a stalled consumer")
	}
}
