package ringbuf

import (
	"sync"
	"testing"
	"time"

	"github.com/Rick-more-Rick/donTrading-sub000/internal/model"
)

func TestRing_BasicPushPop(t *testing.T) {
	r := New[model.Tick](4) // rounds to 4

	t1 := model.Tick{Symbol: "A", Value: 100}
	t2 := model.Tick{Symbol: "B", Value: 200}

	if !r.Push(t1) {
		t.Fatal("push t1 should succeed")
	}
	if !r.Push(t2) {
		t.Fatal("push t2 should succeed")
	}

	if r.Len() != 2 {
		t.Fatalf("expected len=2, got %d", r.Len())
	}

	got, ok := r.Pop()
	if !ok || got.Symbol != "A" {
		t.Fatalf("expected A, got %v ok=%v", got.Symbol, ok)
	}

	got, ok = r.Pop()
	if !ok || got.Symbol != "B" {
		t.Fatalf("expected B, got %v ok=%v", got.Symbol, ok)
	}

	_, ok = r.Pop()
	if ok {
		t.Fatal("pop from empty should return false")
	}
}

func TestRing_Overflow(t *testing.T) {
	r := New[int](2)

	r.Push(1)
	r.Push(2)

	if r.Push(3) {
		t.Fatal("push to full buffer should return false")
	}
	if r.Overflow() != 1 {
		t.Fatalf("expected overflow=1, got %d", r.Overflow())
	}
}

func TestRing_Wraparound(t *testing.T) {
	r := New[int64](4)

	for round := 0; round < 5; round++ {
		for i := 0; i < 4; i++ {
			if !r.Push(int64(round*10 + i)) {
				t.Fatalf("round %d push %d failed", round, i)
			}
		}
		for i := 0; i < 4; i++ {
			v, ok := r.Pop()
			if !ok {
				t.Fatalf("round %d pop %d failed", round, i)
			}
			if v != int64(round*10+i) {
				t.Fatalf("round %d pop %d: expected %d, got %d", round, i, round*10+i, v)
			}
		}
	}
}

func TestRing_Drain(t *testing.T) {
	r := New[int](8)
	for i := 0; i < 6; i++ {
		r.Push(i)
	}

	var got []int
	if n := r.Drain(4, func(v int) { got = append(got, v) }); n != 4 {
		t.Fatalf("expected 4 drained, got %d", n)
	}
	if n := r.Drain(0, func(v int) { got = append(got, v) }); n != 2 {
		t.Fatalf("expected 2 drained, got %d", n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("at %d: expected %d, got %d", i, i, v)
		}
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty ring, len=%d", r.Len())
	}
}

func TestRing_PopReleasesSlot(t *testing.T) {
	r := New[*model.BookSnapshot](2)
	r.Push(&model.BookSnapshot{Symbol: "X"})
	r.Pop()
	if r.buf[0] != nil {
		t.Fatal("popped slot should be zeroed")
	}
}

func TestRing_SPSC_Concurrent(t *testing.T) {
	const count = 100_000
	r := New[int64](1024)

	var wg sync.WaitGroup
	wg.Add(2)

	// Producer
	go func() {
		defer wg.Done()
		for i := 0; i < count; i++ {
			for !r.Push(int64(i)) {
				// spin-wait (busy loop for test only)
			}
		}
	}()

	// Consumer
	received := make([]int64, 0, count)
	go func() {
		defer wg.Done()
		for len(received) < count {
			v, ok := r.Pop()
			if ok {
				received = append(received, v)
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("SPSC test timed out")
	}

	for i, v := range received {
		if v != int64(i) {
			t.Fatalf("at index %d: expected %d, got %d", i, i, v)
		}
	}
}

func TestRing_NextPow2(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {5, 8}, {7, 8}, {8, 8}, {9, 16}, {1023, 1024},
	}
	for _, tc := range cases {
		got := nextPow2(tc.in)
		if got != tc.want {
			t.Errorf("nextPow2(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
