package ring

import (
	"sync"
	"testing"
)

func TestAppendAssignsIncreasingSequence(t *testing.T) {
	b := NewOutputRingBuffer(10)
	e1 := b.Append(AgentMessage{}, "hello")
	e2 := b.Append(AgentMessage{}, "world")

	if e2.Sequence != e1.Sequence+1 {
		t.Fatalf("expected contiguous sequence, got %d then %d", e1.Sequence, e2.Sequence)
	}
}

func TestTailClampsToCapacity(t *testing.T) {
	b := NewOutputRingBuffer(4)
	for i := 0; i < 10; i++ {
		b.Append(Info{}, "x")
	}

	tail := b.Tail(100)
	if len(tail) != 4 {
		t.Fatalf("expected tail clamped to capacity 4, got %d", len(tail))
	}
	// oldest 6 entries (seq 1..6) must have been evicted; remaining
	// entries carry contiguous, strictly increasing sequence numbers
	// ending at 10.
	if tail[len(tail)-1].Sequence != 10 {
		t.Fatalf("expected last sequence 10, got %d", tail[len(tail)-1].Sequence)
	}
	for i := 1; i < len(tail); i++ {
		if tail[i].Sequence != tail[i-1].Sequence+1 {
			t.Fatalf("non-contiguous sequence at %d: %d -> %d", i, tail[i-1].Sequence, tail[i].Sequence)
		}
	}
}

func TestTailFilteredAgentOnly(t *testing.T) {
	b := NewOutputRingBuffer(100)
	b.Append(UserPrompt{}, "hi")
	b.Append(AgentMessage{}, "hello")
	b.Append(ToolCall{Name: "bash", Status: "pending"}, "")
	b.Append(AgentThought{}, "thinking")
	b.Append(Info{}, "idle")

	got := b.TailFiltered(10, true)
	if len(got) != 2 {
		t.Fatalf("expected 2 agent-only entries, got %d", len(got))
	}
	if _, ok := got[0].Kind.(AgentMessage); !ok {
		t.Fatalf("expected first filtered entry to be AgentMessage, got %T", got[0].Kind)
	}
	if _, ok := got[1].Kind.(AgentThought); !ok {
		t.Fatalf("expected second filtered entry to be AgentThought, got %T", got[1].Kind)
	}
}

func TestLatestOfKinds(t *testing.T) {
	b := NewOutputRingBuffer(100)
	b.Append(UserPrompt{}, "hi")
	b.Append(AgentMessage{}, "first reply")
	b.Append(Info{}, "idle")
	b.Append(AgentMessage{}, "second reply")

	e, ok := b.LatestOfKinds(AgentMessage{}.Kind())
	if !ok {
		t.Fatal("expected a match")
	}
	if e.Text != "second reply" {
		t.Fatalf("expected latest AgentMessage to be 'second reply', got %q", e.Text)
	}

	if _, ok := b.LatestOfKinds(PermissionRequest{}.Kind()); ok {
		t.Fatal("expected no PermissionRequest entries")
	}
}

func TestConcurrentAppendAndTailDoesNotTear(t *testing.T) {
	b := NewOutputRingBuffer(50)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			b.Append(AgentMessage{}, "x")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			tail := b.Tail(10)
			for j := 1; j < len(tail); j++ {
				if tail[j].Sequence <= tail[j-1].Sequence {
					t.Errorf("observed non-increasing sequence during concurrent append")
					return
				}
			}
		}
	}()
	wg.Wait()
}

func TestClearPreservesSequenceCounter(t *testing.T) {
	b := NewOutputRingBuffer(10)
	b.Append(Info{}, "a")
	b.Append(Info{}, "b")
	b.Clear()
	if b.Len() != 0 {
		t.Fatalf("expected empty buffer after Clear, got len %d", b.Len())
	}
	e := b.Append(Info{}, "c")
	if e.Sequence != 3 {
		t.Fatalf("expected sequence counter to survive Clear, got %d", e.Sequence)
	}
}
