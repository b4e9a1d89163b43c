// engine/broadcast/multi_test.go
package broadcast

import (
	"context"
	"errors"
	"testing"
)

type sinkSpy struct {
	calls int
	err   error
}

func (s *sinkSpy) Publish(ctx context.Context, channel, event string, payload interface{}) error {
	s.calls++
	return s.err
}

func TestMultiDeliversToAllSinks(t *testing.T) {
	a, b := &sinkSpy{}, &sinkSpy{}
	multi := NewMulti(a, b)

	if err := multi.Publish(context.Background(), "game-channel", "score-update", nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("sink calls = %d/%d, want 1/1", a.calls, b.calls)
	}
}

func TestMultiFailingSinkDoesNotBlockOthers(t *testing.T) {
	boom := errors.New("redis down")
	a := &sinkSpy{err: boom}
	b := &sinkSpy{}
	multi := NewMulti(a, b)

	err := multi.Publish(context.Background(), "game-channel", "log-new", "payload")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want it to wrap the sink failure", err)
	}
	if b.calls != 1 {
		t.Errorf("healthy sink skipped after earlier failure")
	}
}

func TestMultiNoSinks(t *testing.T) {
	if err := NewMulti().Publish(context.Background(), "game-channel", "map-update", nil); err != nil {
		t.Fatalf("empty fan-out returned %v", err)
	}
}
