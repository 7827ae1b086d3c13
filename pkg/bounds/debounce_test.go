package bounds

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_BurstFiresOnce(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Close()
	var fired atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { fired.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("Expected exactly one fire for a burst but got %d", got)
	}
}

func TestDebouncer_CancelDropsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Close()
	var fired atomic.Int32
	d.Trigger(func() { fired.Add(1) })
	d.Cancel()
	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("Expected cancelled trigger not to fire but got %d", got)
	}
}

func TestDebouncer_TriggerAfterCancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Close()
	var fired atomic.Int32
	d.Trigger(func() { fired.Add(1) })
	d.Cancel()
	d.Trigger(func() { fired.Add(1) })
	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("Expected one fire after re-trigger but got %d", got)
	}
}

func TestDebouncer_CloseRefusesTriggers(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var fired atomic.Int32
	d.Close()
	d.Trigger(func() { fired.Add(1) })
	time.Sleep(40 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("Expected no fire after close but got %d", got)
	}
	// closing twice is fine
	d.Close()
}
