package audio

import (
	"sync"
	"testing"
	"time"
)

func TestClipBuffer_Write(t *testing.T) {
	// 100ms at 16kHz = 3200 bytes
	cb := NewClipBuffer(16000, 100*time.Millisecond)

	written := cb.Write(make([]byte, 1000))
	if written != 1000 {
		t.Errorf("Expected to write 1000 bytes, got %d", written)
	}
	if cb.Len() != 1000 {
		t.Errorf("Expected length 1000, got %d", cb.Len())
	}
	if cb.Full() {
		t.Error("Expected buffer not to be full")
	}
}

func TestClipBuffer_Cap(t *testing.T) {
	cb := NewClipBuffer(16000, 100*time.Millisecond)

	written := cb.Write(make([]byte, 3001))
	if written != 3001 {
		t.Errorf("Expected to write 3001 bytes, got %d", written)
	}

	// 199 bytes of space left; only whole samples are kept
	written = cb.Write(make([]byte, 500))
	if written != 198 {
		t.Errorf("Expected to write 198 bytes, got %d", written)
	}

	written = cb.Write([]byte{1, 2})
	if written != 0 {
		t.Errorf("Expected to write 0 bytes once capped, got %d", written)
	}
	if !cb.Full() {
		t.Error("Expected buffer to be full")
	}
}

func TestClipBuffer_Duration(t *testing.T) {
	cb := NewClipBuffer(16000, 10*time.Second)
	cb.Write(make([]byte, 32000))

	if d := cb.Duration(); d != time.Second {
		t.Errorf("Expected 1s of audio, got %v", d)
	}
}

func TestClipBuffer_BytesIsCopy(t *testing.T) {
	cb := NewClipBuffer(16000, time.Second)
	cb.Write([]byte{1, 2, 3, 4})

	out := cb.Bytes()
	out[0] = 9

	if cb.Bytes()[0] != 1 {
		t.Error("Expected Bytes to return a copy")
	}
}

func TestClipBuffer_Reset(t *testing.T) {
	cb := NewClipBuffer(16000, 100*time.Millisecond)
	cb.Write(make([]byte, 3200))
	if !cb.Full() {
		t.Fatal("Expected buffer to be full")
	}

	cb.Reset()
	if cb.Len() != 0 || cb.Full() {
		t.Error("Expected empty buffer after reset")
	}
}

func TestClipBuffer_Concurrent(t *testing.T) {
	cb := NewClipBuffer(16000, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cb.Write(make([]byte, 64))
			}
		}()
	}
	wg.Wait()

	if cb.Len() != 32000 {
		t.Errorf("Expected buffer capped at 32000 bytes, got %d", cb.Len())
	}
}

func TestBytesForDuration(t *testing.T) {
	if n := BytesForDuration(16000, 10*time.Second); n != 320000 {
		t.Errorf("Expected 320000 bytes, got %d", n)
	}
	if d := DurationOf(320000, 16000); d != 10*time.Second {
		t.Errorf("Expected 10s, got %v", d)
	}
	if d := DurationOf(100, 0); d != 0 {
		t.Errorf("Expected 0 for invalid rate, got %v", d)
	}
}
