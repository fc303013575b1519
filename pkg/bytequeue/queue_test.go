package bytequeue

import (
	"bytes"
	"testing"
)

func TestByteQueue(t *testing.T) {
	bq := New()

	t.Run("Write", func(t *testing.T) {
		data := []byte("hello")
		n, err := bq.Write(data)
		if err != nil {
			t.Fatalf("Write() failed: %v", err)
		}
		if n != len(data) {
			t.Errorf("Write() = %d, want %d", n, len(data))
		}
		if !bytes.Equal(bq.Bytes(), data) {
			t.Errorf("Write() window = %v, want %v", bq.Bytes(), data)
		}
	})

	t.Run("Discard", func(t *testing.T) {
		_, _ = bq.Write([]byte("world"))
		if bq.Len() != 10 {
			t.Fatalf("Len() = %d, want 10", bq.Len())
		}

		n := bq.Discard(5)
		if n != 5 {
			t.Errorf("Discard() = %d, want 5", n)
		}
		if !bytes.Equal(bq.Bytes(), []byte("world")) {
			t.Errorf("window after discard = %q, want %q", bq.Bytes(), "world")
		}
		if bq.Offset() != 5 {
			t.Errorf("Offset() = %d, want 5", bq.Offset())
		}

		// discarding past the end drains the window
		n = bq.Discard(10)
		if n != 5 {
			t.Errorf("Discard() = %d, want 5", n)
		}
		if bq.Len() != 0 {
			t.Errorf("Len() = %d, want 0", bq.Len())
		}
	})

	t.Run("WriteAfterDiscard", func(t *testing.T) {
		_, _ = bq.Write([]byte("again"))
		if !bytes.Equal(bq.Bytes(), []byte("again")) {
			t.Errorf("window = %q, want %q", bq.Bytes(), "again")
		}
		if bq.TotalSize() != 15 {
			t.Errorf("TotalSize() = %d, want 15", bq.TotalSize())
		}
	})

	t.Run("Reset", func(t *testing.T) {
		bq.Reset()
		if bq.Offset() != 0 {
			t.Errorf("Reset() offset = %d, want 0", bq.Offset())
		}
		if bq.TotalSize() != 0 {
			t.Errorf("Reset() total = %d, want 0", bq.TotalSize())
		}
	})
}
