package s3m

import (
	"bytes"
	"io"
	"testing"
)

func TestChunker_EvenSplit(t *testing.T) {
	data := bytes.Repeat([]byte{'a'}, 30)
	c := NewChunker(bytes.NewReader(data), 10)

	var got []byte
	var chunks int
	for {
		chunk, err := c.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		got = append(got, chunk...)
		chunks++
	}
	if chunks != 3 {
		t.Errorf("got %d chunks, want 3", chunks)
	}
	if !bytes.Equal(got, data) {
		t.Error("reassembled chunks do not match the source")
	}
}

func TestChunker_ShortTail(t *testing.T) {
	data := bytes.Repeat([]byte{'b'}, 25)
	c := NewChunker(bytes.NewReader(data), 10)

	var sizes []int
	for {
		chunk, err := c.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		sizes = append(sizes, len(chunk))
	}
	want := []int{10, 10, 5}
	if len(sizes) != len(want) {
		t.Fatalf("got %d chunks %v, want %d chunks %v", len(sizes), sizes, len(want), want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("chunk %d size = %d, want %d", i, sizes[i], want[i])
		}
	}
}

func TestChunker_EmptySource(t *testing.T) {
	c := NewChunker(bytes.NewReader(nil), 10)
	_, err := c.Next()
	if err != io.EOF {
		t.Errorf("Next() on empty source = %v, want io.EOF", err)
	}
}

func TestChunker_ExactlyOnePartSize(t *testing.T) {
	data := bytes.Repeat([]byte{'c'}, 10)
	c := NewChunker(bytes.NewReader(data), 10)

	chunk, err := c.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if len(chunk) != 10 {
		t.Errorf("first chunk len = %d, want 10", len(chunk))
	}
	if _, err := c.Next(); err != io.EOF {
		t.Errorf("second Next() = %v, want io.EOF", err)
	}
}

func TestChunker_CallAfterEOFStaysEOF(t *testing.T) {
	c := NewChunker(bytes.NewReader([]byte("hi")), 10)
	if _, err := c.Next(); err != nil {
		t.Fatalf("first Next() error = %v", err)
	}
	if _, err := c.Next(); err != io.EOF {
		t.Errorf("second Next() = %v, want io.EOF", err)
	}
	if _, err := c.Next(); err != io.EOF {
		t.Errorf("third Next() = %v, want io.EOF (done flag should stick)", err)
	}
}
