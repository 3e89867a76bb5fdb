package driver

import (
	"io"
	"strings"
	"testing"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		invalid int64
	}{
		{"plain ascii", "id|name\n1|a\n", "id|name\n1|a\n", 0},
		{"bom removed", "\xEF\xBB\xBFid|name\n", "id|name\n", 0},
		{"bom only", "\xEF\xBB\xBF", "", 0},
		{"valid multibyte kept", "Zoë|Ł\n", "Zoë|Ł\n", 0},
		{"replacement char kept", "a\uFFFDb", "a\uFFFDb", 0},
		{"invalid byte replaced", "a\xffb\n", "a\uFFFDb\n", 1},
		{"truncated sequence at end", "a\xc3", "a\uFFFD", 1},
		{"empty", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, counter := Wrap(strings.NewReader(tt.input), int64(len(tt.input)))
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if counter.BytesRead() != int64(len(tt.input)) {
				t.Errorf("BytesRead = %d, want %d", counter.BytesRead(), len(tt.input))
			}
			if counter.InvalidUTF8() != tt.invalid {
				t.Errorf("InvalidUTF8 = %d, want %d", counter.InvalidUTF8(), tt.invalid)
			}
		})
	}
}

func TestWrap_SequenceAcrossReads(t *testing.T) {
	// "é" split over two reads must not count as invalid.
	src := io.MultiReader(strings.NewReader("caf\xc3"), strings.NewReader("\xa9\n"))
	r, counter := Wrap(src, 0)
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "café\n" {
		t.Errorf("got %q, want %q", got, "café\n")
	}
	if counter.InvalidUTF8() != 0 {
		t.Errorf("InvalidUTF8 = %d, want 0", counter.InvalidUTF8())
	}
}

func TestCountingReader_Progress(t *testing.T) {
	c := NewCountingReader(strings.NewReader("abcd"), 4)
	buf := make([]byte, 2)
	if _, err := c.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := c.Progress(); got != 50 {
		t.Errorf("Progress = %d, want 50", got)
	}

	unknown := NewCountingReader(strings.NewReader("abcd"), 0)
	if got := unknown.Progress(); got != 0 {
		t.Errorf("Progress with unknown total = %d, want 0", got)
	}
}
