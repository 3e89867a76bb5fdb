package driver

// stream.go provides the reader stack every data file goes through:
//
//   - utf8Validator: counts invalid UTF-8 sequences in the raw bytes
//   - UTF-8 BOM removal and invalid byte replacement (U+FFFD), both done by
//     the x/text UTF-8 BOM decoder
//   - CountingReader: tracks bytes consumed for run statistics
//
// Use Wrap to apply both in the correct order.

import (
	"io"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader  io.Reader
	read    atomic.Int64
	Total   int64 // If known (0 if unknown)
	invalid *utf8Validator
}

// NewCountingReader creates a counting reader with optional total size.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{reader: r, Total: total}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.read.Add(int64(n))
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (r *CountingReader) BytesRead() int64 { return r.read.Load() }

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(r.BytesRead() * 100 / r.Total)
}

// InvalidUTF8 returns how many invalid UTF-8 sequences were replaced so far.
// Always 0 for readers not built by Wrap.
func (r *CountingReader) InvalidUTF8() int64 {
	if r.invalid == nil {
		return 0
	}
	return r.invalid.count
}

// Wrap strips a leading BOM, replaces invalid UTF-8 and counts raw bytes
// and replaced sequences. Counting sits below decoding so BytesRead matches
// the size on disk.
func Wrap(r io.Reader, totalSize int64) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r, totalSize)
	counter.invalid = &utf8Validator{}
	t := transform.Chain(counter.invalid, unicode.UTF8BOM.NewDecoder())
	return transform.NewReader(counter, t), counter
}

// utf8Validator passes bytes through unchanged and counts invalid UTF-8
// sequences. A sequence cut by the buffer end is held back until more input
// arrives.
type utf8Validator struct {
	count int64
}

func (v *utf8Validator) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		size := 1
		if c := src[nSrc]; c >= utf8.RuneSelf {
			if !atEOF && !utf8.FullRune(src[nSrc:]) {
				return nDst, nSrc, transform.ErrShortSrc
			}
			var r rune
			r, size = utf8.DecodeRune(src[nSrc:])
			if r == utf8.RuneError && size == 1 {
				v.count++
			}
		}
		if nDst+size > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		copy(dst[nDst:], src[nSrc:nSrc+size])
		nDst += size
		nSrc += size
	}
	return nDst, nSrc, nil
}

func (v *utf8Validator) Reset() { v.count = 0 }
