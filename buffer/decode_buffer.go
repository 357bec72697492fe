// Package buffer implements the incremental decode buffer that sits between a byte source
// and the IR decode driver.
//
// A DecodeBuffer owns one contiguous byte region described by three numbers:
//
//	0 <= cursor <= size <= capacity
//
// Bytes in [0, cursor) were consumed by successful decodes, bytes in [cursor, size) are
// waiting to be decoded and [size, capacity) is free space for the next pull. Before
// every pull the buffer either compacts (moves the unread range to offset 0) or, when
// more than half of the capacity is still unread, doubles its capacity. Doubling
// amortizes reallocation across pulls; compacting first avoids doubling when the cursor
// merely lags slightly behind size.
//
// Note: a DecodeBuffer is NOT thread-safe. It serves exactly one stream and one decoder.
package buffer

import (
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/irstream/errs"
)

const (
	// DefaultCapacity is the initial capacity used when none is configured.
	DefaultCapacity = 64 * 1024

	// maxConsecutiveEmptyReads bounds how many (0, nil) reads are tolerated in one pull.
	maxConsecutiveEmptyReads = 100
)

var errInvalidRead = errors.New("byte source returned an invalid count")

// Stats is a snapshot of buffer activity.
type Stats struct {
	BytesRead   int64 // total bytes appended from the source
	Pulls       int64 // pull calls that appended at least one byte
	Growths     int64 // capacity doublings
	Compactions int64 // compactions that moved at least one byte offset
}

// DecodeBuffer is a growable window over an io.Reader.
type DecodeBuffer struct {
	source  io.Reader
	buf     []byte // len(buf) is the capacity
	size    int
	cursor  int
	pending error // source error deferred because the same read also returned data
	stats   Stats
}

// New creates a DecodeBuffer reading from source with the given initial capacity.
//
// Parameters:
//   - source: Byte source; must not be nil
//   - capacity: Initial capacity in bytes; must be positive
//
// Returns:
//   - *DecodeBuffer: Empty buffer with cursor and size at 0
//   - error: errs.ErrInvalidArgument for a nil source or non-positive capacity
func New(source io.Reader, capacity int) (*DecodeBuffer, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: nil byte source", errs.ErrInvalidArgument)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: buffer capacity must be positive, got %d", errs.ErrInvalidArgument, capacity)
	}

	return &DecodeBuffer{
		source: source,
		buf:    make([]byte, capacity),
	}, nil
}

// Cap returns the capacity of the underlying storage.
func (b *DecodeBuffer) Cap() int { return len(b.buf) }

// Len returns the number of valid (written) bytes, consumed or not.
func (b *DecodeBuffer) Len() int { return b.size }

// Cursor returns the number of bytes consumed by successful decodes.
func (b *DecodeBuffer) Cursor() int { return b.cursor }

// Buffered returns the number of unread bytes.
func (b *DecodeBuffer) Buffered() int { return b.size - b.cursor }

// Stats returns a snapshot of the buffer activity counters.
func (b *DecodeBuffer) Stats() Stats { return b.stats }

// Unconsumed returns the unread bytes [cursor, size) without copying.
//
// The returned slice aliases the buffer storage and is invalidated by the next Pull,
// which may move or reallocate it.
func (b *DecodeBuffer) Unconsumed() []byte {
	return b.buf[b.cursor:b.size]
}

// Commit marks n unread bytes as consumed.
//
// Returns errs.ErrInvalidArgument if n is negative or larger than Buffered().
func (b *DecodeBuffer) Commit(n int) error {
	if n < 0 || n > b.size-b.cursor {
		return fmt.Errorf("%w: cannot commit %d bytes with %d unread", errs.ErrInvalidArgument, n, b.size-b.cursor)
	}
	b.cursor += n

	return nil
}

// Compact moves the unread range to offset 0 and resets the cursor.
//
// The relative order of unread bytes is preserved. Compacting a buffer whose cursor is
// already 0 does nothing.
func (b *DecodeBuffer) Compact() {
	if b.cursor == 0 {
		return
	}

	unread := copy(b.buf, b.buf[b.cursor:b.size])
	b.size = unread
	b.cursor = 0
	b.stats.Compactions++
}

// Pull makes room for new data and appends bytes read from the source.
//
// Returns:
//   - int: Number of bytes appended; 0 means the source is exhausted
//   - error: Wrapped source error, or io.ErrNoProgress when the source keeps
//     returning no data and no error
func (b *DecodeBuffer) Pull() (int, error) {
	if b.pending != nil {
		err := b.pending
		b.pending = nil

		return 0, fmt.Errorf("read from byte source: %w", err)
	}

	b.growIfNeeded()

	for range maxConsecutiveEmptyReads {
		n, err := b.source.Read(b.buf[b.size:])
		if n < 0 || n > len(b.buf)-b.size {
			return 0, errInvalidRead
		}

		if n > 0 {
			b.size += n
			b.stats.BytesRead += int64(n)
			b.stats.Pulls++
			if err != nil && !errors.Is(err, io.EOF) {
				b.pending = err
			}

			return n, nil
		}

		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("read from byte source: %w", err)
		}
	}

	return 0, io.ErrNoProgress
}

// growIfNeeded compacts the buffer, doubling the capacity instead when more than half
// of it is still unread.
func (b *DecodeBuffer) growIfNeeded() {
	unread := b.size - b.cursor
	if unread > len(b.buf)/2 {
		b.grow()
		return
	}

	b.Compact()
}

// grow doubles the capacity and moves the unread range to offset 0 of the new storage.
func (b *DecodeBuffer) grow() {
	newBuf := make([]byte, 2*len(b.buf))
	unread := copy(newBuf, b.buf[b.cursor:b.size])

	b.buf = newBuf
	b.size = unread
	b.cursor = 0
	b.stats.Growths++
}

func (b *DecodeBuffer) String() string {
	return fmt.Sprintf("DecodeBuffer{cursor: %d, size: %d, capacity: %d}", b.cursor, b.size, len(b.buf))
}
