package extractor

import (
	"bytes"
	"io"

	"github.com/crazy-max/unarchive/pkg/archive"
	"github.com/crazy-max/unarchive/pkg/errdefs"
	"github.com/pkg/errors"
)

// maxSizeHint caps the buffer preallocated from a declared entry size.
const maxSizeHint = 64 << 20

// BlockWriter receives the data blocks of an entry
type BlockWriter interface {
	WriteBlock(data []byte, offset int64) (int, error)
}

// transfer pulls every data block of entry into w and returns the number of
// bytes written.
func transfer(entry *archive.Entry, w BlockWriter) (int64, error) {
	var total int64
	for {
		block, err := entry.ReadBlock()
		if err == io.EOF {
			return total, nil
		} else if err != nil {
			return total, errors.Wrapf(errdefs.ErrUncompressFailed, "%v", err)
		}
		n, err := w.WriteBlock(block.Data, block.Offset)
		total += int64(n)
		if err != nil {
			return total, errors.Wrapf(errdefs.ErrWriteFailed, "%v", err)
		} else if n < len(block.Data) {
			return total, errors.Wrapf(errdefs.ErrWriteFailed, "short write at offset %d", block.Offset)
		}
	}
}

// memorySink accumulates blocks in pull order. Offsets are ignored so sparse
// holes are not reconstructed.
type memorySink struct {
	buf bytes.Buffer
}

func newMemorySink(sizeHint int64) *memorySink {
	s := &memorySink{}
	if sizeHint > 0 {
		s.buf.Grow(int(min(sizeHint, maxSizeHint)))
	}
	return s
}

func (s *memorySink) WriteBlock(data []byte, _ int64) (int, error) {
	return s.buf.Write(data)
}

func (s *memorySink) Bytes() []byte {
	return s.buf.Bytes()
}
