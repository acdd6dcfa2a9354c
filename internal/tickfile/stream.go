package tickfile

import (
	"bufio"
	"io"
	"os"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"felix/internal/schema"
	"felix/pkg/exception"
)

// Stream is a restartable, single-cursor sequence of ticks held in memory.
type Stream struct {
	ticks []schema.Tick
	index int
}

// NewStream wraps already decoded ticks.
func NewStream(ticks []schema.Tick) *Stream {
	return &Stream{ticks: ticks}
}

// Load reads every complete record of a tick file into memory.
// A trailing partial record is logged and ignored; a file without any
// complete record is an error.
func Load(path string) (*Stream, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(exception.ErrTickFileOpen, "%s, err: %+v", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat tick file "+path)
	}

	ticks, err := decodeAll(file, info.Size(), path)
	if err != nil {
		return nil, err
	}

	logs.Infof("[tickfile] loaded %d ticks from %s", len(ticks), path)
	first := ticks[0]
	logs.Debugf("[tickfile] first tick: ts=%d symbol=%d price=%g bid=%g ask=%g vol=%d",
		first.Timestamp, first.SymbolID, first.Price, first.Bid, first.Ask, first.Volume)

	return NewStream(ticks), nil
}

// Decode reads size bytes worth of complete records from r.
func Decode(r io.Reader, size int64) ([]schema.Tick, error) {
	return decodeAll(r, size, "reader")
}

func decodeAll(r io.Reader, size int64, name string) ([]schema.Tick, error) {
	count := size / RecordSize
	logs.Debugf("[tickfile] %s: size=%d bytes, record=%d bytes, expected=%d ticks", name, size, RecordSize, count)

	if remainder := size % RecordSize; remainder != 0 {
		logs.Warnf("[tickfile] %s: size %d is not a multiple of %d, ignoring %d trailing bytes", name, size, RecordSize, remainder)
	}
	if count == 0 {
		return nil, exception.ErrNoTickRecords
	}

	reader := bufio.NewReaderSize(r, 64*RecordSize)
	buf := make([]byte, RecordSize)
	ticks := make([]schema.Tick, 0, count)
	for i := int64(0); i < count; i++ {
		if _, err := io.ReadFull(reader, buf); err != nil {
			return nil, errors.Wrap(err, "read tick record")
		}
		tick, _ := DecodeTick(buf)
		ticks = append(ticks, tick)
	}
	return ticks, nil
}

// Size returns the total number of ticks.
func (s *Stream) Size() int {
	return len(s.ticks)
}

// Index returns the cursor position.
func (s *Stream) Index() int {
	return s.index
}

// HasNext reports whether Next would return a tick.
func (s *Stream) HasNext() bool {
	return s.index < len(s.ticks)
}

// Peek returns the tick under the cursor without advancing.
func (s *Stream) Peek() (schema.Tick, bool) {
	if !s.HasNext() {
		return schema.Tick{}, false
	}
	return s.ticks[s.index], true
}

// Next returns the tick under the cursor and advances.
func (s *Stream) Next() (schema.Tick, bool) {
	if !s.HasNext() {
		return schema.Tick{}, false
	}
	tick := s.ticks[s.index]
	s.index++
	return tick, true
}

// Reset rewinds the cursor to the first tick.
func (s *Stream) Reset() {
	s.index = 0
}
