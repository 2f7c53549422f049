// Package mapper reads binary sample dumps: fixed-width little-endian
// records of (int64 unix-nano timestamp, float64 value), chronological.
package mapper

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"golang.org/x/exp/mmap"

	"github.com/driftline/driftline/pkg/timeseries"
)

const recordSize = 16

var ErrTruncated = errors.New("dump is truncated")

type Reader struct {
	dataSourceName string
	reader         *mmap.ReaderAt
}

func NewReader(dataSourceName string) *Reader {
	return &Reader{dataSourceName: dataSourceName}
}

func (r *Reader) Open() error {
	var err error
	r.reader, err = mmap.Open(r.dataSourceName)
	if err != nil {
		return fmt.Errorf("unable to open data source %q: %w", r.dataSourceName, err)
	}
	return nil
}

func (r *Reader) Close() {
	_ = r.reader.Close()
}

// EntryCount returns the number of records in the dump.
func (r *Reader) EntryCount() (int64, error) {
	fileInfo, err := os.Stat(r.dataSourceName)
	if err != nil {
		return 0, fmt.Errorf("unable to stat data source %q: %w", r.dataSourceName, err)
	}
	totalSize := fileInfo.Size()
	if totalSize%recordSize != 0 {
		return 0, ErrTruncated
	}
	return totalSize / recordSize, nil
}

// ReadAt decodes the record at the given index.
func (r *Reader) ReadAt(index int64) (ts time.Time, value float64, err error) {
	var buf [recordSize]byte
	n, err := r.reader.ReadAt(buf[:], index*recordSize)
	if err != nil || n < recordSize {
		return time.Time{}, 0, fmt.Errorf("reading record %d: %w", index, ErrTruncated)
	}
	nanos := int64(binary.LittleEndian.Uint64(buf[:8]))
	value = math.Float64frombits(binary.LittleEndian.Uint64(buf[8:]))
	return time.Unix(0, nanos).UTC(), value, nil
}

// ReadSeries loads the whole dump as a series. The sampling interval is
// taken from the first two records and every record must land on the grid;
// missing steps are surfaced as gaps.
func (r *Reader) ReadSeries() (*timeseries.Series, error) {
	count, err := r.EntryCount()
	if err != nil {
		return nil, err
	}
	if count < 2 {
		return nil, timeseries.ErrInsufficientData
	}

	first, v0, err := r.ReadAt(0)
	if err != nil {
		return nil, err
	}
	second, v1, err := r.ReadAt(1)
	if err != nil {
		return nil, err
	}
	step := second.Sub(first)
	if step <= 0 {
		return nil, timeseries.ErrBadInterval
	}

	last, _, err := r.ReadAt(count - 1)
	if err != nil {
		return nil, err
	}
	span := last.Sub(first)
	if span%step != 0 {
		return nil, timeseries.ErrIrregularSpacing
	}

	values := make([]float64, int(span/step)+1)
	for i := range values {
		values[i] = math.NaN()
	}
	values[0] = v0
	values[1] = v1

	for i := int64(2); i < count; i++ {
		ts, v, err := r.ReadAt(i)
		if err != nil {
			return nil, err
		}
		offset := ts.Sub(first)
		if offset < 0 || offset%step != 0 {
			return nil, timeseries.ErrIrregularSpacing
		}
		values[int(offset/step)] = v
	}

	return timeseries.New(first, step, values)
}
