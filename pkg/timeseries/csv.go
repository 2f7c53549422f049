package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

var ErrIrregularSpacing = errors.New("samples are not regularly spaced")

// ReadCSV loads a series from rows of "timestamp,value" where the timestamp
// is a unix epoch in seconds. Rows must be chronological and regularly
// spaced. An empty or "nan" value field marks a gap. A leading header row is
// skipped when its timestamp field does not parse.
func ReadCSV(r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var (
		start  time.Time
		step   time.Duration
		values []float64
		prev   time.Time
	)

	for row := 0; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("row %d: expected timestamp,value", row)
		}

		epoch, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			if row == 0 {
				continue // header
			}
			return nil, fmt.Errorf("row %d: bad timestamp %q", row, rec[0])
		}
		ts := time.Unix(epoch, 0).UTC()

		v, err := parseValue(rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		switch len(values) {
		case 0:
			start = ts
		case 1:
			step = ts.Sub(prev)
			if step <= 0 {
				return nil, ErrIrregularSpacing
			}
		default:
			if ts.Sub(prev) != step {
				return nil, ErrIrregularSpacing
			}
		}
		prev = ts
		values = append(values, v)
	}

	if len(values) < 2 {
		return nil, ErrInsufficientData
	}
	return &Series{start: start, step: step, values: values}, nil
}

func parseValue(field string) (float64, error) {
	if field == "" || field == "nan" || field == "NaN" || field == "U" {
		return gap(), nil
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("bad value %q", field)
	}
	return v, nil
}

// WriteCSV writes "ds,timestamp,value" rows, one per sample, with the data
// source name repeated in the first column.
func WriteCSV(w io.Writer, ds string, s *Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ds", "timestamp", "value"}); err != nil {
		return err
	}
	for i := 0; i < s.Len(); i++ {
		rec := []string{
			ds,
			strconv.FormatInt(s.TimeAt(i).Unix(), 10),
			strconv.FormatFloat(s.At(i), 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
