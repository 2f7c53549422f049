package timeseries

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestReadCSV(t *testing.T) {
	in := strings.Join([]string{
		"timestamp,value",
		"3600,1.5",
		"7200,",
		"10800,3.5",
	}, "\n")

	s, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("len = %d", s.Len())
	}
	if s.Step() != time.Hour {
		t.Errorf("step = %v", s.Step())
	}
	if !s.Start().Equal(time.Unix(3600, 0).UTC()) {
		t.Errorf("start = %v", s.Start())
	}
	if s.At(0) != 1.5 || !math.IsNaN(s.At(1)) || s.At(2) != 3.5 {
		t.Errorf("values = %v", s.Values())
	}
}

func TestReadCSV_IrregularSpacing(t *testing.T) {
	in := "0,1\n3600,2\n7300,3\n"
	if _, err := ReadCSV(strings.NewReader(in)); !errors.Is(err, ErrIrregularSpacing) {
		t.Errorf("err = %v, want ErrIrregularSpacing", err)
	}
}

func TestReadCSV_TooShort(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("0,1\n")); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}
}

func TestWriteCSV(t *testing.T) {
	s, err := New(time.Unix(60, 0).UTC(), time.Minute, []float64{1, 2.5})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, "load", s); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	want := "ds,timestamp,value\nload,60,1\nload,120,2.5\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}
