// dataset/csv.go
package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type CSVOptions struct {
	TSV     bool // tab separated instead of comma
	Header  bool // skip the first record
	MaxRows int  // 0 = all
}

// LoadCSV reads rows of numeric features followed by an integer class label.
// Every row must have the same number of features.
func LoadCSV(path string, opts CSVOptions) (*InMemory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f, opts)
}

func ReadCSV(src io.Reader, opts CSVOptions) (*InMemory, error) {
	r := csv.NewReader(bufio.NewReader(src))
	r.Comma = ','
	if opts.TSV {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var (
		xs    [][]float32
		ys    []int
		width = -1
		line  = 0
	)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read error line %d: %w", line+1, err)
		}
		line++
		if line == 1 && opts.Header {
			continue
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: need at least one feature and a label, got %d fields", line, len(rec))
		}
		if width < 0 {
			width = len(rec) - 1
		} else if len(rec)-1 != width {
			return nil, fmt.Errorf("line %d: %d features, earlier rows have %d", line, len(rec)-1, width)
		}
		row := make([]float32, width)
		for i := 0; i < width; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 32)
			if err != nil {
				return nil, fmt.Errorf("line %d field %d: %w", line, i+1, err)
			}
			row[i] = float32(v)
		}
		lab, err := strconv.Atoi(strings.TrimSpace(rec[width]))
		if err != nil || lab < 0 {
			return nil, fmt.Errorf("line %d: cannot parse label %q", line, rec[width])
		}
		xs = append(xs, row)
		ys = append(ys, lab)
		if opts.MaxRows > 0 && len(ys) >= opts.MaxRows {
			break
		}
	}
	return NewInMemory(xs, ys)
}

// NumClasses is max label + 1.
func NumClasses(sets ...Dataset) int {
	n := 0
	for _, ds := range sets {
		for i := 0; i < ds.Len(); i++ {
			if _, y := ds.Sample(i); y+1 > n {
				n = y + 1
			}
		}
	}
	return n
}

// NumFeatures is the row width of the first non-empty set, or 0.
func NumFeatures(sets ...Dataset) int {
	for _, ds := range sets {
		if ds.Len() > 0 {
			x, _ := ds.Sample(0)
			return len(x)
		}
	}
	return 0
}
