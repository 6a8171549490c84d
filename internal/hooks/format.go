package hooks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrUnsupportedFormat = errors.New("hooks: unsupported format")

type Format string

const (
	CSV    Format = "csv"
	NDJSON Format = "ndjson"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case CSV, NDJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// sink writes one record per line. A nil writer discards records.
type sink struct {
	w      io.Writer
	format Format
}

func newSink(w io.Writer, format Format) (sink, error) {
	if format == "" {
		format = CSV
	}
	if w != nil && format != CSV && format != NDJSON {
		return sink{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return sink{w: w, format: format}, nil
}

func (s sink) write(row []string, record any) error {
	if s.w == nil {
		return nil
	}
	if s.format == NDJSON {
		b, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("hooks: encode record: %w", err)
		}
		_, err = s.w.Write(append(b, '\n'))
		return err
	}
	_, err := io.WriteString(s.w, strings.Join(row, ",")+"\n")
	return err
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
