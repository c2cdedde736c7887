package stream

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/pkg/errors"
)

// CSVSource reads instances from comma separated rows. One column holds the
// target and every other column a feature. A first row that does not parse
// as numbers is treated as a header.
type CSVSource struct {
	reader *csv.Reader
	target int
	header []string
	width  int
	line   int
	peeked []string
}

// CSVOption configures a CSVSource.
type CSVOption func(*CSVSource)

// WithTargetColumn selects the target column. Negative values count from the
// end; the default -1 is the last column.
func WithTargetColumn(i int) CSVOption {
	return func(s *CSVSource) { s.target = i }
}

// WithDelimiter sets the field delimiter.
func WithDelimiter(r rune) CSVOption {
	return func(s *CSVSource) { s.reader.Comma = r }
}

// NewCSVSource reads from r. The header, if any, is consumed immediately.
func NewCSVSource(r io.Reader, opts ...CSVOption) (*CSVSource, error) {
	s := &CSVSource{reader: csv.NewReader(r), target: -1}
	s.reader.ReuseRecord = false
	for _, opt := range opts {
		opt(s)
	}
	row, err := s.reader.Read()
	if err == io.EOF {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	s.line = 1
	s.width = len(row)
	if _, err := s.parse(row); err != nil {
		s.header = row
	} else {
		s.peeked = row
	}
	return s, nil
}

// Header returns the column names, or nil when the file has no header.
func (s *CSVSource) Header() []string { return s.header }

func (s *CSVSource) targetIndex() int {
	if s.target < 0 {
		return s.width + s.target
	}
	return s.target
}

func (s *CSVSource) parse(row []string) (model.Instance, error) {
	t := s.targetIndex()
	if t < 0 || t >= len(row) {
		return model.Instance{}, errors.NewValidationError("target_column", "out of range", s.target)
	}
	inst := model.Instance{X: make([]float64, 0, len(row)-1)}
	for i, field := range row {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return model.Instance{}, errors.Wrapf(err, "line %d column %d", s.line, i+1)
		}
		if i == t {
			inst.Y = v
			continue
		}
		inst.X = append(inst.X, v)
	}
	return inst, nil
}

// Next parses the next row.
func (s *CSVSource) Next(ctx context.Context) (model.Instance, error) {
	if err := ctx.Err(); err != nil {
		return model.Instance{}, err
	}
	row := s.peeked
	s.peeked = nil
	if row == nil {
		var err error
		row, err = s.reader.Read()
		if err == io.EOF {
			return model.Instance{}, io.EOF
		}
		if err != nil {
			return model.Instance{}, errors.Wrap(err, "read csv row")
		}
		s.line++
	}
	if len(row) != s.width {
		return model.Instance{}, errors.NewDimensionError("CSVSource.Next", s.width, len(row), 1)
	}
	return s.parse(row)
}
