package stream

import (
	"context"
	"io"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/pkg/errors"
)

// NPYSource replays the rows of a 2-D .npy array. The last column is the target.
type NPYSource struct {
	data *mat.Dense
	pos  int
}

// ReadNPY decodes a 2-D float array from r.
func ReadNPY(r io.Reader) (*mat.Dense, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "read npy header")
	}
	if shape := nr.Header.Descr.Shape; len(shape) != 2 {
		return nil, errors.NewValidationError("shape", "npy array must be two dimensional", shape)
	}
	m := &mat.Dense{}
	if err := nr.Read(m); err != nil {
		return nil, errors.Wrap(err, "read npy data")
	}
	return m, nil
}

// NewNPYSource wraps a matrix whose last column is the target.
func NewNPYSource(data *mat.Dense) (*NPYSource, error) {
	if _, c := data.Dims(); c < 2 {
		return nil, errors.NewValidationError("columns", "need at least one feature and the target", c)
	}
	return &NPYSource{data: data}, nil
}

// OpenNPY reads the whole file at path into an NPYSource.
func OpenNPY(path string) (*NPYSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	m, err := ReadNPY(f)
	if err != nil {
		return nil, err
	}
	return NewNPYSource(m)
}

// Next returns the next row.
func (s *NPYSource) Next(ctx context.Context) (model.Instance, error) {
	if err := ctx.Err(); err != nil {
		return model.Instance{}, err
	}
	r, c := s.data.Dims()
	if s.pos >= r {
		return model.Instance{}, io.EOF
	}
	row := mat.Row(nil, s.pos, s.data)
	s.pos++
	return model.Instance{X: row[:c-1], Y: row[c-1]}, nil
}

// Len returns the number of rows.
func (s *NPYSource) Len() int {
	r, _ := s.data.Dims()
	return r
}

// WriteNPY encodes instances as a 2-D array with the target in the last column.
func WriteNPY(w io.Writer, instances []model.Instance) error {
	if len(instances) == 0 {
		return errors.WithStack(errors.ErrEmptyData)
	}
	d := instances[0].NumFeatures()
	m := mat.NewDense(len(instances), d+1, nil)
	for i, inst := range instances {
		if inst.NumFeatures() != d {
			return errors.NewDimensionError("WriteNPY", d, inst.NumFeatures(), 1)
		}
		m.SetRow(i, append(append(make([]float64, 0, d+1), inst.X...), inst.Y))
	}
	return npyio.Write(w, m)
}
