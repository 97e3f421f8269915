package tvm

import (
	"gonum.org/v1/gonum/mat"

	"github.com/wippyai/tvm-go/errors"
)

// FromMatrix allocates a 2-D float64 cpu array holding m.
func FromMatrix(c *Client, m mat.Matrix) (*NDArray, error) {
	r, cols := m.Dims()
	data := make([]float64, 0, r*cols)
	for i := 0; i < r; i++ {
		for j := 0; j < cols; j++ {
			data = append(data, m.At(i, j))
		}
	}
	a, err := c.Empty([]int64{int64(r), int64(cols)}, CPU(0), Float64)
	if err != nil {
		return nil, err
	}
	if err := CopyFromBuffer(a, data); err != nil {
		a.Release()
		return nil, err
	}
	return a, nil
}

// ToDense copies a 1-D or 2-D float64 array into a gonum matrix. A 1-D array
// becomes a single row.
func ToDense(a *NDArray) (*mat.Dense, error) {
	if dt := a.DType(); dt != Float64 {
		return nil, errors.TypeMismatch(errors.PhaseDecode, Float64.String(), dt.String())
	}
	shape := a.Shape()
	var r, cols int
	switch len(shape) {
	case 1:
		r, cols = 1, int(shape[0])
	case 2:
		r, cols = int(shape[0]), int(shape[1])
	default:
		return nil, errors.InvalidInput(errors.PhaseDecode, "dense conversion needs a 1-D or 2-D array")
	}
	data, err := ToVec[float64](a)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(r, cols, data), nil
}

// ToVecDense copies a 1-D float64 array into a gonum vector.
func ToVecDense(a *NDArray) (*mat.VecDense, error) {
	if dt := a.DType(); dt != Float64 {
		return nil, errors.TypeMismatch(errors.PhaseDecode, Float64.String(), dt.String())
	}
	if a.NDim() != 1 {
		return nil, errors.InvalidInput(errors.PhaseDecode, "vector conversion needs a 1-D array")
	}
	data, err := ToVec[float64](a)
	if err != nil {
		return nil, err
	}
	return mat.NewVecDense(len(data), data), nil
}
