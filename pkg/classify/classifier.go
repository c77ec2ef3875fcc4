// Package classify scores symptom feature vectors with a trained multi-class
// model and ranks the resulting diseases.
package classify

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrShape reports a model whose dimensions disagree with its input or with
// the label codec.
var ErrShape = errors.New("classifier shape mismatch")

// Classifier returns a probability for every class, in class index order.
type Classifier interface {
	PredictProba(x []float64) ([]float64, error)
	NumFeatures() int
	NumClasses() int
}

// SoftmaxModel is a multinomial logistic regression: softmax(Wx + b).
type SoftmaxModel struct {
	w *mat.Dense
	b *mat.VecDense
}

// NewSoftmaxModel copies weights (one row per class) and bias into a model.
func NewSoftmaxModel(weights [][]float64, bias []float64) (*SoftmaxModel, error) {
	classes := len(weights)
	if classes == 0 || len(weights[0]) == 0 {
		return nil, fmt.Errorf("%w: empty weight matrix", ErrShape)
	}
	if len(bias) != classes {
		return nil, fmt.Errorf("%w: %d bias terms for %d classes", ErrShape, len(bias), classes)
	}
	features := len(weights[0])
	data := make([]float64, 0, classes*features)
	for i, row := range weights {
		if len(row) != features {
			return nil, fmt.Errorf("%w: row %d has %d weights, want %d", ErrShape, i, len(row), features)
		}
		data = append(data, row...)
	}
	b := make([]float64, classes)
	copy(b, bias)
	return &SoftmaxModel{
		w: mat.NewDense(classes, features, data),
		b: mat.NewVecDense(classes, b),
	}, nil
}

func (s *SoftmaxModel) NumFeatures() int {
	_, c := s.w.Dims()
	return c
}

func (s *SoftmaxModel) NumClasses() int {
	r, _ := s.w.Dims()
	return r
}

// PredictProba returns softmax(Wx + b). Logits are shifted by their maximum
// before exponentiation.
func (s *SoftmaxModel) PredictProba(x []float64) ([]float64, error) {
	classes, features := s.w.Dims()
	if len(x) != features {
		return nil, fmt.Errorf("%w: got %d features, want %d", ErrShape, len(x), features)
	}

	logits := mat.NewVecDense(classes, nil)
	logits.MulVec(s.w, mat.NewVecDense(features, x))
	logits.AddVec(logits, s.b)

	out := make([]float64, classes)
	for i := range out {
		out[i] = logits.AtVec(i)
	}
	shift := floats.Max(out)
	for i, l := range out {
		out[i] = math.Exp(l - shift)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out, nil
}
