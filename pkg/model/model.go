// Package model defines the forward-pass interface the evaluator consumes,
// plus a boosted-stump ensemble used as the bundled reference model.
package model

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/plotcalc/pkg/dataset"
	"github.com/Sumatoshi-tech/plotcalc/pkg/parallel"
)

// Predictor is a staged additive model. Evaluate computes the summed output
// of stages [stageBegin, stageEnd) over all documents of the part, returned
// as [dim][doc]. It must be deterministic and pure given the model state.
type Predictor interface {
	StageCount() int
	OutputDim() int
	Evaluate(part *dataset.Part, stageBegin, stageEnd int, pool *parallel.Pool) ([][]float64, error)
}

// Sentinel errors for stage-range and feature validation.
var (
	ErrStageRange     = errors.New("stage range out of bounds")
	ErrFeatureIndex   = errors.New("stump feature index out of range")
	ErrDimensionShape = errors.New("stump leaf dimension mismatch")
)

// Stump is a single decision stump: one feature comparison selecting between
// two leaf vectors (one value per output dimension).
type Stump struct {
	Feature   int       `json:"feature"`
	Threshold float32   `json:"threshold"`
	Left      []float64 `json:"left"`
	Right     []float64 `json:"right"`
}

// StumpEnsemble is a staged additive model of decision stumps.
type StumpEnsemble struct {
	Dim    int     `json:"dim"`
	Stages []Stump `json:"stages"`
}

// StageCount implements Predictor.
func (e *StumpEnsemble) StageCount() int { return len(e.Stages) }

// OutputDim implements Predictor.
func (e *StumpEnsemble) OutputDim() int { return e.Dim }

// Evaluate implements Predictor: the summed leaf values of stages
// [stageBegin, stageEnd), parallelized across documents.
func (e *StumpEnsemble) Evaluate(
	part *dataset.Part,
	stageBegin, stageEnd int,
	pool *parallel.Pool,
) ([][]float64, error) {
	if stageBegin < 0 || stageEnd < stageBegin || stageEnd > len(e.Stages) {
		return nil, fmt.Errorf("%w: [%d, %d) of %d stages", ErrStageRange, stageBegin, stageEnd, len(e.Stages))
	}

	validateErr := e.validateStages(part, stageBegin, stageEnd)
	if validateErr != nil {
		return nil, validateErr
	}

	docCount := part.DocCount()

	out := make([][]float64, e.Dim)
	for dim := range out {
		out[dim] = make([]float64, docCount)
	}

	pool.For(docCount, func(doc int) {
		features := part.Features[doc]

		for s := stageBegin; s < stageEnd; s++ {
			stage := &e.Stages[s]

			leaf := stage.Right
			if features[stage.Feature] <= stage.Threshold {
				leaf = stage.Left
			}

			for dim := range leaf {
				out[dim][doc] += leaf[dim]
			}
		}
	})

	return out, nil
}

func (e *StumpEnsemble) validateStages(part *dataset.Part, stageBegin, stageEnd int) error {
	featureCount := 0
	if part.DocCount() > 0 {
		featureCount = len(part.Features[0])
	}

	for s := stageBegin; s < stageEnd; s++ {
		stage := &e.Stages[s]

		if stage.Feature < 0 || stage.Feature >= featureCount {
			return fmt.Errorf("%w: stage %d uses feature %d of %d", ErrFeatureIndex, s, stage.Feature, featureCount)
		}

		if len(stage.Left) != e.Dim || len(stage.Right) != e.Dim {
			return fmt.Errorf("%w: stage %d", ErrDimensionShape, s)
		}
	}

	return nil
}
