package plot

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Sumatoshi-tech/plotcalc/pkg/dataset"
	"github.com/Sumatoshi-tech/plotcalc/pkg/metrics"
	"github.com/Sumatoshi-tech/plotcalc/pkg/model"
	"github.com/Sumatoshi-tech/plotcalc/pkg/parallel"
)

// ErrUnsupportedNonAdditive is returned for non-additive metrics that are
// not per-object: the batched-storage path has no cross-document grouping
// strategy for query or pairwise granularity.
var ErrUnsupportedNonAdditive = errors.New("non-additive querywise and pairwise metrics are not supported")

// Params configures a Calcer.
type Params struct {
	// First, Last, Step select checkpoints. Last of zero means the model's
	// stage count; Last is clamped to it, Step to the range width.
	First int
	Last  int
	Step  int

	// ProcessedIterationsStep bounds how many checkpoints' full outputs are
	// held in auxiliary storage before a forced evaluation pass. Zero or
	// less means all checkpoints in one batch.
	ProcessedIterationsStep int

	// TmpDir is the auxiliary storage root, created on demand.
	TmpDir string

	// Workers bounds the worker pool; zero or less uses all CPUs.
	Workers int

	// Logger receives progress and storage events; nil discards them.
	Logger *slog.Logger
}

// Calcer computes metric scores of a staged additive model at every selected
// checkpoint. Additive metrics are folded inline from partial results;
// non-additive metrics go through the auxiliary store in bounded batches.
// A Calcer is not safe for concurrent use: one evaluation pass owns it.
type Calcer struct {
	model model.Predictor
	pool  *parallel.Pool
	log   *slog.Logger

	iterations []int

	additive       []metrics.Metric
	additiveIdx    []int
	nonAdditive    []metrics.Metric
	nonAdditiveIdx []int

	additivePlots    [][]metrics.Holder // [metric][checkpoint]
	nonAdditivePlots [][]metrics.Holder

	// Cursor over finalized non-additive checkpoints; monotonically
	// non-decreasing, bounded by len(iterations).
	processedCount int
	processedStep  int

	// Document offset of the next part within the current non-additive
	// batch; reset when the batch is finished.
	batchDocOffset int

	naTarget  []float32
	naWeights []float32

	store *approxStore
}

// New creates a Calcer for the given model and metric list. Non-additive
// metrics must be per-object. The metric list order is preserved in Scores.
func New(predictor model.Predictor, metricList []metrics.Metric, params Params) (*Calcer, error) {
	logger := params.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	last := params.Last
	if last == 0 || last > predictor.StageCount() {
		last = predictor.StageCount()
	}

	step := params.Step
	if step > last-params.First {
		step = last - params.First
	}

	iterations, selectErr := selectCheckpoints(params.First, last, step)
	if selectErr != nil {
		return nil, selectErr
	}

	c := &Calcer{
		model:         predictor,
		pool:          parallel.New(params.Workers),
		log:           logger,
		iterations:    iterations,
		processedStep: params.ProcessedIterationsStep,
		store:         newApproxStore(params.TmpDir, logger),
	}

	if c.processedStep <= 0 {
		c.processedStep = len(iterations)
	}

	classifyErr := c.classifyMetrics(metricList)
	if classifyErr != nil {
		return nil, classifyErr
	}

	c.additivePlots = makePlots(len(c.additive), len(iterations))
	c.nonAdditivePlots = makePlots(len(c.nonAdditive), len(iterations))

	return c, nil
}

func (c *Calcer) classifyMetrics(metricList []metrics.Metric) error {
	for idx, m := range metricList {
		if m.IsAdditive() {
			c.additive = append(c.additive, m)
			c.additiveIdx = append(c.additiveIdx, idx)

			continue
		}

		if m.Granularity() != metrics.PerObject {
			return fmt.Errorf("%w: %s is %s", ErrUnsupportedNonAdditive, m.Description(), m.Granularity())
		}

		c.nonAdditive = append(c.nonAdditive, m)
		c.nonAdditiveIdx = append(c.nonAdditiveIdx, idx)
	}

	return nil
}

func makePlots(metricCount, checkpointCount int) [][]metrics.Holder {
	plots := make([][]metrics.Holder, metricCount)
	for i := range plots {
		plots[i] = make([]metrics.Holder, checkpointCount)
	}

	return plots
}

// Iterations returns the selected checkpoint stage indices.
func (c *Calcer) Iterations() []int { return c.iterations }

// HasAdditiveMetric reports whether an additive pass is needed.
func (c *Calcer) HasAdditiveMetric() bool { return len(c.additive) > 0 }

// HasNonAdditiveMetric reports whether a non-additive pass is needed.
func (c *Calcer) HasNonAdditiveMetric() bool { return len(c.nonAdditive) > 0 }

// ProcessedCount returns the non-additive processing cursor.
func (c *Calcer) ProcessedCount() int { return c.processedCount }

// AllProcessed reports whether every checkpoint's non-additive metrics have
// been finalized.
func (c *Calcer) AllProcessed() bool { return c.processedCount == len(c.iterations) }

// ProcessAdditive runs the additive path over one dataset part: every
// checkpoint's partial results are folded into the plots in a single walk.
// Call once per part; partials from disjoint parts merge by additivity.
func (c *Calcer) ProcessAdditive(part *dataset.Part) error {
	return c.proceedDataSet(part, 0, len(c.iterations), true, 0)
}

// ProcessNonAdditive advances the non-additive path over one dataset part
// for the current batch of checkpoints. Target and weight vectors are
// captured during the first batch only. Call FinishNonAdditiveBatch after
// all parts of a pass have been processed.
func (c *Calcer) ProcessNonAdditive(part *dataset.Part) error {
	if c.processedCount == 0 {
		c.naTarget = append(c.naTarget, part.Target...)
		c.naWeights = append(c.naWeights, part.Weights...)
	}

	begin := c.processedCount
	end := min(begin+c.processedStep, len(c.iterations))

	docOffset := c.batchDocOffset
	c.batchDocOffset += part.DocCount()

	return c.proceedDataSet(part, begin, end, false, docOffset)
}

// FinishNonAdditiveBatch evaluates every stored checkpoint of the current
// batch, advances the cursor, and drops consumed storage. The most recent
// buffer is kept on disk until the next batch resumes from it; on terminal
// completion it is dropped too.
func (c *Calcer) FinishNonAdditiveBatch() error {
	begin := c.processedCount
	end := min(begin+c.processedStep, len(c.iterations))

	computeErr := c.computeNonAdditiveBatch(begin, end)
	if computeErr != nil {
		return computeErr
	}

	c.processedCount = end
	c.batchDocOffset = 0

	if c.AllProcessed() {
		return c.store.remove(end - 1)
	}

	return nil
}

// proceedDataSet walks checkpoints [beginIdx, endIdx) over one part,
// advancing the running buffer by forward-pass deltas only. The union of
// delta stage ranges across a full walk covers every stage exactly once.
func (c *Calcer) proceedDataSet(part *dataset.Part, beginIdx, endIdx int, isAdditive bool, docOffset int) error {
	dim := c.model.OutputDim()

	cur, initErr := initApproxBuffer(dim, []dataset.Part{*part}, beginIdx == 0)
	if initErr != nil {
		return initErr
	}

	begin := 0

	if beginIdx > 0 {
		begin = c.iterations[beginIdx-1] + 1

		loadErr := c.store.loadInto(beginIdx-1, docOffset, cur)
		if loadErr != nil {
			return loadErr
		}
	}

	for i := beginIdx; i < endIdx; i++ {
		end := c.iterations[i] + 1

		delta, evalErr := c.model.Evaluate(part, begin, end, c.pool)
		if evalErr != nil {
			return fmt.Errorf("forward pass [%d, %d): %w", begin, end, evalErr)
		}

		appendApprox(c.pool, delta, cur, 0)

		if isAdditive {
			addErr := c.computeAdditiveMetrics(cur, part, i)
			if addErr != nil {
				return addErr
			}
		} else {
			saveErr := c.store.save(i, cur)
			if saveErr != nil {
				return saveErr
			}
		}

		begin = end
	}

	return nil
}

// computeAdditiveMetrics evaluates every additive metric over the full
// running buffer and merges the partial into the checkpoint's plot slot.
// The evaluation range follows the metric's granularity: documents for
// per-object, groups otherwise.
func (c *Calcer) computeAdditiveMetrics(cur [][]float64, part *dataset.Part, plotIdx int) error {
	for m, metric := range c.additive {
		end := part.DocCount()
		if metric.Granularity() != metrics.PerObject {
			end = len(part.Groups)
		}

		partial, evalErr := metric.Eval(cur, part.Target, part.Weights, part.Groups, 0, end, c.pool)
		if evalErr != nil {
			return fmt.Errorf("metric %s at checkpoint %d: %w", metric.Description(), c.iterations[plotIdx], evalErr)
		}

		c.additivePlots[m][plotIdx] = metric.Merge(c.additivePlots[m][plotIdx], partial)
	}

	return nil
}

// computeNonAdditiveBatch streams stored checkpoints [begin, end) back and
// evaluates every non-additive metric against the full output. Storage for
// a checkpoint is deleted once its successor is evaluated.
func (c *Calcer) computeNonAdditiveBatch(begin, end int) error {
	docCount := len(c.naTarget)
	dim := c.model.OutputDim()

	for idx := begin; idx < end; idx++ {
		approx, loadErr := c.store.load(idx, docCount, dim)
		if loadErr != nil {
			return loadErr
		}

		for m, metric := range c.nonAdditive {
			result, evalErr := metric.Eval(approx, c.naTarget, c.naWeights, nil, 0, docCount, c.pool)
			if evalErr != nil {
				return fmt.Errorf("metric %s at checkpoint %d: %w", metric.Description(), c.iterations[idx], evalErr)
			}

			c.nonAdditivePlots[m][idx] = result
		}

		if idx != 0 {
			removeErr := c.store.remove(idx - 1)
			if removeErr != nil {
				return removeErr
			}
		}
	}

	return nil
}

// ComputeNonAdditiveInMemory evaluates all non-additive metrics against a
// complete dataset given as parts, bypassing auxiliary storage: one running
// buffer spans all parts and metrics are evaluated inline per checkpoint.
func (c *Calcer) ComputeNonAdditiveInMemory(parts []dataset.Part) error {
	allTargets, allWeights := concatTargets(parts)

	cur, initErr := initApproxBuffer(c.model.OutputDim(), parts, true)
	if initErr != nil {
		return initErr
	}

	startDoc := partStartOffsets(parts)
	begin := 0

	for i := range c.iterations {
		end := c.iterations[i] + 1

		for p := range parts {
			delta, evalErr := c.model.Evaluate(&parts[p], begin, end, c.pool)
			if evalErr != nil {
				return fmt.Errorf("forward pass [%d, %d) part %d: %w", begin, end, p, evalErr)
			}

			appendApprox(c.pool, delta, cur, startDoc[p])
		}

		for m, metric := range c.nonAdditive {
			result, evalErr := metric.Eval(cur, allTargets, allWeights, nil, 0, len(allTargets), c.pool)
			if evalErr != nil {
				return fmt.Errorf("metric %s at checkpoint %d: %w", metric.Description(), c.iterations[i], evalErr)
			}

			c.nonAdditivePlots[m][i] = result
		}

		begin = end
	}

	c.processedCount = len(c.iterations)

	return nil
}

// Scores finalizes every plot slot into a scalar, returned as
// [metric][checkpoint] in the original metric input order.
func (c *Calcer) Scores() [][]float64 {
	total := len(c.additive) + len(c.nonAdditive)

	scores := make([][]float64, total)
	for i := range scores {
		scores[i] = make([]float64, len(c.iterations))
	}

	for i := range c.iterations {
		for m, metric := range c.additive {
			scores[c.additiveIdx[m]][i] = metric.Finalize(c.additivePlots[m][i])
		}

		for m, metric := range c.nonAdditive {
			scores[c.nonAdditiveIdx[m]][i] = metric.Finalize(c.nonAdditivePlots[m][i])
		}
	}

	return scores
}

// Metrics returns the metrics in their original input order.
func (c *Calcer) Metrics() []metrics.Metric {
	total := len(c.additive) + len(c.nonAdditive)
	ordered := make([]metrics.Metric, total)

	for m, metric := range c.additive {
		ordered[c.additiveIdx[m]] = metric
	}

	for m, metric := range c.nonAdditive {
		ordered[c.nonAdditiveIdx[m]] = metric
	}

	return ordered
}

// Close releases auxiliary storage. Call on both success and failure paths.
func (c *Calcer) Close() {
	c.store.cleanup()
}

func concatTargets(parts []dataset.Part) (targets, weights []float32) {
	total := dataset.TotalDocCount(parts)
	targets = make([]float32, 0, total)
	weights = make([]float32, 0, total)

	for p := range parts {
		targets = append(targets, parts[p].Target...)
		weights = append(weights, parts[p].Weights...)
	}

	return targets, weights
}

func partStartOffsets(parts []dataset.Part) []int {
	offsets := make([]int, len(parts))
	start := 0

	for p := range parts {
		offsets[p] = start
		start += parts[p].DocCount()
	}

	return offsets
}
