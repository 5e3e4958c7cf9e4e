package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrEmptyDataset is returned when a dataset file contains no rows.
var ErrEmptyDataset = errors.New("dataset file has no rows")

// LoadTSV reads a tab-separated dataset file into a single Part.
// Column layout: target, then weight when hasWeights is set, then features.
// Missing weights default to 1.
func LoadTSV(path string, hasWeights bool) (*Part, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}

	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	rows, readErr := reader.ReadAll()
	if readErr != nil {
		return nil, fmt.Errorf("read dataset: %w", readErr)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDataset, path)
	}

	part := &Part{
		Features: make([][]float32, 0, len(rows)),
		Target:   make([]float32, 0, len(rows)),
		Weights:  make([]float32, 0, len(rows)),
	}

	for rowIdx, row := range rows {
		parseErr := appendRow(part, row, rowIdx, hasWeights)
		if parseErr != nil {
			return nil, parseErr
		}
	}

	return part, nil
}

func appendRow(part *Part, row []string, rowIdx int, hasWeights bool) error {
	minColumns := 2
	if hasWeights {
		minColumns = 3
	}

	if len(row) < minColumns {
		return fmt.Errorf("dataset row %d: want at least %d columns, got %d", rowIdx, minColumns, len(row))
	}

	target, err := strconv.ParseFloat(row[0], 32)
	if err != nil {
		return fmt.Errorf("dataset row %d target: %w", rowIdx, err)
	}

	weight := 1.0
	featureStart := 1

	if hasWeights {
		weight, err = strconv.ParseFloat(row[1], 32)
		if err != nil {
			return fmt.Errorf("dataset row %d weight: %w", rowIdx, err)
		}

		featureStart = 2
	}

	features := make([]float32, 0, len(row)-featureStart)

	for col := featureStart; col < len(row); col++ {
		v, parseErr := strconv.ParseFloat(row[col], 32)
		if parseErr != nil {
			return fmt.Errorf("dataset row %d column %d: %w", rowIdx, col, parseErr)
		}

		features = append(features, float32(v))
	}

	part.Target = append(part.Target, float32(target))
	part.Weights = append(part.Weights, float32(weight))
	part.Features = append(part.Features, features)

	return nil
}
