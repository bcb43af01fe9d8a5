package scenario

import "fmt"

// StepRange is an inclusive range of step indexes.
type StepRange struct {
	From int
	To   int
}

// SplitRange splits [from, to] into batches of batchSize steps.
func SplitRange(from, to, batchSize int) ([]StepRange, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to step must be >= from step")
	}

	ranges := make([]StepRange, 0, (to-from)/batchSize+1)
	for start := from; start <= to; start += batchSize {
		end := start + batchSize - 1
		if end > to {
			end = to
		}
		ranges = append(ranges, StepRange{From: start, To: end})
	}
	return ranges, nil
}
