package budget

import "fmt"

// ErrExceeded is returned by callers when the guard refuses an
// authorization. It halts scheduling batch-wide; companies already past
// authorization run to completion.
type ErrExceeded struct {
	EstimatedUSD float64
	Usage        Usage
}

func (e ErrExceeded) Error() string {
	return fmt.Sprintf("budget exceeded: spent %.4f + estimated %.4f > ceiling %.4f USD",
		e.Usage.SpentUSD, e.EstimatedUSD, e.Usage.CeilingUSD)
}
