package budget

import (
	"sync"
	"time"
)

// Guard tracks cumulative spend for a batch run and gates every billed
// model call. It is shared by all in-flight company pipelines, so all
// state lives behind the mutex. Authorized estimates are held as
// reservations until the call settles, so concurrent pipelines cannot
// jointly authorize past the ceiling.
type Guard struct {
	ceilingUSD float64

	mu          sync.Mutex
	spentUSD    float64
	reservedUSD float64
	tokens      int64
	denied      bool
	startTime   time.Time
}

// NewGuard creates a guard with the given spend ceiling in USD.
func NewGuard(ceilingUSD float64) *Guard {
	return &Guard{
		ceilingUSD: ceilingUSD,
		startTime:  time.Now(),
	}
}

// Authorize reports whether a call with the given estimated cost may
// proceed. It denies (returns false) when spent + reserved + estimated
// would exceed the ceiling; otherwise the estimate is reserved until the
// caller settles it with Record or abandons it with Release. A denial is
// sticky: once any authorization is refused the guard reports Denied so
// the batch stops scheduling new stages.
func (g *Guard) Authorize(estimatedUSD float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.spentUSD+g.reservedUSD+estimatedUSD > g.ceilingUSD {
		g.denied = true
		return false
	}
	g.reservedUSD += estimatedUSD
	return true
}

// Record settles an authorized call: the reservation made for
// estimatedUSD is dropped and the actual cost and token usage are added
// to the running totals.
func (g *Guard) Record(estimatedUSD, actualUSD float64, tokens int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releaseLocked(estimatedUSD)
	g.spentUSD += actualUSD
	g.tokens += tokens
}

// Release drops the reservation of an authorized call that never
// completed, so a failed call does not hold headroom forever.
func (g *Guard) Release(estimatedUSD float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releaseLocked(estimatedUSD)
}

func (g *Guard) releaseLocked(estimatedUSD float64) {
	g.reservedUSD -= estimatedUSD
	if g.reservedUSD < 0 {
		g.reservedUSD = 0
	}
}

// Denied reports whether any authorization has been refused.
func (g *Guard) Denied() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.denied
}

// Usage returns a snapshot of current spend.
func (g *Guard) Usage() Usage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Usage{
		SpentUSD:    g.spentUSD,
		ReservedUSD: g.reservedUSD,
		CeilingUSD:  g.ceilingUSD,
		Tokens:      g.tokens,
		Elapsed:     time.Since(g.startTime),
	}
}

// Usage is a point-in-time view of guard state.
type Usage struct {
	SpentUSD    float64       `json:"spent_usd"`
	ReservedUSD float64       `json:"reserved_usd"`
	CeilingUSD  float64       `json:"ceiling_usd"`
	Tokens      int64         `json:"tokens"`
	Elapsed     time.Duration `json:"elapsed"`
}
