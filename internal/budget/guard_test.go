package budget

import (
	"sync"
	"testing"
)

func TestAuthorizeDeniesWhenProjectedOverCeiling(t *testing.T) {
	g := NewGuard(10)
	g.Record(0, 9, 1000)

	if g.Authorize(2) {
		t.Fatalf("expected authorize to deny: spent 9 + estimated 2 > ceiling 10")
	}
	if !g.Denied() {
		t.Fatalf("expected denial to be sticky")
	}
}

func TestAuthorizeAllowsWithinCeiling(t *testing.T) {
	g := NewGuard(10)
	g.Record(0, 9, 0)

	if !g.Authorize(1) {
		t.Fatalf("expected authorize to allow: spent 9 + estimated 1 <= ceiling 10")
	}
	if g.Denied() {
		t.Fatalf("allowed call must not mark guard denied")
	}
}

func TestAuthorizeReservesEstimate(t *testing.T) {
	g := NewGuard(10)

	if !g.Authorize(6) {
		t.Fatalf("first estimate fits the ceiling")
	}
	// The first call is still in flight: its reservation must count
	// against the headroom of the second.
	if g.Authorize(6) {
		t.Fatalf("reserved 6 + estimated 6 > ceiling 10 must deny")
	}
	if got := g.Usage().ReservedUSD; got != 6 {
		t.Fatalf("expected 6 reserved, got %v", got)
	}
}

func TestRecordSettlesReservation(t *testing.T) {
	g := NewGuard(10)
	g.Authorize(6)
	g.Record(6, 2.5, 100)

	u := g.Usage()
	if u.ReservedUSD != 0 {
		t.Fatalf("settled call must drop its reservation, got %v", u.ReservedUSD)
	}
	if u.SpentUSD != 2.5 {
		t.Fatalf("expected actual cost 2.5 recorded, got %v", u.SpentUSD)
	}
	// Headroom freed by the cheap actual cost is usable again.
	if !g.Authorize(6) {
		t.Fatalf("spent 2.5 + estimated 6 <= ceiling 10 must allow")
	}
}

func TestReleaseDropsReservation(t *testing.T) {
	g := NewGuard(10)
	g.Authorize(8)
	g.Release(8)

	u := g.Usage()
	if u.ReservedUSD != 0 || u.SpentUSD != 0 {
		t.Fatalf("released call must leave no trace, got %+v", u)
	}
	if !g.Authorize(8) {
		t.Fatalf("headroom must be available again after release")
	}
}

func TestRecordAccumulates(t *testing.T) {
	g := NewGuard(100)
	g.Record(0, 1.5, 100)
	g.Record(0, 2.5, 200)

	u := g.Usage()
	if u.SpentUSD != 4.0 {
		t.Fatalf("expected spent 4.0, got %v", u.SpentUSD)
	}
	if u.Tokens != 300 {
		t.Fatalf("expected 300 tokens, got %d", u.Tokens)
	}
}

func TestConcurrentAuthorizeRecord(t *testing.T) {
	g := NewGuard(1000)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Authorize(1) {
				g.Record(1, 1, 10)
			}
		}()
	}
	wg.Wait()

	u := g.Usage()
	if u.SpentUSD > u.CeilingUSD {
		t.Fatalf("spend %v exceeded ceiling %v", u.SpentUSD, u.CeilingUSD)
	}
	if u.SpentUSD != 50 {
		t.Fatalf("expected all 50 calls authorized, spent %v", u.SpentUSD)
	}
}

func TestConcurrentAuthorizeCannotJointlyOverrun(t *testing.T) {
	// Two pipelines race for the same headroom: at most one large
	// estimate may be authorized, never both.
	g := NewGuard(10)
	var wg sync.WaitGroup
	granted := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted <- g.Authorize(6)
		}()
	}
	wg.Wait()
	close(granted)

	allowed := 0
	for ok := range granted {
		if ok {
			allowed++
		}
	}
	if allowed != 1 {
		t.Fatalf("exactly one of two competing 6-USD estimates fits a 10-USD ceiling, got %d", allowed)
	}
}

func TestErrExceededMessage(t *testing.T) {
	g := NewGuard(10)
	g.Record(0, 9, 0)
	g.Authorize(2)

	err := ErrExceeded{EstimatedUSD: 2, Usage: g.Usage()}
	want := "budget exceeded: spent 9.0000 + estimated 2.0000 > ceiling 10.0000 USD"
	if err.Error() != want {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
