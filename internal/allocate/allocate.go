// Package allocate decides which regular users are compromised and by which
// attack technique.
package allocate

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"corpuslab/atogen/internal/randx"
)

// PoolFactor sizes the connection-biased candidate pool relative to the
// victim target.
const PoolFactor = 3

// Request describes one allocation.
type Request struct {
	UserIDs  []string        // population order
	Excluded map[string]bool // inactive and fishy accounts
	Pct      float64         // share of UserIDs to compromise, 0-100

	// Patterns lists the allocatable techniques in allocation order.
	Patterns []string
	Weights  map[string]float64

	// Connections biases selection toward well-connected users when set.
	Connections map[string]int
}

// Allocation maps each technique to its victims.
type Allocation struct {
	Target   int
	Victims  map[string][]string
	Order    []string // patterns that received victims, in request order
	// Degraded explains each way the allocation fell short of Target.
	Degraded []string
}

// Total is the number of allocated victims.
func (a Allocation) Total() int {
	n := 0
	for _, v := range a.Victims {
		n += len(v)
	}
	return n
}

// PatternOf returns the technique assigned to each victim.
func (a Allocation) PatternOf() map[string]string {
	out := make(map[string]string, a.Total())
	for p, ids := range a.Victims {
		for _, id := range ids {
			out[id] = p
		}
	}
	return out
}

// Allocate picks victims and splits them over req.Patterns. Shortfalls are
// never errors: the target shrinks and the reason is returned in Degraded
// for the caller to log.
func Allocate(req Request, rng *rand.Rand) Allocation {
	out := Allocation{Victims: make(map[string][]string)}
	out.Target = target(len(req.UserIDs), req.Pct)
	if out.Target == 0 {
		return out
	}

	candidates := make([]string, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		if !req.Excluded[id] {
			candidates = append(candidates, id)
		}
	}
	n := out.Target
	if n > len(candidates) {
		out.degrade("victim target %d reduced to %d eligible users", n, len(candidates))
		n = len(candidates)
	}
	if n == 0 {
		return out
	}

	pool := candidates
	if req.Connections != nil {
		pool = byConnections(candidates, req.Connections)
		pool = pool[:min(len(pool), PoolFactor*n)]
	}
	victims := randx.Sample(rng, pool, n)

	quotas := split(n, req.Patterns, req.Weights)
	i := 0
	for k, p := range req.Patterns {
		if quotas[k] == 0 {
			continue
		}
		out.Victims[p] = victims[i : i+quotas[k]]
		out.Order = append(out.Order, p)
		i += quotas[k]
	}
	if starved := len(positive(req.Patterns, req.Weights)) - len(out.Order); starved > 0 {
		out.degrade("%d patterns received no victims (target %d)", starved, n)
	}
	return out
}

func (a *Allocation) degrade(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.Degraded = append(a.Degraded, msg)
}

func target(users int, pct float64) int {
	if pct <= 0 || users == 0 {
		return 0
	}
	return max(1, int(math.Floor(float64(users)*pct/100)))
}

// byConnections orders ids by connection count, highest first, ties by id.
func byConnections(ids []string, conns map[string]int) []string {
	out := append([]string(nil), ids...)
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := conns[out[i]], conns[out[j]]
		if ci != cj {
			return ci > cj
		}
		return out[i] < out[j]
	})
	return out
}

func positive(patterns []string, weights map[string]float64) []int {
	var idx []int
	for i, p := range patterns {
		if weights[p] > 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

// split divides n victims over patterns by weight. With enough victims
// every weighted pattern gets one; the rest goes by largest remainder and
// any leftover round-robin from the first pattern.
func split(n int, patterns []string, weights map[string]float64) []int {
	quotas := make([]int, len(patterns))
	active := positive(patterns, weights)
	if len(active) == 0 || n == 0 {
		return quotas
	}

	if n < len(active) {
		// Too few victims for a floor: heaviest patterns first.
		byWeight := append([]int(nil), active...)
		sort.SliceStable(byWeight, func(i, j int) bool {
			return weights[patterns[byWeight[i]]] > weights[patterns[byWeight[j]]]
		})
		for _, k := range byWeight[:n] {
			quotas[k] = 1
		}
		return quotas
	}

	var total float64
	for _, k := range active {
		quotas[k] = 1
		total += weights[patterns[k]]
	}
	rest := n - len(active)
	type frac struct {
		k int
		f float64
	}
	fracs := make([]frac, 0, len(active))
	assigned := 0
	for _, k := range active {
		exact := float64(rest) * weights[patterns[k]] / total
		whole := int(math.Floor(exact))
		quotas[k] += whole
		assigned += whole
		fracs = append(fracs, frac{k, exact - float64(whole)})
	}
	sort.SliceStable(fracs, func(i, j int) bool { return fracs[i].f > fracs[j].f })
	left := rest - assigned
	for i := 0; i < len(fracs) && left > 0; i++ {
		quotas[fracs[i].k]++
		left--
	}
	for i := 0; left > 0; i = (i + 1) % len(active) {
		quotas[active[i]]++
		left--
	}
	return quotas
}
