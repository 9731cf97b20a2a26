// Package route computes pickup tours through bins that need collecting.
package route

import (
	"log/slog"
	"math"
	"slices"

	"github.com/Veraticus/wastewise/internal/model"
)

// DefaultDepot is where every collection tour starts and ends.
var DefaultDepot = model.Location{Lat: 40.71, Lon: -74.00}

// costScale converts Euclidean degrees into integer arc costs.
const costScale = 1000

// maxArcCost bounds a single arc so it stays exact in a float64.
const maxArcCost = 1 << 53

// arcLimit is the exclusive bound on one arc in a matrix of n nodes. A tour
// over n nodes has n arcs, so their sum stays within int64.
func arcLimit(n int) int64 {
	return min(maxArcCost, math.MaxInt64/int64(max(n, 1)))
}

// Optimizer builds round trips with cheapest insertion and an optional 2-opt pass.
// It holds no mutable state and is safe for concurrent use.
type Optimizer struct {
	logger  *slog.Logger
	depot   model.Location
	improve bool
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithDepot overrides DefaultDepot.
func WithDepot(depot model.Location) Option {
	return func(o *Optimizer) { o.depot = depot }
}

// WithImprovement toggles the 2-opt pass that follows construction.
func WithImprovement(enabled bool) Option {
	return func(o *Optimizer) { o.improve = enabled }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Optimizer) { o.logger = logger }
}

// NewOptimizer creates an optimizer. 2-opt is enabled by default.
func NewOptimizer(opts ...Option) *Optimizer {
	o := &Optimizer{depot: DefaultDepot, improve: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Depot returns the configured depot.
func (o *Optimizer) Depot() model.Location {
	return o.depot
}

// Optimize returns a tour starting and ending at the depot that visits every
// location once. Fewer than two locations come back unchanged with distance 0.
// If no tour can be built the input comes back with model.RouteFailedDistance.
func (o *Optimizer) Optimize(locations []model.Location) model.RouteSolution {
	if len(locations) < 2 {
		return model.RouteSolution{Path: slices.Clone(locations), Distance: 0}
	}

	nodes := make([]model.Location, 0, len(locations)+1)
	nodes = append(nodes, o.depot)
	nodes = append(nodes, locations...)

	costs, ok := costMatrix(nodes)
	if !ok {
		o.logger.Warn("route infeasible", "locations", len(locations))
		return model.RouteSolution{Path: slices.Clone(locations), Distance: model.RouteFailedDistance}
	}

	tour := cheapestInsertion(costs)
	if o.improve {
		tour = twoOpt(tour, costs)
	}

	path := make([]model.Location, len(tour))
	for i, n := range tour {
		path[i] = nodes[n]
	}
	total := tourCost(tour, costs)

	o.logger.Debug("route optimized", "stops", len(locations), "cost", total)
	return model.RouteSolution{
		Path:     path,
		Distance: math.Round(float64(total)/costScale*100) / 100,
	}
}

// costMatrix scales Euclidean distances to integers. It fails on non-finite input.
func costMatrix(nodes []model.Location) ([][]int64, bool) {
	limit := arcLimit(len(nodes))
	costs := make([][]int64, len(nodes))
	for i := range nodes {
		if !nodes[i].IsFinite() {
			return nil, false
		}
		costs[i] = make([]int64, len(nodes))
	}
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			d := math.Hypot(nodes[i].Lat-nodes[j].Lat, nodes[i].Lon-nodes[j].Lon) * costScale
			if math.IsNaN(d) || d >= float64(limit) {
				return nil, false
			}
			costs[i][j] = int64(d)
			costs[j][i] = costs[i][j]
		}
	}
	return costs, true
}

// cheapestInsertion starts with depot -> nearest -> depot and repeatedly inserts
// the unrouted node whose best insertion adds the least cost. Ties go to the
// lower node index, then the earlier position.
func cheapestInsertion(costs [][]int64) []int {
	n := len(costs)
	routed := make([]bool, n)
	routed[0] = true

	nearest := 1
	for k := 2; k < n; k++ {
		if costs[0][k] < costs[0][nearest] {
			nearest = k
		}
	}
	tour := []int{0, nearest, 0}
	routed[nearest] = true

	for len(tour) < n+1 {
		bestNode, bestPos := -1, -1
		var bestDelta int64
		for k := 1; k < n; k++ {
			if routed[k] {
				continue
			}
			for p := 0; p < len(tour)-1; p++ {
				a, b := tour[p], tour[p+1]
				delta := costs[a][k] + costs[k][b] - costs[a][b]
				if bestNode == -1 || delta < bestDelta {
					bestNode, bestPos, bestDelta = k, p, delta
				}
			}
		}
		tour = slices.Insert(tour, bestPos+1, bestNode)
		routed[bestNode] = true
	}
	return tour
}

// twoOpt reverses segments while doing so shortens the tour. The depot stays at both ends.
func twoOpt(tour []int, costs [][]int64) []int {
	tour = slices.Clone(tour)
	for improved := true; improved; {
		improved = false
		for i := 1; i < len(tour)-2 && !improved; i++ {
			for j := i + 1; j < len(tour)-1; j++ {
				a, b, c, d := tour[i-1], tour[i], tour[j], tour[j+1]
				if costs[a][c]+costs[b][d] < costs[a][b]+costs[c][d] {
					slices.Reverse(tour[i : j+1])
					improved = true
					break
				}
			}
		}
	}
	return tour
}

func tourCost(tour []int, costs [][]int64) int64 {
	var total int64
	for i := 0; i+1 < len(tour); i++ {
		total += costs[tour[i]][tour[i+1]]
	}
	return total
}
