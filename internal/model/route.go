package model

// RouteFailedDistance marks a route the optimizer could not solve.
const RouteFailedDistance = -1

// RouteSolution is an ordered round trip starting and ending at the depot.
type RouteSolution struct {
	Path     []Location `json:"path"`
	Distance float64    `json:"distance"`
}

// Failed reports whether the optimizer gave up on this route.
func (r RouteSolution) Failed() bool {
	return r.Distance == RouteFailedDistance
}
