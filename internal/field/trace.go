package field

// TraceSample is one traced curve: points in order, the field magnitude at
// each point and an auxiliary per-point scalar such as curvature.
type TraceSample struct {
	Points     []Vec3    `json:"points"`
	Magnitudes []float64 `json:"magnitudes"`
	Aux        []float64 `json:"aux,omitempty"`
}

// Len returns the number of points.
func (t TraceSample) Len() int {
	return len(t.Points)
}

// Length returns the polyline length.
func (t TraceSample) Length() float64 {
	var total float64
	for i := 1; i < len(t.Points); i++ {
		total += t.Points[i].Dist(t.Points[i-1])
	}
	return total
}
