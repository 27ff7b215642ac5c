package lineage

// Quantities are the measured amounts of a source element (concrete m³,
// formwork m², reinforcement kg) that its splits share by volume.
type Quantities map[string]float64

// Allocate returns the share of q belonging to a split with the given
// volume ratio.
func (q Quantities) Allocate(ratio float64) Quantities {
	out := make(Quantities, len(q))
	for k, v := range q {
		out[k] = v * ratio
	}
	return out
}

// AllocateElement returns the share of q belonging to e.
func (q Quantities) AllocateElement(e *SplitElement) Quantities {
	return q.Allocate(e.VolumeRatio)
}
