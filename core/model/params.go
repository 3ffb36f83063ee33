package model

import "sort"

// MapParams is a Params backed by a plain map, for callers outside a grid.
// Names are returned sorted.
type MapParams map[string]float64

// Lookup implements Params.
func (m MapParams) Lookup(name string) (float64, bool) {
	v, ok := m[name]
	return v, ok
}

// Names implements Params.
func (m MapParams) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
