package sentra

import "math/rand"

// chooseRandom spreads read traffic across the healthy replicas
// reported by the sentinel quorum. The caller guarantees the slice is
// non-empty.
func chooseRandom(endpoints []ResolvedEndpoint) ResolvedEndpoint {
	return endpoints[rand.Intn(len(endpoints))]
}
