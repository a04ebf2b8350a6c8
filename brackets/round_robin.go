package brackets

// RoundRobinPairings returns every unordered pair of the given entry ids,
// one match per pair: n*(n-1)/2 pairings for n entries. Order is
// deterministic, first entry against each later one, then the second, and
// so on.
func RoundRobinPairings(entryIDs []int) [][2]int {
	pairs := make([][2]int, 0, len(entryIDs)*(len(entryIDs)-1)/2)
	for i := 0; i < len(entryIDs); i++ {
		for j := i + 1; j < len(entryIDs); j++ {
			pairs = append(pairs, [2]int{entryIDs[i], entryIDs[j]})
		}
	}
	return pairs
}
