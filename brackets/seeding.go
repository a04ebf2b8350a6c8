package brackets

// NextPowerOfTwo returns the smallest power of two >= n, with a floor of 2.
func NextPowerOfTwo(n int) int {
	size := 2
	for size < n {
		size <<= 1
	}
	return size
}

// SeedingOrder returns the 1-based seed occupying each first-round bracket
// position for a power-of-two bracket size. Seeds 1 and 2 land in opposite
// halves, 3 and 4 fill the remaining quarters, and so on; every first-round
// pair of positions holds seeds summing to size+1.
func SeedingOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		mirror := len(order)*2 + 1
		next := make([]int, 0, len(order)*2)
		for _, seed := range order {
			next = append(next, seed, mirror-seed)
		}
		order = next
	}
	return order
}
