package utils

// CreateRankList creates a slice of ranks based on position.
// The rank starts at 1 for the first item, for lists that are already sorted.
// Counts past the uint16 range saturate at the maximum rank.
func CreateRankList(count int) []uint16 {
	if count <= 0 {
		return []uint16{}
	}
	ranks := make([]uint16, count)
	for i := range ranks {
		if i >= 0xffff {
			ranks[i] = 0xffff
			continue
		}
		ranks[i] = uint16(i + 1)
	}
	return ranks
}
