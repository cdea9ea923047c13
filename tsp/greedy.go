package tsp

// Greedy builds a nearest-neighbor tour starting at node 0. Ties are
// broken by the lowest node index, so the result is deterministic.
func Greedy(m Matrix) []int {
	n := m.Len()
	if n == 0 {
		return []int{}
	}

	order := make([]int, 1, n)
	visited := make([]bool, n)
	visited[0] = true

	cur := 0
	for len(order) < n {
		next := -1
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			if next == -1 || m.At(cur, j) < m.At(cur, next) {
				next = j
			}
		}
		visited[next] = true
		order = append(order, next)
		cur = next
	}
	return order
}
