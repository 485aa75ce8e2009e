package dedup

// unionFind is an arena-indexed disjoint-set over fact indices.  Parent
// pointers live in a flat array rather than a node graph, so union and find
// are near O(1) with path compression and union by rank.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		// Path halving.
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}

// components returns every root's member indices, members in ascending
// index order for determinism.
func (u *unionFind) components() map[int][]int {
	out := make(map[int][]int)
	for i := range u.parent {
		root := u.find(i)
		out[root] = append(out[root], i)
	}
	return out
}
