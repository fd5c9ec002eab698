// Package geodesic approximates shortest surface-following paths by running
// Dijkstra's algorithm over the edge graph of a triangulated surface sample.
package geodesic

import (
	"github.com/roach88/g3d/internal/field"
)

// Mesh is a triangulated surface. Triangles index into Vertices.
type Mesh struct {
	Vertices  []field.Vec3 `json:"vertices"`
	Triangles [][3]int     `json:"triangles"`
}

// SampleSurface samples z = f(x, y) on an (n+1)×(n+1) grid over the planar
// domain and splits every cell into two triangles. Non-finite samples are
// stored as z = 0.
func SampleSurface(f field.ScalarFunc, b field.Bounds, n int) *Mesh {
	if n < 1 {
		n = 1
	}
	f = field.SafeScalar(f, 0)
	m := &Mesh{
		Vertices:  make([]field.Vec3, 0, (n+1)*(n+1)),
		Triangles: make([][3]int, 0, 2*n*n),
	}
	for j := 0; j <= n; j++ {
		y := b.Y.Lerp(float64(j) / float64(n))
		for i := 0; i <= n; i++ {
			x := b.X.Lerp(float64(i) / float64(n))
			m.Vertices = append(m.Vertices, field.Vec3{X: x, Y: y, Z: f(x, y)})
		}
	}
	idx := func(i, j int) int { return j*(n+1) + i }
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			bl, br := idx(i, j), idx(i+1, j)
			tl, tr := idx(i, j+1), idx(i+1, j+1)
			m.Triangles = append(m.Triangles, [3]int{bl, br, tr}, [3]int{bl, tr, tl})
		}
	}
	return m
}

// weld merges vertices at identical positions and remaps the triangles,
// so an unindexed triangle soup becomes one connected mesh. Meshes without
// duplicates are returned unchanged.
func weld(m *Mesh) *Mesh {
	index := make(map[field.Vec3]int, len(m.Vertices))
	remap := make([]int, len(m.Vertices))
	var verts []field.Vec3
	for i, v := range m.Vertices {
		k, ok := index[v]
		if !ok {
			k = len(verts)
			index[v] = k
			verts = append(verts, v)
		}
		remap[i] = k
	}
	if len(verts) == len(m.Vertices) {
		return m
	}
	out := &Mesh{Vertices: verts, Triangles: make([][3]int, len(m.Triangles))}
	for i, t := range m.Triangles {
		out.Triangles[i] = [3]int{remap[t[0]], remap[t[1]], remap[t[2]]}
	}
	return out
}

type edge struct {
	to     int
	weight float64
}

// graph is an adjacency list over mesh vertices.
type graph [][]edge

// buildGraph inserts every triangle side in both directions, weighted by
// the Euclidean distance between its endpoints. Sides shared by two
// triangles are inserted twice; the duplicate never wins a relaxation.
func buildGraph(m *Mesh) graph {
	g := make(graph, len(m.Vertices))
	add := func(a, b int) {
		w := m.Vertices[a].Dist(m.Vertices[b])
		g[a] = append(g[a], edge{to: b, weight: w})
		g[b] = append(g[b], edge{to: a, weight: w})
	}
	for _, t := range m.Triangles {
		add(t[0], t[1])
		add(t[1], t[2])
		add(t[2], t[0])
	}
	return g
}
