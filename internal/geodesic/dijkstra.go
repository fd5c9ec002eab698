package geodesic

import (
	"container/heap"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/roach88/g3d/internal/field"
)

// Sentinel errors.
var (
	ErrEmptyMesh = errors.New("geodesic: mesh has no vertices")
	ErrBadMesh   = errors.New("geodesic: triangle references a missing vertex")
	ErrNoPath    = errors.New("geodesic: no path between points")
)

// Option configures a Pathfinder.
type Option func(*Pathfinder)

// WithLogger sets the logger used for search statistics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pathfinder) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pathfinder answers shortest-path queries over one mesh.
type Pathfinder struct {
	mesh   *Mesh
	graph  graph
	logger *slog.Logger
}

// NewPathfinder builds the edge graph of m. Vertices sharing a position
// are one node; Path.Vertices indexes the welded mesh returned by Mesh.
func NewPathfinder(m *Mesh, opts ...Option) (*Pathfinder, error) {
	if m == nil || len(m.Vertices) == 0 {
		return nil, ErrEmptyMesh
	}
	for i, t := range m.Triangles {
		for _, v := range t {
			if v < 0 || v >= len(m.Vertices) {
				return nil, fmt.Errorf("%w: triangle %d vertex %d", ErrBadMesh, i, v)
			}
		}
	}
	m = weld(m)
	p := &Pathfinder{
		mesh:   m,
		graph:  buildGraph(m),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Mesh returns the mesh searched, with coincident vertices merged.
func (p *Pathfinder) Mesh() *Mesh { return p.mesh }

// Nearest returns the index of the vertex closest to q and its distance,
// by linear scan.
func (p *Pathfinder) Nearest(q field.Vec3) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for i, v := range p.mesh.Vertices {
		if d := v.Dist(q); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// Path is a shortest-path result. Points begins and ends with the query
// points themselves; Distance includes the two snapping legs.
type Path struct {
	Vertices      []int        `json:"vertices"`
	Points        []field.Vec3 `json:"points"`
	GraphDistance float64      `json:"graph_distance"`
	SnapStart     float64      `json:"snap_start"`
	SnapEnd       float64      `json:"snap_end"`
	Distance      float64      `json:"distance"`
}

// Trace converts the path to a TraceSample. Aux holds cumulative distance.
func (r *Path) Trace() field.TraceSample {
	tr := field.TraceSample{
		Points:     r.Points,
		Magnitudes: make([]float64, len(r.Points)),
		Aux:        make([]float64, len(r.Points)),
	}
	for i := 1; i < len(r.Points); i++ {
		tr.Aux[i] = tr.Aux[i-1] + r.Points[i].Dist(r.Points[i-1])
	}
	return tr
}

// Path finds the shortest path between the vertices nearest to from and
// to.
func (p *Pathfinder) Path(from, to field.Vec3) (*Path, error) {
	src, snapStart := p.Nearest(from)
	dst, snapEnd := p.Nearest(to)

	verts, dist, err := p.shortest(src, dst)
	if err != nil {
		return nil, err
	}

	points := make([]field.Vec3, 0, len(verts)+2)
	points = append(points, from)
	for _, v := range verts {
		points = append(points, p.mesh.Vertices[v])
	}
	points = append(points, to)

	return &Path{
		Vertices:      verts,
		Points:        points,
		GraphDistance: dist,
		SnapStart:     snapStart,
		SnapEnd:       snapEnd,
		Distance:      dist + snapStart + snapEnd,
	}, nil
}

// shortest runs Dijkstra from src, stopping once dst is settled, and
// returns the vertex path and its length.
func (p *Pathfinder) shortest(src, dst int) ([]int, float64, error) {
	n := len(p.graph)
	dist := make([]float64, n)
	prev := make([]int, n)
	visited := make([]bool, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}
	dist[src] = 0

	pq := make(nodePQ, 0, n)
	heap.Push(&pq, &nodeItem{id: src, dist: 0})

	settled := 0
	for pq.Len() > 0 {
		item := heap.Pop(&pq).(*nodeItem)
		u := item.id
		if visited[u] {
			continue
		}
		visited[u] = true
		settled++
		if u == dst {
			break
		}
		for _, e := range p.graph[u] {
			nd := dist[u] + e.weight
			if nd >= dist[e.to] {
				continue
			}
			dist[e.to] = nd
			prev[e.to] = u
			heap.Push(&pq, &nodeItem{id: e.to, dist: nd})
		}
	}
	p.logger.Debug("dijkstra finished", "vertices", n, "settled", settled)

	if !visited[dst] {
		return nil, 0, ErrNoPath
	}

	var path []int
	for v := dst; v != -1; v = prev[v] {
		path = append(path, v)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, dist[dst], nil
}

// nodeItem is a heap entry. Stale entries left by later improvements are
// skipped when popped.
type nodeItem struct {
	id   int
	dist float64
}

type nodePQ []*nodeItem

func (pq nodePQ) Len() int           { return len(pq) }
func (pq nodePQ) Less(i, j int) bool { return pq[i].dist < pq[j].dist }
func (pq nodePQ) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }

func (pq *nodePQ) Push(x any) {
	*pq = append(*pq, x.(*nodeItem))
}

func (pq *nodePQ) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}
