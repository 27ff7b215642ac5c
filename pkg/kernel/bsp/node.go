package bsp

// Node is a BSP tree node. Polygons lie in the node's plane; front and
// back hold the subtrees on either side.
type Node struct {
	plane    *Plane
	front    *Node
	back     *Node
	polygons []Polygon
	eps      float64
}

// NewNode builds a tree from polygons.
func NewNode(polygons []Polygon, eps float64) *Node {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	n := &Node{eps: eps}
	n.build(polygons)
	return n
}

func (n *Node) clone() *Node {
	c := &Node{eps: n.eps, polygons: make([]Polygon, len(n.polygons))}
	if n.plane != nil {
		pl := *n.plane
		c.plane = &pl
	}
	if n.front != nil {
		c.front = n.front.clone()
	}
	if n.back != nil {
		c.back = n.back.clone()
	}
	for i, p := range n.polygons {
		c.polygons[i] = p.clone()
	}
	return c
}

// invert converts solid space to empty space and back.
func (n *Node) invert() {
	for i := range n.polygons {
		n.polygons[i].flip()
	}
	if n.plane != nil {
		n.plane.flip()
	}
	if n.front != nil {
		n.front.invert()
	}
	if n.back != nil {
		n.back.invert()
	}
	n.front, n.back = n.back, n.front
}

// clipPolygons removes the parts of polygons inside this tree's solid.
func (n *Node) clipPolygons(polygons []Polygon) []Polygon {
	if n.plane == nil {
		return append([]Polygon(nil), polygons...)
	}
	var fronts, backs []Polygon
	for _, p := range polygons {
		n.plane.splitPolygon(p, n.eps, &fronts, &backs, &fronts, &backs)
	}
	if n.front != nil {
		fronts = n.front.clipPolygons(fronts)
	}
	if n.back != nil {
		backs = n.back.clipPolygons(backs)
	} else {
		backs = nil
	}
	return append(fronts, backs...)
}

// clipTo removes the parts of this tree's polygons inside other.
func (n *Node) clipTo(other *Node) {
	n.polygons = other.clipPolygons(n.polygons)
	if n.front != nil {
		n.front.clipTo(other)
	}
	if n.back != nil {
		n.back.clipTo(other)
	}
}

// allPolygons returns every polygon in the tree.
func (n *Node) allPolygons() []Polygon {
	out := append([]Polygon(nil), n.polygons...)
	if n.front != nil {
		out = append(out, n.front.allPolygons()...)
	}
	if n.back != nil {
		out = append(out, n.back.allPolygons()...)
	}
	return out
}

// build inserts polygons, choosing the first one's plane as the
// partition when the node has none.
func (n *Node) build(polygons []Polygon) {
	if len(polygons) == 0 {
		return
	}
	if n.plane == nil {
		pl := polygons[0].Plane
		n.plane = &pl
	}
	var fronts, backs []Polygon
	for _, p := range polygons {
		n.plane.splitPolygon(p, n.eps, &n.polygons, &n.polygons, &fronts, &backs)
	}
	if len(fronts) > 0 {
		if n.front == nil {
			n.front = &Node{eps: n.eps}
		}
		n.front.build(fronts)
	}
	if len(backs) > 0 {
		if n.back == nil {
			n.back = &Node{eps: n.eps}
		}
		n.back.build(backs)
	}
}
