// Package tessellate turns the visible solids of a scene into flat
// render buffers. One RenderMesh is produced per solid.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/scene"
)

// FeatureAngle is the crease angle above which an edge is drawn as a
// silhouette line.
const FeatureAngle = 20 * math.Pi / 180

// Palette assigns distinct colors to solids by handle.
var Palette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

const (
	selectedColor  = "#F1C40F"
	highlightColor = "#F7DC6F"
)

// RenderMesh is the JSON form of one solid for the viewport. Each triangle
// carries its own three vertices. Corners on smooth surfaces take the
// averaged vertex normal; corners on a crease keep the face normal.
type RenderMesh struct {
	Handle   int       `json:"handle"`
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	// Edges holds silhouette line segments as pairs of xyz points.
	Edges    []float32 `json:"edges"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
	Volume   float64   `json:"volume"`
	Ratio    float64   `json:"ratio"`
}

// PartName returns the display name of sol.
func PartName(sol scene.Solid) string {
	if sol.Element == nil {
		return sol.SourceElementID
	}
	return fmt.Sprintf("%s/%s#%d", sol.SourceElementID, sol.Element.PartType, sol.Handle)
}

// Color returns the display color of sol given its display state.
func Color(sol scene.Solid, d scene.Display) string {
	switch {
	case d.Selected:
		return selectedColor
	case d.Highlight:
		return highlightColor
	}
	return Palette[(int(sol.Handle)-1)%len(Palette)]
}

// Mesh flattens m into render buffers.
func Mesh(m *kernel.Mesh) RenderMesh {
	var rm RenderMesh
	rm.Vertices = make([]float32, 0, len(m.Faces)*9)
	rm.Normals = make([]float32, 0, len(m.Faces)*9)
	rm.Indices = make([]uint32, 0, len(m.Faces)*3)
	smooth := kernel.ComputeNormals(m)
	crease := math.Cos(FeatureAngle)
	for i, f := range m.Faces {
		fn := m.FaceNormal(i)
		for _, idx := range f {
			v := m.Vertices[idx]
			n := fn
			if smooth[idx].Dot(fn) >= crease {
				n = smooth[idx]
			}
			rm.Vertices = append(rm.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			rm.Normals = append(rm.Normals, float32(n.X), float32(n.Y), float32(n.Z))
			rm.Indices = append(rm.Indices, uint32(len(rm.Indices)))
		}
	}
	for _, e := range kernel.FeatureEdges(m, FeatureAngle) {
		a, b := m.Vertices[e.A], m.Vertices[e.B]
		rm.Edges = append(rm.Edges,
			float32(a.X), float32(a.Y), float32(a.Z),
			float32(b.X), float32(b.Y), float32(b.Z))
	}
	return rm
}

// Tessellate returns render meshes for the visible solids of sc, in
// handle order. It never modifies the scene.
func Tessellate(sc *scene.Scene) []RenderMesh {
	if sc == nil {
		return nil
	}
	sols, disp := sc.Visible()
	out := make([]RenderMesh, 0, len(sols))
	for i, sol := range sols {
		if sol.Mesh.IsEmpty() {
			continue
		}
		rm := Mesh(sol.Mesh)
		rm.Handle = int(sol.Handle)
		rm.PartName = PartName(sol)
		rm.Color = Color(sol, disp[i])
		if sol.Element != nil {
			rm.Volume = sol.Element.Volume
			rm.Ratio = sol.Element.VolumeRatio
		} else {
			rm.Volume = kernel.Volume(sol.Mesh)
			rm.Ratio = 1
		}
		out = append(out, rm)
	}
	return out
}
