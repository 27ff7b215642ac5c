//go:build manifold

// Package manifold provides a CGo binding to the Manifold library
// (https://github.com/elalish/manifold) as a boolean backend. Manifold
// guarantees manifold output, which makes it the robust choice for
// sketched splits of large or messy BIM meshes.
//
// This package requires the Manifold C library (manifoldc) to be installed.
// Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/chazu/kerf/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.BooleanSolidOps = (*Ops)(nil)

// solid wraps a C ManifoldManifold pointer.
type solid struct {
	ptr *C.ManifoldManifold
}

// newSolid wraps ptr with a finalizer that frees it.
func newSolid(ptr *C.ManifoldManifold) *solid {
	s := &solid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *solid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

// Ops implements kernel.BooleanSolidOps with Manifold.
type Ops struct{}

// New returns Manifold-backed boolean ops.
func New() (kernel.BooleanSolidOps, error) {
	return &Ops{}, nil
}

// fromMesh uploads m as a Manifold solid.
func fromMesh(m *kernel.Mesh) (*solid, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifold: %w", err)
	}
	if m.IsEmpty() {
		return nil, fmt.Errorf("manifold: empty mesh: %w", kernel.ErrInvalidInput)
	}
	props := make([]float32, 0, len(m.Vertices)*3)
	for _, v := range m.Vertices {
		props = append(props, float32(v.X), float32(v.Y), float32(v.Z))
	}
	tris := make([]uint32, 0, len(m.Faces)*3)
	for _, f := range m.Faces {
		tris = append(tris, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}

	meshGL := C.manifold_meshgl(C.manifold_alloc_meshgl(),
		(*C.float)(unsafe.Pointer(&props[0])), C.size_t(len(m.Vertices)), C.size_t(3),
		(*C.uint32_t)(unsafe.Pointer(&tris[0])), C.size_t(len(m.Faces)),
	)
	defer C.manifold_delete_meshgl(meshGL)

	s := newSolid(C.manifold_of_meshgl(C.manifold_alloc_manifold(), meshGL))
	if status := C.manifold_status(s.ptr); status != C.MANIFOLD_NO_ERROR {
		return nil, fmt.Errorf("manifold: mesh rejected (status %d): %w", int(status), kernel.ErrInvalidInput)
	}
	return s, nil
}

// toMesh downloads s as an indexed mesh.
func toMesh(s *solid) (*kernel.Mesh, error) {
	meshGL := C.manifold_get_meshgl(C.manifold_alloc_meshgl(), s.ptr)
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))
	if numVert == 0 || numTri == 0 {
		return &kernel.Mesh{}, nil
	}

	// Positions are always the first 3 of numProp properties per vertex.
	numProp := int(C.manifold_meshgl_num_prop(meshGL))
	props := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties((*C.float)(unsafe.Pointer(&props[0])), meshGL)

	tris := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts((*C.uint32_t)(unsafe.Pointer(&tris[0])), meshGL)

	m := &kernel.Mesh{
		Vertices: make([]v3.Vec, numVert),
		Faces:    make([]kernel.Face, numTri),
	}
	for i := range m.Vertices {
		base := i * numProp
		m.Vertices[i] = v3.Vec{X: float64(props[base]), Y: float64(props[base+1]), Z: float64(props[base+2])}
	}
	for i := range m.Faces {
		m.Faces[i] = kernel.Face{int(tris[i*3]), int(tris[i*3+1]), int(tris[i*3+2])}
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifold: output: %w", err)
	}
	return m, nil
}

func (o *Ops) apply(a, b *kernel.Mesh, op func(mem, x, y *C.ManifoldManifold) *C.ManifoldManifold) (*kernel.Mesh, error) {
	sa, err := fromMesh(a)
	if err != nil {
		return nil, err
	}
	sb, err := fromMesh(b)
	if err != nil {
		return nil, err
	}
	out := newSolid(op(C.manifold_alloc_manifold(), sa.ptr, sb.ptr))
	runtime.KeepAlive(sa)
	runtime.KeepAlive(sb)
	return toMesh(out)
}

// Subtract returns a minus b.
func (o *Ops) Subtract(a, b *kernel.Mesh) (*kernel.Mesh, error) {
	return o.apply(a, b, func(mem, x, y *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_difference(mem, x, y)
	})
}

// Intersect returns the part of a inside b.
func (o *Ops) Intersect(a, b *kernel.Mesh) (*kernel.Mesh, error) {
	return o.apply(a, b, func(mem, x, y *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_intersection(mem, x, y)
	})
}
