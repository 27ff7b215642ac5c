package lineage

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/chazu/kerf/pkg/clip"
	"github.com/chazu/kerf/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// slab is the part of the unit cube between z0 and z1.
func slab(z0, z1 float64) *kernel.Mesh {
	return kernel.Box(v3.Vec{Z: z0}, v3.Vec{X: 1, Y: 1, Z: z1})
}

func approx(a, b float64) bool { return math.Abs(a-b) <= 1e-9 }

func TestTrackOriginal(t *testing.T) {
	target := Target{Mesh: kernel.UnitCube(), SourceElementID: "col-1"}
	got, err := Tracker{}.Track(target, slab(0, 0.5), slab(0.5, 1), PlaneCut(clip.AxisZ, 50))
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	for i, want := range []PartType{PartBottom, PartTop} {
		e := got[i]
		if e.PartType != want {
			t.Errorf("part %d type = %q, want %q", i, e.PartType, want)
		}
		if !approx(e.RootVolume, 1) || !approx(e.Volume, 0.5) || !approx(e.VolumeRatio, 0.5) {
			t.Errorf("part %d volumes = root %v vol %v ratio %v, want 1/0.5/0.5", i, e.RootVolume, e.Volume, e.VolumeRatio)
		}
		if e.ParentSplitID != nil || !e.IsRoot() {
			t.Errorf("part %d of an original should have no parent", i)
		}
		if e.SourceElementID != "col-1" {
			t.Errorf("part %d source = %q, want col-1", i, e.SourceElementID)
		}
		if *e.PlaneAxis != clip.AxisZ || *e.PlanePosition != 50 {
			t.Errorf("part %d plane = %v %v, want z 50", i, *e.PlaneAxis, *e.PlanePosition)
		}
	}
}

func TestTrackUsesStoredVolume(t *testing.T) {
	target := Target{Mesh: kernel.UnitCube(), SourceElementID: "s", Volume: 2}
	got, err := Tracker{}.Track(target, slab(0, 0.5), slab(0.5, 1), PlaneCut(clip.AxisZ, 50))
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	if !approx(got[0].RootVolume, 2) || !approx(got[0].VolumeRatio, 0.25) {
		t.Errorf("root %v ratio %v, want 2 and 0.25", got[0].RootVolume, got[0].VolumeRatio)
	}
}

func TestRatioIsAgainstRootWhenNested(t *testing.T) {
	tr := Tracker{}
	first, err := tr.Track(Target{Mesh: kernel.UnitCube(), SourceElementID: "s"}, slab(0, 0.5), slab(0.5, 1), PlaneCut(clip.AxisZ, 50))
	if err != nil {
		t.Fatal(err)
	}
	first[0].ID = "bottom-1"

	second, err := tr.Track(FromElement(first[0], 7), slab(0, 0.25), slab(0.25, 0.5), PlaneCut(clip.AxisZ, 50))
	if err != nil {
		t.Fatalf("Track(nested) error = %v", err)
	}
	for i, e := range second {
		if !approx(e.RootVolume, 1) {
			t.Errorf("nested part %d root = %v, want 1", i, e.RootVolume)
		}
		if !approx(e.VolumeRatio, 0.25) {
			t.Errorf("nested part %d ratio = %v, want 0.25 (against root, not parent)", i, e.VolumeRatio)
		}
		if e.ParentSplitID == nil || *e.ParentSplitID != "bottom-1" {
			t.Errorf("nested part %d parent = %v, want bottom-1", i, e.ParentSplitID)
		}
		if e.ParentHandle != 0 {
			t.Errorf("nested part %d parent handle = %d, want none once the parent has an id", i, e.ParentHandle)
		}
	}
}

func TestFromPendingElement(t *testing.T) {
	e := &SplitElement{SourceElementID: "s", RootVolume: 1, Volume: 0.5, Geometry: slab(0, 0.5)}
	tg := FromElement(e, 3)
	if tg.ParentSplitID != nil || tg.ParentHandle != 3 {
		t.Errorf("FromElement(pending) = parent %v handle %d, want nil and 3", tg.ParentSplitID, tg.ParentHandle)
	}
}

func TestTrackRejectsDegenerate(t *testing.T) {
	flat := &kernel.Mesh{Vertices: []v3.Vec{{}, {X: 1}, {Y: 1}}, Faces: []kernel.Face{{0, 1, 2}, {0, 2, 1}}}
	tests := []struct {
		name   string
		target Target
		a, b   *kernel.Mesh
		want   error
	}{
		{"zero part", Target{Mesh: kernel.UnitCube(), SourceElementID: "s"}, slab(0, 1), flat, kernel.ErrDegenerateGeometry},
		{"zero source", Target{Mesh: flat, SourceElementID: "s"}, slab(0, 1), slab(0, 1), kernel.ErrDegenerateGeometry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tracker{}.Track(tt.target, tt.a, tt.b, PlaneCut(clip.AxisZ, 50))
			if !errors.Is(err, tt.want) {
				t.Errorf("Track() error = %v, want %v", err, tt.want)
			}
		})
	}
	_, err := Tracker{}.Track(Target{Mesh: kernel.UnitCube()}, slab(0, 1), slab(0, 1), Cut{Method: "laser"})
	if !errors.Is(err, kernel.ErrInvalidInput) {
		t.Errorf("Track(unknown method) error = %v, want ErrInvalidInput", err)
	}
}

func TestSketchPartTypes(t *testing.T) {
	cut := SketchCut([][3]float64{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}}, [3]float64{0, 0, 1})
	got, err := Tracker{}.Track(Target{Mesh: kernel.UnitCube(), SourceElementID: "s"}, slab(0, 0.75), slab(0.75, 1), cut)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].PartType != PartRemainder || got[1].PartType != PartExtracted {
		t.Errorf("part types = %q, %q, want remainder, extracted", got[0].PartType, got[1].PartType)
	}
	if got[0].Method != MethodSketch || len(got[0].SketchPoints) != 3 {
		t.Errorf("sketch record = %q with %d points", got[0].Method, len(got[0].SketchPoints))
	}
}

func TestElementJSONFields(t *testing.T) {
	parent := "p-1"
	axis := clip.AxisY
	pos := 25.0
	e := &SplitElement{
		ID: "e-1", ParentSplitID: &parent, SourceElementID: "s", Geometry: kernel.UnitCube(),
		RootVolume: 2, Volume: 1, VolumeRatio: 0.5, Method: MethodPlane, PartType: PartTop,
		PlaneAxis: &axis, PlanePosition: &pos, ParentHandle: 9,
	}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"id", "parent_split_id", "source_element_id", "geometry", "root_volume", "volume", "volume_ratio", "method", "part_type", "plane_axis", "plane_position"} {
		if _, ok := raw[k]; !ok {
			t.Errorf("encoded element lacks %q", k)
		}
	}
	if raw["plane_axis"] != "y" {
		t.Errorf("plane_axis = %v, want \"y\"", raw["plane_axis"])
	}
	if _, ok := raw["ParentHandle"]; ok {
		t.Error("ParentHandle leaked into the persisted record")
	}

	var back SplitElement
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.Geometry.TriangleCount() != 12 || *back.PlaneAxis != clip.AxisY {
		t.Errorf("decoded element = %+v", back)
	}
}

func TestAllocate(t *testing.T) {
	q := Quantities{"concrete_m3": 10, "formwork_m2": 40}
	got := q.AllocateElement(&SplitElement{VolumeRatio: 0.25})
	if !approx(got["concrete_m3"], 2.5) || !approx(got["formwork_m2"], 10) {
		t.Errorf("Allocate(0.25) = %v", got)
	}
	if q["concrete_m3"] != 10 {
		t.Error("Allocate mutated the source quantities")
	}
}
