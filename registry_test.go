package gshadow_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gshadow"
)

var concave = gshadow.LinkState{Kind: gshadow.LinkConcave}

// uScene returns three walls forming a U open toward -Y around a sized light.
func uScene() (*gshadow.FlatScene, gshadow.Light) {
	walls := []gshadow.Occluder{
		gshadow.NewOccluder(1, v2(0, 0), v2(0, 100)),
		gshadow.NewOccluder(2, v2(0, 100), v2(100, 100)),
		gshadow.NewOccluder(3, v2(100, 100), v2(100, 0)),
	}
	return &gshadow.FlatScene{Walls: walls}, gshadow.NewPointLight(ms3.Vec{X: 50, Y: 50, Z: 25}, 0, 10)
}

func newRegistry(t *testing.T, scene gshadow.Scene, l gshadow.Light) *gshadow.Registry {
	t.Helper()
	r, err := gshadow.NewRegistry(scene, l, gshadow.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func wantLinks(t *testing.T, r *gshadow.Registry, id gshadow.ID, want [2]gshadow.LinkState) {
	t.Helper()
	got, ok := r.Links(id)
	if !ok {
		t.Fatalf("occluder %d not registered", id)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("occluder %d links mismatch (-want +got):\n%s", id, diff)
	}
}

func TestRegistryAddRemove(t *testing.T) {
	scene, l := uScene()
	r := newRegistry(t, scene, l)
	if diff := cmp.Diff([]gshadow.ID{1, 2, 3}, gshadow.SlotIDs(r)); diff != "" {
		t.Fatalf("slot order mismatch (-want +got):\n%s", diff)
	}
	wantLinks(t, r, 1, [2]gshadow.LinkState{{}, concave})
	wantLinks(t, r, 2, [2]gshadow.LinkState{concave, concave})
	wantLinks(t, r, 3, [2]gshadow.LinkState{concave, {}})

	removed, err := r.RemoveOccluder(1)
	if err != nil || !removed {
		t.Fatal("removal failed", err)
	}
	if diff := cmp.Diff([]gshadow.ID{3, 2}, gshadow.SlotIDs(r)); diff != "" {
		t.Errorf("last slot must fill vacated one (-want +got):\n%s", diff)
	}
	if slot, _ := r.Slot(3); slot != 0 {
		t.Error("want occluder 3 moved to slot 0, got", slot)
	}
	wantLinks(t, r, 2, [2]gshadow.LinkState{{}, concave})
	if diff := cmp.Diff([]gshadow.ID{2}, gshadow.Adjacent(r, gshadow.KeyOf(v2(0, 100)))); diff != "" {
		t.Errorf("adjacency mismatch (-want +got):\n%s", diff)
	}
	removed, _ = r.RemoveOccluder(1)
	if removed {
		t.Error("second removal must be a no-op")
	}

	added, err := r.AddOccluder(scene.Walls[0])
	if err != nil || !added {
		t.Fatal("re-adding failed", err)
	}
	added, _ = r.AddOccluder(scene.Walls[0])
	if added {
		t.Error("adding registered occluder must be a no-op")
	}
	wantLinks(t, r, 2, [2]gshadow.LinkState{concave, concave})
	if r.Len() != 3 || r.Pending() {
		t.Errorf("want 3 flushed occluders, got len=%d pending=%v", r.Len(), r.Pending())
	}

	ignored := gshadow.NewOccluder(4, v2(0, -10), v2(100, -10))
	ignored.Sense = gshadow.SenseNone
	added, _ = r.AddOccluder(ignored)
	if added || r.Contains(4) {
		t.Error("occluders that do not interact with light must be excluded")
	}
}

func TestRegistryRefresh(t *testing.T) {
	scene, l := uScene()
	r := newRegistry(t, scene, l)
	changed, err := r.Refresh(scene.Walls)
	if err != nil || changed {
		t.Fatalf("refreshing unchanged scene must be a no-op: changed=%v err=%v", changed, err)
	}

	scene.Walls = scene.Walls[:2]
	changed, err = r.Refresh(scene.Walls)
	if err != nil || !changed {
		t.Fatalf("refresh must remove missing occluder: changed=%v err=%v", changed, err)
	}
	if r.Contains(3) {
		t.Error("occluder 3 still registered")
	}
	fresh := newRegistry(t, scene, l)
	if diff := cmp.Diff(gshadow.SlotIDs(fresh), gshadow.SlotIDs(r)); diff != "" {
		t.Errorf("refreshed slot order differs from fresh registry (-fresh +refreshed):\n%s", diff)
	}
	for _, o := range scene.Walls {
		want, _ := fresh.Links(o.ID)
		wantLinks(t, r, o.ID, want)
		pf, _ := fresh.Params(o.ID)
		pr, _ := r.Params(o.ID)
		if diff := cmp.Diff(pf.Vertices, pr.Vertices); diff != "" {
			t.Errorf("occluder %d shadow geometry mismatch (-fresh +refreshed):\n%s", o.ID, diff)
		}
	}
}

func TestRegistryUpdate(t *testing.T) {
	scene, l := uScene()
	r := newRegistry(t, scene, l)
	changed, _ := r.UpdateOccluder(scene.Walls[1])
	if changed {
		t.Error("identical update must be a no-op")
	}

	moved := scene.Walls[1]
	moved.A, moved.B = v2(0, 200), v2(100, 200)
	changed, err := r.UpdateOccluder(moved)
	if err != nil || !changed {
		t.Fatal("update failed", err)
	}
	wantLinks(t, r, 1, [2]gshadow.LinkState{})
	wantLinks(t, r, 2, [2]gshadow.LinkState{})
	wantLinks(t, r, 3, [2]gshadow.LinkState{})
	if diff := cmp.Diff([]gshadow.ID{1}, gshadow.Adjacent(r, gshadow.KeyOf(v2(0, 100)))); diff != "" {
		t.Errorf("adjacency mismatch (-want +got):\n%s", diff)
	}

	moved.Open = true
	changed, _ = r.UpdateOccluder(moved)
	if !changed || r.Contains(2) {
		t.Error("opened occluder must be removed")
	}
	moved.Open = false
	moved.A, moved.B = scene.Walls[1].A, scene.Walls[1].B
	changed, _ = r.UpdateOccluder(moved)
	if !changed || !r.Contains(2) {
		t.Error("closed occluder must be added")
	}
	wantLinks(t, r, 2, [2]gshadow.LinkState{concave, concave})
}

func TestRegistrySetLight(t *testing.T) {
	scene := &gshadow.FlatScene{Walls: []gshadow.Occluder{
		gshadow.NewOccluder(1, v2(10, -10), v2(10, 10)),
		gshadow.NewOccluder(2, v2(200, -10), v2(200, 10)),
	}}
	l := gshadow.NewPointLight(ms3.Vec{Z: 10}, 50, 0)
	r := newRegistry(t, scene, l)
	if r.Len() != 1 || !r.Contains(1) {
		t.Fatal("only the occluder within the light radius must be registered")
	}
	cs, err := r.SetLight(l)
	if err != nil || cs != 0 {
		t.Errorf("unchanged light must be a no-op: changes=%v err=%v", cs, err)
	}

	l.Radius = 500
	cs, err = r.SetLight(l)
	if err != nil {
		t.Fatal(err)
	}
	if cs != gshadow.ChangedRadius {
		t.Errorf("want radius change only, got %b", cs)
	}
	if r.Len() != 2 {
		t.Error("larger radius must include far occluder, got len", r.Len())
	}

	l.Size = 3
	cs, _ = r.SetLight(l)
	if cs != gshadow.ChangedSize || r.Len() != 2 || r.Pending() {
		t.Errorf("size change: changes=%b len=%d pending=%v", cs, r.Len(), r.Pending())
	}
	before := r.LightFractionAt(v2(300, 0), 0)

	l.Position = ms3.Vec{X: 400, Z: 10}
	cs, _ = r.SetLight(l)
	if !cs.Has(gshadow.ChangedPosition) {
		t.Error("want position change")
	}
	if after := r.LightFractionAt(v2(300, 0), 0); before != 0 || after != 1 {
		t.Errorf("moving light past sample must light it: before=%g after=%g", before, after)
	}
}

func TestRegistryInvariant(t *testing.T) {
	scene, l := uScene()
	r := newRegistry(t, scene, l)
	gshadow.CorruptBuffers(r)
	added, err := r.AddOccluder(gshadow.NewOccluder(5, v2(0, -50), v2(100, -50)))
	if !errors.Is(err, gshadow.ErrInvariant) || added {
		t.Fatalf("want invariant violation, got added=%v err=%v", added, err)
	}
	if r.Len() != 3 || r.Contains(5) {
		t.Error("rejected mutation must leave registry unchanged")
	}
	_, err = r.RemoveOccluder(1)
	if !errors.Is(err, gshadow.ErrInvariant) || !r.Contains(1) {
		t.Error("removal must be rejected on corrupted registry", err)
	}
	if !errors.Is(r.Err(), gshadow.ErrInvariant) {
		t.Error("want accumulated invariant errors, got", r.Err())
	}
	r.ClearErrors()
	if r.Err() != nil {
		t.Error("errors not cleared", r.Err())
	}
}

func TestNewRegistryConfig(t *testing.T) {
	scene, l := uScene()
	cfg := gshadow.DefaultConfig()
	cfg.LimitedFloor = 2
	_, err := gshadow.NewRegistry(scene, l, cfg)
	if err == nil {
		t.Error("want error for limited floor out of range")
	}
	cfg = gshadow.DefaultConfig()
	cfg.LimitedOpacity = -1
	_, err = gshadow.NewRegistry(scene, l, cfg)
	if err == nil {
		t.Error("want error for limited opacity out of range")
	}
}

func TestRegistryShaderObjects(t *testing.T) {
	scene, l := uScene()
	r := newRegistry(t, scene, l)
	objs, err := r.ShaderObjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 8 {
		t.Fatal("want 8 attribute buffers, got", len(objs))
	}
	for _, obj := range objs {
		if obj.Len() != r.Len() {
			t.Errorf("buffer %s: want %d elements, got %d", obj.Name, r.Len(), obj.Len())
		}
	}
	decls, err := r.AppendBufferDecls(nil, 3)
	if err != nil {
		t.Fatal(err)
	}
	s := string(decls)
	for _, want := range []string{
		"const int occCount=3;\n",
		"const vec3 lightPos=vec3(50.0,50.0,25.0);\n",
		"layout(std430,binding=3) readonly buffer B_occEndpoints {\n\tvec4 occEndpoints[];\n};\n",
		"uint occSense[];",
		"binding=10",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("declarations missing %q:\n%s", want, s)
		}
	}

	tris := r.AppendTriangles(nil)
	if len(tris) != 3 {
		t.Fatal("want one triangle per occluder, got", len(tris))
	}
	for _, tri := range tris {
		v := tri.Vertices
		if gshadow.Orientation(v[0], v[1], v[2]) <= 0 {
			t.Errorf("slot %d triangle not counter-clockwise: %v", tri.Slot, v)
		}
	}

	empty := newRegistry(t, &gshadow.FlatScene{}, l)
	objs, err = empty.ShaderObjects()
	if err != nil || objs != nil {
		t.Errorf("empty registry: want no buffers, got %d err=%v", len(objs), err)
	}
}

func TestObstructed(t *testing.T) {
	scene, l := uScene()
	r := newRegistry(t, scene, l)
	from := ms3.Vec{X: 50, Y: 50, Z: 5}
	to := ms3.Vec{X: -50, Y: 50, Z: 5}
	if !r.Obstructed(from, to) {
		t.Error("segment crossing wall 1 must be obstructed")
	}
	if r.Obstructed(from, to, 1) {
		t.Error("skipped wall must not obstruct")
	}
	if r.Obstructed(from, ms3.Vec{X: 50, Y: -50, Z: 5}) {
		t.Error("segment through open side must not be obstructed")
	}
}

func TestRegistryAddRemoveRestores(t *testing.T) {
	scene, l := uScene()
	r := newRegistry(t, scene, l)
	snapshot := func() map[string][]byte {
		objs, err := r.ShaderObjects()
		if err != nil {
			t.Fatal(err)
		}
		snap := make(map[string][]byte, len(objs))
		for _, obj := range objs {
			snap[obj.Name] = bytes.Clone(obj.Bytes())
		}
		return snap
	}
	before := snapshot()
	added, err := r.AddOccluder(gshadow.NewOccluder(4, v2(40, 20), v2(60, 20)))
	if err != nil || !added {
		t.Fatal("add failed", err)
	}
	if r.Len() != 4 {
		t.Fatal("want 4 slots after add, got", r.Len())
	}
	removed, err := r.RemoveOccluder(4)
	if err != nil || !removed {
		t.Fatal("remove failed", err)
	}
	if r.Len() != 3 {
		t.Fatal("want 3 slots after remove, got", r.Len())
	}
	if diff := cmp.Diff(before, snapshot()); diff != "" {
		t.Errorf("buffers not restored after add and remove (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]gshadow.ID{1, 2, 3}, gshadow.SlotIDs(r)); diff != "" {
		t.Errorf("slot order mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryLimitedCorner(t *testing.T) {
	// o meets limited wall n at (0,100). Wall x hides the corner's top from the light.
	o := gshadow.NewOccluder(1, v2(0, 0), v2(0, 100))
	n := gshadow.NewOccluder(2, v2(0, 100), v2(100, 100))
	n.Sense = gshadow.SenseLimited
	x := gshadow.NewOccluder(3, v2(20, 70), v2(20, 90))
	l := gshadow.NewPointLight(ms3.Vec{X: 50, Y: 50, Z: 25}, 0, 10)

	batched := newRegistry(t, &gshadow.FlatScene{Walls: []gshadow.Occluder{x, o, n}}, l)
	single := newRegistry(t, &gshadow.FlatScene{}, l)
	for _, occ := range []gshadow.Occluder{o, n, x} {
		if _, err := single.AddOccluder(occ); err != nil {
			t.Fatal(err)
		}
	}
	for _, id := range []gshadow.ID{1, 2} {
		want, _ := batched.Links(id)
		wantLinks(t, single, id, want)
	}
	wantLinks(t, batched, 1, [2]gshadow.LinkState{{}, concave})

	// Moving then removing the hiding wall unseals the corner.
	moved := x
	moved.A, moved.B = v2(80, 20), v2(80, 40)
	if _, err := single.UpdateOccluder(moved); err != nil {
		t.Fatal(err)
	}
	wantLinks(t, single, 1, [2]gshadow.LinkState{{}, {}})
	if _, err := batched.RemoveOccluder(x.ID); err != nil {
		t.Fatal(err)
	}
	wantLinks(t, batched, 1, [2]gshadow.LinkState{{}, {}})
	if batched.Pending() || single.Pending() {
		t.Error("links re-resolved without flushing")
	}

	// Re-adding the hiding wall seals it again.
	if _, err := batched.AddOccluder(x); err != nil {
		t.Fatal(err)
	}
	wantLinks(t, batched, 1, [2]gshadow.LinkState{{}, concave})
}
