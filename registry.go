package gshadow

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gshadow/glbuild"
)

// Scene is the registry's read-only view of the host scene.
type Scene interface {
	// Occluders returns every occluder in the scene.
	Occluders() []Occluder
	// TerrainElevationAt returns the terrain elevation at scene position (x, y).
	TerrainElevationAt(x, y float32) float32
	// CanvasMinElevation returns the lowest terrain elevation in the scene.
	CanvasMinElevation() float32
}

// FlatScene is a [Scene] with constant terrain elevation.
type FlatScene struct {
	Walls     []Occluder
	Elevation float32
}

func (fs *FlatScene) Occluders() []Occluder                   { return fs.Walls }
func (fs *FlatScene) TerrainElevationAt(x, y float32) float32 { return fs.Elevation }
func (fs *FlatScene) CanvasMinElevation() float32             { return fs.Elevation }

type slot struct {
	occ    Occluder
	keys   [2]EndpointKey
	links  [2]LinkState
	atten  Attenuation
	params ShadowParams
	// sightDep is set when a link depends on visibility through other occluders.
	sightDep bool
}

// Registry maintains the occluders relevant to a single light along with their
// corner links, shadow parameters and GPU attribute buffers. Scene changes must be
// notified explicitly. A Registry is not safe for concurrent mutation.
type Registry struct {
	cfg   Config
	light Light
	scene Scene
	slots []slot
	index map[ID]int
	// adj maps an endpoint key to the registered occluders touching it, in insertion order.
	adj   map[EndpointKey][]ID
	buf   attribs
	dirty struct{ lo, hi int }
	// sightStale is set when occluder geometry changed since sight-dependent links were resolved.
	sightStale bool
	batch      int
	evals atomic.Uint64

	accumErrs []error
}

// NewRegistry creates a registry for light l and fills it with the scene's included occluders.
func NewRegistry(scene Scene, l Light, cfg Config) (*Registry, error) {
	if scene == nil {
		scene = &FlatScene{}
	}
	if cfg.LimitedFloor < 0 || cfg.LimitedFloor > 1 {
		return nil, errors.New("limited floor must be in [0,1]")
	} else if cfg.LimitedOpacity < 0 || cfg.LimitedOpacity > 1 {
		return nil, errors.New("limited opacity must be in [0,1]")
	}
	r := &Registry{
		cfg:   cfg,
		light: l,
		scene: scene,
		index: make(map[ID]int),
		adj:   make(map[EndpointKey][]ID),
	}
	r.cfg.CanvasMinElevation = scene.CanvasMinElevation()
	_, err := r.Refresh(scene.Occluders())
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Err returns all errors accumulated by rejected mutations.
func (r *Registry) Err() error {
	if len(r.accumErrs) == 0 {
		return nil
	}
	return errors.Join(r.accumErrs...)
}

// ClearErrors discards accumulated errors.
func (r *Registry) ClearErrors() {
	r.accumErrs = r.accumErrs[:0]
}

func (r *Registry) fail(err error) error {
	r.accumErrs = append(r.accumErrs, err)
	return err
}

// Len returns the number of registered occluders.
func (r *Registry) Len() int { return len(r.slots) }

// Light returns the registry's light.
func (r *Registry) Light() Light { return r.light }

// Config returns the registry's configuration.
func (r *Registry) Config() Config { return r.cfg }

// Contains reports whether occluder id is registered.
func (r *Registry) Contains(id ID) bool {
	_, ok := r.index[id]
	return ok
}

// Slot returns the dense buffer slot of occluder id.
func (r *Registry) Slot(id ID) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// Links returns the link state of registered occluder id's A and B endpoints.
func (r *Registry) Links(id ID) ([2]LinkState, bool) {
	i, ok := r.index[id]
	if !ok {
		return [2]LinkState{}, false
	}
	return r.slots[i].links, true
}

// Params returns the shadow parameters of registered occluder id.
func (r *Registry) Params(id ID) (ShadowParams, bool) {
	i, ok := r.index[id]
	if !ok {
		return ShadowParams{}, false
	}
	return r.slots[i].params, true
}

// AddOccluder registers o if it is included for the registry's light and not yet registered.
// Occluders sharing an endpoint with o have their links resolved again.
// It returns true if the registry changed.
func (r *Registry) AddOccluder(o Occluder) (bool, error) {
	if _, ok := r.index[o.ID]; ok || !Include(o, r.light, r.cfg) {
		return false, nil
	}
	if err := r.checkInvariant(); err != nil {
		return false, err
	}
	i := len(r.slots)
	r.slots = append(r.slots, slot{occ: o, keys: [2]EndpointKey{KeyOf(o.A), KeyOf(o.B)}})
	r.index[o.ID] = i
	r.buf.grow()
	r.attach(o.ID, r.slots[i].keys)
	r.slots[i].atten = AttenuationOf(o, r.light, r.cfg)
	r.relinkAround(i, r.slots[i].keys)
	r.sightStale = true
	return true, r.flushIfIdle()
}

// UpdateOccluder synchronizes the registry with a changed occluder. It adds or removes
// o when its inclusion changed and otherwise overwrites the stored attributes.
// It returns true if any attribute changed.
func (r *Registry) UpdateOccluder(o Occluder) (bool, error) {
	i, registered := r.index[o.ID]
	included := Include(o, r.light, r.cfg)
	switch {
	case !registered && !included:
		return false, nil
	case !registered:
		return r.AddOccluder(o)
	case !included:
		return r.RemoveOccluder(o.ID)
	case r.slots[i].occ == o:
		return false, nil
	}
	if err := r.checkInvariant(); err != nil {
		return false, err
	}
	s := &r.slots[i]
	oldKeys := s.keys
	newKeys := [2]EndpointKey{KeyOf(o.A), KeyOf(o.B)}
	if oldKeys != newKeys {
		r.detach(o.ID, oldKeys)
		r.attach(o.ID, newKeys)
	}
	s.occ = o
	s.keys = newKeys
	s.atten = AttenuationOf(o, r.light, r.cfg)
	r.relinkAround(i, oldKeys)
	r.relinkAround(i, newKeys)
	r.sightStale = true
	return true, r.flushIfIdle()
}

// RemoveOccluder unregisters occluder id. The last slot is moved into the vacated one
// and occluders that shared an endpoint with id have their links resolved again.
// It returns true if a removal occurred.
func (r *Registry) RemoveOccluder(id ID) (bool, error) {
	i, ok := r.index[id]
	if !ok {
		return false, nil
	}
	if err := r.checkInvariant(); err != nil {
		return false, err
	}
	keys := r.slots[i].keys
	r.detach(id, keys)
	last := len(r.slots) - 1
	if i != last {
		r.slots[i] = r.slots[last]
		r.index[r.slots[i].occ.ID] = i
		r.markDirty(i)
	}
	r.slots[last] = slot{}
	r.slots = r.slots[:last]
	r.buf.swapRemove(i)
	delete(r.index, id)
	r.dirty.hi = min(r.dirty.hi, len(r.slots))
	r.relinkKeys(keys)
	r.sightStale = true
	return true, r.flushIfIdle()
}

// Refresh reconciles the registry with the full occluder list of the scene. Occluders
// absent from all are removed. Buffer writes are deferred and flushed once at the end.
func (r *Registry) Refresh(all []Occluder) (changed bool, err error) {
	r.batch++
	seen := make(map[ID]struct{}, len(all))
	var errs []error
	for _, o := range all {
		seen[o.ID] = struct{}{}
		c, err := r.UpdateOccluder(o)
		if err != nil {
			errs = append(errs, err)
		}
		changed = changed || c
	}
	for _, id := range r.ids() {
		if _, ok := seen[id]; ok {
			continue
		}
		c, err := r.RemoveOccluder(id)
		if err != nil {
			errs = append(errs, err)
		}
		changed = changed || c
	}
	r.batch--
	if err := r.flushIfIdle(); err != nil {
		errs = append(errs, err)
	}
	return changed, errors.Join(errs...)
}

// SetLight changes the registry's light. Changes that may alter inclusion
// re-filter the scene's occluders; any change re-resolves links and
// reprojects every shadow. It returns the applied changes.
func (r *Registry) SetLight(l Light) (ChangeSet, error) {
	cs := Diff(r.light, l)
	if cs == 0 {
		return 0, nil
	}
	if err := r.checkInvariant(); err != nil {
		return 0, err
	}
	r.light = l
	r.batch++
	var errs []error
	if cs.Has(inclusionChanges) {
		r.cfg.CanvasMinElevation = r.scene.CanvasMinElevation()
		for _, id := range r.ids() {
			i := r.index[id]
			if !Include(r.slots[i].occ, l, r.cfg) {
				if _, err := r.RemoveOccluder(id); err != nil {
					errs = append(errs, err)
				}
			}
		}
		for _, o := range r.scene.Occluders() {
			if _, err := r.AddOccluder(o); err != nil {
				errs = append(errs, err)
			}
		}
		for i := range r.slots {
			r.slots[i].atten = AttenuationOf(r.slots[i].occ, l, r.cfg)
		}
	}
	for i := range r.slots {
		r.relink(i)
	}
	r.batch--
	if err := r.flushIfIdle(); err != nil {
		errs = append(errs, err)
	}
	return cs, errors.Join(errs...)
}

// Flush reprojects dirty slots and writes them to the attribute buffers.
// It returns the range of slots written.
func (r *Registry) Flush() (lo, hi int, err error) {
	if err = r.checkInvariant(); err != nil {
		return 0, 0, err
	}
	if r.sightStale {
		r.sightStale = false
		for i := range r.slots {
			if r.slots[i].sightDep {
				r.relink(i)
			}
		}
	}
	lo, hi = r.dirty.lo, min(r.dirty.hi, len(r.slots))
	for i := lo; i < hi; i++ {
		s := &r.slots[i]
		s.params = Project(s.occ, s.links, s.atten, r.light, r.cfg)
		r.buf.write(i, s)
	}
	r.dirty.lo, r.dirty.hi = 0, 0
	return lo, hi, nil
}

func (r *Registry) flushIfIdle() error {
	if r.batch > 0 {
		return nil
	}
	_, _, err := r.Flush()
	return err
}

// Pending reports whether there are slots awaiting a flush.
func (r *Registry) Pending() bool { return r.dirty.hi > r.dirty.lo || r.sightStale }

func (r *Registry) markDirty(i int) {
	if r.dirty.hi <= r.dirty.lo {
		r.dirty.lo, r.dirty.hi = i, i+1
		return
	}
	r.dirty.lo = min(r.dirty.lo, i)
	r.dirty.hi = max(r.dirty.hi, i+1)
}

func (r *Registry) checkInvariant() error {
	err := r.buf.check(len(r.slots))
	if err == nil && len(r.index) != len(r.slots) {
		err = fmt.Errorf("%w: %d indexed occluders for %d slots", ErrInvariant, len(r.index), len(r.slots))
	}
	if err != nil {
		return r.fail(err)
	}
	return nil
}

// ids returns a snapshot of registered ids in slot order.
func (r *Registry) ids() []ID {
	ids := make([]ID, len(r.slots))
	for i := range r.slots {
		ids[i] = r.slots[i].occ.ID
	}
	return ids
}

func (r *Registry) attach(id ID, keys [2]EndpointKey) {
	for _, k := range keys {
		if !slices.Contains(r.adj[k], id) {
			r.adj[k] = append(r.adj[k], id)
		}
	}
}

func (r *Registry) detach(id ID, keys [2]EndpointKey) {
	for _, k := range keys {
		ids := r.adj[k]
		if j := slices.Index(ids, id); j >= 0 {
			ids = slices.Delete(ids, j, j+1)
		}
		if len(ids) == 0 {
			delete(r.adj, k)
		} else {
			r.adj[k] = ids
		}
	}
}

// relinkAround resolves the links of slot i and of every occluder touching keys.
func (r *Registry) relinkAround(i int, keys [2]EndpointKey) {
	r.relink(i)
	r.relinkKeys(keys)
}

func (r *Registry) relinkKeys(keys [2]EndpointKey) {
	for _, k := range keys {
		for _, id := range r.adj[k] {
			if j, ok := r.index[id]; ok {
				r.relink(j)
			}
		}
	}
}

func (r *Registry) relink(i int) {
	s := &r.slots[i]
	sight := sightRecorder{obs: r}
	for k := range s.keys {
		s.links[k] = r.resolve(i, k, &sight)
	}
	s.sightDep = sight.used
	r.markDirty(i)
}

// resolve classifies endpoint k of slot i against every neighbor sharing it. Neighbors are
// visited in insertion order; the first strongest classification wins.
func (r *Registry) resolve(i, k int, obs Obstructer) LinkState {
	s := &r.slots[i]
	var best LinkState
	shared := s.occ.endpoint(k)
	for _, id := range r.adj[s.keys[k]] {
		j, ok := r.index[id]
		if !ok || j == i {
			continue
		}
		ls := Classify(s.occ, shared, r.slots[j].occ, r.light, r.cfg, obs)
		if linkRank(ls.Kind) > linkRank(best.Kind) {
			best = ls
		}
	}
	return best
}

// sightRecorder records whether a classification queried visibility.
type sightRecorder struct {
	obs  Obstructer
	used bool
}

func (sr *sightRecorder) Obstructed(from, to ms3.Vec, skip ...ID) bool {
	sr.used = true
	return sr.obs.Obstructed(from, to, skip...)
}

func linkRank(k LinkKind) int {
	switch k {
	case LinkConcave:
		return 2
	case LinkKeyed:
		return 1
	}
	return 0
}

// Obstructed implements [Obstructer] over the registered occluders.
func (r *Registry) Obstructed(from, to ms3.Vec, skip ...ID) bool {
	const tol = 1e-4
	for i := range r.slots {
		o := &r.slots[i].occ
		if slices.Contains(skip, o.ID) {
			continue
		}
		t, ok := WallCrossing(from, to, o.A, o.B, o.Bottom(), o.Top())
		if ok && t > tol && t < 1-tol {
			return true
		}
	}
	return false
}

// ShadowTriangle is one triangle of a light's shadow geometry. Slot indexes
// the attribute buffers returned by [Registry.ShaderObjects].
type ShadowTriangle struct {
	Vertices [3]ms2.Vec
	Slot     int
}

// AppendTriangles appends the shadow geometry of every registered occluder to dst.
func (r *Registry) AppendTriangles(dst []ShadowTriangle) []ShadowTriangle {
	for i := range r.slots {
		sp := &r.slots[i].params
		if !sp.valid {
			continue
		}
		v := sp.Vertices
		dst = append(dst, ShadowTriangle{Vertices: [3]ms2.Vec{v[0], v[1], v[2]}, Slot: i})
		if sp.NumVertices == 4 {
			dst = append(dst, ShadowTriangle{Vertices: [3]ms2.Vec{v[0], v[2], v[3]}, Slot: i})
		}
	}
	return dst
}

// ShaderObjects returns handles to the attribute buffers, one element per slot.
// Handles alias registry memory and are invalidated by the next mutation.
// It returns nil if no occluders are registered.
func (r *Registry) ShaderObjects() ([]glbuild.ShaderObject, error) {
	if r.Pending() {
		return nil, errors.New("registry has unflushed changes")
	}
	return r.buf.shaderObjects()
}

// AppendBufferDecls appends the std430 declarations of the attribute buffers bound from
// baseBinding onward, preceded by the light's constants.
func (r *Registry) AppendBufferDecls(dst []byte, baseBinding int) ([]byte, error) {
	objs, err := r.ShaderObjects()
	if err != nil {
		return dst, err
	}
	err = glbuild.BindSequential(objs, baseBinding)
	if err != nil {
		return dst, err
	}
	l := r.light
	dst = glbuild.AppendIntDecl(dst, "occCount", len(r.slots))
	dst = glbuild.AppendIntDecl(dst, "lightKind", int(l.Kind))
	switch l.Kind {
	case PointLight:
		dst = glbuild.AppendVec3Decl(dst, "lightPos", l.Position)
		dst = glbuild.AppendFloatDecl(dst, "lightRadius", l.Radius)
		dst = glbuild.AppendFloatDecl(dst, "lightSize", l.size())
	case DirectionalLight:
		dst = glbuild.AppendVec2Decl(dst, "lightDir", l.sunDir())
		dst = glbuild.AppendFloatDecl(dst, "lightElevation", l.Elevation*deg2rad)
		dst = glbuild.AppendFloatDecl(dst, "lightSolarAngle", l.solarAngle()*deg2rad)
	}
	dst = glbuild.AppendFloatDecl(dst, "canvasMinElevation", r.cfg.CanvasMinElevation)
	return glbuild.AppendBufferDecls(dst, objs)
}
