package gshadow

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gshadow/glbuild"
)

// attribs holds the per-slot GPU attribute arrays. All arrays have the
// same length and slot order as the registry arena.
type attribs struct {
	endpoints [][2]ms2.Vec // A.xy, B.xy
	heights   []ms2.Vec    // bottom, top
	sense     []uint32
	threshold []float32 // squared threshold radius
	links     [][4]uint32
	linkKeys  [][4]uint32 // A key lo, hi; B key lo, hi
	near      [][2]ms2.Vec
	far       [][2]ms2.Vec
}

func (a *attribs) lengths() [8]int {
	return [8]int{len(a.endpoints), len(a.heights), len(a.sense), len(a.threshold),
		len(a.links), len(a.linkKeys), len(a.near), len(a.far)}
}

// check returns an error if any array's length differs from n.
func (a *attribs) check(n int) error {
	for i, l := range a.lengths() {
		if l != n {
			return fmt.Errorf("%w: attribute array %d has length %d, want %d", ErrInvariant, i, l, n)
		}
	}
	return nil
}

func (a *attribs) grow() {
	a.endpoints = append(a.endpoints, [2]ms2.Vec{})
	a.heights = append(a.heights, ms2.Vec{})
	a.sense = append(a.sense, 0)
	a.threshold = append(a.threshold, 0)
	a.links = append(a.links, [4]uint32{})
	a.linkKeys = append(a.linkKeys, [4]uint32{})
	a.near = append(a.near, [2]ms2.Vec{})
	a.far = append(a.far, [2]ms2.Vec{})
}

// swapRemove moves the last element of every array into slot i and truncates.
func (a *attribs) swapRemove(i int) {
	last := len(a.sense) - 1
	a.endpoints[i] = a.endpoints[last]
	a.endpoints = a.endpoints[:last]
	a.heights[i] = a.heights[last]
	a.heights = a.heights[:last]
	a.sense[i] = a.sense[last]
	a.sense = a.sense[:last]
	a.threshold[i] = a.threshold[last]
	a.threshold = a.threshold[:last]
	a.links[i] = a.links[last]
	a.links = a.links[:last]
	a.linkKeys[i] = a.linkKeys[last]
	a.linkKeys = a.linkKeys[:last]
	a.near[i] = a.near[last]
	a.near = a.near[:last]
	a.far[i] = a.far[last]
	a.far = a.far[:last]
}

func (a *attribs) write(i int, s *slot) {
	o := &s.occ
	a.endpoints[i] = [2]ms2.Vec{o.A, o.B}
	a.heights[i] = ms2.Vec{X: o.Bottom(), Y: o.Top()}
	a.sense[i] = uint32(o.Sense)
	a.threshold[i] = s.atten.RadiusSq
	a.links[i] = [4]uint32{uint32(s.links[0].Kind), uint32(s.links[1].Kind)}
	ka, kb := s.links[0].Key.words(), s.links[1].Key.words()
	a.linkKeys[i] = [4]uint32{ka[0], ka[1], kb[0], kb[1]}
	sp := &s.params
	a.near[i] = [2]ms2.Vec{{X: sp.Near.Front, Y: sp.Near.Mid}, {X: sp.Near.Back, Y: sp.WallRatio}}
	a.far[i] = [2]ms2.Vec{{X: sp.Far.Front, Y: sp.Far.Mid}, {X: sp.Far.Back}}
}

// shaderObjects returns buffer handles over every attribute array in a fixed order.
func (a *attribs) shaderObjects() ([]glbuild.ShaderObject, error) {
	if len(a.sense) == 0 {
		return nil, nil
	}
	objs := make([]glbuild.ShaderObject, 0, 8)
	add := func(obj glbuild.ShaderObject, err error) error {
		if err != nil {
			return err
		}
		objs = append(objs, obj)
		return nil
	}
	for _, err := range []error{
		add(glbuild.NewAttribBuffer("occEndpoints", a.endpoints)),
		add(glbuild.NewAttribBuffer("occHeights", a.heights)),
		add(glbuild.NewAttribBuffer("occSense", a.sense)),
		add(glbuild.NewAttribBuffer("occThresholdSq", a.threshold)),
		add(glbuild.NewAttribBuffer("occLinks", a.links)),
		add(glbuild.NewAttribBuffer("occLinkKeys", a.linkKeys)),
		add(glbuild.NewAttribBuffer("occNear", a.near)),
		add(glbuild.NewAttribBuffer("occFar", a.far)),
	} {
		if err != nil {
			return nil, err
		}
	}
	return objs, nil
}
