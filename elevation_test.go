package gshadow_test

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gshadow"
)

func TestBoundariesFloatingWall(t *testing.T) {
	o := gshadow.NewOccluder(1, v2(0, 0), v2(0, 100))
	o.BottomZ = 10
	o.TopZ = 50
	sp := project(t, o, gshadow.NewPointLight(ms3.Vec{X: 200, Y: 50, Z: 25}, 0, 0))
	for _, test := range []struct {
		e        float32
		wantNear float32
	}{
		{e: 0, wantNear: 200 * 25 / 15.},  // Ray passes under the wall close to it.
		{e: 60, wantNear: 200 * 35 / 25.}, // Terrain above the wall top.
		{e: 20, wantNear: 200},            // Terrain within the wall's extent.
	} {
		near, far := sp.Boundaries(test.e)
		for i := range near {
			if !eqf(near[i], test.wantNear, 1e-2) {
				t.Errorf("elevation %g: want near boundary %g, got %v", test.e, test.wantNear, near)
				break
			}
			if !math32.IsInf(far[i], 1) {
				t.Errorf("elevation %g: want no far boundary, got %v", test.e, far)
				break
			}
		}
	}
	// Under the wall: lit until the near boundary.
	if got := sp.Shadow(v2(-100, 50), 0); got != 0 {
		t.Error("want light passing under floating wall, got", got)
	}
	if got := sp.Shadow(v2(-200, 50), 0); got != 1 {
		t.Error("want shadow past near boundary, got", got)
	}
}

func TestBoundariesUnreachable(t *testing.T) {
	// Terrain above both the wall top and the light: rays climb over the wall.
	o := gshadow.NewOccluder(1, v2(0, 0), v2(0, 100))
	o.BottomZ = 0
	o.TopZ = 20
	sp := project(t, o, gshadow.NewPointLight(ms3.Vec{X: 200, Y: 50, Z: 25}, 0, 2))
	const terrain = 30
	near, _ := sp.Boundaries(terrain)
	for _, n := range near {
		if !math32.IsInf(n, 1) {
			t.Fatal("want unreachable near boundaries, got", near)
		}
	}
	for _, x := range []float32{-10, -100, -1000} {
		if got := sp.Shadow(v2(x, 50), terrain); got != 0 {
			t.Errorf("want no shadow at x=%g, got %g", x, got)
		}
	}
}

func TestNearPenumbraSoftLight(t *testing.T) {
	o := gshadow.NewOccluder(1, v2(0, 0), v2(0, 100))
	o.BottomZ = 10
	o.TopZ = 50
	sp := project(t, o, gshadow.NewPointLight(ms3.Vec{X: 200, Y: 50, Z: 25}, 0, 5))
	near, _ := sp.ElevationRatios(0)
	if !(near.Back < near.Mid && near.Mid < near.Front) {
		t.Errorf("sized light must spread near penumbra, got %+v", near)
	}
	nb, _ := sp.Boundaries(0)
	// Mid boundary cast by the light center.
	mid := sp.Shadow(v2(200-nb[1], 50), 0)
	if !eqf(mid, 0.5, 1e-2) {
		t.Error("want half shadow on near mid boundary, got", mid)
	}
}
