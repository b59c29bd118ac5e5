package zscan_test

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/zfinder/internal/domain/geometry"
	"github.com/okian/zfinder/internal/domain/model"
	"github.com/okian/zfinder/internal/domain/zscan"
	. "github.com/smartystreets/goconvey/convey"
)

// layerRadii are the band mid radii of the default geometry.
var layerRadii = [geometry.NumLayers]float64{2.585, 3.365, 4.15125}

// track returns one hit per layer on a straight line from (0, 0, vertex)
// with azimuth phi and dz/r slope.
func track(vertex, phi, slope float64) []model.Hit {
	hits := make([]model.Hit, 0, geometry.NumLayers)
	for _, r := range layerRadii {
		hits = append(hits, model.Hit{
			X: r * math.Cos(phi),
			Y: r * math.Sin(phi),
			Z: vertex + r*slope,
		})
	}
	return hits
}

// busyEvent mixes tracks from one vertex with uniform noise hits.
func busyEvent(rng *rand.Rand, vertex float64, tracks, noise int) []model.Hit {
	var hits []model.Hit
	for i := 0; i < tracks; i++ {
		hits = append(hits, track(vertex, rng.Float64()*2*math.Pi-math.Pi, rng.Float64()*2-1)...)
	}
	for i := 0; i < noise; i++ {
		r := layerRadii[rng.IntN(len(layerRadii))]
		phi := rng.Float64()*2*math.Pi - math.Pi
		hits = append(hits, model.Hit{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: rng.Float64()*20 - 10})
	}
	return hits
}

func TestGrid(t *testing.T) {
	Convey("Given the default grid", t, func() {
		g := zscan.DefaultGrid()

		Convey("Then it has floor(42.16/0.0025)+1 bins", func() {
			So(g.Validate(), ShouldBeNil)
			So(g.Bins(), ShouldEqual, 16865)
			So(g.Hypothesis(0), ShouldEqual, zscan.DefaultZMin)
			So(g.Hypothesis(g.Bins()-1), ShouldAlmostEqual, zscan.DefaultZMax, 1e-9)
		})
	})

	Convey("Given a small grid", t, func() {
		g := zscan.Grid{ZMin: 0, ZMax: 1, Step: 0.25}

		Convey("Then bins, hypotheses and nearest bins line up", func() {
			So(g.Bins(), ShouldEqual, 5)
			So(g.Hypotheses(), ShouldResemble, []float64{0, 0.25, 0.5, 0.75, 1})
			So(g.Nearest(0.3), ShouldEqual, 1)
			So(g.Nearest(-4), ShouldEqual, 0)
			So(g.Nearest(9), ShouldEqual, 4)
		})

		Convey("Then a range that is not a step multiple is floored", func() {
			So(zscan.Grid{ZMin: 0, ZMax: 1.1, Step: 0.25}.Bins(), ShouldEqual, 5)
		})
	})

	Convey("Given grids whose range sits just below a step multiple", t, func() {
		for _, g := range []zscan.Grid{
			{ZMin: 0, ZMax: 1 - 1e-8, Step: 0.25},
			{ZMin: -5, ZMax: 5 - 1e-7, Step: 0.01},
			{ZMin: 0, ZMax: 0.3, Step: 0.1},
			{ZMin: -2, ZMax: 2, Step: 0.01},
		} {
			last := g.Hypothesis(g.Bins() - 1)

			So(last, ShouldBeLessThanOrEqualTo, g.ZMax+1e-9)
			So(g.Hypothesis(g.Bins()), ShouldBeGreaterThan, g.ZMax+1e-9)
		}
		So(zscan.Grid{ZMin: 0, ZMax: 1 - 1e-8, Step: 0.25}.Bins(), ShouldEqual, 4)
		So(zscan.Grid{ZMin: 0, ZMax: 0.3, Step: 0.1}.Bins(), ShouldEqual, 4)
		So(zscan.Grid{ZMin: -2, ZMax: 2, Step: 0.01}.Bins(), ShouldEqual, 401)
	})

	Convey("Given invalid grids", t, func() {
		So(errors.Is(zscan.Grid{ZMin: 0, ZMax: 1, Step: 0}.Validate(), zscan.ErrInvalidGrid), ShouldBeTrue)
		So(errors.Is(zscan.Grid{ZMin: 1, ZMax: 0, Step: 0.1}.Validate(), zscan.ErrInvalidGrid), ShouldBeTrue)
		So(errors.Is(zscan.Grid{ZMin: math.NaN(), ZMax: 0, Step: 0.1}.Validate(), zscan.ErrInvalidGrid), ShouldBeTrue)
	})

	Convey("Given a step too fine to sweep", t, func() {
		g := zscan.Grid{ZMin: zscan.DefaultZMin, ZMax: zscan.DefaultZMax, Step: 1e-300}

		Convey("Then validation rejects it and the grid reports no bins", func() {
			So(errors.Is(g.Validate(), zscan.ErrInvalidGrid), ShouldBeTrue)
			So(g.Bins(), ShouldEqual, 0)
		})

		Convey("Then New returns an error instead of allocating", func() {
			_, err := zscan.New(zscan.WithGrid(g))
			So(errors.Is(err, zscan.ErrInvalidGrid), ShouldBeTrue)
		})
	})

	Convey("Given a range that overflows", t, func() {
		g := zscan.Grid{ZMin: -math.MaxFloat64, ZMax: math.MaxFloat64, Step: 1}
		So(errors.Is(g.Validate(), zscan.ErrInvalidGrid), ShouldBeTrue)
	})
}

func TestRefine(t *testing.T) {
	hyps := []float64{0, 1, 2, 3, 4}

	Convey("Given a peak with two populated neighbours", t, func() {
		est, peak, err := zscan.Refine(hyps, []int{0, 1, 3, 1, 0}, zscan.EdgeStrict)

		Convey("Then the estimate is the score-weighted mean of the three bins", func() {
			So(err, ShouldBeNil)
			So(peak, ShouldEqual, 2)
			So(est, ShouldAlmostEqual, 2.0, 1e-12)
		})
	})

	Convey("Given an asymmetric peak", t, func() {
		est, peak, err := zscan.Refine(hyps, []int{0, 1, 4, 3, 0}, zscan.EdgeStrict)
		So(err, ShouldBeNil)
		So(peak, ShouldEqual, 2)
		So(est, ShouldAlmostEqual, (1*1+2*4+3*3)/8.0, 1e-12)
	})

	Convey("Given scores that do not match the grid", t, func() {
		_, _, err := zscan.Refine(hyps, []int{0, 1, 4}, zscan.EdgeStrict)
		So(errors.Is(err, zscan.ErrInvalidGrid), ShouldBeTrue)
	})

	Convey("Given tied maxima", t, func() {
		_, peak, err := zscan.Refine(hyps, []int{0, 2, 0, 2, 0}, zscan.EdgeStrict)

		Convey("Then the first occurrence wins", func() {
			So(err, ShouldBeNil)
			So(peak, ShouldEqual, 1)
		})
	})

	Convey("Given a peak on the first bin", t, func() {
		scores := []int{5, 1, 0, 0, 0}

		Convey("Then the strict policy fails with OutOfRange", func() {
			_, peak, err := zscan.Refine(hyps, scores, zscan.EdgeStrict)
			So(errors.Is(err, zscan.ErrOutOfRange), ShouldBeTrue)
			So(peak, ShouldEqual, 0)
		})

		Convey("Then the clamp policy averages the existing neighbour", func() {
			est, _, err := zscan.Refine(hyps, scores, zscan.EdgeClamp)
			So(err, ShouldBeNil)
			So(est, ShouldAlmostEqual, 1.0/6.0, 1e-12)
		})
	})

	Convey("Given a peak on the last bin under the clamp policy", t, func() {
		est, peak, err := zscan.Refine(hyps, []int{0, 0, 0, 0, 2}, zscan.EdgeClamp)
		So(err, ShouldBeNil)
		So(peak, ShouldEqual, 4)
		So(est, ShouldEqual, 4)
	})

	Convey("Given an all-zero score array", t, func() {
		Convey("Then refinement reports DegenerateScan under both policies", func() {
			for _, edge := range []zscan.EdgePolicy{zscan.EdgeStrict, zscan.EdgeClamp} {
				est, _, err := zscan.Refine(hyps, make([]int, 5), edge)
				So(errors.Is(err, zscan.ErrDegenerateScan), ShouldBeTrue)
				So(math.IsNaN(est), ShouldBeFalse)
			}
		})
	})
}

func TestScanBoundaryScenario(t *testing.T) {
	Convey("Given three hits on one straight track from a grid vertex", t, func() {
		scanner, err := zscan.New()
		So(err, ShouldBeNil)
		g := scanner.Grid()

		k := g.Nearest(1.3)
		vertex := g.Hypothesis(k)
		hits := track(vertex, 0.7, 0.5)
		tol := model.Tolerance{Eta: 5e-5, Phi: 0.01}

		Convey("When scanning the event", func() {
			res, err := scanner.Scan(context.Background(), hits, tol)

			Convey("Then the peak is the bin of the true vertex", func() {
				So(err, ShouldBeNil)
				So(res.PeakBin, ShouldEqual, k)
				So(res.PeakScore, ShouldEqual, 3)
				So(len(res.Scores), ShouldEqual, g.Bins())
				So(res.HitCount, ShouldEqual, 3)
			})

			Convey("And the refined estimate lies within one step of it", func() {
				So(math.Abs(res.Estimate-vertex), ShouldBeLessThan, g.Step)
			})
		})
	})

	Convey("Given several tracks from an off-grid vertex and the default tolerance", t, func() {
		scanner, err := zscan.New(zscan.WithGrid(zscan.Grid{ZMin: -5, ZMax: 5, Step: 0.0025}))
		So(err, ShouldBeNil)

		const vertex = -2.3141
		rng := rand.New(rand.NewPCG(3, 5))
		hits := busyEvent(rng, vertex, 25, 0)

		res, err := scanner.Scan(context.Background(), hits, model.Tolerance{Eta: 0.0008, Phi: 0.0008})
		So(err, ShouldBeNil)
		So(math.Abs(res.Estimate-vertex), ShouldBeLessThan, 0.02)
	})
}

func TestScanDegenerate(t *testing.T) {
	scanner, err := zscan.New(zscan.WithGrid(zscan.Grid{ZMin: -1, ZMax: 1, Step: 0.01}))
	if err != nil {
		t.Fatal(err)
	}
	tol := model.Tolerance{Eta: 0.008, Phi: 0.008}
	ctx := context.Background()

	Convey("Given a single hit", t, func() {
		_, err := scanner.Scan(ctx, []model.Hit{{X: 2.5, Y: 0, Z: 0.3}}, tol)

		Convey("Then the scan is degenerate", func() {
			So(errors.Is(err, zscan.ErrDegenerateScan), ShouldBeTrue)
			So(zscan.Kind(err), ShouldEqual, zscan.KindDegenerateScan)
		})
	})

	Convey("Given hits that all fall outside the bands", t, func() {
		hits := []model.Hit{{X: 1, Y: 0, Z: 0}, {X: 3, Y: 0, Z: 0}, {X: 5, Y: 0, Z: 0}}
		scores, err := scanner.Sweep(ctx, hits, tol)
		So(err, ShouldBeNil)
		for _, s := range scores {
			So(s, ShouldEqual, 0)
		}

		_, err = scanner.Scan(ctx, hits, tol)
		So(errors.Is(err, zscan.ErrDegenerateScan), ShouldBeTrue)
	})

	Convey("Given hits on the beam axis inside a band", t, func() {
		onAxis, err := zscan.New(
			zscan.WithGrid(zscan.Grid{ZMin: -1, ZMax: 1, Step: 0.01}),
			zscan.WithBands(geometry.Bands{{Min: 0, Max: 0.5}, {Min: 1, Max: 2}, {Min: 3, Max: 4}}),
		)
		So(err, ShouldBeNil)

		hits := []model.Hit{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 0.5}, {X: 1.5, Y: 0, Z: 0}}
		_, err = onAxis.Scan(ctx, hits, model.Tolerance{Eta: 10, Phi: 10})

		Convey("Then their non-finite eta never matches", func() {
			So(errors.Is(err, zscan.ErrDegenerateScan), ShouldBeTrue)
		})
	})

	Convey("Given an empty event", t, func() {
		_, err := scanner.Scan(ctx, nil, tol)
		So(errors.Is(err, zscan.ErrEmptyEvent), ShouldBeTrue)
		So(zscan.Kind(err), ShouldEqual, zscan.KindEmptyEvent)
	})

	Convey("Given a non-positive tolerance", t, func() {
		_, err := scanner.Scan(ctx, track(0, 0, 0), model.Tolerance{Eta: 0, Phi: 0.1})
		So(errors.Is(err, zscan.ErrInvalidTolerance), ShouldBeTrue)
	})
}

func TestScanEdges(t *testing.T) {
	Convey("Given a track whose vertex is the first hypothesis", t, func() {
		g := zscan.Grid{ZMin: 0, ZMax: 1, Step: 0.01}
		hits := track(0, -1.2, 0.3)
		tol := model.Tolerance{Eta: 5e-5, Phi: 0.01}

		Convey("Then the strict scanner fails with OutOfRange", func() {
			scanner, err := zscan.New(zscan.WithGrid(g))
			So(err, ShouldBeNil)
			_, err = scanner.Scan(context.Background(), hits, tol)
			So(errors.Is(err, zscan.ErrOutOfRange), ShouldBeTrue)
			So(zscan.Kind(err), ShouldEqual, zscan.KindOutOfRange)
		})

		Convey("Then the clamping scanner returns the edge hypothesis", func() {
			scanner, err := zscan.New(zscan.WithGrid(g), zscan.WithEdgePolicy(zscan.EdgeClamp))
			So(err, ShouldBeNil)
			res, err := scanner.Scan(context.Background(), hits, tol)
			So(err, ShouldBeNil)
			So(res.PeakBin, ShouldEqual, 0)
			So(res.Estimate, ShouldAlmostEqual, 0, 1e-12)
		})
	})
}

func TestScanDeterminism(t *testing.T) {
	Convey("Given a busy event", t, func() {
		rng := rand.New(rand.NewPCG(17, 19))
		hits := busyEvent(rng, 0.42, 60, 200)
		grid := zscan.Grid{ZMin: -2, ZMax: 2, Step: 0.01}
		tol := model.Tolerance{Eta: 0.008, Phi: 0.008}
		ctx := context.Background()

		sequential, err := zscan.New(zscan.WithGrid(grid), zscan.WithWorkers(1))
		So(err, ShouldBeNil)
		want, err := sequential.Scan(ctx, hits, tol)
		So(err, ShouldBeNil)

		Convey("Then any worker layout yields identical scores and estimate", func() {
			for _, opts := range [][]zscan.Option{
				{zscan.WithWorkers(8)},
				{zscan.WithWorkers(3), zscan.WithMatchWorkers(4)},
				{zscan.WithWorkers(1), zscan.WithMatchWorkers(0)},
			} {
				scanner, err := zscan.New(append([]zscan.Option{zscan.WithGrid(grid)}, opts...)...)
				So(err, ShouldBeNil)
				got, err := scanner.Scan(ctx, hits, tol)
				So(err, ShouldBeNil)
				So(cmp.Diff(want.Scores, got.Scores), ShouldBeEmpty)
				So(got.Estimate, ShouldEqual, want.Estimate)
				So(got.PeakBin, ShouldEqual, want.PeakBin)
			}
		})

		Convey("Then repeated scans are identical", func() {
			again, err := sequential.Scan(ctx, hits, tol)
			So(err, ShouldBeNil)
			So(cmp.Diff(want, again), ShouldBeEmpty)
		})
	})
}

func TestScanMonotonicTolerance(t *testing.T) {
	Convey("Given a busy event swept at two tolerances", t, func() {
		rng := rand.New(rand.NewPCG(23, 29))
		hits := busyEvent(rng, -0.8, 40, 150)
		scanner, err := zscan.New(zscan.WithGrid(zscan.Grid{ZMin: -2, ZMax: 2, Step: 0.02}))
		So(err, ShouldBeNil)
		ctx := context.Background()

		base := model.Tolerance{Eta: 0.004, Phi: 0.004}
		narrow, err := scanner.Sweep(ctx, hits, base)
		So(err, ShouldBeNil)

		Convey("Then widening either window never lowers any bin", func() {
			for _, wide := range []model.Tolerance{
				{Eta: base.Eta * 3, Phi: base.Phi},
				{Eta: base.Eta, Phi: base.Phi * 3},
			} {
				scores, err := scanner.Sweep(ctx, hits, wide)
				So(err, ShouldBeNil)
				lowered := 0
				for i := range scores {
					if scores[i] < narrow[i] {
						lowered++
					}
				}
				So(lowered, ShouldEqual, 0)
			}
		})
	})
}

func TestScanCancellation(t *testing.T) {
	Convey("Given a canceled context", t, func() {
		scanner, err := zscan.New()
		So(err, ShouldBeNil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = scanner.Scan(ctx, track(0, 0, 0), model.Tolerance{Eta: 0.008, Phi: 0.008})

		Convey("Then the scan stops with the context error", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(zscan.Kind(err), ShouldEqual, zscan.KindCanceled)
		})
	})
}

func TestNew(t *testing.T) {
	Convey("Given invalid configuration", t, func() {
		_, err := zscan.New(zscan.WithGrid(zscan.Grid{ZMin: 0, ZMax: 1, Step: -1}))
		So(errors.Is(err, zscan.ErrInvalidGrid), ShouldBeTrue)

		bands := geometry.DefaultBands()
		bands[2].Min = 3.5
		_, err = zscan.New(zscan.WithBands(bands))
		So(errors.Is(err, geometry.ErrOverlappingBands), ShouldBeTrue)
	})

	Convey("Given edge policy names", t, func() {
		p, err := zscan.ParseEdgePolicy("Clamp")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, zscan.EdgeClamp)
		So(p.String(), ShouldEqual, "clamp")

		p, err = zscan.ParseEdgePolicy("")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, zscan.EdgeStrict)

		_, err = zscan.ParseEdgePolicy("wrap")
		So(err, ShouldNotBeNil)
	})

	Convey("Given unrelated errors", t, func() {
		So(zscan.Kind(errors.New("boom")), ShouldEqual, zscan.KindUnknown)
	})
}
