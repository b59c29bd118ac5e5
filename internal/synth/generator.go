package synth

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/okian/zfinder/internal/domain/model"
)

// Generator draws events from a seeded source.
type Generator struct {
	cfg    Config
	eta    distuv.Uniform
	phi    distuv.Uniform
	vertex distuv.Normal
	unit   distuv.Uniform
}

// NewGenerator creates a generator for cfg.
func NewGenerator(cfg Config) *Generator {
	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	return &Generator{
		cfg:    cfg,
		eta:    distuv.Uniform{Min: -cfg.EtaMax, Max: cfg.EtaMax, Src: src},
		phi:    distuv.Uniform{Min: -math.Pi, Max: math.Pi, Src: src},
		vertex: distuv.Normal{Mu: 0, Sigma: cfg.ZSigma, Src: src},
		unit:   distuv.Uniform{Min: 0, Max: 1, Src: src},
	}
}

// Event generates the event with the given id and its true vertex.
func (g *Generator) Event(id int64) (model.Event, Truth) {
	z0 := g.drawVertex()
	hits := make([]model.Hit, 0, g.cfg.Tracks*len(g.cfg.Bands)+g.cfg.Noise)

	for t := 0; t < g.cfg.Tracks; t++ {
		eta := g.eta.Rand()
		phi := g.phi.Rand()
		for _, band := range g.cfg.Bands {
			r := (band.Min + band.Max) / 2
			hits = append(hits, TrackHit(z0, eta, phi, r))
		}
	}

	for n := 0; n < g.cfg.Noise; n++ {
		band := g.cfg.Bands[int(g.unit.Rand()*float64(len(g.cfg.Bands)))%len(g.cfg.Bands)]
		r := band.Min + g.unit.Rand()*(band.Max-band.Min)
		phi := g.phi.Rand()
		z := (2*g.unit.Rand() - 1) * g.cfg.ZLimit
		hits = append(hits, model.Hit{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: z})
	}

	return model.Event{ID: id, Hits: hits}, Truth{EventID: id, Z0: z0}
}

// drawVertex samples the vertex, redrawing values beyond ZLimit.
func (g *Generator) drawVertex() float64 {
	if g.cfg.ZSigma <= 0 {
		return 0
	}
	for {
		z := g.vertex.Rand()
		if g.cfg.ZLimit <= 0 || math.Abs(z) <= g.cfg.ZLimit {
			return z
		}
	}
}

// TrackHit places the crossing of a straight track from (0, 0, z0) with
// pseudorapidity eta and azimuth phi at transverse radius r.
func TrackHit(z0, eta, phi, r float64) model.Hit {
	return model.Hit{
		X: r * math.Cos(phi),
		Y: r * math.Sin(phi),
		Z: z0 + r*math.Sinh(eta),
	}
}
