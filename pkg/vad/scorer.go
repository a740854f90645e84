package vad

import (
	"math"

	"github.com/haivivi/scribe/pkg/audio/pcm"
)

// Scorer estimates the probability that a frame contains speech.
type Scorer interface {
	Score(fr pcm.Frame) float64
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(fr pcm.Frame) float64

func (f ScorerFunc) Score(fr pcm.Frame) float64 { return f(fr) }

// EnergyScorer maps frame level linearly onto [0, 1]: FloorDB and below
// score 0, CeilDB and above score 1.
type EnergyScorer struct {
	FloorDB float64 `yaml:"floor_db"`
	CeilDB  float64 `yaml:"ceil_db"`
}

// DefaultEnergyScorer returns an EnergyScorer for close-talk microphones.
func DefaultEnergyScorer() EnergyScorer {
	return EnergyScorer{FloorDB: -60, CeilDB: -30}
}

func (s EnergyScorer) Score(fr pcm.Frame) float64 {
	db := fr.DBFS()
	if math.IsInf(db, -1) || db <= s.FloorDB {
		return 0
	}
	if db >= s.CeilDB || s.CeilDB <= s.FloorDB {
		return 1
	}
	return (db - s.FloorDB) / (s.CeilDB - s.FloorDB)
}

var (
	_ Scorer = EnergyScorer{}
	_ Scorer = ScorerFunc(nil)
)
