// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Entity is a ranked team as delivered by the upstream pipeline. Every field
// is immutable once the dataset is loaded.
type Entity struct {
	ID            string             `json:"id" yaml:"id"`
	Name          string             `json:"name,omitempty" yaml:"name,omitempty"`
	Tier          string             `json:"tier" yaml:"tier"`
	BaselineScore float64            `json:"baseline_score" yaml:"baseline_score"`
	BaselineRank  int                `json:"baseline_rank" yaml:"baseline_rank"`
	Metrics       map[string]float64 `json:"metrics" yaml:"metrics"` // normalized [0,1], keyed by ranking weight key
}

// Metric returns the normalized value for key, or 0 when upstream left it out.
func (e Entity) Metric(key string) float64 {
	return e.Metrics[key]
}

// Matchup is a predicted game between two entities.
type Matchup struct {
	Game                int                `json:"game" yaml:"game"`
	First               string             `json:"first" yaml:"first"`   // home side; wins ties at exactly 0.5
	Second              string             `json:"second" yaml:"second"` // away side
	BaselineProbability float64            `json:"baseline_probability" yaml:"baseline_probability"`
	BaselineWinner      string             `json:"baseline_winner" yaml:"baseline_winner"`
	Probabilities       map[string]float64 `json:"probabilities" yaml:"probabilities"` // P(first wins), keyed by prediction weight key
}

// Probability returns the model's P(first wins), or 0.5 when the model is
// missing so it pulls toward neither side.
func (m Matchup) Probability(key string) float64 {
	if p, ok := m.Probabilities[key]; ok {
		return p
	}
	return NeutralProbability
}

// NeutralProbability is the stand-in for a missing model output.
const NeutralProbability = 0.5

// Dataset is the immutable baseline the lab recomputes against.
type Dataset struct {
	Entities []Entity  `json:"entities" yaml:"entities"`
	Matchups []Matchup `json:"matchups" yaml:"matchups"`
}

// Validate checks the upstream contract: identifiers present and unique,
// matchups reference two parties and name one of them as baseline winner.
// A violation means the dataset cannot be served at all.
func (d *Dataset) Validate() error {
	ids := make(map[string]struct{}, len(d.Entities))
	for i, e := range d.Entities {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return fmt.Errorf("%w: entity %d has no id", ErrInvalidDataset, i)
		}
		if _, dup := ids[id]; dup {
			return fmt.Errorf("%w: duplicate entity id %q", ErrInvalidDataset, id)
		}
		ids[id] = struct{}{}
	}

	games := make(map[int]struct{}, len(d.Matchups))
	for i, m := range d.Matchups {
		if _, dup := games[m.Game]; dup {
			return fmt.Errorf("%w: duplicate game %d", ErrInvalidDataset, m.Game)
		}
		games[m.Game] = struct{}{}
		if strings.TrimSpace(m.First) == "" || strings.TrimSpace(m.Second) == "" {
			return fmt.Errorf("%w: matchup %d is missing a party", ErrInvalidDataset, i)
		}
		if m.First == m.Second {
			return fmt.Errorf("%w: game %d pits %q against itself", ErrInvalidDataset, m.Game, m.First)
		}
		if m.BaselineWinner != m.First && m.BaselineWinner != m.Second {
			return fmt.Errorf("%w: game %d baseline winner %q is not a party", ErrInvalidDataset, m.Game, m.BaselineWinner)
		}
	}
	return nil
}

// Entity looks up an entity by id.
func (d *Dataset) Entity(id string) (Entity, bool) {
	for _, e := range d.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return Entity{}, false
}
