package model

import "github.com/okian/modellab/internal/domain/weights"

// RankedEntity is an entity re-scored and re-ranked under custom weights.
type RankedEntity struct {
	Entity
	CustomScore float64 `json:"custom_score"`
	CustomRank  int     `json:"custom_rank"`
	RankDelta   int     `json:"rank_delta"` // baseline rank - custom rank; positive moved up
	ScoreDiff   float64 `json:"score_diff"` // custom score - baseline score
	Notable     bool    `json:"notable"`    // |rank delta| reached the notable threshold
}

// MatchupPrediction is a matchup re-predicted under custom ensemble weights.
type MatchupPrediction struct {
	Matchup
	CustomProbability float64 `json:"custom_probability"`
	CustomWinner      string  `json:"custom_winner"`
	WinnerChanged     bool    `json:"winner_changed"`
	Shift             float64 `json:"shift"` // custom - baseline probability
}

// Summary aggregates one recomputation.
type Summary struct {
	MovedUp   int     `json:"moved_up"`
	MovedDown int     `json:"moved_down"`
	AvgShift  float64 `json:"avg_shift"`
	MaxShift  int     `json:"max_shift"`
	Flipped   int     `json:"flipped"`
}

// WeightState describes one vector as exposed to clients.
type WeightState struct {
	Kind     weights.Kind    `json:"kind"`
	Weights  []weights.Entry `json:"weights"`
	Sum      float64         `json:"sum"`
	Modified bool            `json:"modified"`
}

// Result is the full output of one pipeline run.
type Result struct {
	Revision   uint64              `json:"revision"`
	Modified   bool                `json:"modified"`
	Ranking    WeightState         `json:"ranking"`
	Prediction WeightState         `json:"prediction"`
	Entities   []RankedEntity      `json:"entities"`
	Matchups   []MatchupPrediction `json:"matchups"`
	Summary    Summary             `json:"summary"`
}
