package ratings

import (
	"fmt"
	"math"
	"strconv"
)

// ScoreScale is the number of Score units in one rating point.
const ScoreScale = 1000

// Score is a rating in fixed point (1/ScoreScale of a point). Contributions are converted to Score
// once, so applying and reverting the same vote adds and subtracts the same integer.
type Score int64

func ScoreFromFloat(points float64) Score {
	return Score(math.Round(points * ScoreScale))
}

func (score Score) Float64() float64 {
	return float64(score) / ScoreScale
}

func (score Score) String() string {
	return strconv.FormatFloat(score.Float64(), 'f', -1, 64)
}

type Counters struct {
	VotesUpCount   int64
	VotesDownCount int64
	Rating         Score
}

func (counters Counters) Add(delta Delta) Counters {
	return Counters{
		VotesUpCount:   counters.VotesUpCount + delta.VotesUp,
		VotesDownCount: counters.VotesDownCount + delta.VotesDown,
		Rating:         counters.Rating + delta.Rating,
	}
}

type Delta struct {
	VotesUp   int64
	VotesDown int64
	Rating    Score
}

func (delta Delta) Negate() Delta {
	return Delta{
		VotesUp:   -delta.VotesUp,
		VotesDown: -delta.VotesDown,
		Rating:    -delta.Rating,
	}
}

func (delta Delta) IsZero() bool {
	return delta == Delta{}
}

const DefaultCommentMultiplier = 0.5

// Ledger turns votes into counter deltas.
type Ledger struct {
	commentMultiplier float64
}

// multiplierTolerance absorbs the binary error of decimal multipliers such as 0.1.
const multiplierTolerance = 1e-6

// NewLedger fails unless commentMultiplier is a non negative whole number of Score units, so every
// author delta is exact.
func NewLedger(commentMultiplier float64) (Ledger, error) {
	if math.IsNaN(commentMultiplier) || math.IsInf(commentMultiplier, 0) || commentMultiplier < 0 {
		return Ledger{}, fmt.Errorf("invalid comment rating multiplier: %v", commentMultiplier)
	}

	scaled := commentMultiplier * ScoreScale
	if math.Abs(scaled-math.Round(scaled)) > multiplierTolerance {
		return Ledger{}, fmt.Errorf(
			"comment rating multiplier %v is finer than 1/%d of a point",
			commentMultiplier,
			ScoreScale,
		)
	}

	return Ledger{commentMultiplier: commentMultiplier}, nil
}

// Weight is the share of a vote the entity author receives.
func (ledger Ledger) Weight(entityType EntityType) float64 {
	if entityType == EntityTypeComment {
		return ledger.commentMultiplier
	}

	return 1
}

// EntityDelta is what one vote does to the voted entity.
func (ledger Ledger) EntityDelta(value Value) Delta {
	delta := ledger.VoterDelta(value)
	delta.Rating = ScoreFromFloat(value.Weight())

	return delta
}

// AuthorDelta is what one vote does to the rating of the entity author.
func (ledger Ledger) AuthorDelta(entityType EntityType, value Value) Score {
	return ScoreFromFloat(value.Weight() * ledger.Weight(entityType))
}

// VoterDelta is what one vote does to the cast counters of the voter.
func (ledger Ledger) VoterDelta(value Value) Delta {
	if value.IsUp() {
		return Delta{VotesUp: 1}
	}

	return Delta{VotesDown: 1}
}

func (ledger Ledger) Apply(counters Counters, value Value) Counters {
	return counters.Add(ledger.EntityDelta(value))
}

func (ledger Ledger) Revert(counters Counters, value Value) Counters {
	return counters.Add(ledger.EntityDelta(value).Negate())
}
