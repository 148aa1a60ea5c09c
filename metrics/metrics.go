// Package metrics exposes Prometheus counters for votes and comments.
package metrics

import (
	"github.com/nasermirzaei89/tribune/discuss"
	"github.com/nasermirzaei89/tribune/ratings"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tribune"

type Metrics struct {
	// VotesTotal counts committed vote transitions.
	// Labels: entity_type (post, comment), transition (cast, cancel, flip)
	VotesTotal *prometheus.CounterVec

	// VoteConflictsTotal counts vote transactions replayed after losing an insert race.
	// Labels: entity_type
	VoteConflictsTotal *prometheus.CounterVec

	// CommentsCreatedTotal counts created comments.
	// Labels: kind (root, reply)
	CommentsCreatedTotal *prometheus.CounterVec
}

var (
	_ ratings.Observer = (*Metrics)(nil)
	_ discuss.Observer = (*Metrics)(nil)
)

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		VotesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratings",
			Name:      "votes_total",
			Help:      "Total committed vote transitions",
		}, []string{"entity_type", "transition"}),
		VoteConflictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratings",
			Name:      "vote_conflicts_total",
			Help:      "Total vote transactions retried after a uniqueness conflict",
		}, []string{"entity_type"}),
		CommentsCreatedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discuss",
			Name:      "comments_created_total",
			Help:      "Total created comments",
		}, []string{"kind"}),
	}
}

func (m *Metrics) ObserveVote(entityType ratings.EntityType, transition ratings.Transition) {
	m.VotesTotal.WithLabelValues(string(entityType), string(transition)).Inc()
}

func (m *Metrics) ObserveVoteConflict(entityType ratings.EntityType) {
	m.VoteConflictsTotal.WithLabelValues(string(entityType)).Inc()
}

func (m *Metrics) ObserveCommentCreated(reply bool) {
	kind := "root"
	if reply {
		kind = "reply"
	}

	m.CommentsCreatedTotal.WithLabelValues(kind).Inc()
}
