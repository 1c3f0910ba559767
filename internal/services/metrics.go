package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the counters the services report.
type Metrics struct {
	Votes            *prometheus.CounterVec
	StorageConflicts prometheus.Counter
	MailFailures     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Votes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "creddit_votes_total",
			Help: "Vote requests by outcome.",
		}, []string{"outcome"}),
		StorageConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "creddit_storage_conflicts_total",
			Help: "Storage operations that failed with a retryable conflict or timeout.",
		}),
		MailFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "creddit_mail_failures_total",
			Help: "Outgoing mails that could not be delivered.",
		}),
	}
}
