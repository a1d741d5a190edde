package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission workflow outcomes.
const (
	outcomeSubmitted = "submitted"
	outcomeApproved  = "approved"
	outcomeRejected  = "rejected"
)

var (
	// submissionsTotal counts workflow transitions by outcome.
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyshare_submissions_total",
			Help: "Student submissions by workflow outcome",
		},
		[]string{"outcome"},
	)

	// blobCleanupTotal counts blob deletions attempted for tombstoned keys.
	blobCleanupTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyshare_blob_cleanup_total",
			Help: "Deferred blob deletions by result",
		},
		[]string{"result"},
	)
)
