// Package metrics exposes Prometheus counters for the submission pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsCreated counts reports successfully persisted.
	SubmissionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reunite_submissions_created_total",
		Help: "Missing person reports successfully created.",
	})

	// DuplicatesDetected counts submissions rejected as re-reports of an
	// existing case.
	DuplicatesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reunite_duplicates_detected_total",
		Help: "Submissions rejected by the duplicate detector.",
	})

	// ImagesRejected counts per-file rejections (bad extension or
	// unreadable data) that were skipped without failing the submission.
	ImagesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reunite_images_rejected_total",
		Help: "Uploaded files skipped during submission.",
	})

	// CleanupFailures counts image deletes that failed, either while
	// compensating for a persistence error or while removing a case.
	// Non-zero values mean orphaned files may exist.
	CleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reunite_image_cleanup_failures_total",
		Help: "Image deletions that did not remove a file.",
	})
)
