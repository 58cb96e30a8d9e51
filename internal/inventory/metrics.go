package inventory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carlot_ingest_total",
			Help: "Inventory ingestion attempts by result (ok, empty, failed).",
		},
		[]string{"result"},
	)

	ingestRowsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carlot_ingest_rows_skipped_total",
			Help: "Data rows dropped because normalization failed.",
		},
	)

	ingestCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carlot_ingest_cache_hits_total",
			Help: "Inventory loads served from the in-memory batch.",
		},
	)
)
