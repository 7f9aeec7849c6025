package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_messages_received_total",
		Help: "Messages pulled from the topic",
	})
	messagesValid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_messages_valid_total",
		Help: "Messages that passed validation and were buffered",
	})
	messagesInvalid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_messages_invalid_total",
		Help: "Messages rejected by validation or decoding",
	})
	fieldFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_field_failures_total",
		Help: "Failed field checks by field and reason",
	}, []string{"field", "reason"})
	decodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_decode_errors_total",
		Help: "Messages whose value is not a JSON object",
	})
	pollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_poll_errors_total",
		Help: "Unexpected errors returned by poll or commit",
	})
	emptyPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_empty_polls_total",
		Help: "Polls that timed out without a message",
	})
	bufferedEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ingest_buffered_events",
		Help: "Valid events waiting for the next flush",
	})
	flushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_flushes_total",
		Help: "Batches handed to the flusher",
	})
	flushFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_flush_failures_total",
		Help: "Flush steps that failed and dropped their rows",
	}, []string{"stage"})
	rowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_rows_written_total",
		Help: "Rows committed per table",
	}, []string{"table"})
	flushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_flush_duration_seconds",
		Help:    "Time taken to allocate ids and bulk write one batch",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
	})
)
