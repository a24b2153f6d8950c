package memory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// retrievalTotal counts GetContext calls by outcome
	retrievalTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recall_retrieval_total",
		Help: "Total context retrievals by result",
	}, []string{"result"})

	// semanticTriggerTotal counts semantic search decisions by reason
	semanticTriggerTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recall_semantic_trigger_total",
		Help: "Semantic retrieval decisions by reason",
	}, []string{"reason"})

	// retrievalErrors counts failures by stage
	retrievalErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recall_retrieval_errors_total",
		Help: "Context retrieval errors by stage",
	}, []string{"stage"})

	// contextItems tracks the size of the final context
	contextItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recall_context_items",
		Help:    "Number of items in the merged context",
		Buckets: []float64{0, 1, 2, 5, 10, 15, 20, 50},
	})

	// turnsRecorded counts persisted turns by result
	turnsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recall_turns_recorded_total",
		Help: "Conversation turns written by result",
	}, []string{"result"})
)

const (
	stageRecent   = "recent"
	stageSemantic = "semantic"

	reasonNone     = "none"
	reasonDisabled = "disabled"

	resultOK    = "ok"
	resultError = "error"
)
