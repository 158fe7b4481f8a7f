package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "stint"

	NameTasks      = "tasks"
	NameOperations = "operations_total"

	LabelStatus    = "status"
	LabelOperation = "operation"
	LabelResult    = "result"
)

var Tasks = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name:      NameTasks,
		Help:      "Tracked tasks by timer status",
		Namespace: Namespace,
	},
	[]string{LabelStatus},
)

var Operations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      NameOperations,
		Help:      "Timer operations by outcome",
		Namespace: Namespace,
	},
	[]string{LabelOperation, LabelResult},
)
