package manager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gtprov_manager_transactions_total",
	Help: "Total number of multi-file update transactions by status.",
}, []string{"status"})
