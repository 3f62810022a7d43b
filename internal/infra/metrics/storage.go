package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(storageOpsTotal, storageHydrations) }

var (
	storageOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nyx_storage_ops_total",
			Help: "Slot store reads and writes by driver and result.",
		},
		[]string{"driver", "op", "result"}, // op=load|store|delete, result=ok|empty|error
	)

	storageHydrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nyx_storage_hydrations_total",
			Help: "Session hydrations at startup by result.",
		},
		[]string{"result"}, // ok | empty | reset
	)
)

func IncStorageOp(driver, op, result string) {
	storageOpsTotal.WithLabelValues(norm(driver), norm(op), norm(result)).Inc()
}

func IncHydration(result string) {
	storageHydrations.WithLabelValues(norm(result)).Inc()
}
