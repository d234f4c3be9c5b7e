package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "cycles_total", Help: "Decision cycles completed"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_total", Help: "Trade executions attempted"},
		[]string{"chain", "side", "mode"},
	)
	RejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "risk_rejections_total", Help: "Trades rejected by the risk gate"},
		[]string{"reason"},
	)
	DataErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "data_errors_total", Help: "Price/liquidity fetch failures"},
		[]string{"chain"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, TradesTotal, RejectionsTotal, DataErrorsTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
