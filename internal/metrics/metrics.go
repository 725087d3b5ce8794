package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BarsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bars_total", Help: "Count of price bars evaluated"},
		[]string{"symbol"},
	)
	FeedBarsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "feed_bars_total", Help: "Closed bars received from the feed"},
		[]string{"symbol"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "decisions_total", Help: "Engine decisions emitted"},
		[]string{"symbol", "action"},
	)
	ExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "exits_total", Help: "Exit triggers fired"},
		[]string{"symbol", "kind"},
	)
	EntriesRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "entries_rejected_total", Help: "Entry gate rejections"},
		[]string{"symbol"},
	)
	FillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fills_total", Help: "Paper fills applied"},
		[]string{"symbol", "side"},
	)
)

func init() {
	prometheus.MustRegister(BarsTotal, FeedBarsTotal, DecisionsTotal, ExitsTotal, EntriesRejectedTotal, FillsTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
