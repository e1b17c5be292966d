package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultDelivered = "delivered"
	ResultDropped   = "dropped"
	ResultOffline   = "offline"
)

var (
	OnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tripchat",
		Name:      "online_users",
		Help:      "Users with a registered live connection.",
	})

	LivePushes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripchat",
		Name:      "live_pushes_total",
		Help:      "Live events pushed to connections, by event and outcome.",
	}, []string{"event", "result"})

	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tripchat",
		Name:      "messages_sent_total",
		Help:      "Messages persisted by the send pipeline.",
	})

	UploadFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tripchat",
		Name:      "media_upload_failures_total",
		Help:      "Image uploads that failed; the message was stored without an image.",
	})
)

// Register adds the collectors to r. Already-registered collectors are ignored
// so tests and main can both call it.
func Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{OnlineUsers, LivePushes, MessagesSent, UploadFailures} {
		if err := r.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
