package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	DispatchRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cloudmsg_dispatch_requests_total",
		Help: "Total bulk dispatch requests accepted.",
	})
	DispatchChunks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cloudmsg_dispatch_chunks_total",
		Help: "Total chunks posted to the gateway.",
	})
	Recipients = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cloudmsg_recipients_total",
		Help: "Total registration IDs submitted across all chunks.",
	})

	Deactivations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cloudmsg_device_deactivations_total",
		Help: "Total devices deactivated after NotRegistered/InvalidRegistration.",
	})
	CanonicalRenames = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cloudmsg_canonical_renames_total",
		Help: "Total registration IDs renamed to a canonical ID.",
	})
	CanonicalConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cloudmsg_canonical_conflicts_total",
		Help: "Total canonical IDs already active; the stale ID was deactivated instead.",
	})

	GatewayErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cloudmsg_gateway_errors_total",
		Help: "Total chunks with at least one non-deactivation recipient error.",
	})
	TransportErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cloudmsg_transport_errors_total",
		Help: "Total transport failures (network/timeout/non-2xx/decode).",
	})

	EventsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cloudmsg_events_published_total",
		Help: "Total dispatch outcome events published to MQ.",
	})
	EventPublishFail = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cloudmsg_event_publish_fail_total",
		Help: "Total dispatch outcome events that failed to publish.",
	})

	QueueConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cloudmsg_queue_consumed_total",
		Help: "Total dispatch requests popped from the queue.",
	})
	QueueDecodeFail = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cloudmsg_queue_decode_fail_total",
		Help: "Total queue payloads that failed to decode.",
	})
)

func Register() {
	prometheus.MustRegister(
		DispatchRequests, DispatchChunks, Recipients,
		Deactivations, CanonicalRenames, CanonicalConflicts,
		GatewayErrors, TransportErrors,
		EventsPublished, EventPublishFail,
		QueueConsumed, QueueDecodeFail,
	)
}
