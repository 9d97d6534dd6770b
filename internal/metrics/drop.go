package metrics

import "hstrader/logger"

// DropMetric identifies the metric emitted when an inbound frame is discarded.
type DropMetric string

const (
	// DropMetricUndecodable records frames that failed to decode.
	DropMetricUndecodable DropMetric = "frames_undecodable"
	// DropMetricAbandoned records frames read from the socket after shutdown began.
	DropMetricAbandoned DropMetric = "frames_abandoned"
)

// EmitDropMetric emits a counter increment of one for a discarded frame.
// frameType is "binary" or "text"; reason is a short cause when known.
func EmitDropMetric(log *logger.Log, metric DropMetric, frameType, reason string) {
	fields := logger.Fields{}
	if frameType != "" {
		fields["frame_type"] = frameType
	}
	if reason != "" {
		fields["reason"] = reason
	}

	EmitMetric(log, "stream_drops", string(metric), 1, "counter", fields)
}
