package util

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"

	"github.com/replicate/go/logging"
)

var logger = logging.New("atlas-util")

type MetricsPayload struct {
	Source string         `json:"source,omitempty"`
	Type   string         `json:"type,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

const MetricsEndpointEnv = "ATLAS_METRICS_ENDPOINT"

// SendSnapshotMetric reports a completed snapshot load to the metrics
// endpoint, if one is configured. Failures are logged, never fatal.
func SendSnapshotMetric(snapshotID string, regions, organizations int) {
	log := logger.Sugar()
	endpoint := os.Getenv(MetricsEndpointEnv)
	if endpoint == "" {
		return
	}
	payload := MetricsPayload{
		Source: "atlasd",
		Type:   "snapshot",
		Data: map[string]any{
			"snapshot_id":   snapshotID,
			"regions":       regions,
			"organizations": organizations,
			"version":       Version(),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Errorw("failed to marshal payload", "error", err)
		return
	}
	resp, err := HTTPClientWithRetry().Post(endpoint, "application/json", bytes.NewBuffer(body))
	if err != nil {
		log.Errorw("failed to send snapshot metrics", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Errorw("failed to send snapshot metrics", "status", resp.Status)
	}
}
