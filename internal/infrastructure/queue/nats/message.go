package nats

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ingestRequest struct {
	RequestID   string    `json:"request_id"`
	Dir         string    `json:"dir"`
	RequestedAt time.Time `json:"requested_at"`
}

func newIngestRequest(dir string) ingestRequest {
	return ingestRequest{
		RequestID:   uuid.NewString(),
		Dir:         dir,
		RequestedAt: time.Now().UTC(),
	}
}

func encodeIngestRequest(req ingestRequest) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal ingest request: %w", err)
	}
	return data, nil
}

func decodeIngestRequest(data []byte) (ingestRequest, error) {
	var req ingestRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ingestRequest{}, fmt.Errorf("unmarshal ingest request: %w", err)
	}
	if strings.TrimSpace(req.Dir) == "" {
		return ingestRequest{}, errors.New("ingest request has no dir")
	}
	return req, nil
}
