package checkpoint

import (
	"encoding/json"
	"fmt"

	"github.com/tvahtera/claimflow/pkg/api"
)

// EncodeCheckpoint serializes a checkpoint for storage. JSON keeps the
// persisted form inspectable in any backend; the checkpoint layout is
// a fixed set of concrete types, so no dynamic decoding is needed.
func EncodeCheckpoint(cp api.Checkpoint) ([]byte, error) {
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint %s: %w", cp.ThreadID, err)
	}
	return data, nil
}

// DecodeCheckpoint deserializes a checkpoint previously produced by
// EncodeCheckpoint.
func DecodeCheckpoint(data []byte) (api.Checkpoint, error) {
	var cp api.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return api.Checkpoint{}, fmt.Errorf("decode checkpoint: %w", err)
	}
	return cp, nil
}
