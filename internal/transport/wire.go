// Package transport realizes the out-of-scope "RPC transport layer" as a
// concrete HTTP+WebSocket surface: unary JSON handlers for UpdateEdl and
// LoadFile/Ping, and WebSocket streams for RenderEdlWindow and Subscribe.
// The wire contract itself (message field sets, error codes) is
// transport-agnostic and unchanged by this choice.
package transport

import (
	"encoding/json"

	"edlengine/internal/engine"
)

// updateEdlRequest/-Response mirror §6's UpdateEdlRequest/UpdateEdlResponse.
type updateEdlRequestDTO struct {
	Edl     json.RawMessage `json:"edl"`
	Replace bool            `json:"replace"`
}

type updateEdlResponseDTO struct {
	EdlID      string `json:"edl_id"`
	Revision   string `json:"revision"`
	TrackCount int    `json:"track_count"`
	ClipCount  int    `json:"clip_count"`
}

func toUpdateEdlResponse(r engine.UpdateEdlResult) updateEdlResponseDTO {
	return updateEdlResponseDTO{
		EdlID:      r.EdlID,
		Revision:   r.Revision,
		TrackCount: r.TrackCount,
		ClipCount:  r.ClipCount,
	}
}

type errorResponseDTO struct {
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type renderWindowRequestDTO struct {
	EdlID    string   `json:"edl_id"`
	Range    rangeDTO `json:"range"`
	OutPath  string   `json:"out_path"`
	BitDepth int      `json:"bit_depth"`
}

type rangeDTO struct {
	StartSamples    int64 `json:"start_samples"`
	DurationSamples int64 `json:"duration_samples"`
}

type loadFileRequestDTO struct {
	FilePath string `json:"file_path"`
}

type loadFileResponseDTO struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Info    *fileInfoDTO `json:"file_info,omitempty"`
}

type fileInfoDTO struct {
	Path            string  `json:"path"`
	SampleRate      int     `json:"sample_rate"`
	NumChannels     int     `json:"num_channels"`
	DurationSeconds float64 `json:"duration_seconds"`
	FileSizeBytes   int64   `json:"file_size_bytes"`
}

type subscribeRequestDTO struct {
	Session string `json:"session"`
}
