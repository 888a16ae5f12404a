// Package body implements the stored-payload processing policy: canonical
// serialization, size-capped truncation, and binary sniffing.
// All functions are pure - no side effects.
package body

import (
	"bytes"
	"encoding/json"
)

// DefaultMaxSizeBytes is used when the tenant's configured limit is
// unavailable.
const DefaultMaxSizeBytes = 10240

// binarySniffLimit caps how many characters of a string body are scanned
// for control characters.
const binarySniffLimit = 1000

// Processed is the storable form of a payload.
type Processed struct {
	Body      json.RawMessage // nil when the input was absent
	Truncated bool
	SizeBytes int // byte length of the serialized input (0 for absent or binary)
}

// TruncatedBody is the structured placeholder stored in place of an
// oversized payload. PartialContent holds exactly the first maxSizeBytes
// bytes of the serialized form; the slice is taken at byte granularity, so
// it is not guaranteed to be valid UTF-8 or parseable JSON. That is a
// documented property of the policy, not something to repair here.
type TruncatedBody struct {
	Truncated         bool   `json:"truncated"`
	OriginalSizeBytes int    `json:"original_size_bytes"`
	StoredBytes       int    `json:"stored_bytes"`
	PartialContent    string `json:"partial_content"`
}

// BinaryBody is the fixed placeholder stored for sniffed-binary string
// payloads. Binary bodies never count toward the size/truncation policy.
type BinaryBody struct {
	Binary      bool   `json:"binary"`
	ContentType string `json:"content_type"`
}

// Process converts an arbitrary JSON payload plus a size ceiling into its
// storable representation.
// This is a PURE function; it is invoked independently for request and
// response bodies.
func Process(raw json.RawMessage, maxSizeBytes int) Processed {
	if isAbsent(raw) {
		return Processed{}
	}
	if maxSizeBytes <= 0 {
		maxSizeBytes = DefaultMaxSizeBytes
	}

	// A JSON string input is treated as an already-serialized payload.
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if IsBinary(str) {
			placeholder, _ := json.Marshal(BinaryBody{Binary: true, ContentType: "unknown"})
			return Processed{Body: placeholder, SizeBytes: 0}
		}
		return processSerialized([]byte(str), maxSizeBytes)
	}

	// Structured input: canonicalize to a compact rendering first.
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		// Not valid JSON at all; store verbatim as a string payload.
		return processSerialized(raw, maxSizeBytes)
	}
	return processStructured(buf.Bytes(), maxSizeBytes)
}

// processSerialized handles a payload that arrived as a pre-serialized
// string. Within the size limit the content is stored parsed when it is
// valid JSON, and as a plain JSON string otherwise.
func processSerialized(serialized []byte, maxSizeBytes int) Processed {
	size := len(serialized)
	if size > maxSizeBytes {
		return truncated(serialized, size, maxSizeBytes)
	}

	if json.Valid(serialized) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, serialized); err == nil {
			return Processed{Body: buf.Bytes(), SizeBytes: size}
		}
	}
	quoted, _ := json.Marshal(string(serialized))
	return Processed{Body: quoted, SizeBytes: size}
}

func processStructured(compact []byte, maxSizeBytes int) Processed {
	size := len(compact)
	if size > maxSizeBytes {
		return truncated(compact, size, maxSizeBytes)
	}
	stored := make(json.RawMessage, size)
	copy(stored, compact)
	return Processed{Body: stored, SizeBytes: size}
}

func truncated(serialized []byte, size, maxSizeBytes int) Processed {
	placeholder, _ := json.Marshal(TruncatedBody{
		Truncated:         true,
		OriginalSizeBytes: size,
		StoredBytes:       maxSizeBytes,
		PartialContent:    string(serialized[:maxSizeBytes]),
	})
	return Processed{Body: placeholder, Truncated: true, SizeBytes: size}
}

// IsBinary reports whether a string payload looks like opaque binary data:
// any control character in 0x00-0x08 or 0x0E-0x1F within the first 1000
// characters. A heuristic, not a guarantee; the ingestion contract carries
// no content-type channel to do better.
// This is a PURE function.
func IsBinary(s string) bool {
	seen := 0
	for _, r := range s {
		if seen >= binarySniffLimit {
			break
		}
		seen++
		if (r <= 0x08) || (r >= 0x0E && r <= 0x1F) {
			return true
		}
	}
	return false
}

func isAbsent(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
