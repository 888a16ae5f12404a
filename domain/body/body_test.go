package body_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/pathtracker/pathtracker/domain/body"
)

func TestProcess_Absent(t *testing.T) {
	tests := []struct {
		name string
		raw  json.RawMessage
	}{
		{name: "nil", raw: nil},
		{name: "empty", raw: json.RawMessage("")},
		{name: "json null", raw: json.RawMessage("null")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := body.Process(tt.raw, 100)

			if p.Body != nil {
				t.Errorf("Body = %s, want nil", p.Body)
			}
			if p.Truncated {
				t.Error("absent body must not be truncated")
			}
			if p.SizeBytes != 0 {
				t.Errorf("SizeBytes = %d, want 0", p.SizeBytes)
			}
		})
	}
}

func TestProcess_WithinLimit(t *testing.T) {
	raw := json.RawMessage(`{"user":"alice","items":[1,2,3]}`)

	p := body.Process(raw, 1000)

	if p.Truncated {
		t.Error("body within limit must not be truncated")
	}
	if string(p.Body) != `{"user":"alice","items":[1,2,3]}` {
		t.Errorf("Body = %s", p.Body)
	}
	if p.SizeBytes != len(raw) {
		t.Errorf("SizeBytes = %d, want %d", p.SizeBytes, len(raw))
	}
}

func TestProcess_Canonicalizes(t *testing.T) {
	raw := json.RawMessage("{\n  \"a\": 1,\n  \"b\": 2\n}")

	p := body.Process(raw, 1000)

	if string(p.Body) != `{"a":1,"b":2}` {
		t.Errorf("Body = %s, want compact form", p.Body)
	}
}

func TestProcess_Truncation(t *testing.T) {
	// 50 'x' characters serialized inside a JSON object, limit 20 bytes.
	raw := json.RawMessage(`{"data":"` + strings.Repeat("x", 50) + `"}`)
	limit := 20

	p := body.Process(raw, limit)

	if !p.Truncated {
		t.Fatal("expected truncation")
	}

	var tb body.TruncatedBody
	if err := json.Unmarshal(p.Body, &tb); err != nil {
		t.Fatalf("stored body is not a truncation placeholder: %v", err)
	}
	if !tb.Truncated {
		t.Error("placeholder truncated flag must be true")
	}
	if tb.OriginalSizeBytes != len(raw) {
		t.Errorf("OriginalSizeBytes = %d, want %d", tb.OriginalSizeBytes, len(raw))
	}
	if tb.StoredBytes != limit {
		t.Errorf("StoredBytes = %d, want %d", tb.StoredBytes, limit)
	}
	if len(tb.PartialContent) != limit {
		t.Errorf("partial content length = %d, want exactly %d", len(tb.PartialContent), limit)
	}
	if p.SizeBytes != len(raw) {
		t.Errorf("SizeBytes = %d, want original size %d", p.SizeBytes, len(raw))
	}
}

func TestProcess_ExactlyAtLimit(t *testing.T) {
	raw := json.RawMessage(`{"k":"vvvv"}`)

	p := body.Process(raw, len(raw))

	if p.Truncated {
		t.Error("body exactly at limit must not be truncated")
	}
}

func TestProcess_StringPayload_ValidJSON(t *testing.T) {
	// A JSON string whose content is itself JSON gets stored parsed.
	raw, _ := json.Marshal(`{"inner": true}`)

	p := body.Process(raw, 1000)

	if string(p.Body) != `{"inner":true}` {
		t.Errorf("Body = %s, want parsed inner JSON", p.Body)
	}
}

func TestProcess_StringPayload_PlainText(t *testing.T) {
	raw, _ := json.Marshal("just some text")

	p := body.Process(raw, 1000)

	if string(p.Body) != `"just some text"` {
		t.Errorf("Body = %s, want quoted string", p.Body)
	}
	if p.SizeBytes != len("just some text") {
		t.Errorf("SizeBytes = %d, want %d", p.SizeBytes, len("just some text"))
	}
}

func TestProcess_Binary(t *testing.T) {
	raw, _ := json.Marshal("PNG\x00\x01\x02 binary blob")

	p := body.Process(raw, 1000)

	var bb body.BinaryBody
	if err := json.Unmarshal(p.Body, &bb); err != nil {
		t.Fatalf("stored body is not a binary placeholder: %v", err)
	}
	if !bb.Binary {
		t.Error("binary flag must be true")
	}
	if p.Truncated {
		t.Error("binary body never counts as truncated")
	}
	if p.SizeBytes != 0 {
		t.Errorf("SizeBytes = %d, want 0 for binary", p.SizeBytes)
	}
}

func TestProcess_ZeroLimitUsesDefault(t *testing.T) {
	raw := json.RawMessage(`{"a":1}`)

	p := body.Process(raw, 0)

	if p.Truncated {
		t.Error("small body with default limit must not truncate")
	}
}

func TestIsBinary(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want bool
	}{
		{name: "plain text", s: "hello world", want: false},
		{name: "newlines and tabs allowed", s: "a\nb\tc\r", want: false},
		{name: "null byte", s: "a\x00b", want: true},
		{name: "low control char", s: "a\x08b", want: true},
		{name: "escape char", s: "a\x1bb", want: true},
		{name: "empty", s: "", want: false},
		{
			name: "control char beyond sniff window",
			s:    strings.Repeat("a", 1001) + "\x00",
			want: false,
		},
		{
			name: "control char inside sniff window",
			s:    strings.Repeat("a", 999) + "\x00",
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := body.IsBinary(tt.s); got != tt.want {
				t.Errorf("IsBinary() = %v, want %v", got, tt.want)
			}
		})
	}
}
