package protocol

import (
	"encoding/json"
	"testing"
)

func TestEncodeDecodeBytesRoundTrip(t *testing.T) {
	raw, err := Encode("stdin", []byte("hello"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if raw[len(raw)-1] != '\n' {
		t.Fatal("Encode did not newline-terminate")
	}

	var msg Message
	if err := jsonUnmarshalForTest(raw, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.What != "stdin" {
		t.Fatalf("what = %q, want stdin", msg.What)
	}

	var decoded []byte
	isNull, err := DecodeData(msg.Data, &decoded)
	if err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if isNull {
		t.Fatal("DecodeData reported null for a byte payload")
	}
	if string(decoded) != "hello" {
		t.Fatalf("decoded = %q, want hello", decoded)
	}
}

func TestDecodeDataNull(t *testing.T) {
	isNull, err := DecodeData(nil, &struct{}{})
	if err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if !isNull {
		t.Fatal("expected null for empty raw message")
	}
}

func jsonUnmarshalForTest(raw []byte, v *Message) error {
	// strip trailing newline the way a line reader would before
	// unmarshaling.
	if len(raw) > 0 && raw[len(raw)-1] == '\n' {
		raw = raw[:len(raw)-1]
	}
	return json.Unmarshal(raw, v)
}
