// Package protocol implements the newline-delimited JSON message protocol
// shared by the driver and pilot: framing, the ping/pong liveness
// handshake, and an explicit per-side dispatch table (no dynamic method
// lookup by name).
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"ptyrc/internal/version"
)

// Version is the wire protocol version both sides must agree on during
// the get_version/has_version handshake.
var Version = version.Triple()

// largerBufferSize bounds a single encoded line; sending a larger message
// is a programming error.
const largerBufferSize = 65536 * 2 * 4

// Message is one line of the wire protocol: {"what": "...", "data": ...}.
type Message struct {
	What string          `json:"what"`
	Data json.RawMessage `json:"data"`
}

// Encode marshals (what, data) into a single newline-terminated line.
// []byte data is wrapped as {"base64": "..."} first, matching the
// original's byte-payload convention.
func Encode(what string, data any) ([]byte, error) {
	wrapped := data
	if b, ok := data.([]byte); ok {
		wrapped = map[string]string{"base64": base64.StdEncoding.EncodeToString(b)}
	}

	raw, err := json.Marshal(struct {
		What string `json:"what"`
		Data any    `json:"data"`
	}{What: what, Data: wrapped})
	if err != nil {
		return nil, err
	}
	raw = append(raw, '\n')
	if len(raw) >= largerBufferSize {
		panic(fmt.Sprintf("protocol: encoded message for %q exceeds buffer size", what))
	}
	return raw, nil
}

// DecodeData unwraps a Message's Data field: a {"base64": "..."} object
// decodes to raw bytes, a JSON null reports isNull=true with a nil error, anything else
// is unmarshaled into v.
func DecodeData(raw json.RawMessage, v any) (isNull bool, err error) {
	if len(raw) == 0 || string(raw) == "null" {
		return true, nil
	}

	var asMap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asMap); err == nil && len(asMap) == 1 {
		if b64, ok := asMap["base64"]; ok {
			var s string
			if err := json.Unmarshal(b64, &s); err != nil {
				return false, err
			}
			decoded, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return false, err
			}
			if bp, ok := v.(*[]byte); ok {
				*bp = decoded
				return false, nil
			}
		}
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return false, err
	}
	return false, nil
}
