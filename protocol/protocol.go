// Package protocol implements the wire format shared by the chat server and
// its clients: a 4-byte big-endian length prefix followed by that many bytes
// of UTF-8 JSON, plus the typed commands carried inside those payloads.
package protocol

import (
	"encoding/binary"

	"github.com/cyberinferno/go-chat/utils"
)

// HeaderLen is the size of the length prefix in bytes.
const HeaderLen = 4

// MaxFrameLen is the default upper bound for a frame payload. A frame that
// announces a larger body is rejected before the body is allocated.
const MaxFrameLen uint32 = 16 * 1024 * 1024

// EncodeFrame prepends the 4-byte big-endian length prefix to payload and
// returns the complete frame. The payload bytes pass through unmodified.
//
// Parameters:
//   - payload: The frame body; may be empty
//
// Returns:
//   - The framed bytes, HeaderLen+len(payload) long
func EncodeFrame(payload []byte) []byte {
	header := make([]byte, HeaderLen)
	binary.BigEndian.PutUint32(header, uint32(len(payload)))
	return utils.JoinBytes(header, payload)
}

// DecodeLength reads the payload length from the first HeaderLen bytes of a
// frame. A buffer shorter than HeaderLen decodes to zero, which readers treat
// as a degenerate frame and skip.
//
// Parameters:
//   - header: At least the first HeaderLen bytes of a frame
//
// Returns:
//   - The announced payload length in bytes
func DecodeLength(header []byte) uint32 {
	if len(header) < HeaderLen {
		return 0
	}
	return binary.BigEndian.Uint32(header)
}
