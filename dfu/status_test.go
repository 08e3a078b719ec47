package dfu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecodeStatus(t *testing.T) {
	// status=0x00, poll_timeout=0x010203 big-endian, state=DfuIdle, string_index=5
	buf := []byte{0x00, 0x01, 0x02, 0x03, byte(DfuIdle), 0x05}
	s := decodeStatus(buf)

	assert.Equal(t, byte(0x00), s.Status)
	assert.Equal(t, time.Duration(0x010203)*time.Millisecond, s.PollTimeout)
	assert.Equal(t, DfuIdle, s.State)
	assert.Equal(t, byte(0x05), s.StringIndex)
}

func TestDecodeStatusBigEndianPollTimeout(t *testing.T) {
	// If this were little-endian, a poll_timeout of 0x000001 would decode
	// to 1ms; big-endian decodes the same bytes to 0x010000 = 65536ms.
	// This engine intentionally keeps the big-endian order of its source;
	// see DESIGN.md.
	buf := []byte{0x00, 0x01, 0x00, 0x00, byte(DfuIdle), 0x00}
	s := decodeStatus(buf)
	assert.Equal(t, 65536*time.Millisecond, s.PollTimeout)
}

func TestStateFromByteUnknown(t *testing.T) {
	assert.Equal(t, Unknown, stateFromByte(0xAB))
	assert.Equal(t, DfuError, stateFromByte(10))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Dfu Idle", DfuIdle.String())
	assert.Equal(t, "Unknown state", Unknown.String())
}
