package dfu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandEncodeSetAddress(t *testing.T) {
	buf := SetAddress(0x08010000).Encode()
	assert.Equal(t, []byte{0x21, 0x00, 0x00, 0x01, 0x08}, buf)
}

func TestCommandEncodeErasePage(t *testing.T) {
	buf := ErasePage(0x08020000).Encode()
	assert.Equal(t, []byte{0x41, 0x00, 0x00, 0x02, 0x08}, buf)
}

func TestCommandEncodeMassErase(t *testing.T) {
	assert.Equal(t, []byte{0x41}, MassErase().Encode())
}

func TestCommandEncodeReadUnprotect(t *testing.T) {
	assert.Equal(t, []byte{0x92}, ReadUnprotect().Encode())
}

func TestDecodeCommandByte(t *testing.T) {
	cmd, err := decodeCommandByte(0x41)
	assert.NoError(t, err)
	assert.Equal(t, TagMassErase, cmd.Tag)

	cmd, err = decodeCommandByte(0x92)
	assert.NoError(t, err)
	assert.Equal(t, TagReadUnprotect, cmd.Tag)

	_, err = decodeCommandByte(0xFF)
	assert.Error(t, err)
	dfuErr, ok := err.(*Error)
	assert.True(t, ok)
	assert.Equal(t, KindUnknownCommandByte, dfuErr.Kind)
	assert.Equal(t, 72, dfuErr.ExitCode())
}
