package dfu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorExitCodes(t *testing.T) {
	cases := []struct {
		kind ErrorKind
		code int
	}{
		{KindDeviceNotFound, 64},
		{KindArgument, 65},
		{KindUSB, 66},
		{KindUSBNix, 67},
		{KindInvalidControlResponse, 68},
		{KindInvalidState, 69},
		{KindInvalidStatus, 70},
		{KindFileIO, 71},
		{KindUnknownCommandByte, 72},
		{KindAddress, 73},
		{KindVerify, 74},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, c.kind.ExitCode())
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := errUSBNix("Control transfer", cause)
	assert.True(t, errors.Is(err, cause))
}

func TestErrorMessages(t *testing.T) {
	err := errAddress(0x1234)
	assert.Contains(t, err.Error(), "0x00001234")

	err2 := errVerify(0x0801_0010)
	assert.Contains(t, err2.Error(), "0x08010010")
}
