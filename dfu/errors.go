// Copyright (C) 2018 Rob Caelers <rob.caelers@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package dfu

import "fmt"

// ErrorKind is the structured failure taxonomy callers can switch on,
// instead of matching error strings.
type ErrorKind int

const (
	KindDeviceNotFound ErrorKind = iota
	KindArgument
	KindUSB
	KindUSBNix
	KindInvalidControlResponse
	KindInvalidState
	KindInvalidStatus
	KindFileIO
	KindUnknownCommandByte
	KindAddress
	KindVerify
)

// ExitCode returns the process exit code this engine's Rust origin assigns
// to each error kind. A CLI caller maps an *Error straight to os.Exit
// without re-deriving this table.
func (k ErrorKind) ExitCode() int {
	switch k {
	case KindDeviceNotFound:
		return 64
	case KindArgument:
		return 65
	case KindUSB:
		return 66
	case KindUSBNix:
		return 67
	case KindInvalidControlResponse:
		return 68
	case KindInvalidState:
		return 69
	case KindInvalidStatus:
		return 70
	case KindFileIO:
		return 71
	case KindUnknownCommandByte:
		return 72
	case KindAddress:
		return 73
	case KindVerify:
		return 74
	default:
		return 1
	}
}

// Error is the concrete error type returned by every Driver operation.
// It carries a Kind for programmatic dispatch and wraps the underlying
// cause (often a USB transport error) for %v/%+v formatting.
type Error struct {
	Kind    ErrorKind
	Context string
	Cause   error

	// Fields used by specific kinds; zero-valued when not applicable.
	Got      Status
	Expected State
	Address  uint32
	Byte     byte
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindDeviceNotFound:
		return fmt.Sprintf("device not found: %s", e.Context)
	case KindArgument:
		return fmt.Sprintf("argument: %s", e.Context)
	case KindUSB:
		return fmt.Sprintf("USB %s failed: %v", e.Context, e.Cause)
	case KindUSBNix:
		return fmt.Sprintf("USB %s failed: %v", e.Context, e.Cause)
	case KindInvalidControlResponse:
		return fmt.Sprintf("invalid control response on %s", e.Context)
	case KindInvalidState:
		return fmt.Sprintf("invalid state, got:\n%s\nexpected state: %s", e.Got, e.Expected)
	case KindInvalidStatus:
		return fmt.Sprintf("invalid status, got:\n%s\nexpected status: 0", e.Got)
	case KindFileIO:
		return fmt.Sprintf("file IO error: %v", e.Cause)
	case KindUnknownCommandByte:
		return fmt.Sprintf("unknown command byte: 0x%02X", e.Byte)
	case KindAddress:
		return fmt.Sprintf("address out of range: 0x%08X", e.Address)
	case KindVerify:
		return fmt.Sprintf("verification failed at address 0x%08X", e.Address)
	default:
		return "dfu: unknown error"
	}
}

// ExitCode mirrors Kind.ExitCode for convenience at call sites that only
// have the *Error, not the Kind.
func (e *Error) ExitCode() int {
	return e.Kind.ExitCode()
}

// Unwrap lets errors.Is/As see through to the underlying transport error.
// *Error has no Cause() method, so github.com/pkg/errors.Cause stops at it.
func (e *Error) Unwrap() error {
	return e.Cause
}

func errDeviceNotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindDeviceNotFound, Context: fmt.Sprintf(format, args...)}
}

func errArgument(format string, args ...interface{}) *Error {
	return &Error{Kind: KindArgument, Context: fmt.Sprintf(format, args...)}
}

func errFileIO(cause error) *Error {
	return &Error{Kind: KindFileIO, Cause: cause}
}

func errUSB(context string, cause error) *Error {
	return &Error{Kind: KindUSB, Context: context, Cause: cause}
}

func errUSBNix(context string, cause error) *Error {
	return &Error{Kind: KindUSBNix, Context: context, Cause: cause}
}

func errInvalidControlResponse(context string) *Error {
	return &Error{Kind: KindInvalidControlResponse, Context: context}
}

func errInvalidState(got Status, expected State) *Error {
	return &Error{Kind: KindInvalidState, Got: got, Expected: expected}
}

func errInvalidStatus(got Status) *Error {
	return &Error{Kind: KindInvalidStatus, Got: got}
}

func errUnknownCommandByte(b byte) *Error {
	return &Error{Kind: KindUnknownCommandByte, Byte: b}
}

func errAddress(addr uint32) *Error {
	return &Error{Kind: KindAddress, Address: addr}
}

func errVerify(addr uint32) *Error {
	return &Error{Kind: KindVerify, Address: addr}
}
