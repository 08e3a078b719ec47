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

import (
	"fmt"
	"time"
)

// State is the DFU device state, encoded as a single byte on the wire.
type State byte

const (
	AppIdle              State = 0
	AppDetach            State = 1
	DfuIdle              State = 2
	DfuDownloadSync      State = 3
	DfuDownloadBusy      State = 4
	DfuDownloadIdle      State = 5
	DfuManifestSync      State = 6
	DfuManifest          State = 7
	DfuManifestWaitReset State = 8
	DfuUploadIdle        State = 9
	DfuError             State = 10
	Unknown              State = 255
)

// stateFromByte maps a wire byte to a State, mapping anything unrecognized
// to Unknown rather than failing — an unfamiliar state byte is a fact to
// report, not an error to propagate.
func stateFromByte(b byte) State {
	switch b {
	case 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10:
		return State(b)
	default:
		return Unknown
	}
}

func (s State) String() string {
	switch s {
	case AppIdle:
		return "App Idle"
	case AppDetach:
		return "App detach"
	case DfuIdle:
		return "Dfu Idle"
	case DfuDownloadSync:
		return "Dfu download sync"
	case DfuDownloadBusy:
		return "Dfu download busy"
	case DfuDownloadIdle:
		return "Dfu download idle"
	case DfuManifestSync:
		return "Dfu manifest sync"
	case DfuManifest:
		return "Dfu manifest"
	case DfuManifestWaitReset:
		return "Dfu manifest wait reset"
	case DfuUploadIdle:
		return "Dfu upload idle"
	case DfuError:
		return "Dfu error"
	default:
		return "Unknown state"
	}
}

// Status is the 6-byte DFU_GETSTATUS response:
// {status, poll_timeout (3 bytes), state, string_index}.
//
// poll_timeout is decoded big-endian (byte1<<16 | byte2<<8 | byte3), which
// differs from the DFU 1.1 specification's little-endian order. This
// matches the source this engine was ported from; see the Open Questions
// in DESIGN.md before "fixing" it.
type Status struct {
	Status      byte
	PollTimeout time.Duration
	State       State
	StringIndex byte
}

func (s Status) String() string {
	return fmt.Sprintf("Status: %d\npoll_timeout: %s\nState: %s\nstring_index: %d",
		s.Status, s.PollTimeout, s.State, s.StringIndex)
}

// decodeStatus parses a raw DFU_GETSTATUS response. The caller is
// responsible for rejecting responses that aren't exactly 6 bytes before
// calling this (see getStatusOnce in poll.go) — it is not re-checked here.
func decodeStatus(buf []byte) Status {
	pollTimeout := uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	return Status{
		Status:      buf[0],
		PollTimeout: time.Duration(pollTimeout) * time.Millisecond,
		State:       stateFromByte(buf[4]),
		StringIndex: buf[5],
	}
}
