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

	jww "github.com/spf13/jwalterweatherman"
)

const (
	reqGetStatus byte = 3
	reqClrStatus byte = 4

	statusRetryEpipeDelay   = 3000 * time.Millisecond
	statusRetryInvalidDelay = 100 * time.Millisecond
	waitForPollInterval     = 100 * time.Millisecond
)

// getStatusOnce issues a single DFU_GETSTATUS and decodes the 6-byte
// response. A length other than 6 is an InvalidControlResponse, not a
// USB error — the transfer itself succeeded.
func (d *Driver) getStatusOnce() (Status, error) {
	buf, err := d.transport.ControlIn(uint16(reqGetStatus), 0, 6)
	if err != nil {
		return Status{}, errUSBNix("Control transfer: DFU_GETSTATUS", err)
	}
	if len(buf) != 6 {
		return Status{}, errInvalidControlResponse(fmt.Sprintf("status length was %d", len(buf)))
	}
	return decodeStatus(buf), nil
}

// GetStatus issues DFU_GETSTATUS with a retry policy: an endpoint stall
// (reported by the transport as ErrStall) sleeps 3000ms and retries; an
// InvalidControlResponse sleeps 100ms and retries; any other error returns
// immediately. retries is the number of *additional* attempts after the
// first — retries=0 means exactly one attempt.
func (d *Driver) GetStatus(retries int) (Status, error) {
	attempts := retries + 1
	var status Status
	var err error
	for attempts > 0 {
		attempts--
		status, err = d.getStatusOnce()
		if err == nil {
			return status, nil
		}
		if isStall(err) {
			jww.WARN.Printf("dfu: EPIPE on GET_STATUS, retrying after %s", statusRetryEpipeDelay)
			d.sleep(statusRetryEpipeDelay)
			continue
		}
		if dfuErr, ok := err.(*Error); ok && dfuErr.Kind == KindInvalidControlResponse {
			jww.WARN.Printf("dfu: %d retries left, get status error: %v", attempts, err)
			d.sleep(statusRetryInvalidDelay)
			continue
		}
		return Status{}, err
	}
	return status, err
}

// ClearStatus issues DFU_CLRSTATUS, the standard way to leave DfuError.
func (d *Driver) ClearStatus() error {
	err := d.transport.ControlOut(uint16(reqClrStatus), 0, nil)
	if err != nil {
		return errUSBNix("Control transfer: DFU_CLRSTATUS", err)
	}
	return nil
}

// waitFor polls GetStatus(10) until the device reports desired, up to
// retries additional samples 100ms apart, then validates status == 0.
// A nil desired defaults to DfuDownloadBusy, per spec.md §4.3.
func (d *Driver) waitFor(retries int, desired *State) (Status, error) {
	want := DfuDownloadBusy
	if desired != nil {
		want = *desired
	}

	s, err := d.GetStatus(10)
	if err != nil {
		return Status{}, err
	}

	remaining := retries
	for s.State != want && remaining > 0 {
		d.sleep(waitForPollInterval)
		remaining--
		s, err = d.GetStatus(10)
		if err != nil {
			return Status{}, err
		}
	}

	if s.State != want {
		return Status{}, errInvalidState(s, want)
	}
	if s.Status != 0 {
		return Status{}, errInvalidStatus(s)
	}
	return s, nil
}
