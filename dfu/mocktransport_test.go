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
	"time"

	"github.com/dpw-labs/stdfu/usbtransport"
)

// scriptedStatus is one queued DFU_GETSTATUS response. err, when set, is
// returned instead of a decoded status (used to inject usbtransport.ErrStall
// or other transport failures mid-sequence).
type scriptedStatus struct {
	status Status
	err    error
}

// mockTransport is a hand-rolled, in-memory usbtransport.Transport used
// only from tests. It answers GET_STATUS from a scripted queue (repeating
// the last entry once exhausted) and records every DNLOAD/UPLOAD/ABORT it
// receives for assertions.
type mockTransport struct {
	statusQueue []scriptedStatus
	statusIdx   int

	uploadResponses [][]byte
	uploadIdx       int

	dnloadCalls []mockDnload
	uploadCalls []mockUpload
	abortCalls  int
	closed      bool
}

type mockDnload struct {
	transaction uint16
	buf         []byte
}

type mockUpload struct {
	transaction uint16
	length      int
}

var _ usbtransport.Transport = (*mockTransport)(nil)

func newMockTransport() *mockTransport {
	return &mockTransport{}
}

func (m *mockTransport) queueStatus(s Status) {
	m.statusQueue = append(m.statusQueue, scriptedStatus{status: s})
}

func (m *mockTransport) queueStatusErr(err error) {
	m.statusQueue = append(m.statusQueue, scriptedStatus{err: err})
}

func (m *mockTransport) queueUpload(buf []byte) {
	m.uploadResponses = append(m.uploadResponses, buf)
}

func (m *mockTransport) ControlOut(req, value uint16, buf []byte) error {
	switch byte(req) {
	case reqDnload:
		cp := append([]byte(nil), buf...)
		m.dnloadCalls = append(m.dnloadCalls, mockDnload{transaction: value, buf: cp})
		return nil
	case reqClrStatus:
		return nil
	case reqAbort:
		m.abortCalls++
		return nil
	case reqDetach:
		return nil
	}
	return nil
}

func (m *mockTransport) ControlIn(req, value uint16, length int) ([]byte, error) {
	switch byte(req) {
	case reqGetStatus:
		if len(m.statusQueue) == 0 {
			return encodeStatus(Status{State: DfuIdle}), nil
		}
		idx := m.statusIdx
		if idx >= len(m.statusQueue) {
			idx = len(m.statusQueue) - 1
		} else {
			m.statusIdx++
		}
		entry := m.statusQueue[idx]
		if entry.err != nil {
			return nil, entry.err
		}
		return encodeStatus(entry.status), nil
	case reqUpload:
		m.uploadCalls = append(m.uploadCalls, mockUpload{transaction: value, length: length})
		if m.uploadIdx < len(m.uploadResponses) {
			buf := m.uploadResponses[m.uploadIdx]
			m.uploadIdx++
			return buf, nil
		}
		return make([]byte, length), nil
	}
	return make([]byte, length), nil
}

func (m *mockTransport) Close() error {
	m.closed = true
	return nil
}

// encodeStatus is decodeStatus's inverse, used only to build scripted
// GET_STATUS wire responses in tests.
func encodeStatus(s Status) []byte {
	ms := uint32(s.PollTimeout.Milliseconds())
	return []byte{
		s.Status,
		byte(ms >> 16),
		byte(ms >> 8),
		byte(ms),
		byte(s.State),
		s.StringIndex,
	}
}

// newTestDriver wires a Driver to t with an instant virtual clock, so
// retry/backoff paths in poll.go run without the test actually sleeping.
func newTestDriver(t *mockTransport) *Driver {
	d := newDriver(t, time.Second)
	d.sleep = func(time.Duration) {}
	return d
}
