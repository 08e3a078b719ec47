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

// Package usbtransport carries DFU control requests over a USB control
// endpoint. It exists so the dfu package never imports gousb directly —
// tests bind against an in-memory implementation instead.
package usbtransport

import "errors"

// ErrStall is returned by ControlIn/ControlOut when the endpoint stalls
// (EPIPE on Linux). Callers treat this as a retryable condition, not a
// fatal transport failure.
var ErrStall = errors.New("usbtransport: endpoint stalled")

// Transport is the control-transfer surface the dfu package depends on.
// req folds in the DFU request code (DETACH, DNLOAD, GET_STATUS, ...);
// the request-type byte (class|interface, direction) and wIndex
// (always the DFU interface number) are the concrete binding's concern,
// not the caller's.
type Transport interface {
	ControlOut(req, value uint16, buf []byte) error
	ControlIn(req, value uint16, length int) ([]byte, error)
	Close() error
}

// BusAddress identifies a USB device the way lsusb reports it, since this
// engine deliberately has no VID/PID auto-enumeration (spec Non-goals).
type BusAddress struct {
	Bus     int
	Address int
}

// Config carries the interface/alt-setting selection used to open a
// Transport; the control timeout is passed to Open separately. Always an
// instance value, never a package constant, so a single process can drive
// more than one device at once.
type Config struct {
	Interface  int
	AltSetting int
}
