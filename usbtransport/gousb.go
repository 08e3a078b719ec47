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

package usbtransport

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/gousb"
	"github.com/pkg/errors"
)

// gousbTransport binds Transport to a claimed interface on a real USB
// device via libusb (through google/gousb's cgo wrapper).
type gousbTransport struct {
	ctx     *gousb.Context
	dev     *gousb.Device
	cfg     *gousb.Config
	intf    *gousb.Interface
	timeout time.Duration
}

// Open finds the device at busAddr, claims cfg.Interface at cfg.AltSetting,
// and returns a Transport ready for control transfers. The caller owns the
// returned Transport and must Close it to release the interface and the
// libusb context.
func Open(busAddr BusAddress, cfg Config, timeout time.Duration) (Transport, error) {
	ctx := gousb.NewContext()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Bus == busAddr.Bus && desc.Address == busAddr.Address
	})
	if err != nil {
		for _, d := range devs {
			d.Close()
		}
		ctx.Close()
		return nil, errors.Wrap(err, "enumerate USB devices")
	}
	if len(devs) == 0 {
		ctx.Close()
		return nil, fmt.Errorf("no USB device at bus %d address %d", busAddr.Bus, busAddr.Address)
	}
	// OpenDevices may match more than one descriptor; only the first is
	// ours, the rest are closed immediately.
	dev := devs[0]
	for _, extra := range devs[1:] {
		extra.Close()
	}

	dev.ControlTimeout = timeout

	gcfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, errors.Wrap(err, "select USB configuration")
	}

	intf, err := gcfg.Interface(cfg.Interface, cfg.AltSetting)
	if err != nil {
		gcfg.Close()
		dev.Close()
		ctx.Close()
		return nil, errors.Wrap(err, "claim DFU interface")
	}

	return &gousbTransport{ctx: ctx, dev: dev, cfg: gcfg, intf: intf, timeout: timeout}, nil
}

func (t *gousbTransport) ControlOut(req, value uint16, buf []byte) error {
	_, err := t.dev.Control(
		gousb.ControlOut|gousb.ControlClass|gousb.ControlInterface,
		uint8(req), value, uint16(t.intf.Setting.Number), buf,
	)
	if err != nil {
		if isStallError(err) {
			return ErrStall
		}
		return err
	}
	return nil
}

func (t *gousbTransport) ControlIn(req, value uint16, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := t.dev.Control(
		gousb.ControlIn|gousb.ControlClass|gousb.ControlInterface,
		uint8(req), value, uint16(t.intf.Setting.Number), buf,
	)
	if err != nil {
		if isStallError(err) {
			return nil, ErrStall
		}
		return nil, err
	}
	return buf[:n], nil
}

func (t *gousbTransport) Close() error {
	t.intf.Close()
	t.cfg.Close()
	err := t.dev.Close()
	t.ctx.Close()
	return err
}

// isStallError reports whether err came from an EPIPE/stalled endpoint.
// libusb surfaces this as gousb.TransferStall on the Error type returned
// through cgo; matched by substring since the concrete type isn't exported
// uniformly across gousb releases.
func isStallError(err error) bool {
	cause := errors.Cause(err)
	if cause == nil {
		return false
	}
	s := strings.ToLower(cause.Error())
	return strings.Contains(s, "stall") || strings.Contains(s, "pipe")
}
