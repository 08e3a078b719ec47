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

package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
)

type resetCommand struct {
	*baseCommand

	address uint32
}

func newResetCommand() *resetCommand {
	c := &resetCommand{}

	c.baseCommand = newBaseCommand(&cobra.Command{
		Use:     "reset",
		Short:   "Set address and reset the STM32 out of the bootloader",
		Args:    cobra.NoArgs,
		Example: `stdfu reset --address 0x08010000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run()
		},
	})

	c.cmd.Flags().Uint32VarP(&c.address, "address", "a", 0x0801_0000, "Reset vector address")
	return c
}

func (c *resetCommand) run() error {
	d, err := c.cli.openDriver()
	if err != nil {
		return errors.Wrap(err, "open device")
	}
	defer d.Close()

	jww.INFO.Printf("Resetting device to 0x%08X\n", c.address)
	if err := d.ResetSTM32(c.address); err != nil {
		return errors.Wrap(err, "reset")
	}
	return nil
}
