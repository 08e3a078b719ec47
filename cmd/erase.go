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

type eraseCommand struct {
	*baseCommand

	address uint32
	length  uint32
}

func newEraseCommand() *eraseCommand {
	c := &eraseCommand{}

	c.baseCommand = newBaseCommand(&cobra.Command{
		Use:   "erase",
		Short: "Erase a range of flash pages",
		Args:  cobra.NoArgs,
		Example: `stdfu erase --address 0x08010000 --length 0x20000
stdfu erase --bus 1 --device-address 5 --address 0x08010000 --length 0x10000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run()
		},
	})

	c.cmd.Flags().Uint32VarP(&c.address, "address", "a", 0x0801_0000, "Start address of the page range")
	c.cmd.Flags().Uint32VarP(&c.length, "length", "l", 0, "Number of bytes to erase (rounded up to whole pages)")
	return c
}

func (c *eraseCommand) run() error {
	d, err := c.cli.openDriver()
	if err != nil {
		return errors.Wrap(err, "open device")
	}
	defer d.Close()

	jww.INFO.Printf("Erasing 0x%X bytes at 0x%08X\n", c.length, c.address)
	if err := d.ErasePages(c.address, c.length); err != nil {
		return errors.Wrap(err, "erase pages")
	}
	return nil
}
