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
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	pb "gopkg.in/cheggaaa/pb.v2"

	"github.com/dpw-labs/stdfu/dfu"
)

type verifyCommand struct {
	*baseCommand

	address  uint32
	length   uint32
	hasLen   bool
	filename string
}

func newVerifyCommand() *verifyCommand {
	c := &verifyCommand{}

	c.baseCommand = newBaseCommand(&cobra.Command{
		Use:     "verify",
		Short:   "Compare flash contents against a local file",
		Args:    cobra.NoArgs,
		Example: `stdfu verify --firmware firmware.bin --address 0x08010000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run()
		},
		PreRun: func(cmd *cobra.Command, args []string) {
			c.hasLen = cmd.Flags().Changed("length")
		},
	})

	c.cmd.Flags().StringVarP(&c.filename, "firmware", "f", "", "Path to the file to compare against")
	c.cmd.Flags().Uint32VarP(&c.address, "address", "a", 0x0801_0000, "Flash address to start comparing at")
	c.cmd.Flags().Uint32VarP(&c.length, "length", "l", 0, "Bytes to compare (defaults to the whole file)")
	return c
}

func (c *verifyCommand) run() error {
	if c.filename == "" {
		return errors.New("no firmware filename specified, use --firmware")
	}

	f, err := os.Open(c.filename)
	if err != nil {
		return errors.Wrap(err, "open firmware file")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "stat firmware file")
	}

	var length *uint32
	if c.hasLen {
		length = &c.length
	}
	total, err := dfu.FileLength(length, uint32(info.Size()), c.filename)
	if err != nil {
		return errors.Wrap(err, "resolve length")
	}

	d, err := c.cli.openDriver()
	if err != nil {
		return errors.Wrap(err, "open device")
	}
	defer d.Close()

	jww.INFO.Printf("Verifying 0x%X bytes at 0x%08X against '%s'\n", total, c.address, c.filename)

	bar := pb.StartNew(int(total))
	defer bar.Finish()

	err = d.Verify(f, c.address, total, func(value, maxValue int64, info string) {
		bar.SetCurrent(value)
	})
	if err != nil {
		return errors.Wrap(err, "verify")
	}
	return nil
}
