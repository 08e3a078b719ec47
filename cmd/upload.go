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
)

type uploadCommand struct {
	*baseCommand

	address  uint32
	length   uint32
	filename string
}

func newUploadCommand() *uploadCommand {
	c := &uploadCommand{}

	c.baseCommand = newBaseCommand(&cobra.Command{
		Use:     "upload",
		Short:   "Read flash back to a file",
		Args:    cobra.NoArgs,
		Example: `stdfu upload --out dump.bin --address 0x08010000 --length 0x20000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run()
		},
	})

	c.cmd.Flags().StringVarP(&c.filename, "out", "o", "", "File to write the read-back image to")
	c.cmd.Flags().Uint32VarP(&c.address, "address", "a", 0x0801_0000, "Flash address to start reading at")
	c.cmd.Flags().Uint32VarP(&c.length, "length", "l", 0, "Bytes to read")
	return c
}

func (c *uploadCommand) run() error {
	if c.filename == "" {
		return errors.New("no output filename specified, use --out")
	}
	if c.length == 0 {
		return errors.New("no length specified, use --length")
	}

	f, err := os.Create(c.filename)
	if err != nil {
		return errors.Wrap(err, "create output file")
	}
	defer f.Close()

	d, err := c.cli.openDriver()
	if err != nil {
		return errors.Wrap(err, "open device")
	}
	defer d.Close()

	jww.INFO.Printf("Uploading 0x%X bytes from 0x%08X to '%s'\n", c.length, c.address, c.filename)

	bar := pb.StartNew(int(c.length))
	defer bar.Finish()

	err = d.Upload(f, c.address, c.length, func(value, maxValue int64, info string) {
		bar.SetCurrent(value)
	})
	if err != nil {
		return errors.Wrap(err, "upload")
	}
	return nil
}
