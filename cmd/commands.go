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
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type commandsCommand struct {
	*baseCommand
}

func newCommandsCommand() *commandsCommand {
	c := &commandsCommand{}

	c.baseCommand = newBaseCommand(&cobra.Command{
		Use:     "commands",
		Short:   "List the DfuSe commands the device advertises as supported",
		Args:    cobra.NoArgs,
		Example: `stdfu commands --bus 1 --device-address 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run()
		},
	})

	return c
}

func (c *commandsCommand) run() error {
	d, err := c.cli.openDriver()
	if err != nil {
		return errors.Wrap(err, "open device")
	}
	defer d.Close()

	cmds, err := d.DfuseGetCommands()
	if err != nil {
		return errors.Wrap(err, "get commands")
	}
	for _, cmd := range cmds {
		fmt.Printf("%s\n", cmd.Tag)
	}
	return nil
}
