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
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/dpw-labs/stdfu/dfu"
	"github.com/dpw-labs/stdfu/usbtransport"
)

type Command interface {
	init(cli *Cli)
	getCommand() *cobra.Command
}

type globalOptions struct {
	Quiet bool
	Debug bool

	Bus       int
	Address   int
	Interface int
	AltSet    int
	Timeout   time.Duration
	XferSize  uint16
}

type baseCommand struct {
	cmd *cobra.Command
	cli *Cli
}

func (c *baseCommand) init(cli *Cli) {
	c.cli = cli
}

func (c *baseCommand) getCommand() *cobra.Command {
	return c.cmd
}

func (c *baseCommand) AddCommand(command Command) {
	childCmd := command.getCommand()
	c.cmd.AddCommand(childCmd)
}

func newBaseCommand(cmd *cobra.Command) *baseCommand {
	return &baseCommand{cmd: cmd}
}

type Cli struct {
	*baseCommand
	globalOptions
}

func NewCli() *Cli {

	c := &Cli{}

	c.baseCommand = newBaseCommand(&cobra.Command{
		Use:     "stdfu",
		Short:   "A DfuSe tool for STM32 devices",
		Long:    `stdfu drives the DfuSe USB protocol to erase, program, read back and verify flash on an STM32 device in DFU mode.`,
		Version: "0.1",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.InitLogging()
		},
	})

	c.cmd.SilenceUsage = true
	c.cmd.SilenceErrors = true

	c.cmd.PersistentFlags().BoolVarP(&c.Quiet, "quiet", "q", false, "suppress all output")
	c.cmd.PersistentFlags().BoolVarP(&c.Debug, "debug", "D", false, "produce debug output")
	c.cmd.PersistentFlags().IntVarP(&c.Bus, "bus", "b", 0, "USB bus number of the device (see lsusb)")
	c.cmd.PersistentFlags().IntVarP(&c.Address, "device-address", "d", 0, "USB device address on the bus (see lsusb)")
	c.cmd.PersistentFlags().IntVarP(&c.Interface, "interface", "i", 0, "DFU interface number to claim")
	c.cmd.PersistentFlags().IntVarP(&c.AltSet, "alt", "A", 0, "DFU interface alt-setting to select")
	c.cmd.PersistentFlags().DurationVarP(&c.Timeout, "timeout", "t", 3000*time.Millisecond, "USB control transfer timeout")
	c.cmd.PersistentFlags().Uint16VarP(&c.XferSize, "xfer-size", "x", 1024, "Maximum bytes per DfuSe data transfer")

	c.AddCommand(newEraseCommand())
	c.AddCommand(newMassEraseCommand())
	c.AddCommand(newDownloadCommand())
	c.AddCommand(newUploadCommand())
	c.AddCommand(newVerifyCommand())
	c.AddCommand(newResetCommand())
	c.AddCommand(newDetachCommand())
	c.AddCommand(newCommandsCommand())

	return c
}

func (c *Cli) AddCommand(command Command) {
	command.init(c)
	c.baseCommand.AddCommand(command)
}

func (c *Cli) InitLogging() {
	if c.Debug {
		jww.SetStdoutThreshold(jww.LevelDebug)
	} else if c.Quiet {
		jww.SetStdoutThreshold(jww.LevelFatal)
	} else {
		jww.SetStdoutThreshold(jww.LevelInfo)
	}
}

// openDriver claims the device the persistent flags identify. There is
// deliberately no VID/PID auto-scan here: the caller names a bus/address
// pair exactly the way lsusb reports it.
func (c *Cli) openDriver() (*dfu.Driver, error) {
	return dfu.Open(
		usbtransport.BusAddress{Bus: c.Bus, Address: c.Address},
		usbtransport.Config{Interface: c.Interface, AltSetting: c.AltSet},
		c.Timeout,
		c.XferSize,
	)
}

func (c *Cli) Execute() {
	if err := c.cmd.Execute(); err != nil {
		fmt.Println(err)
		var dfuErr *dfu.Error
		if errors.As(err, &dfuErr) {
			os.Exit(dfuErr.ExitCode())
		}
		os.Exit(1)
	}
}
