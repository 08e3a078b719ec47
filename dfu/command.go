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

const (
	cmdByteSetAddress    byte = 0x21
	cmdByteErase         byte = 0x41
	cmdByteReadUnprotect byte = 0x92
)

// CommandTag identifies which DfuSe command a Command value holds.
type CommandTag int

const (
	TagGetCommands CommandTag = iota
	TagSetAddress
	TagErasePage
	TagMassErase
	TagReadUnprotect
)

// Command is the tagged union of DfuSe download commands (spec.md §3).
// GetCommands is not itself downloadable — it is recognized from the byte
// stream an upload in idle state returns (see Driver.DfuseGetCommands).
type Command struct {
	Tag     CommandTag
	Address uint32
}

func (t CommandTag) String() string {
	switch t {
	case TagGetCommands:
		return "GetCommands"
	case TagSetAddress:
		return "SetAddress"
	case TagErasePage:
		return "ErasePage"
	case TagMassErase:
		return "MassErase"
	case TagReadUnprotect:
		return "ReadUnprotect"
	default:
		return "Unknown"
	}
}

func SetAddress(addr uint32) Command { return Command{Tag: TagSetAddress, Address: addr} }
func ErasePage(addr uint32) Command  { return Command{Tag: TagErasePage, Address: addr} }
func MassErase() Command             { return Command{Tag: TagMassErase} }
func ReadUnprotect() Command         { return Command{Tag: TagReadUnprotect} }

// Encode renders a Command into its DNLOAD payload bytes.
func (c Command) Encode() []byte {
	switch c.Tag {
	case TagSetAddress:
		return []byte{
			cmdByteSetAddress,
			byte(c.Address),
			byte(c.Address >> 8),
			byte(c.Address >> 16),
			byte(c.Address >> 24),
		}
	case TagErasePage:
		return []byte{
			cmdByteErase,
			byte(c.Address),
			byte(c.Address >> 8),
			byte(c.Address >> 16),
			byte(c.Address >> 24),
		}
	case TagMassErase:
		return []byte{cmdByteErase}
	case TagReadUnprotect:
		return []byte{cmdByteReadUnprotect}
	default:
		// GetCommands has no wire encoding; callers never download it.
		return nil
	}
}

// decodeCommandByte maps a single supported-command byte (as returned by
// dfuse_get_commands) to a Command. Only whole-byte commands with no
// trailing address (MassErase, ReadUnprotect) are decodable this way;
// anything else fails with UnknownCommandByte, per spec.md §4.4.
func decodeCommandByte(b byte) (Command, error) {
	switch b {
	case cmdByteErase:
		return MassErase(), nil
	case cmdByteReadUnprotect:
		return ReadUnprotect(), nil
	default:
		return Command{}, errUnknownCommandByte(b)
	}
}
