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

// transaction chunks a (address, length) region into xferMax-sized units,
// carrying the DfuSe transaction counter alongside. The first data-bearing
// block uses transaction 2 (0 is reserved for commands, 1 is reserved by
// the standard and never emitted here).
type transaction struct {
	transactionNum uint16
	address        uint32
	pending        uint32
	xfer           uint16
	xferMax        uint16
}

func newTransaction(address, pending uint32, xferMax uint16) *transaction {
	t := &transaction{
		transactionNum: 2,
		address:        address,
		pending:        pending,
		xfer:           xferMax,
		xferMax:        xferMax,
	}
	t.setXfer()
	return t
}

func (t *transaction) setXfer() {
	if t.pending >= uint32(t.xferMax) {
		t.xfer = t.xferMax
		t.pending -= uint32(t.xferMax)
	} else {
		t.xfer = uint16(t.pending % uint32(t.xferMax))
		t.pending = 0
	}
}

// advance moves the cursor to the next chunk. It returns false once the
// region is exhausted, at which point xfer is set to 0 — callers gate
// their loop on xfer > 0, not on advance's return value (flash_read_next
// in the source discards it; see DESIGN.md).
func (t *transaction) advance() bool {
	if t.pending == 0 {
		t.xfer = 0
		return false
	}
	t.setXfer()
	t.address += uint32(t.xfer)
	t.transactionNum++
	return true
}
