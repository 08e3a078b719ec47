package dfu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestTransactionChunking walks a region whose length isn't a multiple of
// xferMax and checks both the chunk sizes and that the cursor eventually
// reports exhaustion via xfer == 0, never via advance's bool (nothing in
// this engine reads that bool — see flashReadNext).
func TestTransactionChunking(t *testing.T) {
	tr := newTransaction(0x0801_0000, 1500, 1024)

	assert.Equal(t, uint16(1024), tr.xfer)
	assert.Equal(t, uint16(2), tr.transactionNum)

	tr.advance()
	assert.Equal(t, uint16(476), tr.xfer)
	assert.Equal(t, uint32(0x0801_0000+476), tr.address)
	assert.Equal(t, uint16(3), tr.transactionNum)

	tr.advance()
	assert.Equal(t, uint16(0), tr.xfer)
}

func TestTransactionExactMultiple(t *testing.T) {
	tr := newTransaction(0, 2048, 1024)
	count := 0
	total := uint32(0)
	for tr.xfer > 0 {
		total += uint32(tr.xfer)
		count++
		tr.advance()
	}
	assert.Equal(t, 2, count)
	assert.Equal(t, uint32(2048), total)
}

func TestTransactionShorterThanXferMax(t *testing.T) {
	tr := newTransaction(0, 100, 1024)
	assert.Equal(t, uint16(100), tr.xfer)
	assert.False(t, tr.advance())
	assert.Equal(t, uint16(0), tr.xfer)
}
