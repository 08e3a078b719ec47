package dfu

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpw-labs/stdfu/usbtransport"
)

// E2 Mass erase happy path.
func TestMassEraseHappyPath(t *testing.T) {
	mt := newMockTransport()
	mt.queueStatus(Status{State: DfuIdle})
	mt.queueStatus(Status{State: DfuDownloadBusy})
	mt.queueStatus(Status{State: DfuDownloadIdle})
	d := newTestDriver(mt)

	err := d.MassErase()
	require.NoError(t, err)

	require.Len(t, mt.dnloadCalls, 1)
	assert.Equal(t, MassErase().Encode(), mt.dnloadCalls[0].buf)
	assert.Equal(t, 3, mt.statusIdx)
}

// E3 Page erase range: three pages at 64 KiB stride.
func TestErasePagesRange(t *testing.T) {
	mt := newMockTransport()
	mt.queueStatus(Status{State: DfuIdle}) // initial wait_for(DfuIdle)
	for i := 0; i < 3; i++ {
		mt.queueStatus(Status{State: DfuDownloadBusy})
		mt.queueStatus(Status{State: DfuDownloadIdle})
	}
	d := newTestDriver(mt)

	err := d.ErasePages(0x0801_0000, 0x20001)
	require.NoError(t, err)

	require.Len(t, mt.dnloadCalls, 3)
	want := []uint32{0x0801_0000, 0x0802_0000, 0x0803_0000}
	for i, call := range mt.dnloadCalls {
		assert.Equal(t, ErasePage(want[i]).Encode(), call.buf)
	}
}

// E4 Download two blocks: transactions 2 and 3, payload sizes 1024 and 476.
func TestDownloadRawTwoBlocks(t *testing.T) {
	mt := newMockTransport()
	// ErasePages: wait_for(DfuIdle), one page, busy+idle.
	mt.queueStatus(Status{State: DfuIdle})
	mt.queueStatus(Status{State: DfuDownloadBusy})
	mt.queueStatus(Status{State: DfuDownloadIdle})
	// abort_to_idle + wait_for(DfuIdle) before the transfer loop.
	mt.queueStatus(Status{State: DfuIdle})
	mt.queueStatus(Status{State: DfuIdle})
	// Block 1: SetAddress -> DfuDownloadIdle, data -> DfuDownloadBusy -> DfuDownloadIdle.
	mt.queueStatus(Status{State: DfuDownloadIdle})
	mt.queueStatus(Status{State: DfuDownloadBusy})
	mt.queueStatus(Status{State: DfuDownloadIdle})
	// Block 2: same shape.
	mt.queueStatus(Status{State: DfuDownloadIdle})
	mt.queueStatus(Status{State: DfuDownloadBusy})
	mt.queueStatus(Status{State: DfuDownloadIdle})
	// Final abort_to_idle.
	mt.queueStatus(Status{State: DfuIdle})

	d := newTestDriver(mt)

	data := bytes.Repeat([]byte{0xAB}, 1500)
	var progressed []int64
	err := d.DownloadRaw(bytes.NewReader(data), 0x0801_0000, 1500, func(value, max int64, info string) {
		progressed = append(progressed, value)
	})
	require.NoError(t, err)

	var dataCalls []mockDnload
	for _, c := range mt.dnloadCalls {
		if len(c.buf) != 5 && len(c.buf) != 1 {
			dataCalls = append(dataCalls, c)
		}
	}
	require.Len(t, dataCalls, 2)
	assert.Equal(t, uint16(2), dataCalls[0].transaction)
	assert.Len(t, dataCalls[0].buf, 1024)
	assert.Equal(t, uint16(3), dataCalls[1].transaction)
	assert.Len(t, dataCalls[1].buf, 476)

	assert.Equal(t, []int64{1024, 1500}, progressed)
}

// E5 Verify mismatch at offset 17.
func TestVerifyMismatch(t *testing.T) {
	mt := newMockTransport()
	// wait_for(nil) defaults to DfuDownloadBusy, per the source this was
	// ported from — preserved even though a plain SetAddress would more
	// naturally land in DfuDownloadIdle; see DESIGN.md.
	mt.queueStatus(Status{State: DfuDownloadBusy})
	mt.queueStatus(Status{State: DfuIdle})
	mt.queueStatus(Status{State: DfuIdle})

	flash := bytes.Repeat([]byte{0x00}, 32)
	flash[17] = 0xFF // device content diverges from file at offset 17
	mt.queueUpload(flash)

	d := newTestDriver(mt)
	file := bytes.Repeat([]byte{0x00}, 32)

	err := d.Verify(bytes.NewReader(file), 0x0801_0000, 32, nil)
	require.Error(t, err)
	dfuErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindVerify, dfuErr.Kind)
	assert.Equal(t, uint32(0x0801_0000+17), dfuErr.Address)
}

// E6 EPIPE on status: first GET_STATUS stalls, second succeeds.
func TestGetStatusRetriesOnStall(t *testing.T) {
	mt := newMockTransport()
	mt.queueStatusErr(usbtransport.ErrStall)
	mt.queueStatus(Status{State: DfuIdle})

	d := newTestDriver(mt)

	s, err := d.GetStatus(1)
	require.NoError(t, err)
	assert.Equal(t, DfuIdle, s.State)
}

// Invariant 5: abort_to_idle is idempotent when already idle.
func TestAbortToIdleIdempotent(t *testing.T) {
	mt := newMockTransport()
	mt.queueStatus(Status{State: DfuIdle})
	d := newTestDriver(mt)

	err := d.AbortToIdle()
	require.NoError(t, err)
	assert.Equal(t, 1, mt.abortCalls)
}

// Invariant 1 & 6: transaction numbers in Upload are strictly increasing
// from 2 with no gaps, and no request carries more than xferSize bytes.
func TestUploadTransactionSequence(t *testing.T) {
	mt := newMockTransport()
	mt.queueStatus(Status{State: DfuDownloadBusy})
	mt.queueStatus(Status{State: DfuIdle})
	mt.queueStatus(Status{State: DfuIdle})
	mt.queueUpload(bytes.Repeat([]byte{0x11}, 1024))
	mt.queueUpload(bytes.Repeat([]byte{0x22}, 476))

	d := newTestDriver(mt)
	var out bytes.Buffer
	err := d.Upload(&out, 0x0801_0000, 1500, nil)
	require.NoError(t, err)

	require.Len(t, mt.uploadCalls, 2)
	assert.Equal(t, uint16(2), mt.uploadCalls[0].transaction)
	assert.LessOrEqual(t, mt.uploadCalls[0].length, int(d.xferSize))
	assert.Equal(t, uint16(3), mt.uploadCalls[1].transaction)
	assert.LessOrEqual(t, mt.uploadCalls[1].length, int(d.xferSize))
	assert.Equal(t, 1500, out.Len())
}

// Invariant 4: page count formula pins down exactly the rust source's
// constants (which are a correct ceiling division, despite looking odd).
func TestCalculatePages(t *testing.T) {
	cases := []struct {
		length uint32
		want   uint16
	}{
		{3, 1},
		{0x10000, 1},
		{0x10001, 2},
		{0x20000, 2},
	}
	for _, c := range cases {
		pages, err := calculatePages(0x0801_0000, c.length)
		require.NoError(t, err)
		assert.Equal(t, c.want, pages)
	}
}

func TestCalculatePagesAddressOutOfRange(t *testing.T) {
	_, err := calculatePages(0x0, 100)
	require.Error(t, err)
	dfuErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindAddress, dfuErr.Kind)
}

func TestCalculatePagesZeroLength(t *testing.T) {
	_, err := calculatePages(0x0801_0000, 0)
	require.Error(t, err)
	dfuErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindArgument, dfuErr.Kind)
}
