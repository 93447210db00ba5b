// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package axidma

// Each channel has a 0x30 byte register window: tx at 0x00, rx at 0x30.
const (
	tx_reg_offset = 0x00
	rx_reg_offset = 0x30
)

type dma_reg uint

const (
	// bitfield, masks defined below
	reg_control dma_reg = 0x00
	// bitfield, masks defined below
	reg_status dma_reg = 0x04
	// first descriptor to fetch [31:0]; only writable while halted
	reg_current_desc dma_reg = 0x08
	// first descriptor to fetch [63:32]
	reg_current_desc_msb dma_reg = 0x0c
	// last descriptor available to fetch [31:0]; writing starts/continues
	// descriptor processing
	reg_tail_desc dma_reg = 0x10
	// last descriptor available to fetch [63:32]
	reg_tail_desc_msb dma_reg = 0x14
)

// control register
const (
	// run-stop
	control_run_stop = 1 << 0
	// soft reset; self-clearing
	control_reset = 1 << 2
	// AXI fixed burst instead of incrementing burst, e.g. for reading a fifo
	control_keyhole = 1 << 3
	// ignore completed bit in descriptors and overwrite them
	control_cyclic = 1 << 4
	// interrupt on complete
	control_complete_irq_enable = 1 << 12
	// interrupt on delay timeout; catches missed completion interrupts
	control_delay_irq_enable = 1 << 13
	// interrupt on error
	control_error_irq_enable = 1 << 14
	control_all_irq_enable   = control_complete_irq_enable |
		control_delay_irq_enable | control_error_irq_enable

	// [23:16] interrupt after this many completed descriptors
	control_irq_threshold_shift = 16
	// [31:24] interrupt timeout, units of 125 clock periods
	control_irq_delay_shift = 24
)

// status register
const (
	// run-stop clear and operations completed; tail writes do nothing
	status_halted = 1 << 0
	// operations completed; tail write restarts
	status_idle = 1 << 1
	// scatter-gather support enabled at build time
	status_sg_included = 1 << 3
	// dma internal error, e.g. 0-length transfer
	status_dma_internal_error = 1 << 4
	// SLVERR on AXI bus from memory
	status_dma_slave_error = 1 << 5
	// DECERR on AXI bus from memory
	status_dma_decode_error = 1 << 6
	// fetched a descriptor with complete bit already set
	status_sg_internal_error = 1 << 8
	status_sg_slave_error    = 1 << 9
	status_sg_decode_error   = 1 << 10

	// interrupt causes; write 1 to clear
	status_complete_irq = 1 << 12
	status_delay_irq    = 1 << 13
	status_error_irq    = 1 << 14

	// [23:16] threshold status, [31:24] delay status
	status_irq_threshold_mask = 0xff << 16
	status_irq_delay_mask     = 0xff << 24
)

// Register window of one channel.
type channel_regs struct {
	d    *Dev
	base uint
}

func (r *channel_regs) get(o dma_reg) uint32 {
	return r.d.Bus.Read32(r.base + uint(o))
}

func (r *channel_regs) set(o dma_reg, v uint32) {
	r.d.Bus.Write32(r.base+uint(o), v)
}

func (r *channel_regs) andnot(o dma_reg, v uint32) (x uint32) {
	x = r.get(o) &^ v
	r.set(o, x)
	return
}

// Descriptor address registers are split into low/high halves when 64 bit
// addressing is enabled.
func (r *channel_regs) set_addr(lo dma_reg, a uintptr) {
	r.set(lo, uint32(a))
	if r.d.Addr64 {
		r.set(lo+4, uint32(uint64(a)>>32))
	}
}

func (ch *channel) is_halted() bool {
	return ch.regs.get(reg_status)&status_halted != 0
}

func (ch *channel) is_idle() bool {
	return ch.regs.get(reg_status)&status_idle != 0
}

// Program the control register for a halted channel: run-stop set, reset
// clear, cyclic and keyhole clear, all interrupt sources armed with the
// configured coalescing.  Caller barriers before any tail pointer write.
func (ch *channel) arm() {
	v := uint32(control_run_stop)
	v |= control_all_irq_enable
	v |= (ch.d.IrqThreshold & 0xff) << control_irq_threshold_shift
	v |= (ch.d.IrqDelay & 0xff) << control_irq_delay_shift
	ch.regs.set(reg_control, v)
}
