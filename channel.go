// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package axidma

import (
	"fmt"

	"github.com/platinasystems/log"
)

// Per channel state.
type channel struct {
	d *Dev

	// Tx or Rx.
	index uint

	// Descriptor ring storage, device visible at desc_base.
	descriptors []descriptor
	desc_base   uintptr

	// Last slot populated with a pending transfer.
	populated_desc_index uint

	// Next slot to check for completion by hardware.
	completion_desc_index uint

	regs channel_regs

	irq uint

	direction Direction

	done     Done
	done_arg interface{}

	last_rx_size uint

	desc_app0         uint32
	check_csum_in_isr bool

	counters Counters
}

type AddrAdj int

const (
	AdjIncrement AddrAdj = iota
	AdjDecrement
	AdjNoChange
)

type Block struct {
	Src, Dst uintptr
	Size     uint

	SrcAdj, DstAdj AddrAdj
}

type CsumOffload int

const (
	// Sideband words pass through untouched.
	CsumOffloadNone CsumOffload = iota
	// Tx requests checksum insertion via app0; rx verifies the app2
	// result during the completion sweep.
	CsumOffloadFull
)

type ChannelConfig struct {
	Blocks    []Block
	Direction Direction
	Offload   CsumOffload
	Done      Done
	Arg       interface{}
}

// ConfigureChannel rebuilds the channel's ring, programs the first
// descriptor address, then submits every block of the chain, start of
// frame on the first and end of frame on the last, aborting on the first
// error.  Nothing runs until Start advances the tail pointer.
func (d *Dev) ConfigureChannel(channel uint, c *ChannelConfig) error {
	if channel >= NChannels {
		log.Printf("error: axidma: invalid channel %d, must be < %d", channel, NChannels)
		return ErrChannel
	}
	if len(c.Blocks) == 0 {
		return fmt.Errorf("%w: empty block chain", ErrConfig)
	}

	head := &c.Blocks[0]
	if head.SrcAdj == AdjDecrement || head.DstAdj == AdjDecrement {
		log.Print("error: axidma: only incrementing addresses are supported")
		return fmt.Errorf("%w: decrementing address adjustment", ErrConfig)
	}
	if head.SrcAdj != AdjIncrement && head.SrcAdj != AdjNoChange {
		return fmt.Errorf("%w: invalid source address adjustment %d", ErrConfig, head.SrcAdj)
	}
	if head.DstAdj != AdjIncrement && head.DstAdj != AdjNoChange {
		return fmt.Errorf("%w: invalid destination address adjustment %d", ErrConfig, head.DstAdj)
	}

	ch := &d.channels[channel]
	if c.Direction != ch.direction {
		log.Printf("error: axidma: channel %d is %s only", channel, ch.direction)
		return fmt.Errorf("%w: channel %d is %s, not %s", ErrConfig,
			channel, ch.direction, c.Direction)
	}

	switch c.Offload {
	case CsumOffloadFull:
		if channel == Tx {
			// Tx requests offload in each descriptor's app0.
			ch.desc_app0 = desc_app0_csum_offload_full
		} else {
			// Rx: the ethernet core reports its verification in
			// app2; inspect it during the sweep.
			ch.check_csum_in_isr = true
		}
	case CsumOffloadNone:
		ch.desc_app0 = desc_app0_csum_offload_none
		ch.check_csum_in_isr = false
	default:
		return fmt.Errorf("%w: invalid checksum offload mode %d", ErrConfig, c.Offload)
	}

	ch.reset_ring()
	ch.regs.set_addr(reg_current_desc, ch.desc_addr(0))

	ch.done = c.Done
	ch.done_arg = c.Arg

	for bi := range c.Blocks {
		b := &c.Blocks[bi]
		buffer := b.Dst
		if channel == Tx {
			buffer = b.Src
		}
		err := d.transfer_block(channel, buffer, b.Size,
			bi == 0, bi == len(c.Blocks)-1)
		if err != nil {
			return err
		}
	}
	return nil
}

// transfer_block stages one buffer in the next free ring slot.  The device
// does not see it until Start writes the tail pointer.
func (d *Dev) transfer_block(channel uint, buffer uintptr, size uint, is_first, is_last bool) error {
	ch := &d.channels[channel]

	// The completion sweep runs in interrupt context and shares the
	// ring metadata.
	g := d.lock_irq(channel)
	defer g.unlock()

	next := ch.next_desc_index(ch.populated_desc_index)
	ch.invd_desc(next)
	e := &ch.descriptors[next]
	if !e.is_free() {
		// Not reclaimed yet; do not overwrite.
		log.Printf("notice: axidma: descriptor %d not yet completed, rejecting transfer", next)
		ch.counters.RingFull++
		return ErrBusy
	}

	if ch.direction == MemoryToPeripheral {
		// Device must read current buffer contents.
		d.cache.Flush(buffer, size)
	} else {
		if !d.is_coherent() {
			mask := uintptr(d.CacheLineBytes - 1)
			if buffer&mask != 0 || uintptr(size)&mask != 0 {
				log.Print("error: axidma: rx buffer address and size must be cache line aligned")
				return ErrAlign
			}
		}
		// Invalidate before the device writes, so a dirty line
		// writeback cannot clobber the transfer.
		d.cache.Invd(buffer, size)
	}

	e.buffer_address = uint32(buffer)
	if d.Addr64 {
		e.buffer_address_msb = uint32(uint64(buffer) >> 32)
	}
	e.app0 = ch.desc_app0

	if size > desc_control_length_mask {
		log.Printf("error: axidma: block of %d bytes exceeds %d", size, desc_control_length_mask)
		return ErrBlockSize
	}

	// Also clears stale start/end of frame flags from the slot's
	// previous use.
	e.control = uint32(size)
	if is_first {
		e.control |= desc_control_start_of_frame
	}
	if is_last {
		e.control |= desc_control_end_of_frame
	}

	// Descriptor must be committed before hardware can observe it
	// through a tail pointer write.
	d.Bus.Barrier()
	ch.flush_desc(next)

	ch.populated_desc_index = next
	ch.counters.Submitted++
	return nil
}

// Start arms a halted channel and advances the tail descriptor register to
// the most recently populated slot.  The tail write is the sole trigger for
// the device to fetch new descriptors, or to continue past the point where
// it ran out of work.
func (d *Dev) Start(channel uint) error {
	if channel >= NChannels {
		log.Printf("error: axidma: invalid channel %d, must be < %d", channel, NChannels)
		return ErrChannel
	}
	ch := &d.channels[channel]

	g := d.lock_irq(channel)
	defer g.unlock()

	if ch.is_halted() {
		ch.arm()
		// Run-stop must be committed before the tail write.
		d.Bus.Barrier()
	}
	ch.regs.set_addr(reg_tail_desc, ch.desc_addr(ch.populated_desc_index))

	// Commit stores before returning to caller.
	d.Bus.Barrier()
	return nil
}

// Stop clears run-stop.  The device completes in-flight transfers and then
// halts; this is not an abort.
func (d *Dev) Stop(channel uint) error {
	if channel >= NChannels {
		log.Printf("error: axidma: invalid channel %d, must be < %d", channel, NChannels)
		return ErrChannel
	}
	ch := &d.channels[channel]
	ch.regs.andnot(reg_control, control_run_stop)
	d.Bus.Barrier()
	return nil
}

// Reload submits one self-contained block, choosing source or destination
// address by the channel's direction.
func (d *Dev) Reload(channel uint, src, dst uintptr, size uint) error {
	if channel >= NChannels {
		log.Printf("error: axidma: invalid channel %d, must be < %d", channel, NChannels)
		return ErrChannel
	}
	buffer := dst
	if channel == Tx {
		buffer = src
	}
	return d.transfer_block(channel, buffer, size, true, true)
}

type Status struct {
	// Neither idle nor halted.
	Busy      bool
	Direction Direction
}

func (d *Dev) Status(channel uint) (Status, error) {
	if channel >= NChannels {
		return Status{}, ErrChannel
	}
	ch := &d.channels[channel]
	return Status{
		Busy:      !ch.is_idle() && !ch.is_halted(),
		Direction: ch.direction,
	}, nil
}
