// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package axidma

import (
	"github.com/platinasystems/log"
)

// Submission mutates the populated cursor and a descriptor while the
// completion sweep mutates the completion cursor and a different
// descriptor; the sweep runs from interrupt context, so the exclusion is
// interrupt masking at one of three granularities.
type LockPolicy int

const (
	// Disable both channel lines.
	LockEngine LockPolicy = iota
	// Global interrupt disable; strongest, costs latency on unrelated
	// interrupts.
	LockAll
	// Disable only the current channel's line.
	LockChannel
)

type irq_guard struct {
	d       *Dev
	channel uint
	key     int
}

func (d *Dev) lock_irq(channel uint) irq_guard {
	g := irq_guard{d: d, channel: channel}
	switch d.Lock {
	case LockAll:
		g.key = d.Irq.Lock()
	case LockEngine:
		if d.Irq.IsEnabled(d.channels[Tx].irq) {
			g.key |= 1 << Tx
		}
		if d.Irq.IsEnabled(d.channels[Rx].irq) {
			g.key |= 1 << Rx
		}
		d.Irq.Disable(d.channels[Tx].irq)
		d.Irq.Disable(d.channels[Rx].irq)
	case LockChannel:
		if d.Irq.IsEnabled(d.channels[channel].irq) {
			g.key = 1
		}
		d.Irq.Disable(d.channels[channel].irq)
	}
	return g
}

func (g irq_guard) unlock() {
	d := g.d
	switch d.Lock {
	case LockAll:
		d.Irq.Unlock(g.key)
	case LockEngine:
		if g.key&(1<<Tx) != 0 {
			d.Irq.Enable(d.channels[Tx].irq)
		}
		if g.key&(1<<Rx) != 0 {
			d.Irq.Enable(d.channels[Rx].irq)
		}
	case LockChannel:
		if g.key != 0 {
			d.Irq.Enable(d.channels[g.channel].irq)
		}
	}
}

// Isr services one channel's interrupt line: report and clear an error
// cause, then drain completed descriptors.  The platform's interrupt
// dispatch calls this with the channel whose line fired.
func (d *Dev) Isr(channel uint) {
	if channel >= NChannels {
		return
	}
	ch := &d.channels[channel]
	ch.counters.Isrs++

	irq_enabled := d.Irq.IsEnabled(ch.irq)
	d.Irq.Disable(ch.irq)

	status := ch.regs.get(reg_status)

	if status&status_error_irq != 0 {
		log.Printf("error: axidma: %s error interrupt, status 0x%x",
			ch.direction, status)
		ch.regs.set(reg_status, status_error_irq)
	}

	if status&(status_complete_irq|status_delay_irq) != 0 {
		// Clear the causes before draining so a completion racing
		// the sweep raises the line again.
		ch.regs.set(reg_status,
			status&(status_complete_irq|status_delay_irq))
		ch.reclaim()
	}

	if irq_enabled {
		d.Irq.Enable(ch.irq)
	}
}

// reclaim walks the ring from the completion cursor, delivering one
// callback per finished descriptor and freeing its slot.  This is the only
// place the completion cursor advances and the only place control/status
// are cleared.
func (ch *channel) reclaim() (processed uint) {
	d := ch.d
	i := ch.completion_desc_index
	ch.invd_desc(i)
	e := &ch.descriptors[i]

	for e.status&^desc_status_transferred_mask != 0 {
		var err error
		status := e.status

		// Meaningless for the tx channel.
		ch.last_rx_size = uint(status & desc_status_transferred_mask)

		if status&desc_status_decode_error != 0 {
			log.Printf("error: axidma: descriptor decode error, status 0x%x", status)
			ch.counters.DecodeErrors++
			err = ErrFault
		}
		if status&desc_status_slave_error != 0 {
			log.Printf("error: axidma: descriptor slave error, status 0x%x", status)
			ch.counters.SlaveErrors++
			err = ErrFault
		}
		if status&desc_status_internal_error != 0 {
			log.Printf("error: axidma: descriptor internal error, status 0x%x", status)
			ch.counters.InternalErrors++
			err = ErrFault
		}

		if ch.check_csum_in_isr {
			cs := e.app2
			if cs&desc_app2_fcs_error_mask != 0 {
				log.Printf("error: axidma: rx FCS error, app2 0x%x", cs)
				ch.counters.ChecksumErrors++
				err = ErrFault
			}
			if cs&desc_app2_ip_error_mask == desc_app2_ip_error_mask {
				log.Printf("error: axidma: rx IP checksum error, app2 0x%x", cs)
				ch.counters.ChecksumErrors++
				err = ErrFault
			}
			if cs&desc_app2_udp_error_mask == desc_app2_udp_error_mask {
				log.Printf("error: axidma: rx UDP checksum error, app2 0x%x", cs)
				ch.counters.ChecksumErrors++
				err = ErrFault
			}
			if cs&desc_app2_tcp_error_mask == desc_app2_tcp_error_mask {
				log.Printf("error: axidma: rx TCP checksum error, app2 0x%x", cs)
				ch.counters.ChecksumErrors++
				err = ErrFault
			}
			// In some corner cases the hardware cannot verify the
			// checksum at all; there is no per-transfer carrier
			// for "unknown", so that stays unreported.
		}

		if err != nil {
			ch.counters.Faults++
		} else {
			ch.counters.Completed++
		}

		if ch.done != nil {
			if ch.direction == PeripheralToMemory {
				d.cache.Invd(e.buffer_addr(d), uint(ch.last_rx_size))
			}
			ch.done(d, ch.done_arg, ch.index, err)
		}

		// Frees the slot so the ring can reuse it and the device
		// neither transfers it twice nor errors on the stale
		// complete bit.
		e.control, e.status = 0, 0
		d.Bus.Barrier()
		ch.flush_desc(i)

		i = ch.next_desc_index(i)
		ch.completion_desc_index = i
		ch.invd_desc(i)
		e = &ch.descriptors[i]
		processed++
	}
	return
}

func (e *descriptor) buffer_addr(d *Dev) uintptr {
	a := uintptr(e.buffer_address)
	if d.Addr64 {
		a |= uintptr(uint64(e.buffer_address_msb) << 32)
	}
	return a
}
