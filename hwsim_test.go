// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package axidma

import "testing"

// Simulated register block.  Status registers are write-1-to-clear; the
// soft reset bit self-clears after reset_polls reads of the control
// register, or never when reset_polls is negative.
type sim_bus struct {
	regs        map[uint]uint32
	reset_polls int
	writes      []sim_write
	barriers    int
}

type sim_write struct {
	offset uint
	value  uint32
}

func new_sim_bus() *sim_bus { return &sim_bus{regs: make(map[uint]uint32)} }

func (b *sim_bus) Read32(offset uint) uint32 {
	v := b.regs[offset]
	is_control := offset == tx_reg_offset+uint(reg_control) ||
		offset == rx_reg_offset+uint(reg_control)
	if is_control && v&control_reset != 0 && b.reset_polls >= 0 {
		if b.reset_polls == 0 {
			v &^= control_reset
			b.regs[offset] = v
		} else {
			b.reset_polls--
		}
	}
	return v
}

func (b *sim_bus) Write32(offset uint, v uint32) {
	b.writes = append(b.writes, sim_write{offset, v})
	switch offset {
	case tx_reg_offset + uint(reg_status), rx_reg_offset + uint(reg_status):
		b.regs[offset] &^= v
	default:
		b.regs[offset] = v
	}
}

func (b *sim_bus) Barrier() { b.barriers++ }

// Raise status bits without write-1-to-clear getting in the way, as the
// device would.
func (b *sim_bus) raise_status(base uint, v uint32) {
	b.regs[base+uint(reg_status)] |= v
}

type sim_irq struct {
	enabled map[uint]bool
	locks   int
}

func new_sim_irq() *sim_irq { return &sim_irq{enabled: make(map[uint]bool)} }

func (q *sim_irq) Enable(irq uint)         { q.enabled[irq] = true }
func (q *sim_irq) Disable(irq uint)        { q.enabled[irq] = false }
func (q *sim_irq) IsEnabled(irq uint) bool { return q.enabled[irq] }
func (q *sim_irq) Lock() int               { q.locks++; return q.locks }
func (q *sim_irq) Unlock(key int)          { q.locks-- }

type sim_span struct {
	addr uintptr
	n    uint
}

// Recording cache controller; marks the memory path non-coherent.
type sim_cache struct {
	flushes []sim_span
	invds   []sim_span
}

func (c *sim_cache) Flush(addr uintptr, n uint) {
	c.flushes = append(c.flushes, sim_span{addr, n})
}

func (c *sim_cache) Invd(addr uintptr, n uint) {
	c.invds = append(c.invds, sim_span{addr, n})
}

const (
	test_tx_irq = 61
	test_rx_irq = 62

	test_tx_desc_base = uintptr(0x10000)
	test_rx_desc_base = uintptr(0x20000)
)

func new_test_dev(t *testing.T, c Config) (*Dev, *sim_bus, *sim_irq) {
	t.Helper()
	b := new_sim_bus()
	q := new_sim_irq()
	q.Enable(test_tx_irq)
	q.Enable(test_rx_irq)
	c.Bus = b
	c.Irq = q
	c.TxIrq = test_tx_irq
	c.RxIrq = test_rx_irq
	if c.TxDescBase == 0 {
		c.TxDescBase = test_tx_desc_base
	}
	if c.RxDescBase == 0 {
		c.RxDescBase = test_rx_desc_base
	}
	d, err := New(c)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, b, q
}

// Completion callback recorder.
type done_recorder struct {
	channels []uint
	errs     []error
}

func (r *done_recorder) done(d *Dev, arg interface{}, channel uint, err error) {
	r.channels = append(r.channels, channel)
	r.errs = append(r.errs, err)
}
