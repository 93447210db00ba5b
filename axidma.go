// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Driver for Xilinx AXI DMA engines in scatter-gather mode.
//
// The engine has two fixed unidirectional channels sharing one register
// block: tx (memory to peripheral, window 0x00) and rx (peripheral to
// memory, window 0x30).  Each channel owns a ring of 64-byte descriptors
// that hardware fetches on its own; the only way to make it fetch new work
// is to advance the tail descriptor register.  Completions are reclaimed by
// the interrupt service sweep.
package axidma

import (
	"errors"
	"time"

	"github.com/jpillora/backoff"
	"github.com/platinasystems/log"
)

const (
	Tx = iota
	Rx
	NChannels
)

// Register, interrupt and cache maintenance access is platform provided.
// On coherent memory paths Cache may be nil.
type Bus interface {
	Read32(offset uint) uint32
	Write32(offset uint, v uint32)
	// Full store-ordering fence.
	Barrier()
}

type Irq interface {
	Enable(irq uint)
	Disable(irq uint)
	IsEnabled(irq uint) bool
	// Global interrupt disable for LockAll.
	Lock() int
	Unlock(key int)
}

type Cache interface {
	// Make prior CPU writes to [addr, addr+n) visible to the device.
	Flush(addr uintptr, n uint)
	// Discard CPU-cached copies of [addr, addr+n).
	Invd(addr uintptr, n uint)
}

type Direction int

const (
	MemoryToPeripheral Direction = iota
	PeripheralToMemory
)

func (d Direction) String() string {
	if d == MemoryToPeripheral {
		return "memory-to-peripheral"
	}
	return "peripheral-to-memory"
}

// Completion callback.  Runs synchronously inside the interrupt sweep, in
// ring order, once per completed or failed descriptor; its duration
// directly extends interrupt latency.
type Done func(d *Dev, arg interface{}, channel uint, err error)

var (
	ErrConfig    = errors.New("axidma: invalid configuration")
	ErrReset     = errors.New("axidma: soft reset timeout")
	ErrBusy      = errors.New("axidma: descriptor ring full")
	ErrFault     = errors.New("axidma: transfer fault")
	ErrChannel   = errors.New("axidma: invalid channel")
	ErrBlockSize = errors.New("axidma: block size exceeds descriptor length field")
	ErrAlign     = errors.New("axidma: rx buffer not cache line aligned")
)

type Config struct {
	Bus   Bus
	Irq   Irq
	Cache Cache

	// Interrupt lines for the tx and rx channels.
	TxIrq, RxIrq uint

	// Ring sizes; default defaultRingLen.
	NTxDescriptors, NRxDescriptors uint

	// Bus addresses of the descriptor rings as seen by the device.
	TxDescBase, RxDescBase uintptr

	// Descriptor ring storage, mapped by the platform at
	// TxDescBase/RxDescBase.  Each must hold NTxDescriptors (resp.
	// NRxDescriptors) 64 byte slots and be 64 byte aligned.  When nil
	// the ring is heap allocated, which only reaches simulated
	// devices; real hardware fetches from the configured bus address.
	TxRing, RxRing []byte

	// Write high halves of descriptor address registers.
	Addr64 bool

	// Interrupt coalescing: complete interrupt after threshold
	// descriptors, or after delay * 125 clock periods with no transfer.
	IrqThreshold uint32
	IrqDelay     uint32

	Lock LockPolicy

	// Rx buffer alignment requirement on non-coherent paths.
	CacheLineBytes uint

	// Called once after reset so the platform can connect Isr to the
	// channel interrupt lines.
	ConnectIrq func(*Dev)
}

type Dev struct {
	Config

	cache    Cache
	channels [NChannels]channel
}

const defaultRingLen = 16

// Soft reset poll bound.
const nResetPolls = 1000

func New(c Config) (*Dev, error) {
	if c.Bus == nil {
		return nil, errors.New("axidma: no register bus")
	}
	if c.Irq == nil {
		return nil, errors.New("axidma: no interrupt controller")
	}
	if c.NTxDescriptors == 0 {
		c.NTxDescriptors = defaultRingLen
	}
	if c.NRxDescriptors == 0 {
		c.NRxDescriptors = defaultRingLen
	}
	if c.IrqThreshold == 0 {
		c.IrqThreshold = 1
	}
	if c.CacheLineBytes == 0 {
		c.CacheLineBytes = 64
	}

	d := &Dev{Config: c}
	d.cache = c.Cache
	if d.cache == nil {
		d.cache = coherent{}
	}

	var err error

	tx := &d.channels[Tx]
	tx.d = d
	tx.index = Tx
	tx.regs = channel_regs{d: d, base: tx_reg_offset}
	tx.direction = MemoryToPeripheral
	tx.irq = c.TxIrq
	tx.desc_base = c.TxDescBase
	if tx.descriptors, err = ring_storage(c.TxRing, c.NTxDescriptors); err != nil {
		return nil, err
	}

	rx := &d.channels[Rx]
	rx.d = d
	rx.index = Rx
	rx.regs = channel_regs{d: d, base: rx_reg_offset}
	rx.direction = PeripheralToMemory
	rx.irq = c.RxIrq
	rx.desc_base = c.RxDescBase
	if rx.descriptors, err = ring_storage(c.RxRing, c.NRxDescriptors); err != nil {
		return nil, err
	}

	log.Print("notice: axidma: soft resetting engine")
	// Reset via the rx channel control register; hardware resets both
	// channels regardless of which window is written.
	if err := rx.soft_reset(); err != nil {
		return nil, err
	}
	tx.reset_ring()
	rx.reset_ring()

	if c.ConnectIrq != nil {
		c.ConnectIrq(d)
	}
	return d, nil
}

func (ch *channel) soft_reset() error {
	ch.regs.set(reg_control, control_reset)
	b := &backoff.Backoff{
		Min:    10 * time.Microsecond,
		Max:    time.Millisecond,
		Factor: 1.5,
		Jitter: false,
	}
	for i := 0; i < nResetPolls; i++ {
		if ch.regs.get(reg_control)&control_reset == 0 {
			return nil
		}
		time.Sleep(b.Duration())
	}
	log.Print("error: axidma: reset did not complete")
	return ErrReset
}

// ChannelByName maps the conventional direction tags to channel numbers.
func ChannelByName(name string) (channel uint, ok bool) {
	switch name {
	case "tx":
		return Tx, true
	case "rx":
		return Rx, true
	}
	return 0, false
}

// LastRxLength returns the transferred length of the most recently
// completed rx descriptor.
func (d *Dev) LastRxLength() uint { return d.channels[Rx].last_rx_size }

func (d *Dev) Counters(channel uint) (Counters, error) {
	if channel >= NChannels {
		return Counters{}, ErrChannel
	}
	return d.channels[channel].counters, nil
}
