// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package axidma

import (
	"fmt"
	"unsafe"
)

// In-memory scatter-gather descriptor, fetched and written back by the
// device.  Hardware requires 64 byte size and alignment; the address
// registers ignore the low 6 bits.
type descriptor struct {
	// next descriptor [31:6], bits 5-0 reserved
	nxtdesc uint32
	// next descriptor [63:32]
	nxtdesc_msb uint32
	// buffer address [31:0]
	buffer_address uint32
	// buffer address [63:32]
	buffer_address_msb uint32
	_                  uint32
	_                  uint32

	// bitfield, masks defined below
	control uint32
	// bitfield, masks defined below
	status uint32

	// application sideband words passed to/from the AXI stream device,
	// e.g. ethernet checksum offload
	app0 uint32
	app1 uint32
	app2 uint32
	app3 uint32
	app4 uint32

	_ [3]uint32
}

const desc_bytes = 64

// descriptor control field
const (
	// requested transfer length
	desc_control_length_mask = 0x03ffffff
	// descriptor is end of transfer
	desc_control_end_of_frame = 0x04000000
	// descriptor is start of transfer
	desc_control_start_of_frame = 0x08000000
)

// descriptor status field
const (
	// transferred byte count
	desc_status_transferred_mask = 0x03ffffff
	// internal DMA error, e.g. 0-length transfer
	desc_status_internal_error = 0x10000000
	// SLVERR on AXI bus from memory
	desc_status_slave_error = 0x20000000
	// DECERR on AXI bus from memory
	desc_status_decode_error = 0x40000000
	// transfer completed
	desc_status_complete = 0x80000000
)

// app0 requests checksum offload from the ethernet subsystem; app2 carries
// its rx verification result.  The IP/UDP/TCP error patterns only count
// when the whole per-protocol bit group reads back set.
const (
	desc_app0_csum_offload_full = 0x00000002
	desc_app0_csum_offload_none = 0x00000000

	desc_app2_fcs_error_mask = 0x00000100
	desc_app2_ip_error_mask  = 0x00000028
	desc_app2_udp_error_mask = 0x00000030
	desc_app2_tcp_error_mask = 0x00000038
)

func init() {
	if got, want := unsafe.Sizeof(descriptor{}), uintptr(desc_bytes); got != want {
		panic(fmt.Errorf("axidma: descriptor is %d bytes, want %d", got, want))
	}
}

// ring_storage overlays descriptor slots onto caller-provided device
// visible memory, or heap allocates when none is given.
func ring_storage(b []byte, n uint) ([]descriptor, error) {
	if b == nil {
		return make([]descriptor, n), nil
	}
	if uint(len(b)) < n*desc_bytes {
		return nil, fmt.Errorf("%w: ring arena is %d bytes, need %d",
			ErrConfig, len(b), n*desc_bytes)
	}
	if uintptr(unsafe.Pointer(&b[0]))%desc_bytes != 0 {
		return nil, fmt.Errorf("%w: ring arena not %d byte aligned",
			ErrConfig, desc_bytes)
	}
	return unsafe.Slice((*descriptor)(unsafe.Pointer(&b[0])), int(n)), nil
}

// A slot is free when it has neither pending work nor an unreclaimed
// completion.
func (e *descriptor) is_free() bool { return e.control == 0 && e.status == 0 }

func (e *descriptor) String() (s string) {
	if e.is_free() {
		return "free"
	}
	s = fmt.Sprintf("len %d", e.control&desc_control_length_mask)
	if e.control&desc_control_start_of_frame != 0 {
		s += ", sof"
	}
	if e.control&desc_control_end_of_frame != 0 {
		s += ", eof"
	}
	if e.status&desc_status_complete != 0 {
		s += fmt.Sprintf(", complete %d", e.status&desc_status_transferred_mask)
	}
	if e.status&desc_status_decode_error != 0 {
		s += ", decode-error"
	}
	if e.status&desc_status_slave_error != 0 {
		s += ", slave-error"
	}
	if e.status&desc_status_internal_error != 0 {
		s += ", internal-error"
	}
	return
}

// Bus address of descriptor i as the device sees it.
func (ch *channel) desc_addr(i uint) uintptr {
	return ch.desc_base + uintptr(i)*desc_bytes
}

func (ch *channel) next_desc_index(i uint) uint {
	i++
	if i >= uint(len(ch.descriptors)) {
		i = 0
	}
	return i
}

// Rebuild the ring: every slot zeroed except its link to the following
// slot, last slot linking back to the first, each slot committed to the
// device visible side.  Cursors start as if the ring had just wrapped, so
// the first submission lands in slot 0.
func (ch *channel) reset_ring() {
	n := uint(len(ch.descriptors))
	ch.populated_desc_index = n - 1
	ch.completion_desc_index = 0
	for i := uint(0); i < n; i++ {
		next := ch.desc_addr(ch.next_desc_index(i))
		e := &ch.descriptors[i]
		*e = descriptor{nxtdesc: uint32(next)}
		if ch.d.Addr64 {
			e.nxtdesc_msb = uint32(uint64(next) >> 32)
		}
		ch.d.cache.Flush(ch.desc_addr(i), desc_bytes)
	}
}
