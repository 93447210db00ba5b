// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package axidma

// Coherency gate.  Descriptors and rx buffers are shared with the device;
// on non-coherent memory paths every producer write is flushed before the
// tail pointer can expose it and every consumer read is preceded by an
// invalidate.  On coherent paths both are no-ops.
type coherent struct{}

func (coherent) Flush(addr uintptr, n uint) {}
func (coherent) Invd(addr uintptr, n uint)  {}

func (ch *channel) flush_desc(i uint) {
	ch.d.cache.Flush(ch.desc_addr(i), desc_bytes)
}

func (ch *channel) invd_desc(i uint) {
	ch.d.cache.Invd(ch.desc_addr(i), desc_bytes)
}

func (d *Dev) is_coherent() bool {
	_, ok := d.cache.(coherent)
	return ok
}
