// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package axidma

import (
	"encoding/binary"
	"strings"

	"github.com/platinasystems/fdt"
)

// Two compatibles match the very same engine, depending on whether it is
// instantiated inside the AXI ethernet subsystem or stands alone.
var compatibles = []string{
	"xlnx,eth-dma",
	"xlnx,axi-dma-1.00.a",
}

// NodeConfig is one DMA engine found in the device tree.  Interrupts carry
// the raw specifier cells for the platform's interrupt controller to
// interpret; with plain two-cell specifiers they are the tx and rx lines
// in order.
type NodeConfig struct {
	Name       string
	Compatible string
	Reg        uintptr
	RegSize    uint
	Interrupts []uint32
}

// Probe parses a flattened device tree blob and returns all AXI DMA engine
// nodes in it.
func Probe(dtb []byte) []NodeConfig {
	t := &fdt.Tree{Debug: false, IsLittleEndian: false}
	t.Parse(dtb)
	return ProbeTree(t)
}

// ProbeTree walks an already parsed tree.
func ProbeTree(t *fdt.Tree) (nodes []NodeConfig) {
	if t.RootNode == nil {
		return
	}
	address_cells := prop_cell(t.RootNode, "#address-cells", 1)
	size_cells := prop_cell(t.RootNode, "#size-cells", 1)
	walk(t.RootNode, func(n *fdt.Node) {
		c, ok := match_compatible(n)
		if !ok {
			return
		}
		nc := NodeConfig{Name: n.Name, Compatible: c}
		if reg, ok := n.Properties["reg"]; ok {
			addr, rest := take_cells(reg, address_cells)
			size, _ := take_cells(rest, size_cells)
			nc.Reg = uintptr(addr)
			nc.RegSize = uint(size)
		}
		if irqs, ok := n.Properties["interrupts"]; ok {
			for len(irqs) >= 4 {
				nc.Interrupts = append(nc.Interrupts,
					binary.BigEndian.Uint32(irqs))
				irqs = irqs[4:]
			}
		}
		nodes = append(nodes, nc)
	})
	return
}

func walk(n *fdt.Node, f func(*fdt.Node)) {
	f(n)
	for _, c := range n.Children {
		walk(c, f)
	}
}

func match_compatible(n *fdt.Node) (string, bool) {
	p, ok := n.Properties["compatible"]
	if !ok {
		return "", false
	}
	for _, s := range strings.Split(string(p), "\x00") {
		for _, c := range compatibles {
			if s == c {
				return c, true
			}
		}
	}
	return "", false
}

func prop_cell(n *fdt.Node, name string, def uint) uint {
	if p, ok := n.Properties[name]; ok && len(p) >= 4 {
		return uint(binary.BigEndian.Uint32(p))
	}
	return def
}

// Device tree cells are big-endian 32 bit words; addresses and sizes span
// one or two of them.
func take_cells(b []byte, cells uint) (v uint64, rest []byte) {
	rest = b
	for i := uint(0); i < cells && len(rest) >= 4; i++ {
		v = v<<32 | uint64(binary.BigEndian.Uint32(rest))
		rest = rest[4:]
	}
	return
}
