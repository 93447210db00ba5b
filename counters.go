// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package axidma

import "fmt"

// Per channel event counters.  The engine has no hardware statistics
// block; these count driver-observed events.
type Counters struct {
	Submitted      uint64
	Completed      uint64
	Faults         uint64
	DecodeErrors   uint64
	SlaveErrors    uint64
	InternalErrors uint64
	ChecksumErrors uint64
	RingFull       uint64
	Isrs           uint64
}

var counter_names = []struct {
	name string
	get  func(*Counters) uint64
}{
	{"submitted descriptors", func(c *Counters) uint64 { return c.Submitted }},
	{"completed descriptors", func(c *Counters) uint64 { return c.Completed }},
	{"faulted descriptors", func(c *Counters) uint64 { return c.Faults }},
	{"decode errors", func(c *Counters) uint64 { return c.DecodeErrors }},
	{"slave errors", func(c *Counters) uint64 { return c.SlaveErrors }},
	{"internal errors", func(c *Counters) uint64 { return c.InternalErrors }},
	{"checksum errors", func(c *Counters) uint64 { return c.ChecksumErrors }},
	{"ring full rejections", func(c *Counters) uint64 { return c.RingFull }},
	{"interrupts serviced", func(c *Counters) uint64 { return c.Isrs }},
}

// String lists non-zero counters.
func (c *Counters) String() (s string) {
	for i := range counter_names {
		if v := counter_names[i].get(c); v != 0 {
			if len(s) > 0 {
				s += ", "
			}
			s += fmt.Sprintf("%s %d", counter_names[i].name, v)
		}
	}
	if len(s) == 0 {
		s = "no events"
	}
	return
}
