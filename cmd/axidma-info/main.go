// Copyright 2018 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Print the Xilinx AXI DMA engines described by a flattened device tree.
//
//	axidma-info [-v] [-f DTB]
package main

import (
	"github.com/platinasystems/axidma"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/parms"

	"fmt"
	"io/ioutil"
	"os"
)

const DefaultFile = "/boot/linux.dtb"

func main() {
	flag, args := flags.New(os.Args[1:], "-v")
	parm, args := parms.New(args, "-f")
	if len(parm.ByName["-f"]) == 0 {
		parm.ByName["-f"] = DefaultFile
	}
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "%v: unexpected\n", args)
		os.Exit(1)
	}

	b, err := ioutil.ReadFile(parm.ByName["-f"])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	nodes := axidma.Probe(b)
	if len(nodes) == 0 {
		fmt.Println("no axi dma nodes")
		return
	}
	for _, n := range nodes {
		fmt.Printf("%s: %s reg 0x%x", n.Name, n.Compatible, n.Reg)
		if n.RegSize != 0 {
			fmt.Printf(" size 0x%x", n.RegSize)
		}
		if len(n.Interrupts) > 0 {
			fmt.Printf(" interrupts %v", n.Interrupts)
		}
		fmt.Println()
		if flag.ByName["-v"] {
			fmt.Printf("  tx window 0x%x rx window 0x%x\n",
				n.Reg+0x00, n.Reg+0x30)
		}
	}
}
