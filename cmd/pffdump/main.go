// Copyright 2024 The pffparse Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command pffdump opens a PST/OST/PAB file and prints a summary of its
// header, descriptors, and tables. It is a thin shell over the public
// package API — every byte it prints came from a pff.Context.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/pffparse/pff"
)

type config struct {
	wantHeader      bool
	wantDescriptors bool
	wantTable       uint
	wantRecover     bool
	strict          bool
}

func main() {
	dumpCmd := flag.NewFlagSet("dump", flag.ExitOnError)
	wantHeader := dumpCmd.Bool("header", false, "Dump the file header")
	wantDescriptors := dumpCmd.Bool("descriptors", false, "List every live descriptor id")
	wantTable := dumpCmd.Uint("table", 0, "Dump the table belonging to this descriptor id")
	wantRecover := dumpCmd.Bool("recover", false, "Run the recovery engine and report counts")
	strict := dumpCmd.Bool("strict", false, "Treat block/index mismatches as fatal")

	if len(os.Args) < 2 {
		showHelp()
	}

	switch os.Args[1] {
	case "dump":
		dumpCmd.Parse(os.Args[3:])
		if dumpCmd.NArg() > 0 {
			showHelp()
		}
		run(os.Args[2], config{
			wantHeader:      *wantHeader,
			wantDescriptors: *wantDescriptors,
			wantTable:       *wantTable,
			wantRecover:     *wantRecover,
			strict:          *strict,
		})
	case "version":
		fmt.Println("pffdump version 0.1.0")
	default:
		showHelp()
	}
}

func run(path string, cfg config) {
	ctx, err := pff.Open(path, &pff.Options{StrictValidation: cfg.strict})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", path, err)
		os.Exit(1)
	}
	defer ctx.Close()

	if cfg.wantHeader {
		printJSON(ctx.Header())
	}

	if cfg.wantDescriptors {
		listDescriptors(ctx)
	}

	if cfg.wantTable != 0 {
		dumpTable(ctx, uint32(cfg.wantTable))
	}

	if cfg.wantRecover {
		report, err := ctx.Recover(pff.RecoveryOptions{ScanForFragments: true}, nil, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "recover: %v\n", err)
			return
		}
		printJSON(report)
	}
}

func listDescriptors(ctx *pff.Context) {
	n := 0
	err := ctx.WalkDescriptors(func(id uint32) bool {
		fmt.Println(id)
		n++
		return true
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "walk descriptors: %v\n", err)
	}
}

func dumpTable(ctx *pff.Context, id uint32) {
	d, err := ctx.GetDescriptor(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "get descriptor %d: %v\n", id, err)
		return
	}
	t, err := d.OpenTable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "open table for %d: %v\n", id, err)
		return
	}
	fmt.Printf("type=%s sets=%d columns=%d flags=%v\n", t.Type, t.Sets(), t.Columns(), t.Flags)
	for s := 0; s < t.Sets(); s++ {
		for c := 0; c < t.Columns(); c++ {
			cell, err := t.CellAt(s, c)
			if err != nil {
				continue
			}
			data, _ := cell.Stream.ReadAll()
			switch cell.ValueType {
			case pff.TypeStringUTF16:
				str, err := pff.DecodeUTF16LE(data)
				if err != nil {
					fmt.Printf("  [%d][%d] entry_type=0x%04x value_type=0x%04x bytes=%d (decode error: %v)\n",
						s, c, cell.ID.EntryType, uint16(cell.ValueType), len(data), err)
					continue
				}
				fmt.Printf("  [%d][%d] entry_type=0x%04x value_type=0x%04x string=%q\n",
					s, c, cell.ID.EntryType, uint16(cell.ValueType), str)
			case pff.TypeString:
				n := bytes.IndexByte(data, 0)
				if n < 0 {
					n = len(data)
				}
				fmt.Printf("  [%d][%d] entry_type=0x%04x value_type=0x%04x string=%q\n",
					s, c, cell.ID.EntryType, uint16(cell.ValueType), string(data[:n]))
			default:
				fmt.Printf("  [%d][%d] entry_type=0x%04x value_type=0x%04x bytes=%d\n",
					s, c, cell.ID.EntryType, uint16(cell.ValueType), len(data))
			}
		}
	}
}

func printJSON(v interface{}) {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal: %v\n", err)
		return
	}
	fmt.Println(string(buf))
}

func showHelp() {
	fmt.Print(`pffdump - inspect PST/OST/PAB container files

Usage:
  pffdump dump <file> [-header] [-descriptors] [-table <id>] [-recover] [-strict]
  pffdump version
`)
	os.Exit(1)
}
