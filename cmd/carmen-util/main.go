// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Command carmen-util is a small operator CLI over a Carmen state/archive
// directory, wired with urfave/cli/v2 the way go-ethereum's cmd/geth wires
// its own subcommands at the edge of the library.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	carmen "github.com/Fantom-foundation/Carmen/go"
	"github.com/Fantom-foundation/Carmen/go/common"
)

func hashFromHex(s string) (carmen.Hash, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return carmen.Hash{}, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(raw) != len(carmen.Hash{}) {
		return carmen.Hash{}, fmt.Errorf("hash %q has wrong length", s)
	}
	var h carmen.Hash
	copy(h[:], raw)
	return h, nil
}

var (
	dirFlag = &cli.StringFlag{
		Name:     "dir",
		Usage:    "state directory",
		Required: true,
	}
	schemaFlag = &cli.IntFlag{
		Name:  "schema",
		Usage: "live state schema (1, 2, or 3)",
		Value: 1,
	}
	archiveFlag = &cli.StringFlag{
		Name:  "archive",
		Usage: "archive backend: none, leveldb, sqlite",
		Value: "none",
	}
	archivePathFlag = &cli.StringFlag{
		Name:  "archive-path",
		Usage: "archive directory or file path",
	}
	blockFlag = &cli.Uint64Flag{
		Name:  "block",
		Usage: "block number",
	}
)

func openFromFlags(c *cli.Context) (*carmen.Instance, error) {
	archiveKind := carmen.NoArchive
	switch c.String("archive") {
	case "none", "":
	case "leveldb":
		archiveKind = carmen.ArchiveLevelDB
	case "sqlite":
		archiveKind = carmen.ArchiveSQLite
	default:
		return nil, fmt.Errorf("unknown archive backend %q", c.String("archive"))
	}
	return carmen.Open(carmen.Parameters{
		Schema:      carmen.Schema(c.Int("schema")),
		Directory:   c.String("dir"),
		Archive:     archiveKind,
		ArchivePath: c.String("archive-path"),
	})
}

func cmdOpen() *cli.Command {
	return &cli.Command{
		Name:  "open",
		Usage: "open a state directory, report its current hash, then close",
		Flags: []cli.Flag{dirFlag, schemaFlag, archiveFlag, archivePathFlag},
		Action: func(c *cli.Context) error {
			inst, err := openFromFlags(c)
			if err != nil {
				return err
			}
			defer inst.Close()

			hash, err := inst.GetHash()
			if err != nil {
				return err
			}
			fmt.Printf("state hash: %s\n", hash)
			return nil
		},
	}
}

func cmdVerify() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "recompute the archive root at a block and compare against an expected hash",
		Flags: []cli.Flag{
			dirFlag, schemaFlag, archiveFlag, archivePathFlag, blockFlag,
			&cli.StringFlag{Name: "expect", Usage: "expected archive root hash, hex-encoded", Required: true},
		},
		Action: func(c *cli.Context) error {
			inst, err := openFromFlags(c)
			if err != nil {
				return err
			}
			defer inst.Close()

			if inst.Archive() == nil {
				return fmt.Errorf("no archive configured; pass --archive")
			}

			expected, err := hashFromHex(c.String("expect"))
			if err != nil {
				return err
			}

			block := c.Uint64("block")
			return inst.Archive().Verify(block, expected, func(addr string) {
				fmt.Printf("  verified %s\n", addr)
			})
		},
	}
}

func cmdDump() *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "list every address known to the archive as of a block",
		Flags: []cli.Flag{dirFlag, schemaFlag, archiveFlag, archivePathFlag, blockFlag},
		Action: func(c *cli.Context) error {
			inst, err := openFromFlags(c)
			if err != nil {
				return err
			}
			defer inst.Close()

			if inst.Archive() == nil {
				return fmt.Errorf("no archive configured; pass --archive")
			}

			accounts, err := inst.Archive().GetAccountList(c.Uint64("block"))
			if err != nil {
				return err
			}
			var total common.Balance
			for _, addr := range accounts {
				balance, err := inst.Archive().GetBalance(c.Uint64("block"), addr)
				if err != nil {
					return err
				}
				fmt.Printf("%s  balance=%s\n", addr, balance)
				total, err = common.AddBalance(total, balance)
				if err != nil {
					return err
				}
			}
			fmt.Printf("total  balance=%s\n", total)
			return nil
		},
	}
}

func main() {
	app := &cli.App{
		Name:  "carmen-util",
		Usage: "inspect and verify Carmen state/archive directories",
		Commands: []*cli.Command{
			cmdOpen(),
			cmdVerify(),
			cmdDump(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
