// Copyright (C) 2024 The jstream Authors. All Rights Reserved.

// Program jstream decodes JSON documents with the incremental decoder,
// delivering the input in chunks of a configurable size.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jstream",
		Short: "Incremental JSON decoding tools",
	}

	rootCmd.AddCommand(newDecodeCmd())
	rootCmd.AddCommand(newScanCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openInput returns the named file, or stdin if no name is given.
func openInput(args []string) (*os.File, func(), error) {
	if len(args) == 0 {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
