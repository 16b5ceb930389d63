// Copyright (C) 2024 The jstream Authors. All Rights Reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entitystream/jstream"
	"github.com/entitystream/jstream/tree"
)

func newDecodeCmd() *cobra.Command {
	var chunkSize int
	var path string

	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode a JSON document and print its tree",
		Long: `Decode a JSON document and print its compact re-encoding.

If a file is provided, input is read from it; otherwise input is read
from stdin. The input is delivered to the decoder in chunks of
--chunk-size bytes; a size of 1 feeds the decoder one byte at a time.

Use --path to print only the value addressed by an RFC 6901 JSON
pointer, for example --path /users/0/name.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, done, err := openInput(args)
			if err != nil {
				return err
			}
			defer done()

			v, err := jstream.DecodeChunked(in, chunkSize)
			if err != nil {
				return fmt.Errorf("decode: %w", err)
			}
			if path != "" {
				if v, err = tree.Eval(v, path); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), tree.Format(v))
			return nil
		},
	}
	cmd.Flags().IntVar(&chunkSize, "chunk-size", jstream.DefaultChunkSize,
		"deliver input in chunks of this many bytes")
	cmd.Flags().StringVar(&path, "path", "", "print only the value at this JSON pointer")
	return cmd
}
