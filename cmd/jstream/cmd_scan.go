// Copyright (C) 2024 The jstream Authors. All Rights Reserved.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/entitystream/jstream"
)

func newScanCmd() *cobra.Command {
	var chunkSize int
	var comments bool

	cmd := &cobra.Command{
		Use:   "scan [file]",
		Short: "Print the lexical tokens of a JSON document",
		Long: `Print the lexical tokens of a JSON document, one per line,
with their source locations. Input is fed to the scanner in chunks of
--chunk-size bytes, so the output also demonstrates that tokenization
does not depend on chunk boundaries.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, done, err := openInput(args)
			if err != nil {
				return err
			}
			defer done()

			s := jstream.NewScanner()
			s.AllowComments(comments)
			buf := make([]byte, chunkSize)
			for {
				err := s.Next()
				if err == jstream.ErrMoreInput {
					n, rerr := in.Read(buf)
					if n > 0 {
						s.Feed(buf[:n])
					}
					if rerr == io.EOF {
						s.End()
					} else if rerr != nil {
						return rerr
					}
					continue
				}
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-10v %s\n",
					s.Location(), s.Token(), s.Text())
			}
		},
	}
	cmd.Flags().IntVar(&chunkSize, "chunk-size", jstream.DefaultChunkSize,
		"feed input in chunks of this many bytes")
	cmd.Flags().BoolVar(&comments, "comments", false, "allow JSON comments")
	return cmd
}
