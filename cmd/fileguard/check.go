package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oriys/ctxguard"
)

func checkCmd() *cobra.Command {
	var (
		readable []string
		writable []string
		listable []string
		path     string
		kind     string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a path is allowed under a set of readable/writable/listable patterns",
		RunE: func(cmd *cobra.Command, args []string) error {
			var pattern any
			switch kind {
			case "read":
				pattern = toAnySlice(readable)
			case "write":
				pattern = toAnySlice(writable)
			case "list":
				pattern = toAnySlice(listable)
			default:
				return fmt.Errorf("--kind must be one of read, write, list (got %q)", kind)
			}

			matcher, err := ctxguard.ToMatcher(pattern)
			if err != nil {
				return fmt.Errorf("compile pattern: %w", err)
			}

			if matcher(path) {
				fmt.Printf("ALLOW %s %s\n", kind, path)
				return nil
			}
			fmt.Printf("DENY %s %s\n", kind, path)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&readable, "readable", nil, "readable path pattern (repeatable)")
	cmd.Flags().StringSliceVar(&writable, "writable", nil, "writable path pattern (repeatable)")
	cmd.Flags().StringSliceVar(&listable, "listable", nil, "listable path pattern (repeatable)")
	cmd.Flags().StringVar(&path, "path", "", "path to check")
	cmd.Flags().StringVar(&kind, "kind", "read", "access kind to check: read, write, or list")
	cmd.MarkFlagRequired("path")
	return cmd
}
