package commands

import (
	"fmt"

	"github.com/brickingsoft/uring/pkg/capability"
	"github.com/brickingsoft/uring/pkg/kernel"
	"github.com/spf13/cobra"
)

func newProbeCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Report kernel version, supported operations and features",
		Example: `  # Supported operations only
  uringctl probe

  # Every known operation, marked yes or no
  uringctl probe --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loop, err := newLoop()
			if err != nil {
				return err
			}
			defer loop.Close()

			out := cmd.OutOrStdout()
			if v, vErr := kernel.Get(); vErr == nil {
				fmt.Fprintf(out, "kernel: %s\n", v)
			}
			caps := loop.Capabilities()
			fmt.Fprintln(out, "operations:")
			for _, op := range capability.AllOps() {
				supported := caps.Supports(op)
				if !supported && !all {
					continue
				}
				mark := "yes"
				if !supported {
					mark = "no"
				}
				fmt.Fprintf(out, "  %-18s %s\n", op, mark)
			}
			fmt.Fprintln(out, "features:")
			for _, f := range caps.Features() {
				fmt.Fprintf(out, "  %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list unsupported operations too")

	return cmd
}
