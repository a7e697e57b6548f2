package commands

import (
	"io"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/uring"
	"github.com/brickingsoft/uring/pkg/files"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func newCatCommand() *cobra.Command {
	var bufferSize int

	cmd := &cobra.Command{
		Use:   "cat FILE...",
		Short: "Copy files to standard output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loop, err := newLoop()
			if err != nil {
				return err
			}
			defer loop.Close()

			stdout, err := unix.Dup(unix.Stdout)
			if err != nil {
				return err
			}
			out := files.NewFile(loop.Own(stdout), "stdout")
			defer out.Release()

			_, err = uring.Spawn(loop, func(co *uring.Co) error {
				buf := make([]byte, bufferSize)
				for _, name := range args {
					if catErr := cat(co, name, buf, out); catErr != nil {
						return catErr
					}
				}
				return nil
			}).BlockOn()
			return err
		},
	}

	cmd.Flags().IntVar(&bufferSize, "buffer", 64<<10, "read size")

	return cmd
}

func cat(co *uring.Co, name string, buf []byte, out *files.File) error {
	in, err := files.Open(co, name, unix.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer in.Release()
	for {
		n, readErr := in.Read(co, buf)
		if errors.Is(readErr, io.EOF) {
			return in.Close(co)
		}
		if readErr != nil {
			return readErr
		}
		if _, err = out.Write(co, buf[:n]); err != nil {
			return err
		}
	}
}
