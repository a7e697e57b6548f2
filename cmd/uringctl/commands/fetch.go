package commands

import (
	"fmt"
	"io"
	"net"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/uring"
	"github.com/brickingsoft/uring/pkg/files"
	"github.com/brickingsoft/uring/pkg/sockets"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func newFetchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fetch HOST PORT [PATH]",
		Short:   "Send an HTTP/1.0 GET and copy the raw response to standard output",
		Args:    cobra.RangeArgs(2, 3),
		Example: `  uringctl fetch example.com 80 /`,
		RunE: func(cmd *cobra.Command, args []string) error {
			host, port, path := args[0], args[1], "/"
			if len(args) == 3 {
				path = args[2]
			}

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
				return fetch(co, net.JoinHostPort(host, port), host, path, out)
			}).BlockOn()
			return err
		},
	}

	return cmd
}

func fetch(co *uring.Co, address string, host string, path string, out *files.File) error {
	conn, err := sockets.Dial(co, "tcp", address)
	if err != nil {
		return err
	}
	defer conn.Release()

	request := fmt.Sprintf("GET %s HTTP/1.0\r\nHost: %s\r\nConnection: close\r\n\r\n", path, host)
	if _, err = conn.Write(co, []byte(request)); err != nil {
		return err
	}
	buf := make([]byte, 16<<10)
	for {
		n, readErr := conn.Read(co, buf)
		if errors.Is(readErr, io.EOF) {
			return conn.Close(co)
		}
		if readErr != nil {
			return readErr
		}
		if _, err = out.Write(co, buf[:n]); err != nil {
			return err
		}
	}
}
