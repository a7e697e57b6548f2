package commands

import (
	"io"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/uring"
	"github.com/brickingsoft/uring/pkg/sockets"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newEchoCommand() *cobra.Command {
	var (
		listen  string
		network string
	)

	cmd := &cobra.Command{
		Use:   "echo",
		Short: "Serve an echo service, one detached task per connection",
		Example: `  uringctl echo --listen 127.0.0.1:7777`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loop, err := newLoop()
			if err != nil {
				return err
			}
			defer loop.Close()

			ln, err := sockets.Listen(loop, network, listen)
			if err != nil {
				return err
			}
			defer ln.Release()
			log.Info().Stringer("addr", ln.Addr()).Msg("echo listening")

			_, err = uring.Spawn(loop, func(co *uring.Co) error {
				for {
					conn, acceptErr := ln.Accept(co)
					if acceptErr != nil {
						return acceptErr
					}
					uring.Spawn(loop, func(co *uring.Co) error {
						return echo(co, conn)
					}).Detach()
				}
			}).BlockOn()
			return err
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:7777", "listen address")
	cmd.Flags().StringVar(&network, "network", "tcp", "tcp, tcp4, tcp6 or unix")

	return cmd
}

// echo writes back whatever conn sends until the peer shuts down.
func echo(co *uring.Co, conn *sockets.Conn) error {
	defer conn.Release()
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(co, buf)
		if errors.Is(err, io.EOF) {
			return conn.Close(co)
		}
		if err != nil {
			log.Debug().Err(err).Stringer("peer", conn.RemoteAddr()).Msg("echo read failed")
			return err
		}
		if _, err = conn.Write(co, buf[:n]); err != nil {
			return err
		}
	}
}
