package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chazu/kerf/pkg/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP split API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			if !c.cfg.Server.Debug {
				gin.SetMode(gin.ReleaseMode)
			}

			sp, err := c.cfg.Kernel.Splitter()
			if err != nil {
				return err
			}
			st, err := c.cfg.Store.Open(c.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := st.Close(); err != nil {
					c.logger.Warn("store close failed", "error", err)
				}
			}()

			srv, err := server.New(server.Options{
				Splitter: sp,
				Store:    st,
				Logger:   c.logger,
				Debug:    c.cfg.Server.Debug,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
