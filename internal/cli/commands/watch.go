package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/b2genn/internal/engine"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rebuild whenever the network or setup script changes",
		Long: `Build once, then watch the network description and setup script and
rebuild with a fresh build context after every change. Failed builds are
reported and the watch continues. Stop with Ctrl+C.`,
		Example: `  b2genn watch --network net.yaml --no-compile`,
		Args:    cobra.NoArgs,
		RunE:    runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	eg, egctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return cmdCtx.Engine.Watch(egctx, engine.WatchOptions{
			Debounce: cmdCtx.Cfg.Debounce,
			OnBuild: func(res *engine.Result, err error) {
				if err != nil {
					r.Error(err.Error())
					return
				}
				if rerr := renderBuild(r, res); rerr != nil {
					cmdCtx.Logger.Error("failed to render build", "error", rerr)
				}
			},
		})
	})

	// Handle interrupt signals
	eg.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			cmdCtx.Logger.Debug("stopping watch", "signal", sig.String())
			cancel()
		case <-egctx.Done():
		}
		return nil
	})

	r.Muted(fmt.Sprintf("watching %v", cmdCtx.Engine.WatchedFiles()))
	return eg.Wait()
}
