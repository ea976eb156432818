package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shopfloor/backend/internal/client"
)

// newWatchCommand 轮询刷新看板并持续输出，Ctrl-C 退出
func newWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "持续轮询并展示看板",
		RunE: func(cmd *cobra.Command, args []string) error {
			board := ctx.kanbanBoard()

			refresh := func(rctx context.Context) error {
				if err := board.Refresh(rctx); err != nil {
					return err
				}
				fmt.Printf("── %s ──\n", time.Now().Format("15:04:05"))
				printBoard(board.Lanes())
				return nil
			}

			poller := client.NewPoller(interval, refresh, ctx.logger)

			runCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			poller.Start(runCtx)
			<-runCtx.Done()
			poller.Stop()
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 15*time.Second, "轮询间隔")
	return cmd
}
