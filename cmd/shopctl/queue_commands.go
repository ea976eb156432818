package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"shopfloor/backend/internal/dto"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "车间队列查询与操作",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueReorderCommand(ctx))
	queueCmd.AddCommand(newQueueClaimCommand(ctx))
	queueCmd.AddCommand(newQueueUnclaimCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var shop string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "查看车道队列",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := ctx.queueStore(shop)
			if err := store.Refresh(cmd.Context()); err != nil {
				return err
			}
			unclaimed, claimed := store.SplitByClaim()

			fmt.Println(renderQueueTable("未认领", unclaimed))
			if len(claimed) > 0 {
				fmt.Println()
				fmt.Println(renderQueueTable("已认领", claimed))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&shop, "shop", "cnc", "车道标识 (cnc | printing)")
	return cmd
}

func newQueueReorderCommand(ctx *commandContext) *cobra.Command {
	var shop string
	cmd := &cobra.Command{
		Use:   "reorder <job-id> <target-index>",
		Short: "将工件移动到未认领队列的指定位置",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("目标位置必须是数字: %w", err)
			}

			store := ctx.queueStore(shop)
			if err := store.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := store.BeginDrag(args[0]); err != nil {
				return err
			}
			if err := store.DragOver(target); err != nil {
				store.CancelDrag()
				return err
			}
			if err := store.Commit(cmd.Context()); err != nil {
				return err
			}

			unclaimed, _ := store.SplitByClaim()
			fmt.Println(renderQueueTable("未认领", unclaimed))
			return nil
		},
	}
	cmd.Flags().StringVar(&shop, "shop", "cnc", "车道标识 (cnc | printing)")
	return cmd
}

func newQueueClaimCommand(ctx *commandContext) *cobra.Command {
	var shop string
	cmd := &cobra.Command{
		Use:   "claim <job-id>",
		Short: "认领工件",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := ctx.queueStore(shop)
			if err := store.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := store.Claim(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("已认领", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&shop, "shop", "cnc", "车道标识 (cnc | printing)")
	return cmd
}

func newQueueUnclaimCommand(ctx *commandContext) *cobra.Command {
	var shop string
	cmd := &cobra.Command{
		Use:   "unclaim <job-id>",
		Short: "取消认领，工件回到队列尾部",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := ctx.queueStore(shop)
			if err := store.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := store.Unclaim(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("已取消认领", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&shop, "shop", "cnc", "车道标识 (cnc | printing)")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	var shop string
	cmd := &cobra.Command{
		Use:   "remove <job-id>",
		Short: "删除工件",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := ctx.queueStore(shop)
			if err := store.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := store.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("已删除", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&shop, "shop", "cnc", "车道标识 (cnc | printing)")
	return cmd
}

func renderQueueTable(title string, jobs []dto.JobResponse) string {
	rows := make([][]string, 0, len(jobs))
	for i := range jobs {
		j := &jobs[i]
		claimer := "-"
		if j.ClaimedByName != "" {
			claimer = j.ClaimedByName
		}
		rows = append(rows, []string{
			strconv.Itoa(j.QueuePosition),
			j.ID,
			j.PartName,
			j.OwnerName,
			j.Status,
			claimer,
		})
	}
	header := renderTable(
		[]string{"#", "ID", "零件", "提交人", "状态", "认领人"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
	return fmt.Sprintf("%s (%d)\n%s", title, len(jobs), header)
}
