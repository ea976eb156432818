package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"shopfloor/backend/internal/client"
	"shopfloor/backend/internal/dto"
	"shopfloor/backend/internal/model"
)

func newPartsCommand(ctx *commandContext) *cobra.Command {
	partsCmd := &cobra.Command{
		Use:   "parts",
		Short: "制造看板查询与操作",
	}

	partsCmd.AddCommand(newPartsBoardCommand(ctx))
	partsCmd.AddCommand(newPartsSummaryCommand(ctx))
	partsCmd.AddCommand(newPartsMoveCommand(ctx))
	partsCmd.AddCommand(newPartsClaimCommand(ctx))
	partsCmd.AddCommand(newPartsReleaseCommand(ctx))
	partsCmd.AddCommand(newPartsETACommand(ctx))
	partsCmd.AddCommand(newPartsDeleteCommand(ctx))

	return partsCmd
}

func newPartsBoardCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "按阶段列展示看板",
		RunE: func(cmd *cobra.Command, args []string) error {
			board := ctx.kanbanBoard()
			if err := board.Refresh(cmd.Context()); err != nil {
				return err
			}
			printBoard(board.Lanes())
			return nil
		},
	}
}

func newPartsSummaryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "看板汇总统计",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := ctx.api.PartSummary(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("总计 %d（紧急 %d）\n", summary.Total, summary.Urgent)
			for _, status := range stageSequence() {
				fmt.Printf("  %-26s %d\n", model.StageLabels[status], summary.ByStatus[status])
			}
			return nil
		},
	}
}

func newPartsMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <part-id> <status>",
		Short: "请求阶段变更（学生仅限相邻阶段）",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			board := ctx.kanbanBoard()
			if err := board.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := board.RequestStageChange(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("已移动 %s → %s\n", args[0], args[1])
			return nil
		},
	}
}

func newPartsClaimCommand(ctx *commandContext) *cobra.Command {
	var etaIn time.Duration
	var note string
	cmd := &cobra.Command{
		Use:   "claim <part-id>",
		Short: "认领零件（必须同时承诺 ETA）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			board := ctx.kanbanBoard()
			if err := board.Refresh(cmd.Context()); err != nil {
				return err
			}
			target := time.Now().Add(etaIn)
			if err := board.Claim(cmd.Context(), args[0], target, note); err != nil {
				return err
			}
			fmt.Printf("已认领 %s，ETA %s\n", args[0], target.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().DurationVar(&etaIn, "eta-in", 0, "距现在的交付时长，如 4h30m（必填）")
	cmd.Flags().StringVar(&note, "note", "", "ETA 备注")
	cmd.MarkFlagRequired("eta-in")
	return cmd
}

func newPartsReleaseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "release <part-id>",
		Short: "释放零件",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			board := ctx.kanbanBoard()
			if err := board.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := board.Release(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("已释放", args[0])
			return nil
		},
	}
}

func newPartsETACommand(ctx *commandContext) *cobra.Command {
	var minutes int
	var note string
	cmd := &cobra.Command{
		Use:   "eta <part-id>",
		Short: "更新交付承诺",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			board := ctx.kanbanBoard()
			if err := board.Refresh(cmd.Context()); err != nil {
				return err
			}
			req := &dto.PartETARequest{ETAMinutes: &minutes, ETANote: note}
			if err := board.UpdateETA(cmd.Context(), args[0], req); err != nil {
				return err
			}
			fmt.Printf("已更新 %s 的 ETA 为 %d 分钟\n", args[0], minutes)
			return nil
		},
	}
	cmd.Flags().IntVar(&minutes, "minutes", 0, "距现在的分钟数（必填）")
	cmd.Flags().StringVar(&note, "note", "", "ETA 备注")
	cmd.MarkFlagRequired("minutes")
	return cmd
}

func newPartsDeleteCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <part-id>",
		Short: "删除零件（需 --yes 二次确认）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			board := ctx.kanbanBoard()
			if err := board.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := board.ArmDelete(args[0]); err != nil {
				return err
			}
			if !yes {
				board.DisarmDelete()
				fmt.Println("删除是不可恢复操作，确认请附加 --yes")
				return nil
			}
			if err := board.ConfirmDelete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("已删除", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "确认执行删除")
	return cmd
}

// stageSequence 按流水线顺序返回阶段列表
func stageSequence() []string {
	seq := make([]string, len(model.StageOrder))
	for status, order := range model.StageOrder {
		seq[order] = status
	}
	return seq
}

func printBoard(lanes map[string][]dto.PartResponse) {
	now := time.Now()
	for _, status := range stageSequence() {
		parts := lanes[status]
		rows := make([][]string, 0, len(parts))
		for i := range parts {
			p := &parts[i]
			flags := ""
			if p.StatusLocked {
				flags += "L"
			}
			if p.Priority == model.PriorityUrgent {
				flags += "!"
			}
			if client.ETAOverdue(p, now) {
				flags += "O"
			} else if client.ETAStale(p, now) {
				flags += "S"
			}
			eta := "-"
			if p.ETATarget != nil {
				eta = p.ETATarget.Format("01-02 15:04")
			}
			rows = append(rows, []string{
				p.ID,
				p.PartName,
				p.ManufacturingType,
				strconv.Itoa(p.Quantity),
				p.Priority,
				eta,
				flags,
			})
		}
		fmt.Printf("%s (%d)\n", model.StageLabels[status], len(parts))
		if len(parts) > 0 {
			fmt.Println(renderTable(
				[]string{"ID", "零件", "类型", "数量", "优先级", "ETA", "标记"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
		}
		fmt.Println()
	}
}
