package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/muhammadolammi/ascend/internal/quest"
	"github.com/muhammadolammi/ascend/internal/ui"
)

func newQuestsCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "quests",
		Short: "Inspect or change a quest ledger",
	}
	cmd.PersistentFlags().StringVar(&owner, "owner", "default", "ledger owner")

	withLedger := func(run func(ctx context.Context, out io.Writer, s *quest.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			app, err := newLedgerApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()
			return run(ctx, cmd.OutOrStdout(), app.Ledgers.For(owner), args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show quests and XP",
			Args:  cobra.NoArgs,
			RunE:  withLedger(listQuests),
		},
		&cobra.Command{
			Use:       "complete <quest-id>",
			Short:     "Complete a quest",
			Args:      cobra.ExactArgs(1),
			ValidArgs: questIDs(),
			RunE:      withLedger(completeQuest),
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Restore the default ledger",
			Args:  cobra.NoArgs,
			RunE:  withLedger(resetQuests),
		},
	)
	return cmd
}

func questIDs() []string {
	var ids []string
	for _, q := range quest.Defaults() {
		ids = append(ids, string(q.ID))
	}
	return ids
}

func listQuests(ctx context.Context, out io.Writer, s *quest.Store, _ []string) error {
	sum, err := s.Summary(ctx)
	if err != nil {
		return err
	}
	printSummary(out, sum)
	return nil
}

func printSummary(out io.Writer, sum quest.Summary) {
	fmt.Fprintln(out, ui.Heading(ui.IconQuest, "Career Quests"))
	fmt.Fprintln(out, ui.LabelValue("Owner", sum.Owner))
	fmt.Fprintln(out, ui.LabelValue("Total XP", sum.TotalXP))
	fmt.Fprintln(out, ui.LabelValue("Level", ui.LevelText(sum.Level)))
	fmt.Fprintln(out, ui.ProgressBar(sum.Level.Percent, 24))
	fmt.Fprintln(out, "")
	for _, q := range sum.Quests {
		fmt.Fprintln(out, ui.QuestLine(q))
	}
	fmt.Fprintln(out, ui.Muted.Render(fmt.Sprintf("%d/%d completed", sum.Completed, sum.Total)))
}

func completeQuest(ctx context.Context, out io.Writer, s *quest.Store, args []string) error {
	id := quest.ID(args[0])
	if !id.Valid() {
		return fmt.Errorf("%w: %q", quest.ErrUnknownQuest, args[0])
	}
	res, err := s.Complete(ctx, id)
	if err != nil {
		return err
	}
	if res.Awarded {
		fmt.Fprintf(out, "%s %s %s\n", ui.IconBolt, ui.Good.Render(res.Quest.Title), ui.Gold.Render(fmt.Sprintf("+%d XP", res.Quest.XP)))
	} else {
		fmt.Fprintln(out, ui.Muted.Render(res.Quest.Title+" was already completed"))
	}
	total, err := s.TotalXP(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, ui.LabelValue("Total XP", total))
	return nil
}

func resetQuests(ctx context.Context, out io.Writer, s *quest.Store, _ []string) error {
	if err := s.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, ui.Warn.Render(ui.IconReset+" quests reset for "+s.Owner()))
	return nil
}
