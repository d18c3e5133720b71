package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newAppraiseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "appraise <id>",
		Short: "Dig up an entry's gem and read its card",
		Long: `Appraise the gem held by an entry. A configured LLM provider writes the
card once and it is kept; without one, a generic card is shown and the
gem can be appraised again later.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			appraisal, err := a.journal.Appraise(context.Background(), args[0])
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(appraisal)
			}

			w := appraisal.Wisdom
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "◆ %s\n", w.MineralName)
			fmt.Fprintf(out, "  成分: %s\n", w.Composition)
			fmt.Fprintf(out, "  “%s”\n", w.Quote)
			fmt.Fprintf(out, "  馆长笔记: %s\n", w.Advice)
			fmt.Fprintf(out, "  (%s)\n", appraisal.Outcome)
			return nil
		},
	}
}
