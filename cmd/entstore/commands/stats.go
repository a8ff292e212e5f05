package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/entstore"
)

func (c *CLI) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the persisted store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, hs, err := c.load(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close(cmd.Context())

			p, err := s.BeginRead(entstore.PassOptions{})
			if err != nil {
				return err
			}
			defer p.End()

			entities, err := p.EntityKeys()
			if err != nil {
				return err
			}
			byType := make(map[string]int)
			for _, e := range entities {
				tn, _ := p.ReadRecord(e, "__typename")
				name, ok := tn.Str()
				if !ok {
					name = "-"
				}
				byType[name]++
			}
			types := make([]string, 0, len(byType))
			for tn := range byType {
				types = append(types, tn)
			}
			sort.Strings(types)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "entries:  %d\n", hs.Entries)
			fmt.Fprintf(w, "skipped:  %d\n", hs.Skipped)
			fmt.Fprintf(w, "entities: %d\n", len(entities))
			for _, tn := range types {
				fmt.Fprintf(w, "  %s: %d\n", tn, byType[tn])
			}
			return nil
		},
	}
}
