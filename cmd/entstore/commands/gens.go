package commands

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (c *CLI) newGensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gens key...",
		Short: "Print the generations of dependency keys",
		Long: "Print the current generation of each dependency key (an entity key such as\n" +
			"User:1, or a root field key such as Query.me). Generation 0 means the key\n" +
			"was never written or its metadata expired.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gs, err := c.backends.Gens(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer gs.Close(cmd.Context())

			gens, err := gs.SnapshotMany(cmd.Context(), args)
			if err != nil {
				return err
			}
			return yaml.NewEncoder(cmd.OutOrStdout()).Encode(gens)
		},
	}
}
