package commands

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/entstore"
)

type entityDump struct {
	Records map[string]any `yaml:"records,omitempty"`
	Links   map[string]any `yaml:"links,omitempty"`
	Refs    int            `yaml:"refs"`
}

func (c *CLI) newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [entity...]",
		Short: "Print entities as YAML",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := c.load(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close(cmd.Context())

			out, err := dump(s, args)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(out); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	return cmd
}

// dump reads the given entities (all when empty) in one read pass.
func dump(s *entstore.Store, entities []string) (map[string]entityDump, error) {
	p, err := s.BeginRead(entstore.PassOptions{})
	if err != nil {
		return nil, err
	}
	defer p.End()

	if len(entities) == 0 {
		if entities, err = p.EntityKeys(); err != nil {
			return nil, err
		}
	}

	out := make(map[string]entityDump, len(entities))
	for _, entity := range entities {
		infos, err := p.InspectFields(entity)
		if err != nil {
			return nil, err
		}
		d := entityDump{}
		for _, fi := range infos {
			if l, _ := p.ReadLink(entity, fi.FieldKey); !l.Missing() {
				if d.Links == nil {
					d.Links = make(map[string]any)
				}
				d.Links[fi.FieldKey] = l.Interface()
				continue
			}
			r, _ := p.ReadRecord(entity, fi.FieldKey)
			if d.Records == nil {
				d.Records = make(map[string]any)
			}
			d.Records[fi.FieldKey] = r.Interface()
		}
		d.Refs, _ = p.RefCount(entity)
		out[entity] = d
	}
	return out, nil
}
