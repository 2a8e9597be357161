package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyellow/admission-lists/internal/competition"
)

type lookupResult struct {
	Query          string                      `json:"query"`
	Name           string                      `json:"name,omitempty"`
	Found          bool                        `json:"found"`
	CompetitionIDs *competition.CompetitionIDs `json:"competition_ids,omitempty"`
}

func (c *cli) newLookupCmd() *cobra.Command {
	var (
		mappingLocation string
		quota           string
		output          string
	)
	cmd := &cobra.Command{
		Use:   "lookup <program name>...",
		Short: "Resolve program names to competition list identifiers",
		Long: `Looks up each name in the mapping: an exact match first, then a
case-insensitive one. Exits with status 1 when any name is not found.`,
		Example: `  idmap lookup "Прикладная математика"
  idmap lookup --quota special_quota --mapping run:latest "ФИЗИКА"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var q competition.Quota
			if quota != "" {
				parsed, err := competition.ParseQuota(quota)
				if err != nil {
					return c.fail(cmd, err)
				}
				q = parsed
			}
			lm, err := c.loadMapping(cmd.Context(), c.loader(cmd), firstNonEmpty(mappingLocation, c.cfg.ArtifactPath))
			if err != nil {
				return c.fail(cmd, err)
			}
			m, err := lm.requireIDs()
			if err != nil {
				return c.fail(cmd, err)
			}
			return c.fail(cmd, c.runLookup(cmd, m, args, q, output))
		},
	}
	f := cmd.Flags()
	f.StringVar(&mappingLocation, "mapping", "", "Mapping location: artifact file or URL, or run:<id> (default IDMAP_ARTIFACT_PATH)")
	f.StringVar(&quota, "quota", "", "Print only this quota's identifier: regular_bvi, dedicated_quota, special_quota, target_quota")
	f.StringVar(&output, "output", "text", "Output format: text or json")
	return cmd
}

func (c *cli) runLookup(cmd *cobra.Command, m *competition.Mapping, names []string, quota competition.Quota, output string) error {
	results := make([]lookupResult, 0, len(names))
	missing := 0
	for _, name := range names {
		key, ids, found := m.Resolve(name)
		res := lookupResult{Query: name, Found: found}
		switch {
		case !found:
			missing++
			c.metrics.RecordLookup("miss")
		case key == name:
			c.metrics.RecordLookup("exact")
		default:
			c.metrics.RecordLookup("folded")
		}
		if found {
			res.Name = key
			res.CompetitionIDs = &ids
		}
		results = append(results, res)
	}

	w := cmd.OutOrStdout()
	switch output {
	case "json":
		if err := writeJSON(w, results); err != nil {
			return err
		}
	case "", "text":
		for _, res := range results {
			writeLookupText(w, res, quota)
		}
	default:
		return fmt.Errorf("unsupported output %q (want text or json)", output)
	}

	if missing > 0 {
		return &exitError{code: 1, msg: fmt.Sprintf("%d of %d program(s) not found", missing, len(names))}
	}
	return nil
}
