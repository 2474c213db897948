package cmd

import (
	"github.com/spf13/cobra"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
)

func newDiscoverCmd() *cobra.Command {
	var city, keyword string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Lists candidate businesses without auditing them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			candidates, err := appInstance.Discoverer().Discover(cmd.Context(), city, keyword)
			if err != nil {
				return err
			}
			if candidates == nil {
				candidates = []leads.DiscoveryCandidate{}
			}
			return printJSON(cmd.OutOrStdout(), candidates)
		},
	}
	cmd.Flags().StringVar(&city, "city", "", "city to search")
	cmd.Flags().StringVar(&keyword, "keyword", "", "business keyword")
	_ = cmd.MarkFlagRequired("city")
	_ = cmd.MarkFlagRequired("keyword")
	return cmd
}
