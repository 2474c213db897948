package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
)

type scanOutput struct {
	City      string `json:"city"`
	Keyword   string `json:"keyword"`
	Mode      string `json:"mode"`
	URLs      int    `json:"urls"`
	Persisted int    `json:"persisted"`
	Failed    int    `json:"failed"`
}

func newScanCmd() *cobra.Command {
	var (
		city    string
		keyword string
		urls    []string
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Runs one scan synchronously",
		Long: `Discovers and audits websites for a city and keyword, or audits the
URLs given with --url, and stores a lead score for each site before
returning.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			req := leads.ScanRequest{
				City:    strings.TrimSpace(city),
				Keyword: strings.TrimSpace(keyword),
				URLs:    urls,
			}
			if req.City == "" || req.Keyword == "" {
				return fmt.Errorf("city and keyword are required: %w", leads.ErrInvalidInput)
			}
			report, err := appInstance.Worker().Process(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("scan %s/%s: %w", req.City, req.Keyword, err)
			}
			return printJSON(cmd.OutOrStdout(), scanOutput{
				City:      req.City,
				Keyword:   req.Keyword,
				Mode:      req.Mode(),
				URLs:      report.URLs,
				Persisted: report.Persisted,
				Failed:    report.Failed,
			})
		},
	}
	cmd.Flags().StringVar(&city, "city", "", "city to scan")
	cmd.Flags().StringVar(&keyword, "keyword", "", "business keyword, e.g. dentist")
	cmd.Flags().StringSliceVar(&urls, "url", nil, "audit these URLs instead of running discovery (repeatable)")
	return cmd
}
