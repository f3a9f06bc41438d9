package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bcfetch/internal/config"
	"bcfetch/internal/downloader"
	"bcfetch/internal/errors"
	"bcfetch/internal/matcher"
	"bcfetch/internal/selector"
	"bcfetch/internal/util"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	lsModel      string
	lsShowModels bool
	lsCatalogURL string
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List Boot Camp support software in the catalog",
	Long: `List the Boot Camp support software products in the software update catalog.
With --model only products supporting that Mac model are listed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return errors.E("ls", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		catalogURL := cfg.CatalogURL
		if lsCatalogURL != "" {
			catalogURL = lsCatalogURL
		}
		c, err := loadCatalog(ctx, catalogURL)
		if err != nil {
			return errors.E("ls", err)
		}

		cands := selector.SupportSoftware(c)
		if lsModel != "" {
			if cands, err = findCandidates(ctx, c, lsModel, cfg.Locale); err != nil {
				return errors.E("ls", err)
			}
		}
		if len(cands) == 0 {
			color.Yellow("No Boot Camp support software found.")
			return nil
		}

		m := matcher.New(downloader.Fetch)
		if cfg.Locale != "" {
			m.Locale = cfg.Locale
		}

		table := tablewriter.NewWriter(os.Stdout)
		header := []string{"KEY", "POSTED", "SIZE", "PACKAGE"}
		if lsShowModels {
			header = append(header, "MODELS")
		}
		table.Header(header)

		for _, cand := range cands {
			size, url := "-", "-"
			if pkg, ok := cand.Product.FirstPackage(); ok {
				size = util.FormatSize(pkg.Size)
				url = pkg.URL
			}
			row := []string{cand.Key, cand.Product.RawPostDate, size, url}
			if lsShowModels {
				models, err := m.SupportedModels(ctx, cand.Product)
				if err != nil {
					color.Yellow("! Could not read supported models for %s: %v", cand.Key, err)
				}
				row = append(row, strings.Join(dedupe(models), ", "))
			}
			table.Append(row)
		}

		table.Render()
		return nil
	},
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().StringVar(&lsModel, "model", "", "Only list products supporting this Mac model")
	lsCmd.Flags().BoolVar(&lsShowModels, "models", false, "Show the Mac models each product supports")
	lsCmd.Flags().StringVar(&lsCatalogURL, "catalog", "", "Software update catalog URL")
}
