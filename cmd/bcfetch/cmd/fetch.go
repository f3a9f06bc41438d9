package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"bcfetch/internal/config"
	"bcfetch/internal/downloader"
	"bcfetch/internal/errors"
	"bcfetch/internal/extract"
	"bcfetch/internal/prompt"
	"bcfetch/internal/selector"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const (
	modelQuestion   = "Enter your Mac model (e.g. iMac12,2):"
	chooseQuestion  = "Do you want to choose which Bootcamp Support Software to download?"
	keyQuestion     = "Enter the key of the Bootcamp Support Software you want to download:"
	cleanupQuestion = "Do you want to delete the extracted files?"
)

var (
	fetchModel      string
	fetchKey        string
	fetchChoose     bool
	fetchDir        string
	fetchOutput     string
	fetchCleanup    bool
	fetchCatalogURL string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and extract Boot Camp support software for a Mac model",
	Long: `Download and extract Boot Camp support software for a Mac model.

The package is saved to BC-<key>/BootCampSupport.pkg under --dir. On macOS the
package is expanded and the Windows support disk image is moved to
BootcampSupportSoftware.dmg under --dir. Re-running resumes from whatever is
already on disk.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return errors.E("fetch", err)
		}

		// Create a context that is cancelled on a SIGINT or SIGTERM.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := runFetch(ctx, cfg); err != nil {
			if ctx.Err() == context.Canceled {
				color.Yellow("\nOperation cancelled by user.")
				return nil
			}
			return errors.E("fetch", err)
		}
		return nil
	},
}

func runFetch(ctx context.Context, cfg *config.Config) error {
	interactive := isInteractive()
	p := newPrompter(interactive)

	model, err := resolveModel(p, cfg, interactive)
	if err != nil {
		return err
	}

	catalogURL := cfg.CatalogURL
	if fetchCatalogURL != "" {
		catalogURL = fetchCatalogURL
	}
	color.Cyan("i Downloading Bootcamp Support Software for: %s", model)
	color.Cyan("i Downloading from: %s", catalogURL)

	c, err := loadCatalog(ctx, catalogURL)
	if err != nil {
		return err
	}

	cands, err := findCandidates(ctx, c, model, cfg.Locale)
	if err != nil {
		return err
	}
	if len(cands) == 0 {
		return fmt.Errorf("no Bootcamp Support Software found for this Mac model (%s)", model)
	}

	for _, cand := range cands {
		fmt.Printf("[%s] %s\n", cand.Key, cand.Product.RawPostDate)
	}

	choice, err := resolveChoice(p, interactive)
	if err != nil {
		return err
	}
	chosen, fallback, err := selector.Resolve(cands, choice)
	if err != nil {
		return err
	}
	if fallback != selector.FallbackNone {
		color.Yellow("! %s", fallback)
	}
	color.Cyan("i Choosing Bootcamp Support Software: %s", chosen.Key)

	pkg, ok := chosen.Product.FirstPackage()
	if !ok {
		return fmt.Errorf("product %s lists no packages to download", chosen.Key)
	}

	baseDir, err := outputDir()
	if err != nil {
		return err
	}
	workDir := config.WorkDir(baseDir, chosen.Key)
	pkgPath := filepath.Join(workDir, config.PackageName)
	if err := downloader.DownloadIfNotExists(ctx, pkgPath, pkg.URL); err != nil {
		return err
	}

	pipeline := extract.New(newRunner())
	pipeline.GOOS = hostOS
	pipeline.Confirm = func(question string) (bool, error) {
		if fetchCleanup {
			return true, nil
		}
		return p.Confirm(question)
	}
	if !pipeline.Supported() {
		color.Yellow("! To extract the Bootcamp Support Software automatically, please run this on a Mac.")
		color.Yellow("! Otherwise, you can extract the Bootcamp Support Software manually from %s.", pkgPath)
		return nil
	}

	outName := cfg.OutputName
	if fetchOutput != "" {
		outName = fetchOutput
	}
	res, err := pipeline.Extract(ctx, pkgPath, workDir, filepath.Join(baseDir, outName))
	if stderrors.Is(err, extract.ErrArtifactNotFound) {
		color.Red("✖ Could not find the Windows support disk image. The package is left at %s for manual extraction.", pkgPath)
		return nil
	}
	if err != nil {
		return err
	}
	if res.Cleaned {
		color.Green("✔ Removed %s", workDir)
	}
	color.Green("✔ Done!")
	return nil
}

func resolveModel(p prompt.Prompter, cfg *config.Config, interactive bool) (string, error) {
	if fetchModel != "" {
		return fetchModel, nil
	}
	def := ""
	if interactive {
		def = cfg.DefaultModel
	}
	model, err := p.Ask(modelQuestion, def)
	if err != nil {
		return "", err
	}
	if model == "" {
		return "", fmt.Errorf("no Mac model provided, use --model")
	}
	return model, nil
}

func resolveChoice(p prompt.Prompter, interactive bool) (selector.Choice, error) {
	if fetchKey != "" {
		return selector.Choice{Manual: true, Key: fetchKey}, nil
	}
	manual := fetchChoose
	if !manual && interactive {
		var err error
		if manual, err = p.Confirm(chooseQuestion); err != nil {
			return selector.Choice{}, err
		}
	}
	if !manual {
		return selector.Choice{}, nil
	}
	key, err := p.Ask(keyQuestion, "")
	if err != nil {
		return selector.Choice{}, err
	}
	return selector.Choice{Manual: true, Key: key}, nil
}

func outputDir() (string, error) {
	if fetchDir != "" {
		return filepath.Abs(fetchDir)
	}
	return os.Getwd()
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchModel, "model", "", "Mac model identifier, e.g. iMac12,2 (prompted for when omitted)")
	fetchCmd.Flags().StringVar(&fetchKey, "key", "", "Catalog key of the product to download instead of the latest")
	fetchCmd.Flags().BoolVar(&fetchChoose, "choose", false, "Prompt for the catalog key of the product to download")
	fetchCmd.Flags().StringVar(&fetchDir, "dir", "", "Directory for downloads and the extracted disk image (default: current directory)")
	fetchCmd.Flags().StringVar(&fetchOutput, "output", "", "File name for the extracted disk image (default: "+config.OutputName+")")
	fetchCmd.Flags().BoolVar(&fetchCleanup, "cleanup", false, "Delete the extracted files without asking")
	fetchCmd.Flags().StringVar(&fetchCatalogURL, "catalog", "", "Software update catalog URL")
}
