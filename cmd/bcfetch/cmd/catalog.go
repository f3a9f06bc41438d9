package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"bcfetch/internal/catalog"
	"bcfetch/internal/downloader"
	"bcfetch/internal/logger"
	"bcfetch/internal/matcher"
	"bcfetch/internal/prompt"
	"bcfetch/internal/runner"
	"bcfetch/internal/selector"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
)

// Swappable in tests.
var (
	hostOS        = runtime.GOOS
	newRunner     = func() runner.Runner { return runner.Exec{} }
	isInteractive = func() bool { return prompt.IsInteractive(os.Stdin) }
	newPrompter   = func(interactive bool) prompt.Prompter {
		if interactive {
			return prompt.NewTerminal(os.Stdin, os.Stdout)
		}
		return prompt.Static{}
	}
)

func loadCatalog(ctx context.Context, url string) (*catalog.Catalog, error) {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" Retrieving software update catalog from %s...", url)
	s.Start()
	defer s.Stop()

	c, err := catalog.Fetch(ctx, downloader.Fetch, url)
	if err != nil {
		s.FinalMSG = color.RedString("✖ Failed to retrieve the software update catalog.\n")
		return nil, err
	}
	s.FinalMSG = color.GreenString("✔ Catalog retrieved (version %d, %d products).\n", c.Version, c.Len())
	logger.For("catalog").WithField("version", c.Version).Debugf("catalog has %d products", c.Len())
	return c, nil
}

// findCandidates runs the compatibility pass. Products whose distribution
// could not be fetched are reported and skipped.
func findCandidates(ctx context.Context, c *catalog.Catalog, model, locale string) ([]selector.Candidate, error) {
	m := matcher.New(downloader.Fetch)
	if locale != "" {
		m.Locale = locale
	}

	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" Checking %d Boot Camp products for %s...", len(selector.SupportSoftware(c)), model)
	s.Start()
	cands, err := selector.SelectCandidates(ctx, c, model, m)
	s.Stop()

	var merr *multierror.Error
	if stderrors.As(err, &merr) {
		for _, e := range merr.Errors {
			color.Yellow("! Skipped product: %v", e)
		}
		return cands, nil
	}
	return cands, err
}
