// Package extract unpacks a downloaded Boot Camp installer package into the
// Windows support disk image.
//
// The pipeline has three stages: expand the installer container, decompress
// its Payload, then locate the disk image and move it to a stable path. Each
// stage is skipped when its output is already on disk, so a re-run resumes
// after the last stage that completed.
package extract

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"bcfetch/internal/errors"
	"bcfetch/internal/logger"
	"bcfetch/internal/runner"
	"bcfetch/internal/util"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultArtifactPattern matches the Windows support disk image.
	DefaultArtifactPattern = "**/*.dmg"
	// ExpandedDir is the directory pkgutil expands the package into.
	ExpandedDir = "pkg"
	// PayloadName is the compressed archive inside the expanded package.
	PayloadName = "Payload"
)

var (
	// ErrUnsupportedPlatform is returned off macOS, where pkgutil is missing.
	ErrUnsupportedPlatform = stderrors.New("automatic extraction requires macOS")
	// ErrArtifactNotFound means no disk image turned up after unpacking.
	ErrArtifactNotFound = stderrors.New("no disk image found in extracted files")

	errStopWalk = stderrors.New("stop walk")
)

// Stage names as reported in StageResult.
const (
	StageExpand  = "expand"
	StagePayload = "payload"
	StageLocate  = "locate"
)

// StageResult records what one stage did.
type StageResult struct {
	Name        string
	Skipped     bool
	Success     bool
	Diagnostics string
}

// Err returns an ErrExternalTool error for a failed stage, nil otherwise.
func (s StageResult) Err() error {
	if s.Skipped || s.Success {
		return nil
	}
	return errors.Kind(errors.ErrExternalTool, fmt.Errorf("%s stage: %s", s.Name, s.Diagnostics))
}

// Result is the outcome of a pipeline run.
type Result struct {
	Stages   []StageResult
	Artifact string
	Output   string
	Cleaned  bool
}

// Pipeline drives the external unpack tools.
type Pipeline struct {
	Runner          runner.Runner
	GOOS            string
	ArtifactPattern string
	// Confirm gates removal of the work directory. Nil means never remove.
	Confirm func(question string) (bool, error)
	Log     *logrus.Entry
}

// New returns a pipeline for the host platform.
func New(r runner.Runner) *Pipeline {
	return &Pipeline{
		Runner:          r,
		GOOS:            runtime.GOOS,
		ArtifactPattern: DefaultArtifactPattern,
		Log:             logger.For("extract"),
	}
}

// Supported reports whether the unpack tools exist on this platform.
func (p *Pipeline) Supported() bool {
	return p.GOOS == "darwin"
}

// Extract unpacks pkgPath inside workDir and moves the disk image to outPath.
// Tool failures in the first two stages are recorded and logged but do not
// stop the pipeline; only a missing disk image at the end is an error. An
// existing outPath satisfies the last stage, so re-runs succeed.
func (p *Pipeline) Extract(ctx context.Context, pkgPath, workDir, outPath string) (Result, error) {
	var res Result
	if !p.Supported() {
		return res, ErrUnsupportedPlatform
	}

	expanded := filepath.Join(workDir, ExpandedDir)

	color.Cyan("i Extracting Bootcamp Support Software...")
	stage := p.runStage(ctx, StageExpand, util.Exists(expanded),
		"pkgutil", "--expand", pkgPath, expanded)
	res.Stages = append(res.Stages, stage)
	if stage.Success && !stage.Skipped {
		color.Green("✔ Extracted .pkg, moving onto payload extraction...")
	}

	_, found, err := p.Locate(workDir)
	if err != nil {
		return res, err
	}
	stage = p.runStage(ctx, StagePayload, found,
		"tar", "-xz", "-C", workDir, "-f", filepath.Join(expanded, PayloadName))
	res.Stages = append(res.Stages, stage)
	if stage.Success && !stage.Skipped {
		color.Green("✔ Extracted payload, finding Bootcamp Windows DMG...")
	}

	artifact, found, err := p.Locate(workDir)
	if err != nil {
		return res, err
	}
	outExists := util.FileExists(outPath)
	switch {
	case !found && !outExists:
		res.Stages = append(res.Stages, StageResult{Name: StageLocate})
		return res, ErrArtifactNotFound
	case outExists:
		// An earlier run already moved the image into place.
		res.Artifact = artifact
		res.Stages = append(res.Stages, StageResult{Name: StageLocate, Skipped: true, Success: true})
		p.log().WithField("output", outPath).Debug("output already present, not moving")
		color.Green("✔ Disk image already at %s", outPath)
	default:
		if err := util.MoveFile(artifact, outPath); err != nil {
			res.Stages = append(res.Stages, StageResult{Name: StageLocate, Diagnostics: err.Error()})
			return res, fmt.Errorf("failed to move disk image: %w", err)
		}
		res.Artifact = artifact
		res.Stages = append(res.Stages, StageResult{Name: StageLocate, Success: true})
		color.Green("✔ Disk image saved to %s", outPath)
	}
	res.Output = outPath

	if p.Confirm != nil {
		remove, err := p.Confirm("Do you want to delete the extracted files?")
		if err != nil {
			return res, err
		}
		if remove {
			if err := os.RemoveAll(workDir); err != nil {
				return res, fmt.Errorf("failed to remove %s: %w", workDir, err)
			}
			res.Cleaned = true
		}
	}
	return res, nil
}

func (p *Pipeline) runStage(ctx context.Context, name string, skip bool, command string, args ...string) StageResult {
	log := p.log().WithField("stage", name)
	if skip {
		log.Debug("output present, skipping")
		return StageResult{Name: name, Skipped: true, Success: true}
	}

	log.WithField("command", command).Debug("running")
	r := p.Runner.Invoke(ctx, command, args...)
	stage := StageResult{Name: name, Success: r.Success, Diagnostics: r.Diagnostics}
	if !r.Success {
		log.WithError(stage.Err()).Warn("stage failed, continuing")
		color.Yellow("! %s failed:\n%s", command, r.Diagnostics)
	}
	return stage
}

// Locate returns the first file under root matching the artifact pattern,
// walking directories in lexical order.
func (p *Pipeline) Locate(root string) (string, bool, error) {
	if !util.Exists(root) {
		return "", false, nil
	}
	pattern := p.ArtifactPattern
	if pattern == "" {
		pattern = DefaultArtifactPattern
	}

	var match string
	err := doublestar.GlobWalk(os.DirFS(root), pattern, func(path string, d fs.DirEntry) error {
		match = path
		return errStopWalk
	}, doublestar.WithFilesOnly())
	if err != nil && !stderrors.Is(err, errStopWalk) {
		return "", false, fmt.Errorf("failed to search %s: %w", root, err)
	}
	if match == "" {
		return "", false, nil
	}
	return filepath.Join(root, filepath.FromSlash(match)), true, nil
}

func (p *Pipeline) log() *logrus.Entry {
	if p.Log == nil {
		return logger.For("extract")
	}
	return p.Log
}
