package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/coordinator"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/events"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/logging"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/statusapi"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start every configured lane and run until they finish, fail, or block",
	Long: `Start a fresh run: build the lane set from the loaded config, give
each lane its own git worktree and tasks file, then drive every lane's
agent process to completion, restarting stalled ones and surfacing any
lane that ends up blocked on an unresolved cross-lane dependency.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	return runOrResume(cmd, false)
}

func runOrResume(cmd *cobra.Command, resume bool) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	bus := events.New(64)

	runID, runDir, err := resolveRunDir(resume)
	if err != nil {
		return err
	}

	coord, err := coordinator.New(*cfg, runID, runDir, bus, logger)
	if err != nil {
		return fmt.Errorf("preparing run: %w", err)
	}

	ctx := cmd.Context()
	if cfg.Status.Enabled {
		status := statusapi.New(coord, bus, logger)
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := status.ListenAndServe(srvCtx, cfg.Status.Addr); err != nil {
				logger.Warn("status surface stopped", "error", err)
			}
		}()
		fmt.Fprintf(os.Stderr, "status surface listening on %s\n", cfg.Status.Addr)
	}

	var code int
	if resume {
		code, err = coord.Resume(ctx)
	} else {
		code, err = coord.Run(ctx)
	}
	exitCode = code
	if err != nil {
		return err
	}
	return nil
}

// resolveRunDir picks the run's ID and on-disk directory. A fresh run
// gets a new UUID under .cursorflow/runs/; a resumed run reuses the most
// recently modified entry there, since that's the only run a coordinator
// restart could plausibly continue.
func resolveRunDir(resume bool) (runID, runDir string, err error) {
	base := filepath.Join(".cursorflow", "runs")
	if !resume {
		runID = uuid.NewString()
		runDir = filepath.Join(base, runID)
		if err := os.MkdirAll(runDir, 0o750); err != nil {
			return "", "", fmt.Errorf("creating run directory: %w", err)
		}
		return runID, runDir, nil
	}

	entries, err := os.ReadDir(base)
	if err != nil || len(entries) == 0 {
		return "", "", fmt.Errorf("no existing run found under %s to resume", base)
	}
	var latest os.DirEntry
	var latestMod int64
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().Unix(); latest == nil || mod > latestMod {
			latest, latestMod = e, mod
		}
	}
	if latest == nil {
		return "", "", fmt.Errorf("no existing run found under %s to resume", base)
	}
	return latest.Name(), filepath.Join(base, latest.Name()), nil
}
