package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
)

var statusCmd = &cobra.Command{
	Use:   "status [runID]",
	Short: "Show every lane's current run state",
	Long: `Read each lane's persisted state.json under a run directory and
print its status, task progress and duration. With no runID, the most
recently modified run under .cursorflow/runs/ is used. This reads the
same files the optional status surface (--status in config) serves over
HTTP, so it works whether or not that surface is enabled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

func runStatus(_ *cobra.Command, args []string) error {
	var runDir string
	if len(args) == 1 {
		runDir = filepath.Join(".cursorflow", "runs", args[0])
	} else {
		_, dir, err := resolveRunDir(true)
		if err != nil {
			return err
		}
		runDir = dir
	}

	lanesDir := filepath.Join(runDir, "lanes")
	entries, err := os.ReadDir(lanesDir)
	if err != nil {
		return fmt.Errorf("reading lanes under %s: %w", runDir, err)
	}

	var states []*core.LaneRunState
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		st, err := core.LoadLaneRunState(core.StatePath(runDir, e.Name()))
		if err != nil {
			continue // lane hasn't produced a state.json yet
		}
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].LaneName < states[j].LaneName })

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(states)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LANE\tSTATUS\tTASK\tDURATION")
	fmt.Fprintln(w, "----\t------\t----\t--------")
	for _, st := range states {
		duration := "-"
		if st.StartTime != nil {
			end := time.Now()
			if st.EndTime != nil {
				end = *st.EndTime
			}
			duration = end.Sub(*st.StartTime).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\n",
			st.LaneName, st.Status, st.CurrentTaskIndex, st.TotalTasks, duration)
	}
	return w.Flush()
}
