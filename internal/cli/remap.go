package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipmark/internal/domain/segments"
	"github.com/forPelevin/clipmark/internal/types"
)

func newRemapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remap <transcript-file>",
		Short: "Map a start and end phrase onto the media timeline",
		Args:  cobra.ExactArgs(1),
		RunE:  runRemap,
	}
	cmd.Flags().String("start", "", "Start phrase")
	cmd.Flags().String("end", "", "End phrase")
	cmd.Flags().Float64("duration", 0, "Media duration in seconds")
	cmd.Flags().Float64("prev-start", 0, "Previous start time, used when the start phrase is not found")
	cmd.Flags().Float64("prev-end", 0, "Previous end time, used when the end phrase is not found")
	return cmd
}

func runRemap(cmd *cobra.Command, args []string) error {
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	duration, _ := cmd.Flags().GetFloat64("duration")
	prevStart, _ := cmd.Flags().GetFloat64("prev-start")
	prevEnd, _ := cmd.Flags().GetFloat64("prev-end")

	if duration <= 0 {
		return errors.New("--duration must be > 0")
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	prev := types.Segment{StartTime: prevStart, EndTime: prevEnd}
	seg := segments.Rebuild(prev, start, end, types.NewTranscript(string(b)), duration)

	out, err := json.MarshalIndent(struct {
		StartPhrase string  `json:"startPhrase"`
		EndPhrase   string  `json:"endPhrase"`
		StartTime   float64 `json:"startTime"`
		EndTime     float64 `json:"endTime"`
	}{seg.StartPhrase, seg.EndPhrase, seg.StartTime, seg.EndTime}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
