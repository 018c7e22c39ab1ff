package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/pix/internal/stream"
)

var (
	replayFactor float64
	replaySkip   time.Duration
	replayFollow bool
	replayMerge  bool
)

// NewReplayCommand returns the pix-replay command.
func NewReplayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pix-replay [flags] <record>",
		Short: "Replay a recorded nix session",
		Long: `Replay a file written with --pix-record, reproducing the original
timing of every line. Lines recorded from stdout go to stdout and lines
from stderr go to stderr, so the output can be piped into pix:

  pix-replay --merge build.log.zst | pix`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runReplay,
	}

	cmd.Flags().Float64VarP(&replayFactor, "factor", "f", 1, "speed factor (2 replays twice as fast)")
	cmd.Flags().DurationVarP(&replaySkip, "skip", "s", 0, "start replaying from this offset (e.g. 1m30s)")
	cmd.Flags().BoolVar(&replayFollow, "follow", false, "keep reading as the record file grows")
	cmd.Flags().BoolVar(&replayMerge, "merge", false, "write both channels to stdout")

	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	src, err := stream.OpenRecord(cmd.Context(), args[0], replayFollow)
	if err != nil {
		return err
	}
	defer src.Close()

	var stderr io.Writer = cmd.ErrOrStderr()
	if replayMerge {
		stderr = cmd.OutOrStdout()
	}

	r := &stream.Replayer{
		Factor: replayFactor,
		Skip:   replaySkip,
		Stdout: cmd.OutOrStdout(),
		Stderr: stderr,
	}
	return r.Replay(cmd.Context(), src)
}

// ExecuteReplay runs pix-replay with the process arguments and returns the
// exit code.
func ExecuteReplay(ctx context.Context) int {
	cmd := NewReplayCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		return 1
	}
	return 0
}
