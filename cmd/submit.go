package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceswap/internal/config"
	"github.com/kozaktomas/faceswap/internal/faceswap"
	"github.com/kozaktomas/faceswap/internal/translate"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a face swap job",
	Long: `Load the target and source media, mark the faces to use and hand the job
to the synthesis backend.

Face points are given in preview surface coordinates as x,y. The surface size
of each slot is printed after its media is loaded. With --multiface every face
of the target is swapped and target points are optional.

Example:
  faceswap submit --target group.jpg --source face.png --target-point 120,80 --source-point 40,52
  faceswap submit --target clip.mp4 --target-duration 12 --target-start 2 --target-end 6 \
    --source face.png --source-point 40,52 --multiface`,
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().String("target", "", "Media whose faces are replaced (required)")
	submitCmd.Flags().String("source", "", "Media providing the face (required)")
	submitCmd.Flags().StringArray("target-point", nil, "Face on the target as x,y (repeatable)")
	submitCmd.Flags().StringArray("source-point", nil, "Face on the source as x,y (repeatable)")
	submitCmd.Flags().Bool("multiface", false, "Swap every face of the target")
	submitCmd.Flags().Bool("similarface", false, "Swap faces similar to the selected one")
	submitCmd.Flags().String("similar-coeff", "", "Facial similarity coefficient (default 1.2)")
	submitCmd.Flags().Float64("target-duration", 0, "Target video length in seconds")
	submitCmd.Flags().Float64("target-start", 0, "Target video start in seconds")
	submitCmd.Flags().Float64("target-end", 0, "Target video end in seconds")
	submitCmd.Flags().Float64("source-duration", 0, "Source video length in seconds")
	submitCmd.Flags().Float64("source-current", 0, "Source video frame to take the face from, in seconds")
	submitCmd.Flags().Float64("source-end", 0, "Source video end in seconds")
	submitCmd.Flags().Bool("no-upload", false, "Media is already in the backend tmp folder, send names only")
	submitCmd.Flags().Bool("wait", false, "Wait until the backend finishes the job")

	_ = submitCmd.MarkFlagRequired("target")
	_ = submitCmd.MarkFlagRequired("source")
}

// parsePoint parses an "x,y" face point.
func parsePoint(s string) (float64, float64, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("invalid point %q, expected x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x in point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y in point %q: %w", s, err)
	}
	return x, y, nil
}

// uploadBars shows one progress bar per slot upload.
type uploadBars struct {
	mu   sync.Mutex
	bars map[faceswap.Role]*progressbar.ProgressBar
}

func (u *uploadBars) progress(role faceswap.Role, sent, total int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.bars == nil {
		u.bars = make(map[faceswap.Role]*progressbar.ProgressBar)
	}
	bar, ok := u.bars[role]
	if !ok {
		bar = progressbar.NewOptions64(total,
			progressbar.OptionSetDescription("Uploading "+string(role)),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
		u.bars[role] = bar
	}
	_ = bar.Set64(sent)
	if sent >= total {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}

// slotFlags names the flags of one slot.
type slotFlags struct {
	role     faceswap.Role
	path     string
	points   string
	duration string
	start    string // flag setting the range start, empty if the slot has none
	end      string
	current  string
}

var submitSlots = []slotFlags{
	{role: faceswap.RoleTarget, path: "target", points: "target-point", duration: "target-duration", start: "target-start", end: "target-end"},
	{role: faceswap.RoleSource, path: "source", points: "source-point", duration: "source-duration", end: "source-end", current: "source-current"},
}

// loadSlot loads media into a slot, applies the video range and marks the faces.
func loadSlot(ctx context.Context, cmd *cobra.Command, panel *faceswap.Panel, sf slotFlags) error {
	file, err := faceswap.FileFromPath(mustGetString(cmd, sf.path))
	if err != nil {
		return err
	}
	file.Duration = mustGetFloat64(cmd, sf.duration)

	surface, err := panel.LoadMedia(ctx, sf.role, file)
	if err != nil {
		return fmt.Errorf("failed to load %s media: %w", sf.role, err)
	}
	fmt.Printf("%s: %s (surface %dx%d)\n", sf.role, panel.View().Slot(sf.role).Media.Name, surface.Width, surface.Height)

	if surface.Timeline != nil {
		if err := applyTimeline(cmd, panel, sf, surface.Timeline); err != nil {
			return err
		}
	}

	for _, raw := range mustGetStringArray(cmd, sf.points) {
		x, y, err := parsePoint(raw)
		if err != nil {
			return err
		}
		if err := panel.Click(sf.role, x, y); err != nil {
			return fmt.Errorf("failed to mark %s face at %s: %w", sf.role, raw, err)
		}
	}
	return nil
}

func applyTimeline(cmd *cobra.Command, panel *faceswap.Panel, sf slotFlags, tl *faceswap.Timeline) error {
	startChanged := sf.start != "" && cmd.Flags().Changed(sf.start)
	endChanged := cmd.Flags().Changed(sf.end)
	if startChanged || endChanged {
		start, end := tl.Start, tl.End
		if startChanged {
			start = mustGetFloat64(cmd, sf.start)
		}
		if endChanged {
			end = mustGetFloat64(cmd, sf.end)
		}
		if err := panel.SetRange(sf.role, start, end); err != nil {
			return fmt.Errorf("failed to set %s range: %w", sf.role, err)
		}
	}
	if sf.current != "" && cmd.Flags().Changed(sf.current) {
		if err := panel.Scrub(sf.role, mustGetFloat64(cmd, sf.current)); err != nil {
			return fmt.Errorf("failed to scrub %s: %w", sf.role, err)
		}
	}
	return nil
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	client, err := newBackendClient(cfg)
	if err != nil {
		return err
	}

	translator, err := translate.New(ctx, cfg.Translate)
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}

	j, closeJournal, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeJournal()

	bars := &uploadBars{}
	sess := faceswap.NewSession(cfg, client, faceswap.NewWriterReporter(os.Stdout), translator)
	sess.Journal = j
	sess.UploadProgress = bars.progress
	if !mustGetBool(cmd, "no-upload") {
		sess.Uploader = client
	}
	sess.Panel = faceswap.PanelCloserFunc(func() {
		fmt.Println("Job handed to the backend")
	})

	panel := faceswap.NewPanel("cli-"+strconv.FormatInt(time.Now().Unix(), 10), sess)
	if note := panel.Open(ctx); note != nil && note.Message != "" {
		fmt.Printf("Models: %s\n", note.Message)
	}

	for _, sf := range submitSlots {
		if err := loadSlot(ctx, cmd, panel, sf); err != nil {
			return err
		}
	}

	if mustGetBool(cmd, "multiface") {
		_ = panel.SetToggle(faceswap.ToggleMultiface, true)
	}
	if mustGetBool(cmd, "similarface") {
		_ = panel.SetToggle(faceswap.ToggleSimilarface, true)
	}
	if coeff := mustGetString(cmd, "similar-coeff"); coeff != "" {
		_ = panel.SetSimilarCoeff(coeff)
	}

	controller := panel.Controller()
	req, err := panel.Submit(ctx)
	if err != nil {
		if errors.Is(err, faceswap.ErrBackendBusy) {
			return errors.New("job not submitted: the backend is busy with another job")
		}
		return fmt.Errorf("job not submitted: %w", err)
	}

	payload := req.Payload()
	fmt.Printf("Target: %s (%s), %d face point(s)\n", payload.TargetContent, payload.TypeFileTarget, len(payload.FaceTargetFields))
	fmt.Printf("Source: %s (%s), %d face point(s)\n", payload.SourceContent, payload.TypeFileSource, len(payload.FaceSourceFields))

	if mustGetBool(cmd, "wait") {
		fmt.Println("Waiting for the backend to finish...")
		controller.Wait()
		fmt.Println("Done. Run 'faceswap results' to see the output.")
		return nil
	}

	// the request only has to reach the backend, which runs the job on its own
	<-controller.Dispatched()
	return nil
}
