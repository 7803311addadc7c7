package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
)

// SpinnerProgressReporter renders send progress as a single spinner line
type SpinnerProgressReporter struct {
	mu      sync.Mutex
	spinner *spinner.Spinner
	out     io.Writer
	stages  []stageInfo
}

type stageInfo struct {
	Stage     string
	StartTime time.Time
	EndTime   time.Time
	Message   string
}

var stageNames = map[string]string{
	usecase.StageBuild:     "Building",
	usecase.StageApproval:  "Approval",
	usecase.StageBroadcast: "Broadcasting",
	usecase.StageInclusion: "Inclusion",
	usecase.StageCompleted: "Completed",
}

// NewSpinnerProgressReporter creates a new spinner-based progress reporter
func NewSpinnerProgressReporter() *SpinnerProgressReporter {
	return newSpinnerProgressReporter(os.Stderr)
}

func newSpinnerProgressReporter(out io.Writer) *SpinnerProgressReporter {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.HideCursor = false

	return &SpinnerProgressReporter{
		spinner: s,
		out:     out,
	}
}

// OnProgress handles progress events
func (r *SpinnerProgressReporter) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if n := len(r.stages); n > 0 && r.stages[n-1].Stage != event.Stage {
		r.stages[n-1].EndTime = now
	}
	if n := len(r.stages); n == 0 || r.stages[n-1].Stage != event.Stage {
		r.stages = append(r.stages, stageInfo{Stage: event.Stage, StartTime: now})
	}
	r.stages[len(r.stages)-1].Message = event.Message

	// The approval prompt needs the terminal
	if event.Spinner {
		r.spinner.Suffix = " " + r.display()
		if !r.spinner.Active() {
			r.spinner.Start()
		}
		return
	}
	if r.spinner.Active() {
		r.spinner.Stop()
	}
	if event.Stage == usecase.StageCompleted {
		r.stages[len(r.stages)-1].EndTime = now
		fmt.Fprintln(r.out, r.display())
	}
}

// Info prints an info message
func (r *SpinnerProgressReporter) Info(message string) {
	r.print(color.New(color.FgCyan), message)
}

// Error prints an error message
func (r *SpinnerProgressReporter) Error(message string) {
	r.print(color.New(color.FgRed), message)
}

func (r *SpinnerProgressReporter) print(c *color.Color, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}
	c.Fprintln(r.out, message)
	if wasActive {
		r.spinner.Start()
	}
}

// display renders "✓ Building (12ms) → ● Broadcasting (1s) Sending user operation..."
func (r *SpinnerProgressReporter) display() string {
	var display string
	for i, stage := range r.stages {
		name, ok := stageNames[stage.Stage]
		if !ok {
			name = stage.Stage
		}

		icon, stageColor := "●", color.New(color.FgYellow)
		duration := time.Since(stage.StartTime).Round(time.Second)
		if !stage.EndTime.IsZero() {
			icon, stageColor = "✓", color.New(color.FgGreen)
			duration = stage.EndTime.Sub(stage.StartTime).Round(time.Millisecond)
		}

		if i > 0 {
			display += " → "
		}
		display += fmt.Sprintf("%s %s (%s)", icon, stageColor.Sprint(name), duration)
	}
	if n := len(r.stages); n > 0 && r.stages[n-1].EndTime.IsZero() && r.stages[n-1].Message != "" {
		display += " " + r.stages[n-1].Message
	}
	return display
}

// Ensure SpinnerProgressReporter implements ProgressSink
var _ usecase.ProgressSink = (*SpinnerProgressReporter)(nil)
