package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jask/realcheck/internal/logging"
	"github.com/jask/realcheck/internal/media"
	"github.com/jask/realcheck/internal/upload"
)

// report is the headless verdict.
type report struct {
	File           string   `json:"file" yaml:"file"`
	Mode           string   `json:"mode" yaml:"mode"`
	Phases         []string `json:"phases" yaml:"phases"`
	Label          string   `json:"label,omitempty" yaml:"label,omitempty"`
	Score          string   `json:"score,omitempty" yaml:"score,omitempty"`
	LipReadingText string   `json:"lip_reading_text,omitempty" yaml:"lip_reading_text,omitempty"`
	SpeechText     string   `json:"speech_text,omitempty" yaml:"speech_text,omitempty"`
	Failure        string   `json:"failure,omitempty" yaml:"failure,omitempty"`
	Error          string   `json:"error,omitempty" yaml:"error,omitempty"`
	Preview        string   `json:"preview,omitempty" yaml:"preview,omitempty"`
}

func runCheck(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to the TOML configuration file")
	modeFlag := fs.String("mode", "", "image or video (default: media.default_mode)")
	output := fs.String("output", "text", "text, json or yaml")
	verbose := fs.Bool("v", false, "log to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: realcheck check [-config PATH] [-mode image|video] [-output text|json|yaml] [-v] FILE")
		return 2
	}
	format := strings.ToLower(strings.TrimSpace(*output))
	if format != "text" && format != "json" && format != "yaml" {
		fmt.Fprintf(stderr, "realcheck: unknown output %q\n", *output)
		return 2
	}

	a, err := setup(*configPath, func(o *logging.Options) {
		if *verbose {
			o.Console, o.Writer = true, stderr
		}
	})
	if err != nil {
		fmt.Fprintf(stderr, "realcheck: %v\n", err)
		return 1
	}
	defer func() { _ = a.close() }()

	selector := a.selector
	if *modeFlag != "" {
		mode, err := media.ParseMode(*modeFlag)
		if err != nil {
			fmt.Fprintf(stderr, "realcheck: %v\n", err)
			return 2
		}
		selector = selector.WithMode(mode)
	}

	ctx := a.log.WithContext(context.Background())
	file := media.NewCandidate(fs.Arg(0))
	final, phases := a.runner.Drive(ctx, upload.NewState(selector), upload.FileSelected{File: file})
	defer releaseStaged(final)

	rep := buildReport(file, final, phases)
	if err := writeReport(stdout, format, rep); err != nil {
		fmt.Fprintf(stderr, "realcheck: %v\n", err)
		return 1
	}
	if final.Phase != upload.PhaseResult {
		return 1
	}
	return 0
}

func buildReport(file media.Candidate, s upload.State, phases []upload.Phase) report {
	d := s.Display()
	rep := report{File: file.Path, Mode: s.Cycle.Mode.String()}
	for _, p := range phases {
		rep.Phases = append(rep.Phases, p.String())
	}
	if d.Preview != nil {
		rep.Preview = d.Preview.Summary()
	}
	if s.Result != nil {
		rep.Label = s.Result.Label
		rep.Score = s.Result.Score.String()
		rep.LipReadingText = s.Result.LipReadingText
		rep.SpeechText = s.Result.SpeechText
	}
	if s.Failure != nil {
		rep.Failure = s.Failure.Kind.String()
		rep.Error = s.Failure.Message
	}
	return rep
}

func writeReport(w io.Writer, format string, rep report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "file:   %s\n", rep.File)
	fmt.Fprintf(&b, "mode:   %s\n", rep.Mode)
	fmt.Fprintf(&b, "phases: %s\n", strings.Join(rep.Phases, " → "))
	if rep.Preview != "" {
		fmt.Fprintf(&b, "media:  %s\n", rep.Preview)
	}
	if rep.Label != "" {
		fmt.Fprintf(&b, "label:  %s\n", rep.Label)
		fmt.Fprintf(&b, "score:  %s\n", rep.Score)
	}
	if rep.LipReadingText != "" {
		fmt.Fprintf(&b, "lip reading: %s\n", rep.LipReadingText)
	}
	if rep.SpeechText != "" {
		fmt.Fprintf(&b, "speech: %s\n", rep.SpeechText)
	}
	if rep.Error != "" {
		fmt.Fprintf(&b, "error (%s): %s\n", rep.Failure, strings.ReplaceAll(rep.Error, "\n", " "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
