package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver

	"github.com/kholin/partita"
	"github.com/kholin/partita/internal/layout"
	"github.com/kholin/partita/internal/midisink"
	"github.com/kholin/partita/internal/scoreio"
)

var (
	flagWidth     float64
	flagConfig    string
	flagSpeed     float64
	flagTempo     float64
	flagLoop      bool
	flagMetronome bool
	flagMidiPort  string
)

var rootCmd = &cobra.Command{
	Use:           "partita",
	Short:         "Score layout and playback toolbox",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML layout config file")
	rootCmd.PersistentFlags().Float64Var(&flagWidth, "width", 1024, "available layout width in pixels")

	playCmd.Flags().Float64Var(&flagSpeed, "speed", 1.0, "speed multiplier (0.5, 0.75, 1, 1.25, 1.5, 2)")
	playCmd.Flags().Float64Var(&flagTempo, "tempo", 0, "tempo override in BPM (0 = score tempo)")
	playCmd.Flags().BoolVar(&flagLoop, "loop", false, "loop playback")
	playCmd.Flags().BoolVar(&flagMetronome, "metronome", false, "emit metronome beats")
	playCmd.Flags().StringVar(&flagMidiPort, "midi", "", "MIDI out port name (empty = log notes instead)")

	rootCmd.AddCommand(infoCmd, layoutCmd, playCmd)
}

func layoutConfig() (layout.Config, error) {
	if flagConfig == "" {
		return layout.DefaultConfig(), nil
	}
	return layout.LoadConfig(flagConfig)
}

var infoCmd = &cobra.Command{
	Use:   "info <score.json>",
	Short: "Print score structure and timing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := scoreio.LoadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s — %s\n", sc.Title, sc.Composer)
		fmt.Printf("  key %s, %d/%d, %.0f BPM, difficulty %d\n",
			sc.Meta.KeySignature, sc.Meta.BeatsPerMeasure, sc.Meta.BeatUnit, sc.Meta.Tempo, sc.Meta.Difficulty)
		fmt.Printf("  %d tracks, %d measures, %d notes, %.1fs\n",
			len(sc.Tracks), sc.MeasureCount(), sc.NoteCount(), sc.NominalDuration())
		for _, tr := range sc.Tracks {
			fmt.Printf("  track %q: %s clef, hand %s\n", tr.Name, tr.Clef, tr.Hand)
		}
		if sc.IsGrandStaff() {
			fmt.Println("  grand staff")
		}
		return nil
	},
}

var layoutCmd = &cobra.Command{
	Use:   "layout <score.json>",
	Short: "Compute the layout for a width and dump it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := scoreio.LoadFile(args[0])
		if err != nil {
			return err
		}
		cfg, err := layoutConfig()
		if err != nil {
			return err
		}
		res := layout.Calculate(sc, cfg, flagWidth)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

// logSink logs note commands instead of sounding them, for running without
// a MIDI port.
type logSink struct{}

func (logSink) NoteOn(pitch, velocity int) {
	slog.Info("note on", "pitch", pitch, "velocity", velocity)
}

func (logSink) NoteOff(pitch int) {
	slog.Info("note off", "pitch", pitch)
}

var playCmd = &cobra.Command{
	Use:   "play <score.json>",
	Short: "Play a score headless, driving a MIDI port or the log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := layoutConfig()
		if err != nil {
			return err
		}

		var sink partita.NoteSink = logSink{}
		if flagMidiPort != "" {
			ms, err := midisink.Open(flagMidiPort)
			if err != nil {
				return err
			}
			defer ms.Close()
			sink = ms
		}

		pl := partita.NewPlayer(
			partita.WithLayoutConfig(cfg),
			partita.WithLoop(flagLoop),
			partita.WithMetronome(flagMetronome),
			partita.WithNoteSink(sink),
		)
		defer pl.Close()
		if err := pl.LoadScoreFile(args[0]); err != nil {
			return err
		}
		pl.Resize(flagWidth)
		if err := pl.SetSpeedMultiplier(flagSpeed); err != nil {
			return err
		}
		if flagTempo != 0 {
			if err := pl.SetTempoOverride(flagTempo); err != nil {
				return err
			}
		}

		events := pl.Watch()
		pl.Play()
		slog.Info("playing", "file", args[0], "duration", pl.TotalDuration())

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		for {
			select {
			case <-interrupt:
				pl.Stop()
				return nil
			case ev := <-events:
				switch ev.Kind {
				case partita.EventPlaybackEnded:
					slog.Info("playback ended")
					return nil
				case partita.EventLoopCompleted:
					slog.Info("loop completed")
				case partita.EventBeat:
					slog.Debug("beat", "measure", ev.Measure, "strong", ev.Strong)
				}
			}
		}
	},
}
