package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/llehouerou/decomposer/internal/app"
	"github.com/llehouerou/decomposer/internal/config"
	"github.com/llehouerou/decomposer/internal/engine"
	"github.com/llehouerou/decomposer/internal/errmsg"
	"github.com/llehouerou/decomposer/internal/library"
	"github.com/llehouerou/decomposer/internal/logging"
	"github.com/llehouerou/decomposer/internal/mpris"
	"github.com/llehouerou/decomposer/internal/notify"
	"github.com/llehouerou/decomposer/internal/output"
	"github.com/llehouerou/decomposer/internal/playback"
	"github.com/llehouerou/decomposer/internal/playlist"
	"github.com/llehouerou/decomposer/internal/state"
	"github.com/llehouerou/decomposer/internal/stderr"
)

func main() {
	code := 0
	cmd := newRootCmd(func(resume bool) { code = run(resume) })
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	os.Exit(code)
}

// newRootCmd builds the command line around start, which runs the player.
func newRootCmd(start func(resume bool)) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "decomposer",
		Short:         "Terminal music player",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resume, _ := cmd.Flags().GetBool("resume")
			start(resume)
			return nil
		},
	}
	cmd.Flags().BoolP("resume", "r", false, "play the queue saved on last quit instead of scanning the library")
	return cmd
}

func run(resume bool) int {

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpConfigLoad, err))
		return 1
	}
	notes := cfg.Normalize()

	logger, logFile, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpInitialize, err))
		return 1
	}
	defer logFile.Close()
	for _, n := range notes {
		logger.Warn().Str("op", string(errmsg.OpConfigLoad)).Msg(n)
	}

	if err := stderr.Start(logger); err != nil {
		logger.Warn().Err(err).Msg("stderr capture unavailable")
	}
	defer stderr.Stop()

	store, err := state.Open()
	if err != nil {
		logger.Warn().Err(err).Str("op", string(errmsg.OpStateLoad)).Msg("running without saved state")
		store = nil
	} else {
		defer store.Close()
	}

	volume, looping := cfg.Volume, cfg.Looping
	if store != nil {
		if s, err := store.GetSettings(); err != nil {
			logger.Warn().Err(err).Str("op", string(errmsg.OpStateLoad)).Msg("ignoring saved settings")
		} else if s != nil {
			volume, looping = s.Volume, s.Looping
		}
	}

	queue := buildQueue(cfg, store, resume, logger)

	eng, ctl := engine.New(logger)
	host, err := output.Start(cfg.Audio.SampleRate, time.Duration(cfg.Audio.BufferMs)*time.Millisecond, eng, logger)
	if err != nil {
		fatal(errmsg.Format(errmsg.OpAudioOutput, err))
		return 1
	}
	defer host.Close()

	opts := cfg.Stream()
	coord := playback.NewCoordinator(ctl, queue, playback.StreamOpener(opts, &logger), logger,
		playback.WithDescriber(app.TagDescriber(logger)))
	coord.SetVolume(float32(volume))
	coord.SetLooping(looping)
	coord.Advance()

	var deps app.Deps
	deps.Coordinator = coord
	deps.Stream = opts
	deps.Stderr = stderr.Messages
	deps.Log = logger
	if store != nil {
		deps.Store = store
	}
	if cfg.MPRIS {
		remote, err := mpris.New()
		if err != nil {
			logger.Warn().Err(err).Msg("mpris unavailable")
		} else {
			defer remote.Close()
			deps.Remote = remote
		}
	}
	if cfg.Notifications.Enabled {
		n, err := notify.New()
		if err != nil {
			logger.Warn().Err(err).Msg("notifications unavailable")
		} else {
			deps.Announcer = notify.NewNowPlaying(n, int32(cfg.Notifications.Timeout))
		}
	}

	p := tea.NewProgram(app.New(deps), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fatal(errmsg.Format(errmsg.OpInitialize, err))
		return 1
	}
	return 0
}

// buildQueue returns the saved queue when resuming, or every music file
// under the library root. A missing root gives an empty queue.
func buildQueue(cfg *config.Config, store *state.Manager, resume bool, log zerolog.Logger) *playlist.Queue {
	q := playlist.NewQueue()

	if resume && store != nil {
		saved, err := store.GetQueue()
		if err != nil {
			log.Warn().Err(err).Str("op", string(errmsg.OpStateLoad)).Msg("ignoring saved queue")
		}
		for _, t := range saved {
			if _, err := os.Stat(t.Path); err == nil {
				q.Add(app.FromQueueTrack(t))
			}
		}
		if !q.IsEmpty() {
			log.Info().Int("tracks", q.Len()).Msg("resumed saved queue")
			return q
		}
	}

	paths, err := library.Scan(context.Background(), cfg.LibraryRoot)
	if err != nil {
		log.Warn().Err(err).Str("op", string(errmsg.OpLibraryScan)).Str("root", cfg.LibraryRoot).Msg("empty queue")
		return q
	}
	for _, p := range paths {
		q.Add(playlist.NewTrack(p))
	}
	log.Info().Int("tracks", q.Len()).Str("root", cfg.LibraryRoot).Msg("library scanned")
	return q
}

func fatal(msg string) {
	stderr.WriteOriginal(msg + "\n")
}
