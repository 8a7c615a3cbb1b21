// Command narrate plays a study or an uploaded move list in the terminal,
// writing each narration line to the log as it would be spoken.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/chess-audio-guide/internal/adapter/guidepresenter"
	"github.com/park285/chess-audio-guide/internal/catalog"
	"github.com/park285/chess-audio-guide/internal/guide"
	"github.com/park285/chess-audio-guide/internal/msgcat"
	"github.com/park285/chess-audio-guide/internal/narration"
	"github.com/park285/chess-audio-guide/internal/obslog"
	"github.com/park285/chess-audio-guide/internal/playback"
	"github.com/park285/chess-audio-guide/internal/speech"
	"github.com/park285/chess-audio-guide/pkg/guidedto"
	"go.uber.org/zap"
)

func main() {
	var (
		studyID  = flag.String("study", "", "study id to play")
		file     = flag.String("file", "", "JSON move list to simulate")
		list     = flag.Bool("list", false, "list studies and exit")
		delay    = flag.Duration("delay", 2*time.Second, "pause between moves")
		wpm      = flag.Int("wpm", speech.DefaultWPM, "narration speaking rate")
		volume   = flag.Float64("volume", playback.DefaultVolume, "narration volume in [0,1]")
		studyDir = flag.String("studies", "", "directory of extra study files")
	)
	flag.Parse()

	if err := obslog.Init(obslog.Options{Level: "info", Format: "console", Console: true}); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cat, err := catalog.New(*studyDir)
	if err != nil {
		log.Fatalf("studies: %v", err)
	}
	formatter := guidepresenter.NewFormatter()
	if *list {
		summaries := make([]guidedto.StudySummary, 0)
		for _, st := range cat.List() {
			summaries = append(summaries, guidepresenter.ToDTOStudySummary(st))
		}
		fmt.Println(formatter.Studies(summaries))
		return
	}
	if (*studyID == "") == (*file == "") {
		log.Fatalf("exactly one of -study or -file is required")
	}

	opts := playback.DefaultOptions()
	opts.Study.Delay = *delay
	opts.Simulation.Delay = *delay
	opts.Volume = *volume
	svc, err := guide.NewService(guide.Config{Playback: opts}, guide.Deps{
		Catalog:  cat,
		Messages: msgcat.Default(),
		Engines: func(string) narration.Engine {
			return speech.NewTimed(speech.WithWPM(*wpm), speech.WithSink(speech.LogSink{Logger: logger}))
		},
		Logger: zap.NewNop(),
	})
	if err != nil {
		log.Fatalf("guide init error: %v", err)
	}
	defer svc.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v, err := svc.CreateSession(ctx)
	if err != nil {
		log.Fatalf("session: %v", err)
	}
	id := v.SessionID
	if *studyID != "" {
		_, err = svc.LoadStudy(ctx, id, *studyID)
	} else {
		f, ferr := os.Open(*file)
		if ferr != nil {
			log.Fatalf("open upload: %v", ferr)
		}
		_, err = svc.Upload(ctx, id, f, guide.UploadSimulate, *file)
		_ = f.Close()
	}
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	if _, err := svc.Play(ctx, id); err != nil {
		log.Fatalf("play: %v", err)
	}

	if err := waitForEnd(ctx, svc, id, formatter); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("playback: %v", err)
	}
}

// waitForEnd prints the status after every move until playback stops at the
// last move.
func waitForEnd(ctx context.Context, svc *guide.Service, id string, f *guidepresenter.Formatter) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	last := -2
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		v, err := svc.State(ctx, id)
		if err != nil {
			return err
		}
		st := guidepresenter.ToDTOState(v)
		if st.Playback.CurrentMoveIndex != last {
			last = st.Playback.CurrentMoveIndex
			fmt.Println(f.Status(st))
			fmt.Println()
		}
		if st.Playback.AtEnd && !st.Playback.IsPlaying && st.Playback.Narration == "idle" {
			return nil
		}
	}
}
