// Command pomo runs the timer in the terminal. Commands are read one per
// line from stdin:
//
//	s+ s-   lengthen or shorten the session
//	b+ b-   lengthen or shorten the break
//	t       start or stop (an empty line does the same)
//	r       reset
//	q       quit
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/seantiz/pomoflow/internal/clock"
	"github.com/seantiz/pomoflow/internal/config"
	"github.com/seantiz/pomoflow/internal/engine"
	"github.com/seantiz/pomoflow/internal/model"
	"github.com/seantiz/pomoflow/internal/store"
)

func main() {
	cfg := config.Load()
	logger := config.NewLoggerFromConfig(os.Stderr, cfg)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	var cue engine.Cue = engine.NopCue{}
	if cfg.Bell {
		cue = engine.BellCue{W: os.Stdout}
	}
	eng := engine.NewEngine(db, clock.System, cue, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ch, unsub := eng.Broker().Subscribe()
	defer unsub()

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range ch {
			if ev.Type == engine.EventState {
				fmt.Fprintln(os.Stdout, statusLine(*ev.State))
			}
		}
	}()

	fmt.Fprintln(os.Stdout, statusLine(eng.Snapshot()))
	runCommands(ctx, eng, os.Stdin, os.Stderr)

	eng.Close()
	<-printed
}

// runCommands applies commands read from r until q, EOF, or ctx is done.
func runCommands(ctx context.Context, eng *engine.Engine, r io.Reader, errOut io.Writer) {
	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			quit, known := apply(eng, line)
			if quit {
				return
			}
			if !known {
				fmt.Fprintf(errOut, "unknown command %q (s+ s- b+ b- t r q)\n", strings.TrimSpace(line))
			}
		}
	}
}

// apply runs one command against the engine.
func apply(eng *engine.Engine, line string) (quit, known bool) {
	switch strings.TrimSpace(line) {
	case "s+":
		eng.AdjustSessionLength(1)
	case "s-":
		eng.AdjustSessionLength(-1)
	case "b+":
		eng.AdjustBreakLength(1)
	case "b-":
		eng.AdjustBreakLength(-1)
	case "t", "":
		eng.ToggleRunning()
	case "r":
		eng.Reset()
	case "q":
		return true, true
	default:
		return false, false
	}
	return false, true
}

func statusLine(st model.TimerState) string {
	mode := "idle"
	if st.Running {
		mode = "running"
	}
	return fmt.Sprintf("%s %s [%s] session=%d break=%d",
		st.Phase, st.Remaining(), mode, st.SessionLengthMinutes, st.BreakLengthMinutes)
}
