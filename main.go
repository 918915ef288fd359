package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"fyne.io/fyne/v2"

	"CanvasBoard/internal/config"
	"CanvasBoard/internal/editor"
	"CanvasBoard/internal/gen"
	"CanvasBoard/internal/interact"
	"CanvasBoard/internal/logging"
	boardnet "CanvasBoard/internal/net"
	"CanvasBoard/internal/state"
	"CanvasBoard/internal/ui"
)

func main() {
	configPath := flag.String("config", "", "path to the TOML settings file")
	browse := flag.Duration("browse", 0, "list boards shared on the local network for this long, then exit")
	flag.Parse()

	if *browse > 0 {
		listShared(*browse)
		return
	}

	path := *configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			log.Fatalf("Failed to find config dir: %v", err)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level := new(slog.LevelVar)
	level.Set(logging.ParseLevel(cfg.LogLevel))
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ws := openWorkspace(cfg.WorkspacePath())

	var svc gen.Service
	if client, err := gen.NewClient(cfg.Generation.URL, cfg.Generation.Token); err != nil {
		log.Printf("Generation disabled: %v", err)
	} else {
		svc = client
	}

	ed, err := editor.New(ws, svc,
		editor.WithModel(cfg.Generation.Model),
		editor.WithTargetSize(cfg.Generation.TargetSize),
		editor.WithHistoryCapacity(cfg.HistoryCapacity),
		editor.WithPadding(cfg.RasterPadding),
		editor.WithControllerOptions(interact.WithStyle(styleFor(cfg))),
	)
	if err != nil {
		log.Fatalf("Failed to open board: %v", err)
	}

	shareLink := ""
	if cfg.Share.Enabled {
		shareLink = startSharing(ctx, cfg, ed)
	}

	err = config.Watch(ctx, path, func(next config.Config, err error) {
		if err != nil {
			log.Printf("Config reload failed: %v", err)
			return
		}
		fyne.Do(func() {
			level.Set(logging.ParseLevel(next.LogLevel))
			ed.Controller().SetStyle(styleFor(next))
		})
	})
	if err != nil {
		log.Printf("Config changes will not be picked up: %v", err)
	}

	ui.RunApp(ctx, ed, ui.Options{
		ShareLink: shareLink,
		OnClose: func() {
			if err := ed.SaveFile(cfg.WorkspacePath()); err != nil {
				log.Printf("Failed to save workspace: %v", err)
			}
		},
		OnStyle: func(st interact.Style) {
			cfg.Stroke = config.Stroke{Color: st.StrokeColor, Width: st.StrokeWidth}
			if err := cfg.Save(path); err != nil {
				log.Printf("Failed to save settings: %v", err)
			}
		},
	})
}

func listShared(timeout time.Duration) {
	err := boardnet.Browse(timeout, func(f boardnet.Found) {
		fmt.Printf("%s\t%s\n", f.Board, f.URL)
	})
	if err != nil {
		log.Fatalf("Browse failed: %v", err)
	}
}

func openWorkspace(path string) *state.Workspace {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return state.NewWorkspace("Board 1")
	}
	if err != nil {
		log.Fatalf("Failed to open workspace: %v", err)
	}
	defer f.Close()
	ws, err := state.LoadWorkspace(f)
	if err != nil {
		log.Printf("Workspace %s unreadable, starting fresh: %v", path, err)
		return state.NewWorkspace("Board 1")
	}
	return ws
}

func styleFor(cfg config.Config) interact.Style {
	st := interact.DefaultStyle()
	st.StrokeColor = cfg.Stroke.Color
	st.StrokeWidth = cfg.Stroke.Width
	return st
}

// startSharing serves the live board to LAN viewers and returns the link
// they connect to.
func startSharing(ctx context.Context, cfg config.Config, ed *editor.Editor) string {
	server := boardnet.NewShareServer(boardnet.NewConnectionManager())
	broadcast := func(els []state.Element) {
		b, err := ed.Workspace().Active()
		if err != nil {
			return
		}
		b.Elements = els
		if err := server.Broadcast(b); err != nil {
			log.Printf("Share broadcast failed: %v", err)
		}
	}
	ed.Controller().OnCommit(broadcast)
	ed.Controller().OnRestore(broadcast)
	broadcast(ed.Store().Elements())

	go func() {
		if err := server.ListenAndServe(ctx, cfg.Share.Port); err != nil {
			log.Printf("Share server stopped: %v", err)
		}
	}()

	if cfg.Share.MDNS {
		b, _ := ed.Workspace().Active()
		mdnsServer, err := boardnet.Advertise(cfg.Share.Port, b.Name)
		if err != nil {
			log.Printf("mDNS advertise failed: %v", err)
		} else {
			context.AfterFunc(ctx, func() { _ = mdnsServer.Shutdown() })
		}
	}
	return boardnet.ShareURL(boardnet.OutgoingIP(), cfg.Share.Port)
}
