package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"hexmap/internal/adapters/memory"
	"hexmap/internal/adapters/sqlite"
	"hexmap/internal/adapters/tui"
	"hexmap/internal/config"
	"hexmap/internal/domain"
	"hexmap/internal/engine"
	"hexmap/internal/ports"
)

func main() {
	demo := flag.Bool("demo", false, "browse a seeded in-memory map instead of the database")
	flag.Parse()

	var server ports.ServerService
	if *demo {
		server = demoServer()
	} else {
		srv := sqlite.NewServer()
		if err := srv.Open(config.DatabasePath()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer srv.Close()
		server = srv
	}

	opts := engine.DefaultOptions()
	opts.Source = "tui"
	// Logging would fight bubbletea for the terminal.
	eng := engine.New(zap.NewNop(), server, opts)
	defer eng.Shutdown()

	root := config.RootCoordID()
	if *demo {
		root = "1,0"
	}
	if err := eng.Bootstrap(context.Background(), root); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	app := tui.NewApp(eng)

	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func demoServer() *memory.Server {
	srv := memory.New()
	srv.Seed(
		domain.ServerItem{Coordinates: "1,0", Title: "Home", Content: "The center of the demo map."},
		domain.ServerItem{Coordinates: "1,0:1", Title: "Projects", Content: "Active work."},
		domain.ServerItem{Coordinates: "1,0:1,1", Title: "Engine", Content: "Cache and sync internals."},
		domain.ServerItem{Coordinates: "1,0:1,2", Title: "Surfaces", Content: "TUI, CLI, MCP."},
		domain.ServerItem{Coordinates: "1,0:2", Title: "Notes", Content: "Loose thoughts."},
		domain.ServerItem{Coordinates: "1,0:2,0", Title: "Notes container", Content: "Composed children live here."},
		domain.ServerItem{Coordinates: "1,0:2,0,-1", Title: "Pinned", Content: "A composed tile."},
		domain.ServerItem{Coordinates: "1,0:3", Title: "Archive", Content: "Cold storage."},
	)
	return srv
}
