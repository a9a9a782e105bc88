package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/vehicle-ai-concierge/client/session"
	"github.com/tanpawarit/vehicle-ai-concierge/client/transport"
	logx "github.com/tanpawarit/vehicle-ai-concierge/pkg/logger"
)

type appConfig struct {
	baseURL   string
	userID    string
	capacity  int
	altScreen bool
	logPath   string
	debug     bool
}

func parseFlags() appConfig {
	cfg := appConfig{}
	flag.StringVar(&cfg.baseURL, "url", envOr("CONCIERGE_URL", "http://localhost:8080"), "concierge API base URL")
	flag.StringVar(&cfg.userID, "user", os.Getenv("CONCIERGE_USER_ID"), "user id; minted by the server when empty")
	flag.IntVar(&cfg.capacity, "capacity", session.DefaultCapacity, "max remembered rich items")
	flag.BoolVar(&cfg.altScreen, "alt-screen", true, "use the terminal alternate screen")
	flag.StringVar(&cfg.logPath, "log", envOr("CONCIERGE_LOG", filepath.Join(os.TempDir(), "concierge-tui.log")), "log file; the terminal belongs to the UI")
	flag.BoolVar(&cfg.debug, "debug", false, "log at debug level")
	flag.Parse()
	return cfg
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func main() {
	cfg := parseFlags()

	logFile, err := os.OpenFile(cfg.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "concierge-tui: open log: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logx.Init(logx.Config{Service: "concierge-tui", Debug: cfg.debug, Output: logFile})

	sess, err := session.New(cfg.capacity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "concierge-tui: %v\n", err)
		os.Exit(1)
	}
	client := transport.New(cfg.baseURL, transport.WithUserID(cfg.userID))

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if cfg.altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(newModel(client, sess), opts...)
	if _, err := p.Run(); err != nil {
		log.Error().Err(err).Msg("tui stopped")
		fmt.Fprintf(os.Stderr, "concierge-tui fatal error: %v\n", err)
		os.Exit(1)
	}
}
