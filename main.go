package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/hugo/termpresence/internal/config"
	"github.com/hugo/termpresence/internal/daemon"
	"github.com/hugo/termpresence/internal/history"
	"github.com/hugo/termpresence/internal/presence"
	"github.com/hugo/termpresence/internal/watcher"
	"github.com/hugo/termpresence/pkg/inspector"
	"github.com/hugo/termpresence/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "run":
		runForeground()
	case "start":
		startDaemon()
	case "stop":
		stopDaemon()
	case "status":
		showStatus()
	case "log":
		showLog()
	case "clear":
		clearHistory()
	case "version":
		showVersion()
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`termpresence - Discord rich presence for the Termius SSH client

Usage:
  termpresence <command> [options]

Commands:
  run                Run the watcher in the foreground
  start              Start the watcher as a background daemon
  stop               Stop the background daemon
  status             Show daemon status and current activity
  log [n]            Show the n most recent activity transitions (default 20)
  clear              Clear the recorded activity history
  version            Show version information
  help               Show this help message

Examples:
  termpresence run
  termpresence start
  termpresence status
  termpresence log 50
  termpresence stop

Configuration:
  ~/.config/termpresence/config.yaml (created on first run)

Version: %s
`, version.Version)
}

// loadConfig loads the config document, creating a starting template when
// none exists yet. A freshly created template still needs a client id, so
// that case exits with instructions rather than continuing. requireClientID
// is set by the commands that publish; status and history commands work
// without one.
func loadConfig(requireClientID bool) *config.Config {
	path, err := config.DefaultPath()
	if err != nil {
		log.Fatalf("Failed to resolve config path: %v", err)
	}

	if !config.Exists(path) {
		if err := config.WriteTemplate(path); err != nil {
			log.Fatalf("Failed to write config template: %v", err)
		}
		fmt.Printf("Created config template at %s\n", path)
		fmt.Println("Fill in your Discord application client_id and run again.")
		os.Exit(1)
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if requireClientID && !cfg.HasClientID() {
		log.Fatalf("No Discord client_id configured in %s", path)
	}
	return cfg
}

func runForeground() {
	cfg := loadConfig(true)
	runWatcher(cfg, nil)
}

func startDaemon() {
	cfg := loadConfig(true)

	dm := daemon.New(cfg.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}
	if running {
		log.Fatalf("Watcher is already running (PID: %d)", pid)
	}

	if os.Getenv("TERMPRESENCE_DAEMON_CHILD") != "1" {
		daemonize()
		return
	}

	logPath := fmt.Sprintf("/tmp/termpresence-%d.log", os.Getuid())
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}

	runWatcher(cfg, dm)
}

func runWatcher(cfg *config.Config, dm *daemon.Daemon) {
	var repo *history.Repository
	if cfg.History.Enabled {
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			log.Fatalf("Failed to open history database: %v", err)
		}
		defer db.Close()
		repo = history.NewRepository(db)
	}

	insp := inspector.New(cfg.AppName)
	defer insp.Close()
	log.Printf("Window inspector initialized: %s", insp.Platform())

	pub := presence.NewDiscordClient(cfg.ClientID)
	defer pub.Close()

	if dm != nil {
		if err := dm.WritePID(); err != nil {
			log.Fatalf("Failed to write PID file: %v", err)
		}
		defer dm.RemovePID()
	}

	w := watcher.New(cfg, insp, pub, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
		w.Stop()
	}()

	log.Println("Starting termpresence watcher...")
	log.Printf("%s", cfg.String())

	if err := w.Start(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Watcher error: %v", err)
	}

	log.Println("Watcher stopped successfully")
}

func stopDaemon() {
	cfg := loadConfig(false)
	dm := daemon.New(cfg.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}
	if !running {
		fmt.Println("Watcher is not running")
		return
	}
	fmt.Printf("Stopping watcher (PID: %d)...\n", pid)
	if err := dm.Stop(); err != nil {
		log.Fatalf("Failed to stop watcher: %v", err)
	}
	fmt.Println("Watcher stopped successfully")
}

func showStatus() {
	cfg := loadConfig(false)
	dm := daemon.New(cfg.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}
	if !running {
		fmt.Println("Status: Not running")
	} else {
		fmt.Printf("Status: Running (PID: %d)\n", pid)
		fmt.Printf("Poll Interval: %v\n", cfg.PollInterval())
	}
	fmt.Printf("Display Server: %s\n", inspector.DetectDisplayServer())

	insp := inspector.New(cfg.AppName)
	defer insp.Close()

	pub := presence.NewDiscordClient(cfg.ClientID)
	defer pub.Close()

	w := watcher.New(cfg, insp, pub, nil)
	snap, act, err := w.Current()
	if err != nil {
		fmt.Printf("\nCould not inspect current window: %v\n", err)
		return
	}

	fmt.Printf("\nCurrent Activity: %s\n", act.String())
	if snap != nil {
		if snap.Title != "" {
			fmt.Printf("  Window Title: %s\n", snap.Title)
		}
		if snap.Tab != "" {
			fmt.Printf("  Active Tab: %s\n", snap.Tab)
		}
		fmt.Printf("  PID: %d\n", snap.PID)
	}
}

func showLog() {
	cfg := loadConfig(false)
	if !cfg.History.Enabled {
		fmt.Println("History is disabled in the configuration")
		return
	}

	limit := 20
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n < 1 {
			log.Fatalf("Invalid log count: %s", os.Args[2])
		}
		limit = n
	}

	db, err := history.Open(cfg.History.Path)
	if err != nil {
		log.Fatalf("Failed to open history database: %v", err)
	}
	defer db.Close()

	repo := history.NewRepository(db)
	events, err := repo.Recent(limit)
	if err != nil {
		log.Fatalf("Failed to read history: %v", err)
	}
	if len(events) == 0 {
		fmt.Println("No recorded activity")
		return
	}

	for _, ev := range events {
		line := fmt.Sprintf("%s  %s", ev.Timestamp.Format("2006-01-02 15:04:05"), ev.Kind)
		if ev.Host != "" {
			line += fmt.Sprintf(" (%s)", ev.Host)
		}
		if ev.State != "" {
			line += fmt.Sprintf("  %s", ev.State)
		}
		fmt.Println(line)
	}
}

func clearHistory() {
	cfg := loadConfig(false)
	fmt.Print("This will delete all recorded activity. Are you sure? (yes/no): ")
	var response string
	fmt.Scanln(&response)
	if response != "yes" && response != "y" {
		fmt.Println("Operation cancelled")
		return
	}

	db, err := history.Open(cfg.History.Path)
	if err != nil {
		log.Fatalf("Failed to open history database: %v", err)
	}
	defer db.Close()

	repo := history.NewRepository(db)
	if err := repo.Clear(); err != nil {
		log.Fatalf("Failed to clear history: %v", err)
	}
	fmt.Println("History cleared successfully")
}

func daemonize() {
	env := os.Environ()
	env = append(env, "TERMPRESENCE_DAEMON_CHILD=1")
	args := os.Args
	procAttr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	}
	process, err := os.StartProcess(args[0], args, procAttr)
	if err != nil {
		log.Fatalf("Failed to start daemon process: %v", err)
	}
	fmt.Printf("Watcher started successfully (PID: %d)\n", process.Pid)
	fmt.Printf("Logs: /tmp/termpresence-%d.log\n", os.Getuid())
}

func showVersion() {
	fmt.Printf("version: %s\n", version.Version)
	fmt.Printf("built  : %s\n", version.Date)
}
