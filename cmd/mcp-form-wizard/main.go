package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/formflow/mcp-form-wizard/internal/config"
	"github.com/formflow/mcp-form-wizard/internal/document"
	"github.com/formflow/mcp-form-wizard/internal/mcp"
	"github.com/formflow/mcp-form-wizard/internal/nav"
	"github.com/formflow/mcp-form-wizard/internal/submit"
	"github.com/formflow/mcp-form-wizard/internal/tui"
	"github.com/formflow/mcp-form-wizard/internal/wizard"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the host surface
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// In stdio mode, keep stdout clean for the MCP protocol
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(os.NewFile(0, os.DevNull))
		}
	} else {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.SetOutput(os.Stderr)
	}
}

// buildWizardService wires the engine: renderer, sink, navigation and
// the service on top.
func buildWizardService(cfg *config.Config) (*wizard.Service, error) {
	renderer := document.NewFileRenderer(cfg.MaxFileSize, cfg.IsDebug())

	sink, err := submit.NewJSONFileSink(cfg.OutputDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission sink: %w", err)
	}

	pathValidator, err := document.NewPathValidator(cfg.FormsDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	coordinator := nav.NewCoordinator(renderer, nav.NewRegistry(),
		nav.WithRetryPolicy(cfg.NavRetries, nav.DefaultRetryBackoff))

	return wizard.NewService(renderer, sink, coordinator,
		wizard.WithPathValidator(pathValidator),
		wizard.WithScale(cfg.Scale),
		wizard.WithDebug(cfg.IsDebug()),
	), nil
}

// runStdioMode serves the wizard over MCP with signal handling
func runStdioMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		cancel()
		if err := <-serverErrCh; err != nil {
			log.Printf("Server shutdown with error: %v", err)
			os.Exit(1)
		}
	case err := <-serverErrCh:
		if err != nil {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}
}

// runTUIMode runs the interactive terminal wizard. The first positional
// argument, if present, is loaded as the form to fill.
func runTUIMode(cfg *config.Config, service *wizard.Service) {
	if args := pflag.Args(); len(args) > 0 {
		if _, err := service.LoadDocument(wizard.LoadDocumentRequest{Path: args[0]}); err != nil {
			log.Fatalf("Failed to load document: %v", err)
		}
	}
	if err := tui.Run(service); err != nil {
		log.Fatalf("Terminal UI error: %v", err)
	}
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	service, err := buildWizardService(cfg)
	if err != nil {
		log.Fatalf("Failed to build wizard service: %v", err)
	}

	if cfg.IsTUIMode() {
		runTUIMode(cfg, service)
		return
	}

	server, err := mcp.NewServer(cfg, service)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runStdioMode(ctx, cancel, server)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Form Wizard\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
