package cmd

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/kerbaras/adxport/pkg/app"
	"github.com/kerbaras/adxport/pkg/app/screens"
	"github.com/kerbaras/adxport/pkg/config"
	"github.com/kerbaras/adxport/pkg/data"
	"github.com/kerbaras/adxport/pkg/integrations"
	"github.com/kerbaras/adxport/pkg/services"
	"github.com/kerbaras/adxport/pkg/sources"
	"github.com/kerbaras/adxport/pkg/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:          "adxport",
	Short:        "Download rhythm game charts and hand them to AstroDX",
	Long:         "Browse chart sources, download songs into a local library and import them into AstroDX",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cfg.Validate()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Logs would corrupt the alternate screen.
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return err
		}
		logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "adxport.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		defer logFile.Close()

		e, err := setupWithLog(logFile)
		if err != nil {
			return err
		}
		defer e.Close()

		foreground := integrations.NewForegroundFlag(true)
		// The terminal belongs to the TUI, so the share fallback is accepted
		// without asking.
		dispatcher := e.dispatcher(integrations.StaticPrompter{Answer: true}, foreground)
		controller := e.controller(dispatcher, e.settings.IncludeVideo)
		defer controller.Close()

		deps := screens.Deps{
			Pager:       sources.NewPaginator(e.registry, e.client, sources.WithPaginatorLogger(e.log)),
			Flow:        controller,
			Preferences: e.settings,
			Library:     e.library,
			Handoff:     dispatcher,
			Foreground:  foreground,
		}
		if err := app.NewApp(deps, controller, e.log).Run(cmd.Context()); err != nil {
			return err
		}
		controller.Wait()
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the library and settings")
	flags.StringVar(&cfg.Store, "store", cfg.Store, "settings backend: file or duckdb")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-song download timeout")
	flags.DurationVar(&cfg.Grace, "grace", cfg.Grace, "how long a launched handoff blocks the next one")
	flags.StringVar(&cfg.TargetPackage, "package", cfg.TargetPackage, "Android package that receives archives")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.Float64Var(&cfg.RequestsPerSecond, "rps", cfg.RequestsPerSecond, "max HTTP requests per second, 0 for no limit")
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// env holds the components shared by every command.
type env struct {
	log        zerolog.Logger
	store      data.Store
	closeStore func() error
	registry   *sources.Registry
	settings   *config.Settings
	api        *utils.API
	client     *sources.Client
	library    *services.Library
	codec      integrations.Codec
}

func setup() (*env, error) {
	return setupWithLog(os.Stderr)
}

func setupWithLog(w io.Writer) (*env, error) {
	log := utils.NewLogger(cfg.LogLevel, w)

	store, closeStore, err := cfg.OpenStore()
	if err != nil {
		return nil, err
	}

	api := utils.NewAPI(&http.Client{}, cfg.RequestsPerSecond)
	return &env{
		log:        log,
		store:      store,
		closeStore: closeStore,
		registry:   sources.NewRegistry(store, sources.WithRegistryLogger(log)),
		settings:   config.NewSettings(store, log),
		api:        api,
		client:     sources.NewClient(api),
		library:    services.NewLibrary(cfg.LibraryDir()),
		codec:      integrations.NewCodec(log),
	}, nil
}

func (e *env) Close() {
	if err := e.closeStore(); err != nil {
		e.log.Warn().Err(err).Msg("failed to close store")
	}
}

func (e *env) orchestrator(includeVideo func() bool) *services.Orchestrator {
	fetcher := services.NewFetcher(e.registry, e.api, services.WithFetcherLogger(e.log))
	return services.NewOrchestrator(e.library, fetcher,
		services.WithOrchestratorLogger(e.log),
		services.WithSongTimeout(cfg.Timeout),
		services.WithIncludeVideo(includeVideo),
	)
}

func (e *env) dispatcher(prompter integrations.Prompter, app integrations.AppState) *integrations.Dispatcher {
	return integrations.NewPlatformDispatcher(runtime.GOOS, cfg.TargetPackage, prompter, app,
		integrations.WithDispatcherLogger(e.log),
		integrations.WithGrace(cfg.Grace),
	)
}

func (e *env) controller(deliverer services.Deliverer, includeVideo func() bool) *services.Controller {
	return services.NewController(e.orchestrator(includeVideo), e.library, e.codec, deliverer,
		services.WithControllerLogger(e.log))
}

// prompter asks on the terminal when there is one.
func prompter() integrations.Prompter {
	if utils.IsTerminal(os.Stdin) && utils.IsTerminal(os.Stdout) {
		return integrations.SurveyPrompter{}
	}
	return integrations.StaticPrompter{Answer: false}
}

func truncateString(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
