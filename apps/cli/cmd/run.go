package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/config"
	"github.com/abdul-hamid-achik/hitgraph/packages/core/runner"
	"github.com/abdul-hamid-achik/hitgraph/packages/history"
	"github.com/abdul-hamid-achik/hitgraph/packages/http"
	"github.com/abdul-hamid-achik/hitgraph/packages/notify"
	"github.com/abdul-hamid-achik/hitgraph/packages/output"
	"github.com/abdul-hamid-achik/hitgraph/packages/tracing"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the registered tests",
	Long: `Run every registered test, honouring dependencies between tests.

Settings are read from .hitgraph.yaml (or --config), then overridden by
HITGRAPH_* environment variables and flags.

Examples:
  hitgraph run
  hitgraph run --concurrency 4 --timeout 30s
  hitgraph run --base-url http://localhost:8080 -H "Authorization: Bearer t0ken"
  hitgraph run --reporter console,junit --output-dir reports
  hitgraph run --history runs.db --trace-endpoint localhost:4318`,
	Args: cobra.NoArgs,
	RunE: runCommand,
}

// ShutdownTimeout bounds how long pending spans are flushed after a run
const ShutdownTimeout = 5 * time.Second

var (
	configFlag          string
	concurrencyFlag     int
	timeoutFlag         string
	httpTimeoutFlag     string
	httpConcurrencyFlag int
	rateFlag            float64
	baseURLFlag         string
	headerFlags         []string
	proxyFlag           string
	insecureFlag        bool
	noRedirectsFlag     bool
	reporterFlag        string
	outputDirFlag       string
	verboseFlag         bool
	noColorFlag         bool
	logLevelFlag        string
	traceEndpointFlag   string
	traceSampleFlag     float64
	historyFlag         string
	dryRunFlag          bool

	// Notification flags
	notifyFlag       string
	notifyOnFlag     string
	slackWebhookFlag string
	slackChannelFlag string
	teamsWebhookFlag string
)

func init() {
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("HITGRAPH_CONFIG", ""), "Path to config file (env: HITGRAPH_CONFIG)")

	// Execution flags
	runCmd.Flags().IntVarP(&concurrencyFlag, "concurrency", "c", getEnvInt("HITGRAPH_CONCURRENCY", 0), "Tests in flight at once (env: HITGRAPH_CONCURRENCY)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("HITGRAPH_TIMEOUT", ""), "Deadline for each test, e.g. 30s (env: HITGRAPH_TIMEOUT)")
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Show what would run without executing")

	// Network flags
	runCmd.Flags().StringVar(&baseURLFlag, "base-url", getEnvString("HITGRAPH_BASE_URL", ""), "Base URL for relative request URLs (env: HITGRAPH_BASE_URL)")
	runCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, "Default request header as \"Name: value\" (repeatable)")
	runCmd.Flags().StringVar(&httpTimeoutFlag, "http-timeout", getEnvString("HITGRAPH_HTTP_TIMEOUT", ""), "Timeout for each HTTP call, e.g. 10s (env: HITGRAPH_HTTP_TIMEOUT)")
	runCmd.Flags().IntVar(&httpConcurrencyFlag, "http-concurrency", getEnvInt("HITGRAPH_HTTP_CONCURRENCY", 0), "Calls performed at once by one batch (env: HITGRAPH_HTTP_CONCURRENCY)")
	runCmd.Flags().Float64Var(&rateFlag, "rate", getEnvFloat("HITGRAPH_RATE", 0), "Maximum HTTP calls per second, 0 for unlimited (env: HITGRAPH_RATE)")
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("HITGRAPH_PROXY", ""), "Proxy URL for HTTP requests (env: HITGRAPH_PROXY)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HITGRAPH_INSECURE", false), "Disable SSL certificate validation (env: HITGRAPH_INSECURE)")
	runCmd.Flags().BoolVar(&noRedirectsFlag, "no-redirects", false, "Do not follow HTTP redirects")

	// Output flags
	runCmd.Flags().StringVarP(&reporterFlag, "reporter", "o", getEnvString("HITGRAPH_REPORTER", ""), "Reporters, comma-separated: console, json, junit, tap (env: HITGRAPH_REPORTER)")
	runCmd.Flags().StringVar(&outputDirFlag, "output-dir", getEnvString("HITGRAPH_OUTPUT_DIR", ""), "Directory for report files (default: stdout) (env: HITGRAPH_OUTPUT_DIR)")
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("HITGRAPH_VERBOSE", false), "Print step output and assertions (env: HITGRAPH_VERBOSE)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("HITGRAPH_NO_COLOR", false), "Disable colored output (env: HITGRAPH_NO_COLOR)")
	runCmd.Flags().StringVar(&logLevelFlag, "log-level", getEnvString("HITGRAPH_LOG_LEVEL", ""), "Log level: debug, info, warn, error (env: HITGRAPH_LOG_LEVEL)")

	// Tracing and history flags
	runCmd.Flags().StringVar(&traceEndpointFlag, "trace-endpoint", getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", ""), "OTLP/HTTP endpoint for test spans (env: OTEL_EXPORTER_OTLP_ENDPOINT)")
	runCmd.Flags().Float64Var(&traceSampleFlag, "trace-sample-rate", getEnvFloat("HITGRAPH_TRACE_SAMPLE_RATE", 0), "Fraction of runs to trace (env: HITGRAPH_TRACE_SAMPLE_RATE)")
	runCmd.Flags().StringVar(&historyFlag, "history", getEnvString("HITGRAPH_HISTORY", ""), "SQLite database recording every run (env: HITGRAPH_HISTORY)")

	// Notification flags
	runCmd.Flags().StringVar(&notifyFlag, "notify", getEnvString("HITGRAPH_NOTIFY", ""), "Notification services, comma-separated: slack, teams (env: HITGRAPH_NOTIFY)")
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("HITGRAPH_NOTIFY_ON", "failure"), "When to notify: always, failure, success, recovery (env: HITGRAPH_NOTIFY_ON)")
	runCmd.Flags().StringVar(&slackWebhookFlag, "slack-webhook", getEnvString("SLACK_WEBHOOK", ""), "Slack webhook URL (env: SLACK_WEBHOOK)")
	runCmd.Flags().StringVar(&slackChannelFlag, "slack-channel", getEnvString("SLACK_CHANNEL", ""), "Slack channel override (env: SLACK_CHANNEL)")
	runCmd.Flags().StringVar(&teamsWebhookFlag, "teams-webhook", getEnvString("TEAMS_WEBHOOK", ""), "Microsoft Teams webhook URL (env: TEAMS_WEBHOOK)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// resolveConfig layers defaults, the config file and the flags, in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := &config.Config{
		Concurrency:     concurrencyFlag,
		HTTPConcurrency: httpConcurrencyFlag,
		HTTPRate:        rateFlag,
		BaseURL:         baseURLFlag,
		Proxy:           proxyFlag,
		OutputDir:       outputDirFlag,
		LogLevel:        logLevelFlag,
		HistoryDB:       historyFlag,
		Tracing: config.TracingConfig{
			Endpoint:   traceEndpointFlag,
			SampleRate: traceSampleFlag,
		},
	}

	if flags.TestTimeout, err = parseMillis("timeout", timeoutFlag); err != nil {
		return nil, err
	}
	if flags.HTTPTimeout, err = parseMillis("http-timeout", httpTimeoutFlag); err != nil {
		return nil, err
	}
	if flags.Headers, err = parseHeaders(headerFlags); err != nil {
		return nil, err
	}
	if reporterFlag != "" {
		flags.Reporters = splitList(reporterFlag)
	}

	// Booleans only override the file when given explicitly
	if cmd.Flags().Changed("insecure") || insecureFlag {
		flags.ValidateSSL = config.BoolPtr(!insecureFlag)
	}
	if cmd.Flags().Changed("no-redirects") {
		flags.FollowRedirects = config.BoolPtr(!noRedirectsFlag)
	}
	if cmd.Flags().Changed("verbose") || verboseFlag {
		flags.Verbose = config.BoolPtr(verboseFlag)
	}
	if cmd.Flags().Changed("no-color") || noColorFlag {
		flags.NoColor = config.BoolPtr(noColorFlag)
	}

	cfg := fileConfig.Merge(flags)
	if concurrencyFlag < 0 {
		// Merge ignores non-positive values; let Validate reject it
		cfg.Concurrency = concurrencyFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseMillis(flag, value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w (use format like 30s, 1m, 500ms)", flag, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", flag, value)
	}
	return int(d.Milliseconds()), nil
}

func parseHeaders(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Name: value\"", v)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newFuturePool(cfg *config.Config) *http.FuturePool {
	opts := []http.ClientOption{
		http.WithTimeout(cfg.HTTPTimeoutDuration()),
		http.WithFollowRedirects(cfg.GetFollowRedirects()),
		http.WithValidateSSL(cfg.GetValidateSSL()),
		http.WithDefaultHeaders(cfg.Headers),
		http.WithBaseURL(cfg.BaseURL),
	}
	if cfg.Proxy != "" {
		opts = append(opts, http.WithProxy(cfg.Proxy))
	}

	return http.NewFuturePool(
		http.NewClient(opts...),
		http.WithFlushConcurrency(cfg.HTTPConcurrency),
		http.WithRateLimit(cfg.HTTPRate, max(1, int(cfg.HTTPRate))),
	)
}

// newNotifier returns nil when no notification service is selected.
func newNotifier() (*notify.Manager, error) {
	if notifyFlag == "" {
		return nil, nil
	}
	on, err := notify.ParseNotifyOn(notifyOnFlag)
	if err != nil {
		return nil, err
	}

	var notifiers []notify.Notifier
	for _, service := range splitList(notifyFlag) {
		switch strings.ToLower(service) {
		case "slack":
			if slackWebhookFlag == "" {
				return nil, fmt.Errorf("--slack-webhook is required when using --notify slack")
			}
			var opts []notify.SlackOption
			if slackChannelFlag != "" {
				opts = append(opts, notify.WithSlackChannel(slackChannelFlag))
			}
			notifiers = append(notifiers, notify.NewSlackNotifier(slackWebhookFlag, opts...))
		case "teams":
			if teamsWebhookFlag == "" {
				return nil, fmt.Errorf("--teams-webhook is required when using --notify teams")
			}
			notifiers = append(notifiers, notify.NewTeamsNotifier(teamsWebhookFlag))
		default:
			return nil, fmt.Errorf("unknown notification service %q", service)
		}
	}
	return notify.NewManager(on, notifiers...), nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	notifier, err := newNotifier()
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	g, err := loadGraph()
	if err != nil {
		return err
	}

	if dryRunFlag {
		printGraph(cmd.OutOrStdout(), g)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("flushing traces failed", "error", err)
		}
	}()

	var store *history.Store
	if cfg.HistoryDB != "" {
		store, err = history.Open(ctx, cfg.HistoryDB)
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		defer store.Close()

		if notifier != nil {
			if last, err := store.Runs(ctx, 1); err == nil && len(last) == 1 {
				notifier.SetPreviousClean(last[0].Clean)
			}
		}
	}

	reporter, closeReports, err := output.New(cfg.Reporters, output.Options{
		OutputDir: cfg.OutputDir,
		Stdout:    cmd.OutOrStdout(),
		Verbose:   cfg.GetVerbose(),
		NoColor:   cfg.GetNoColor(),
	})
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	console := output.NewConsoleReporter(output.WithWriter(cmd.ErrOrStderr()), output.WithNoColor(cfg.GetNoColor()))
	if slices.Contains(cfg.Reporters, "console") {
		output.NewConsoleReporter(output.WithWriter(cmd.OutOrStdout()), output.WithNoColor(cfg.GetNoColor())).FormatHeader(version)
	}

	r := runner.NewRunner(&runner.Config{
		Concurrency: cfg.Concurrency,
		TestTimeout: cfg.TestTimeoutDuration(),
	},
		runner.WithReporter(reporter),
		runner.WithFuturePool(newFuturePool(cfg)),
		runner.WithLogger(logger),
		runner.WithTracer(provider.Tracer()),
	)

	result, runErr := r.Run(ctx, g)

	if err := closeReports(); err != nil {
		console.FormatError(fmt.Errorf("error writing output: %w", err))
	}
	if store != nil && result != nil {
		// The run context may be cancelled already; the record still goes in
		if err := store.Record(context.WithoutCancel(ctx), result); err != nil {
			logger.Error("recording run history failed", "error", err)
		}
	}
	if notifier != nil && result != nil && runErr == nil {
		if err := notifier.Notify(context.WithoutCancel(ctx), notify.Summarize(result)); err != nil {
			logger.Error("sending notifications failed", "error", err)
		}
	}

	switch {
	case runErr != nil:
		if errors.Is(runErr, context.Canceled) {
			return withExitCode(ExitRunError, errors.New("run interrupted"))
		}
		return withExitCode(ExitRunError, runErr)
	case !result.Clean():
		return withExitCode(ExitTestFailure, nil)
	}
	return nil
}

// newLogger builds the text logger written to w at the named level.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// ParseLogLevel maps a level name to a slog level. An empty name means warn.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
