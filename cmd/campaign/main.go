// Command campaign runs the content campaign workflow: plan assets for a
// goal, retrieve grounding context, draft, grade, collect human review, and
// publish. Sessions checkpoint after every step and can be resumed at any
// time, from any of the supported store backends.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/deepnoodle-ai/campaign"
	"github.com/deepnoodle-ai/campaign/nodes"
	"github.com/deepnoodle-ai/campaign/postgres"
	"github.com/deepnoodle-ai/campaign/server"
	"github.com/deepnoodle-ai/campaign/services"
	"github.com/deepnoodle-ai/campaign/sqlite"
	"github.com/fatih/color"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = cmdRun(os.Args[2:])
	case "resume":
		err = cmdResume(os.Args[2:])
	case "inspect":
		err = cmdInspect(os.Args[2:])
	case "list":
		err = cmdList(os.Args[2:])
	case "serve":
		err = cmdServe(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		color.Red("Error: unknown command %q", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `campaign - checkpointed content campaign workflows

Usage: %s <command> [options]

Commands:
  run      Start a new session for a campaign goal
  resume   Continue a paused session, optionally with review decisions
  inspect  Print a session's current state without running anything
  list     List stored sessions
  serve    Expose the workflow over HTTP

Examples:
  # Run until the first review pause, keeping checkpoints on disk
  %s run -session launch-1 -goal "Launch a product update email" -store file -path ./sessions

  # Reject a draft with feedback and continue
  %s resume -session launch-1 -store file -path ./sessions \
      -revise Email -feedback "Mention the new dashboard."

  # Serve the HTTP API backed by SQLite
  %s serve -store sqlite -path campaign.db -listen :8080

Run '%s <command> -h' for command options.
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configFile string
	storeKind  string
	storePath  string
	storeDSN   string
	logsDir    string
	verbose    bool
	jsonOutput bool
}

func registerCommon(fs *flag.FlagSet, flags *commonFlags) {
	fs.StringVar(&flags.configFile, "config", "", "Path to a YAML config file (optional)")
	fs.StringVar(&flags.storeKind, "store", "", "Checkpoint store backend: memory, file, sqlite, postgres")
	fs.StringVar(&flags.storePath, "path", "", "Data directory (file store) or database file (sqlite store)")
	fs.StringVar(&flags.storeDSN, "dsn", "", "Connection string for the postgres store")
	fs.StringVar(&flags.logsDir, "logs", "", "Directory for per-session node logs (optional)")
	fs.BoolVar(&flags.verbose, "v", false, "Enable verbose logging")
	fs.BoolVar(&flags.jsonOutput, "json", false, "Print results as JSON")
}

func loadConfig(flags *commonFlags) (*campaign.Config, error) {
	config := campaign.DefaultConfig()
	if flags.configFile != "" {
		loaded, err := campaign.LoadConfig(flags.configFile)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	// Flags override the file.
	if flags.storeKind != "" {
		config.Store.Backend = flags.storeKind
	}
	if flags.storePath != "" {
		config.Store.Path = flags.storePath
	}
	if flags.storeDSN != "" {
		config.Store.DSN = flags.storeDSN
	}
	if flags.logsDir != "" {
		config.LogsDir = flags.logsDir
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func openStore(config *campaign.Config) (campaign.SessionStore, func(), error) {
	noop := func() {}
	switch config.Store.Backend {
	case "", "memory":
		return campaign.NewMemorySessionStore(), noop, nil
	case "file":
		path := config.Store.Path
		if path == "" {
			path = "./sessions"
		}
		store, err := campaign.NewFileSessionStore(path)
		return store, noop, err
	case "sqlite":
		store, err := sqlite.Open(config.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "postgres":
		store, err := postgres.Open(config.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", config.Store.Backend)
	}
}

// progressCallbacks prints node execution as it happens.
type progressCallbacks struct {
	campaign.BaseExecutionCallbacks
}

func (p *progressCallbacks) BeforeNode(ctx context.Context, event *campaign.NodeEvent) {
	color.White("  -> %s", event.Node)
}

func (p *progressCallbacks) AfterNode(ctx context.Context, event *campaign.NodeEvent) {
	if event.Error != nil {
		color.Red("  <- %s failed after %v: %v", event.Node, event.Duration.Round(time.Millisecond), event.Error)
		return
	}
	color.White("  <- %s (%v)", event.Node, event.Duration.Round(time.Millisecond))
}

func buildEngine(config *campaign.Config, store campaign.SessionStore, logger *slog.Logger, showProgress bool) (*campaign.Engine, error) {
	completion, err := services.NewOfflineCompletion(nil)
	if err != nil {
		return nil, err
	}
	deps := nodes.Dependencies{
		Completion: completion,
		Lookup:     services.NewNullLookup(),
		Publishing: services.NewMemoryPublisher(),
		Safety:     services.NewPassthroughSafety(),

		MaxFeedbackIterations: config.MaxFeedbackIterations,
	}
	graph, err := nodes.BuildGraph(nodes.GraphOptions{
		Deps:            deps,
		InterruptBefore: config.InterruptNodes(),
	})
	if err != nil {
		return nil, err
	}
	var nodeLogger campaign.NodeLogger
	if config.LogsDir != "" {
		nodeLogger = campaign.NewFileNodeLogger(config.LogsDir)
	}
	var callbacks campaign.ExecutionCallbacks
	if showProgress {
		callbacks = &progressCallbacks{}
	}
	return campaign.NewEngine(campaign.EngineOptions{
		Graph:      graph,
		Store:      store,
		Logger:     logger,
		Callbacks:  callbacks,
		NodeLogger: nodeLogger,
	})
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return campaign.NewLogger(level)
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var flags commonFlags
	registerCommon(fs, &flags)
	sessionID := fs.String("session", "", "Session identifier (required)")
	goal := fs.String("goal", "", "Campaign goal (required)")
	timeout := fs.Duration("timeout", 0, "Execution timeout (e.g. 30s, 5m)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sessionID == "" || *goal == "" {
		return fmt.Errorf("both -session and -goal are required")
	}

	config, err := loadConfig(&flags)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(config)
	if err != nil {
		return err
	}
	defer closeStore()
	engine, err := buildEngine(config, store, newLogger(flags.verbose), !flags.jsonOutput)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	color.Blue("Starting session %s", *sessionID)
	start := time.Now()
	result, err := engine.Start(ctx, *sessionID, *goal)
	return report(result, err, time.Since(start), flags.jsonOutput)
}

func cmdResume(args []string) error {
	fs := flag.NewFlagSet("resume", flag.ExitOnError)
	var flags commonFlags
	registerCommon(fs, &flags)
	sessionID := fs.String("session", "", "Session identifier (required)")
	timeout := fs.Duration("timeout", 0, "Execution timeout (e.g. 30s, 5m)")
	var approve, revise stringSlice
	fs.Var(&approve, "approve", "Asset to approve (can be used multiple times)")
	fs.Var(&revise, "revise", "Asset to send back for revision (can be used multiple times)")
	feedback := fs.String("feedback", "", "Reviewer feedback attached to every -revise asset")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sessionID == "" {
		return fmt.Errorf("-session is required")
	}

	config, err := loadConfig(&flags)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(config)
	if err != nil {
		return err
	}
	defer closeStore()
	engine, err := buildEngine(config, store, newLogger(flags.verbose), !flags.jsonOutput)
	if err != nil {
		return err
	}

	mutation := buildMutation(approve, revise, *feedback)

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	color.Blue("Resuming session %s", *sessionID)
	start := time.Now()
	result, err := engine.Resume(ctx, *sessionID, mutation)
	return report(result, err, time.Since(start), flags.jsonOutput)
}

func cmdInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	var flags commonFlags
	registerCommon(fs, &flags)
	sessionID := fs.String("session", "", "Session identifier (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sessionID == "" {
		return fmt.Errorf("-session is required")
	}

	config, err := loadConfig(&flags)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(config)
	if err != nil {
		return err
	}
	defer closeStore()
	engine, err := buildEngine(config, store, newLogger(flags.verbose), false)
	if err != nil {
		return err
	}

	result, err := engine.Inspect(context.Background(), *sessionID)
	return report(result, err, 0, flags.jsonOutput)
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	var flags commonFlags
	registerCommon(fs, &flags)
	if err := fs.Parse(args); err != nil {
		return err
	}

	config, err := loadConfig(&flags)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(config)
	if err != nil {
		return err
	}
	defer closeStore()

	lister, ok := store.(server.SessionLister)
	if !ok {
		return fmt.Errorf("the %q store cannot list sessions", config.Store.Backend)
	}
	summaries, err := lister.ListSessions(context.Background())
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		color.White("No sessions found")
		return nil
	}
	for _, summary := range summaries {
		fmt.Printf("%-24s %-10s %-20s %s\n",
			summary.SessionID, summary.Status, summary.NextNode, summary.Goal)
	}
	return nil
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var flags commonFlags
	registerCommon(fs, &flags)
	listen := fs.String("listen", "", "HTTP bind address (default :8080)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	config, err := loadConfig(&flags)
	if err != nil {
		return err
	}
	if *listen != "" {
		config.Listen = *listen
	}
	store, closeStore, err := openStore(config)
	if err != nil {
		return err
	}
	defer closeStore()
	logger := newLogger(flags.verbose)
	engine, err := buildEngine(config, store, logger, false)
	if err != nil {
		return err
	}

	lister, _ := store.(server.SessionLister)
	srv, err := server.New(server.Options{
		Engine:    engine,
		Logger:    logger,
		APIKeyEnv: config.APIKeyEnv,
		Lister:    lister,
	})
	if err != nil {
		return err
	}

	color.Green("Serving on %s (store: %s)", config.Listen, storeLabel(config))
	return srv.Run(config.Listen)
}

// storeLabel describes the configured store backend for log output.
func storeLabel(config *campaign.Config) string {
	switch config.Store.Backend {
	case "", "memory":
		return "memory"
	case "file":
		path := config.Store.Path
		if path == "" {
			path = "./sessions"
		}
		return fmt.Sprintf("file %s", path)
	case "sqlite":
		return fmt.Sprintf("sqlite %s", config.Store.Path)
	default:
		return config.Store.Backend
	}
}

func buildMutation(approve, revise stringSlice, feedback string) *campaign.Mutation {
	if len(approve) == 0 && len(revise) == 0 {
		return nil
	}
	mutation := &campaign.Mutation{
		DraftStatus: map[string]campaign.DraftStatus{},
	}
	for _, asset := range approve {
		mutation.DraftStatus[asset] = campaign.DraftApproved
	}
	for _, asset := range revise {
		mutation.DraftStatus[asset] = campaign.DraftNeedsRevision
		if feedback != "" {
			if mutation.UserFeedback == nil {
				mutation.UserFeedback = map[string]string{}
			}
			mutation.UserFeedback[asset] = feedback
		}
	}
	return mutation
}

func report(result *campaign.Result, err error, duration time.Duration, jsonOutput bool) error {
	if err != nil {
		// A node failure still carries the last committed state.
		if result != nil && len(result.State.Errors) > 0 {
			color.Yellow("Recorded errors:")
			for _, msg := range result.State.Errors {
				fmt.Printf("  %s\n", msg)
			}
		}
		return err
	}

	if jsonOutput {
		payload, marshalErr := json.MarshalIndent(result, "", "  ")
		if marshalErr != nil {
			return marshalErr
		}
		fmt.Println(string(payload))
		return nil
	}

	if duration > 0 {
		color.White("Finished in %v", duration)
	}
	switch result.Status {
	case campaign.StatusCompleted:
		color.Green("Session %s completed", result.SessionID)
	case campaign.StatusPaused:
		color.Yellow("Session %s paused before %s", result.SessionID, result.NextNode)
	default:
		color.White("Session %s is %s", result.SessionID, result.Status)
	}

	state := result.State
	if len(state.Plan) > 0 {
		color.Cyan("Plan: %s", strings.Join(state.Plan, ", "))
	}
	for _, asset := range state.Plan {
		draft, ok := state.Drafts[asset]
		if !ok {
			continue
		}
		status := state.DraftStatus[asset]
		fmt.Printf("\n")
		color.Magenta("--- %s [%s] ---", asset, status)
		fmt.Println(draft)
		if published, ok := state.PublishResults[asset]; ok {
			color.Green("Published: %s (%s)", published.URL, published.ID)
		}
	}
	if state.Critique != "" {
		fmt.Printf("\n")
		color.Cyan("Critique:")
		fmt.Println(state.Critique)
	}
	if len(state.Errors) > 0 {
		fmt.Printf("\n")
		color.Yellow("Recorded errors:")
		for _, msg := range state.Errors {
			fmt.Printf("  %s\n", msg)
		}
	}
	return nil
}

// stringSlice collects repeated flag values.
type stringSlice []string

func (s *stringSlice) String() string {
	return strings.Join(*s, ", ")
}

func (s *stringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}
