package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/mkhale/researchctl/internal/agent"
	"github.com/mkhale/researchctl/internal/config"
	"github.com/mkhale/researchctl/internal/doctor"
	"github.com/mkhale/researchctl/internal/gate"
	"github.com/mkhale/researchctl/internal/llmclient"
	"github.com/mkhale/researchctl/internal/orchestrator"
	"github.com/mkhale/researchctl/internal/report"
	"github.com/mkhale/researchctl/internal/store"
	"github.com/mkhale/researchctl/internal/telemetry"
	"github.com/mkhale/researchctl/internal/ux"
)

func main() {
	app := &cli.Command{
		Name:        "researchctl",
		Usage:       "Autonomous research-paper pipeline orchestrator",
		Description: "Runs a project's phase table end to end, gating between phases on deterministic artifact checks.",
		Commands: []*cli.Command{
			runCmd(),
			statusCmd(),
			gateCmd(),
			doctorCmd(),
			agentCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", ux.Red, ux.Reset, err)
		os.Exit(1)
	}
}

func loadConfig(projectFolder string) (*config.PipelineConfig, error) {
	configPath := filepath.Join(projectFolder, ".researchctl", "config.yaml")
	return config.Load(configPath, projectFolder)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// newLLMClient returns nil when no API key is configured, so deterministic
// commands (gate, a clean status) never need one, and LLM-backed strategies
// fail with a clear error instead of a nil pointer panic.
func newLLMClient() *llmclient.Client {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil
	}
	return llmclient.New(llmclient.Config{
		APIKey:        apiKey,
		SmallModel:    envOr("RESEARCHCTL_SMALL_MODEL", "claude-3-5-haiku-latest"),
		BalancedModel: envOr("RESEARCHCTL_BALANCED_MODEL", "claude-sonnet-4-5"),
		LargeModel:    envOr("RESEARCHCTL_LARGE_MODEL", "claude-opus-4-1"),
	})
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run the pipeline against a project folder",
		ArgsUsage: "<project_folder>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Print the phase plan without executing"},
			&cli.BoolFlag{Name: "skip-purge", Usage: "Skip the pre-flight purge of temp/ and outputs/"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			projectFolder := cmd.Args().First()
			if projectFolder == "" {
				return fmt.Errorf("project_folder argument is required")
			}

			cfg, err := loadConfig(projectFolder)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			logDir := filepath.Join(projectFolder, "logs")
			if err := os.MkdirAll(logDir, 0755); err != nil {
				return fmt.Errorf("creating log directory: %w", err)
			}
			logPath := filepath.Join(logDir, fmt.Sprintf("AUTONOMOUS_RUN_%s.log", time.Now().UTC().Format("20060102T150405Z")))
			logger, closeLogger, err := telemetry.NewLogger(logPath)
			if err != nil {
				return fmt.Errorf("setting up logger: %w", err)
			}
			defer closeLogger()

			shutdownTracing, err := telemetry.InitTracing(ctx)
			if err != nil {
				return fmt.Errorf("setting up tracing: %w", err)
			}
			defer shutdownTracing(context.Background())

			o := orchestrator.New(cfg, store.New(projectFolder), logger)
			terminal, _, err := o.Run(ctx, orchestrator.Options{
				DryRun:    cmd.Bool("dry-run"),
				SkipPurge: cmd.Bool("skip-purge"),
			})
			if err != nil {
				return err
			}
			if terminal == orchestrator.TerminalFailed {
				os.Exit(1)
			}
			return nil
		},
	}
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the most recent run's results for a project folder",
		ArgsUsage: "<project_folder>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			projectFolder := cmd.Args().First()
			if projectFolder == "" {
				return fmt.Errorf("project_folder argument is required")
			}
			sum, err := report.Load(store.New(projectFolder))
			if err != nil {
				return err
			}
			report.Render(sum)
			return nil
		},
	}
}

func gateCmd() *cli.Command {
	return &cli.Command{
		Name:      "gate",
		Usage:     "Run one gate standalone against a project folder",
		ArgsUsage: "<name> <project_folder>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().Get(0)
			projectFolder := cmd.Args().Get(1)
			if name == "" || projectFolder == "" {
				return fmt.Errorf("usage: researchctl gate <name> <project_folder>")
			}

			evaluator, ok := gate.Registry[name]
			if !ok {
				return fmt.Errorf("unknown gate %q (known: %v)", name, config.GateNames)
			}

			gateCfg := config.DefaultGateConfig(config.GateModeWarn)[name]
			if cfg, err := loadConfig(projectFolder); err == nil {
				if g, ok := cfg.Gates[name]; ok {
					gateCfg = g
				}
			}

			result, err := evaluator(projectFolder, gateCfg)
			if err != nil {
				return err
			}
			ux.GateResult(result)
			if result.Action == store.ActionBlock {
				os.Exit(1)
			}
			return nil
		},
	}
}

func doctorCmd() *cli.Command {
	return &cli.Command{
		Name:      "doctor",
		Usage:     "Diagnose the last failed or degraded run using an LLM",
		ArgsUsage: "<project_folder>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			projectFolder := cmd.Args().First()
			if projectFolder == "" {
				return fmt.Errorf("project_folder argument is required")
			}
			return doctor.Run(ctx, store.New(projectFolder), newLLMClient())
		},
	}
}

// agentCmd is the entry point a phase script invokes in-process to run one
// registered agent: the Agent Runtime lives in this binary, and a phase's
// child process is itself a "researchctl agent run <id> <project_folder>"
// invocation, keeping the Phase Executor's subprocess isolation while the
// agent harness stays ordinary Go code rather than a second runtime.
func agentCmd() *cli.Command {
	return &cli.Command{
		Name:   "agent",
		Usage:  "Run a single registered agent (invoked by phase scripts)",
		Hidden: true,
		Commands: []*cli.Command{
			{
				Name:      "run",
				ArgsUsage: "<agent_id> <project_folder>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "section", Usage: "section_name artifact for section_writer"},
					&cli.DurationFlag{Name: "budget", Usage: "wall-clock budget for this invocation"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					agentID := cmd.Args().Get(0)
					projectFolder := cmd.Args().Get(1)
					if agentID == "" || projectFolder == "" {
						return fmt.Errorf("usage: researchctl agent run <agent_id> <project_folder>")
					}

					input := agent.Input{
						ProjectFolder: projectFolder,
						Artifacts:     map[string]any{},
						LLM:           newLLMClient(),
					}
					if section := cmd.String("section"); section != "" {
						input.Artifacts["section_name"] = section
					}

					budget := cmd.Duration("budget")
					result, err := agent.Invoke(ctx, store.New(projectFolder), agentID, input, budget)
					if err != nil {
						return err
					}

					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					if err := enc.Encode(result); err != nil {
						return err
					}
					if !result.Success {
						return fmt.Errorf("agent %s reported failure: %s", agentID, result.Error)
					}
					return nil
				},
			},
		},
	}
}
