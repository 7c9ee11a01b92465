package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/config"
	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/persistence"
	"github.com/spec-kit/dispatch-service/internal/repository"
	"github.com/spec-kit/dispatch-service/internal/roster"
	"github.com/spec-kit/dispatch-service/internal/service"
)

func newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage the service agent roster in Postgres",
	}
	cmd.AddCommand(newAgentsAddCmd(), newAgentsImportCmd(), newAgentsDeactivateCmd(), newAgentsListCmd())
	return cmd
}

func newAgentsAddCmd() *cobra.Command {
	var (
		name         string
		capabilities []string
		inactive     bool
	)
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Register an agent",
		Example: `  dispatchd agents add --name "Dana Reyes" --capability cat-electric:4 --capability cat-plumbing:2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := service.RegisterAgentInput{FullName: name, Inactive: inactive}
			for _, raw := range capabilities {
				capability, err := parseCapability(raw)
				if err != nil {
					return err
				}
				input.Capabilities = append(input.Capabilities, capability)
			}
			return withAgentService(func(ctx context.Context, agents *service.AgentService) error {
				agent, err := agents.RegisterAgent(ctx, input)
				if err != nil {
					return err
				}
				printAgent(cmd, agent)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "agent full name")
	cmd.Flags().StringArrayVar(&capabilities, "capability", nil, "CATEGORY:MAX_COMPLEXITY, repeatable")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "register the agent as inactive")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAgentsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import ROSTER.yaml",
		Short: "Register roster entries whose names are not taken yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := roster.Load(args[0])
			if err != nil {
				return err
			}
			return withAgentService(func(ctx context.Context, agents *service.AgentService) error {
				report, err := agents.ImportRoster(ctx, rosterInputs(entries))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d, skipped %d\n", report.Created, report.Skipped)
				return nil
			})
		},
	}
}

func newAgentsDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate AGENT_ID",
		Short: "Take an agent out of matching and assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAgentService(func(ctx context.Context, agents *service.AgentService) error {
				agent, err := agents.Deactivate(ctx, args[0])
				if err != nil {
					return err
				}
				printAgent(cmd, agent)
				return nil
			})
		},
	}
}

func newAgentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every agent with its capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAgentService(func(ctx context.Context, agents *service.AgentService) error {
				all, err := agents.ListAgents(ctx)
				if err != nil {
					return err
				}
				for _, agent := range all {
					printAgent(cmd, agent)
				}
				return nil
			})
		},
	}
}

// withAgentService runs fn against the Postgres roster; in-memory agents would
// not outlive the command.
func withAgentService(fn func(context.Context, *service.AgentService) error) error {
	cfg, logger, err := loadBase()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	if pg.PoolHandle() == nil {
		return errors.New("POSTGRES_DSN is required to manage agents")
	}
	agents := service.NewAgentService(repository.NewServiceAgentRepository(pg.PoolHandle()), logger.Named("agents"))
	return fn(ctx, agents)
}

// parseCapability reads CATEGORY:MAX_COMPLEXITY. Range checks are left to the agent.
func parseCapability(raw string) (service.CapabilityInput, error) {
	idx := strings.LastIndex(raw, ":")
	if idx <= 0 || idx == len(raw)-1 {
		return service.CapabilityInput{}, fmt.Errorf("capability %q: want CATEGORY:MAX_COMPLEXITY", raw)
	}
	level, err := strconv.Atoi(strings.TrimSpace(raw[idx+1:]))
	if err != nil {
		return service.CapabilityInput{}, fmt.Errorf("capability %q: complexity is not a number", raw)
	}
	return service.CapabilityInput{CategoryID: strings.TrimSpace(raw[:idx]), MaxComplexity: level}, nil
}

func rosterInputs(entries []roster.Agent) []service.RegisterAgentInput {
	out := make([]service.RegisterAgentInput, 0, len(entries))
	for _, entry := range entries {
		input := service.RegisterAgentInput{FullName: entry.Name, Inactive: !entry.IsActive()}
		for _, capability := range entry.Capabilities {
			input.Capabilities = append(input.Capabilities, service.CapabilityInput{
				CategoryID:    capability.Category,
				MaxComplexity: capability.MaxComplexity,
			})
		}
		out = append(out, input)
	}
	return out
}

// seedRoster applies the configured roster at startup.
func seedRoster(ctx context.Context, cfg config.RulesConfig, agents *service.AgentService, logger *zap.Logger) error {
	entries, err := roster.Load(cfg.RosterPath)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	report, err := agents.ImportRoster(ctx, rosterInputs(entries))
	if err != nil {
		return fmt.Errorf("import roster %s: %w", cfg.RosterPath, err)
	}
	logger.Info("agent roster applied",
		zap.String("path", cfg.RosterPath),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped))
	return nil
}

func printAgent(cmd *cobra.Command, agent *domain.ServiceAgent) {
	state := "active"
	if !agent.IsActive() {
		state = "inactive"
	}
	parts := make([]string, 0, len(agent.Capabilities()))
	for _, c := range agent.Capabilities() {
		parts = append(parts, fmt.Sprintf("%s:%d", c.CategoryID, c.MaxComplexity))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", agent.ID(), agent.FullName(), state, strings.Join(parts, ","))
}
