package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"ecomission/internal/bootstrap"
	"ecomission/internal/config"
	"ecomission/internal/database"
	"ecomission/internal/middleware"
	"ecomission/internal/models"
	"ecomission/internal/scheduler"
	"ecomission/internal/utils/appinfo"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:           "ecomissionctl",
	Short:         "EcoMission operations CLI",
	Long:          "Runs migrations and lifecycle jobs, inspects missions and issues development tokens against the configured database.",
	Version:       appinfo.Version(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(jobsCmd())
	rootCmd.AddCommand(missionsCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := bootstrap.NewLogger(cfg.Logging, cfg.Server.Environment)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func withApp(ctx context.Context, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	app, err := bootstrap.Open(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = app.Close(closeCtx)
	}()

	return fn(ctx, app)
}

func migrateCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.NewManager(&cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if path == "" {
				path = cfg.Database.MigrationsPath
			}
			if err := db.Migrate(path); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "migrations directory (default from DB_MIGRATIONS_PATH)")
	return cmd
}

func jobsCmd() *cobra.Command {
	jobs := &cobra.Command{Use: "jobs", Short: "Run lifecycle jobs"}
	jobs.AddCommand(&cobra.Command{
		Use:       "run <materialize|close|open>",
		Short:     "Run a lifecycle job once, honoring the replica run lock",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{scheduler.JobMaterialize, scheduler.JobClose, scheduler.JobOpen},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				runner, err := scheduler.NewRunner(app.Lifecycle, app.Services.Cache, app.Config.Scheduler, app.Logger.Named("scheduler"))
				if err != nil {
					return err
				}

				report, ran, err := runner.RunNow(ctx, args[0])
				if err != nil {
					return err
				}
				if !ran {
					fmt.Printf("%s skipped: another instance holds the run lock\n", args[0])
					return nil
				}
				if jsonOutput {
					return printJSON(report)
				}
				printReport(report)
				return nil
			})
		},
	})
	return jobs
}

func printReport(report *scheduler.JobReport) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Job", "Day", "Processed", "Succeeded", "Skipped", "Failed", "Halted", "Duration"})
	tw.AppendRow(table.Row{
		report.Job,
		report.Day.Format("2006-01-02"),
		report.Processed,
		report.Succeeded,
		report.Skipped,
		report.Failed,
		report.Halted,
		report.Duration.Round(time.Millisecond),
	})
	tw.Render()
}

func missionsCmd() *cobra.Command {
	missions := &cobra.Command{Use: "missions", Short: "Inspect missions"}

	var status, kind string
	list := &cobra.Command{
		Use:   "list",
		Short: "List missions by status and kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := models.MissionStatus(strings.ToUpper(status))
			if st != models.MissionStatusOpen && st != models.MissionStatusClosed {
				return fmt.Errorf("invalid --status %q", status)
			}
			kinds := []models.MissionKind{models.MissionKindScheduled, models.MissionKindEvent}
			if kind != "" {
				k := models.MissionKind(strings.ToUpper(kind))
				if k != models.MissionKindScheduled && k != models.MissionKindEvent {
					return fmt.Errorf("invalid --kind %q", kind)
				}
				kinds = []models.MissionKind{k}
			}

			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				var all []*models.Mission
				for _, k := range kinds {
					found, err := app.Services.Repositories.Missions.ListByStatusAndKind(ctx, st, k)
					if err != nil {
						return err
					}
					all = append(all, found...)
				}

				if jsonOutput {
					return printJSON(all)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Kind", "Category", "Points", "Start", "Deadline", "Status", "Submissions"})
				for _, m := range all {
					tw.AppendRow(table.Row{
						m.ID, m.Title, m.Kind, m.Category, m.PointValue,
						m.StartDate.Format("2006-01-02"), m.Deadline.Format("2006-01-02"),
						m.Status, m.ParticipationCount,
					})
				}
				tw.AppendFooter(table.Row{"", "", "", "", "", "", "", "Total", len(all)})
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&status, "status", string(models.MissionStatusOpen), "OPEN or CLOSED")
	list.Flags().StringVar(&kind, "kind", "", "SCHEDULED or EVENT (default both)")
	missions.AddCommand(list)
	return missions
}

func tokenCmd() *cobra.Command {
	var (
		userID int64
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("token issuing is disabled in production")
			}
			if userID <= 0 {
				return fmt.Errorf("--user must be a positive id")
			}

			actor := models.Actor{UserID: userID, Role: models.Role(strings.ToUpper(role))}
			if actor.Role != models.RoleStudent && actor.Role != models.RoleAdmin {
				return fmt.Errorf("invalid --role %q", role)
			}

			token, err := middleware.IssueToken(cfg.Auth, actor, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id placed in the subject claim")
	cmd.Flags().StringVar(&role, "role", string(models.RoleStudent), "STUDENT or ADMIN")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
