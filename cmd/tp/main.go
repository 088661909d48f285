package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"taskpilot/internal/config"
	"taskpilot/internal/db"
	"taskpilot/internal/domain"
	"taskpilot/internal/inbox"
	"taskpilot/internal/ledger"
	"taskpilot/internal/llm"
	"taskpilot/internal/migrate"
	"taskpilot/internal/pipeline"
	"taskpilot/internal/planner"
	"taskpilot/internal/repo"
	"taskpilot/internal/schedule"
	"taskpilot/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "tp",
	Short: "Taskpilot CLI",
	Long: `Taskpilot tracks projects and tasks and keeps plans current with model-driven analysis.
- Workspace: your .taskpilot directory holding the database; taskpilot.yml sits next to it.
- Feedback: free-text observations about a project or task; processing turns them into adjustment suggestions.
- Plan: a versioned AI-generated roadmap per project; regeneration appends, never overwrites.
- Daily plan: up to three ranked tasks per user per day, scored deterministically.
- Inbox: quick capture that gets triaged into projects and tasks.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TASKPILOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("user", "local-user", "user identifier")
	rootCmd.PersistentFlags().Bool("verbose", false, "debug logging")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(feedbackCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(dailyCmd())
	rootCmd.AddCommand(inboxCmd())
	rootCmd.AddCommand(serveCmd())
}

// app bundles the wired components for one command invocation.
type app struct {
	DB       *sql.DB
	Repo     repo.Repo
	Config   *config.Config
	Log      *zap.Logger
	Pipeline *pipeline.Pipeline
	Planner  *planner.Planner
	Inbox    *inbox.Classifier
	Schedule *schedule.Engine
}

func withApp(ctx context.Context, fn func(context.Context, *app) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	client, err := llm.New(ctx, cfg)
	if err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	lw := ledger.Writer{DB: conn}
	pl := &planner.Planner{Repo: r, Client: client, Ledger: lw, Config: cfg, Log: log}
	a := &app{
		DB:       conn,
		Repo:     r,
		Config:   cfg,
		Log:      log,
		Pipeline: &pipeline.Pipeline{DB: conn, Repo: r, Client: client, Ledger: lw, Config: cfg, Log: log},
		Planner:  pl,
		Inbox:    &inbox.Classifier{Repo: r, Client: client, Ledger: lw, Config: cfg, Planner: pl, Log: log},
		Schedule: &schedule.Engine{DB: conn, Repo: r, Log: log},
	}
	return fn(ctx, a)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func newLogger() (*zap.Logger, error) {
	if viper.GetBool("verbose") {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage configuration"}
	cfg.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default taskpilot.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			c, err := config.Load(workspace)
			if err != nil {
				return err
			}
			c.LLM.APIKey = "***"
			return printJSON(c)
		},
	})
	return cfg
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectShowCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListProjects(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Created"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Status, p.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func projectCreateCmd() *cobra.Command {
	var name, desc string
	var plan bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				ts := time.Now().UTC().Format(time.RFC3339)
				p := domain.Project{
					ID:          newID(),
					Name:        name,
					Description: desc,
					Status:      domain.ProjectStatusActive,
					CreatedAt:   ts,
					UpdatedAt:   ts,
				}
				if err := a.Repo.InsertProject(ctx, p); err != nil {
					return err
				}
				if plan {
					if _, err := a.Planner.Generate(ctx, p.ID, false); err != nil {
						fmt.Println("warning: plan generation failed:", err)
					}
				}
				return printJSON(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&desc, "description", "", "project description")
	cmd.Flags().BoolVar(&plan, "plan", false, "generate a plan after creation")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				p, err := r.GetProject(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}
	task.AddCommand(taskAddCmd())
	task.AddCommand(taskListCmd())
	return task
}

func taskAddCmd() *cobra.Command {
	var projectID, title, desc, priority, due, assignee string
	var scale int
	var hours float64
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" || title == "" {
				return fmt.Errorf("--project and --title required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if _, err := r.GetProject(ctx, projectID); err != nil {
					return err
				}
				p := priority
				if p == "" {
					p = domain.PriorityFromScale(scale)
				}
				if !domain.ValidPriority(p) {
					return fmt.Errorf("invalid priority %q", p)
				}
				ts := time.Now().UTC().Format(time.RFC3339)
				t := domain.Task{
					ID:        newID(),
					ProjectID: projectID,
					Title:     title,
					Status:    domain.TaskStatusTodo,
					Priority:  p,
					CreatedAt: ts,
					UpdatedAt: ts,
				}
				if desc != "" {
					t.Description = desc
				}
				if due != "" {
					t.DueDate = &due
				}
				if hours > 0 {
					t.EstimatedHours = &hours
				}
				if assignee == "" {
					assignee = viper.GetString("user")
				}
				t.AssigneeID = &assignee
				if err := r.InsertTask(ctx, t); err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&desc, "description", "", "task description")
	cmd.Flags().StringVar(&priority, "priority", "", "urgent|high|medium|low")
	cmd.Flags().IntVar(&scale, "priority-scale", 5, "0-10 numeric priority, used when --priority is unset")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee id, defaults to --user")
	cmd.Flags().Float64Var(&hours, "hours", 0, "estimated hours")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				tasks, err := r.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Due", "Assignee"})
				for _, t := range tasks {
					due := ""
					if t.DueDate != nil {
						due = *t.DueDate
					}
					assignee := ""
					if t.AssigneeID != nil {
						assignee = *t.AssigneeID
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Priority, due, assignee})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.AssigneeID, "assignee", "", "assignee filter")
	return cmd
}

func feedbackCmd() *cobra.Command {
	fb := &cobra.Command{Use: "feedback", Short: "Submit and inspect feedback"}
	fb.AddCommand(feedbackSubmitCmd())
	fb.AddCommand(feedbackShowCmd())
	fb.AddCommand(feedbackListCmd())
	return fb
}

func feedbackSubmitCmd() *cobra.Command {
	var projectID, taskID, text string
	var wait bool
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit feedback",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" || text == "" {
				return fmt.Errorf("--project and --text required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				var tid *string
				if taskID != "" {
					tid = &taskID
				}
				fb, err := a.Pipeline.Submit(ctx, projectID, tid, viper.GetString("user"), text)
				if err != nil {
					return err
				}
				if !wait {
					return printJSON(map[string]string{"feedback_id": fb.ID, "status": fb.Status})
				}
				if err := a.Pipeline.Process(ctx, fb.ID); err != nil {
					fmt.Println("processing failed:", err)
				}
				return showFeedback(ctx, a.Repo, fb.ID)
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&taskID, "task", "", "task id (optional)")
	cmd.Flags().StringVar(&text, "text", "", "feedback text")
	cmd.Flags().BoolVar(&wait, "wait", true, "process inline and print the result")
	return cmd
}

func feedbackShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <feedback-id>",
		Short: "Show feedback with adjustments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return showFeedback(ctx, r, args[0])
			})
		},
	}
}

func showFeedback(ctx context.Context, r repo.Repo, id string) error {
	fb, err := r.GetFeedback(ctx, id)
	if err != nil {
		return err
	}
	out := map[string]any{"feedback": fb}
	if fb.Status == domain.FeedbackStatusCompleted {
		adjustments, err := r.ListAdjustments(ctx, fb.ID)
		if err != nil {
			return err
		}
		out["adjustments"] = adjustments
	}
	return printJSON(out)
}

func feedbackListCmd() *cobra.Command {
	var f repo.FeedbackFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List feedback",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListFeedback(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Project", "Status", "Text", "Created"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.ProjectID, it.Status, clip(it.FeedbackText, 48), it.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max rows")
	return cmd
}

func planCmd() *cobra.Command {
	plan := &cobra.Command{Use: "plan", Short: "Generate and inspect project plans"}

	var force bool
	gen := &cobra.Command{
		Use:   "generate <project-id>",
		Short: "Generate a plan (cached unless --force)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				pv, err := a.Planner.Generate(ctx, args[0], force)
				if err != nil {
					return err
				}
				return printPlan(pv)
			})
		},
	}
	gen.Flags().BoolVar(&force, "force", false, "regenerate even when a plan exists")
	plan.AddCommand(gen)

	plan.AddCommand(&cobra.Command{
		Use:   "show <project-id>",
		Short: "Show the latest plan version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				pv, err := r.LatestPlanVersion(ctx, args[0])
				if err != nil {
					return err
				}
				return printPlan(pv)
			})
		},
	})

	plan.AddCommand(&cobra.Command{
		Use:   "versions <project-id>",
		Short: "List plan versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListPlanVersions(ctx, args[0])
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Version", "ID", "Created"})
				for _, pv := range items {
					tw.AppendRow(table.Row{pv.VersionNumber, pv.ID, pv.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	})
	return plan
}

func printPlan(pv domain.PlanVersion) error {
	var content map[string]any
	if err := json.Unmarshal([]byte(pv.ContentJSON), &content); err != nil {
		content = map[string]any{"raw": pv.ContentJSON}
	}
	return printJSON(map[string]any{
		"id":             pv.ID,
		"project_id":     pv.ProjectID,
		"version_number": pv.VersionNumber,
		"content":        content,
		"created_at":     pv.CreatedAt,
	})
}

func dailyCmd() *cobra.Command {
	daily := &cobra.Command{Use: "daily", Short: "Daily top-3 plan"}
	var date string

	show := &cobra.Command{
		Use:   "plan",
		Short: "Show (and generate) today's plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				day, err := parseDay(date)
				if err != nil {
					return err
				}
				items, err := a.Schedule.TodayPlan(ctx, viper.GetString("user"), day)
				if err != nil {
					return err
				}
				return printDaily(items)
			})
		},
	}
	show.Flags().StringVar(&date, "date", "", "YYYY-MM-DD, defaults to today")
	daily.AddCommand(show)

	regen := &cobra.Command{
		Use:   "regenerate",
		Short: "Rescore today's plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				day, err := parseDay(date)
				if err != nil {
					return err
				}
				items, err := a.Schedule.Regenerate(ctx, viper.GetString("user"), day)
				if err != nil {
					return err
				}
				return printDaily(items)
			})
		},
	}
	regen.Flags().StringVar(&date, "date", "", "YYYY-MM-DD, defaults to today")
	daily.AddCommand(regen)

	var hours float64
	complete := &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Mark a planned task complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				day, err := parseDay(date)
				if err != nil {
					return err
				}
				var hw *float64
				if hours > 0 {
					hw = &hours
				}
				slot, err := a.Schedule.MarkComplete(ctx, viper.GetString("user"), args[0], day, hw)
				if err != nil {
					return err
				}
				return printJSON(slot)
			})
		},
	}
	complete.Flags().StringVar(&date, "date", "", "YYYY-MM-DD, defaults to today")
	complete.Flags().Float64Var(&hours, "hours", 0, "hours worked")
	daily.AddCommand(complete)

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Aggregate of the day's plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				day, err := parseDay(date)
				if err != nil {
					return err
				}
				out, err := a.Schedule.Summary(ctx, viper.GetString("user"), day)
				if err != nil {
					return err
				}
				return printJSON(out)
			})
		},
	}
	summary.Flags().StringVar(&date, "date", "", "YYYY-MM-DD, defaults to today")
	daily.AddCommand(summary)

	return daily
}

func printDaily(items []domain.DailySummary) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	if len(items) == 0 {
		fmt.Println("no eligible tasks today")
		return nil
	}
	for _, s := range items {
		fmt.Println(s.SummaryText)
	}
	return nil
}

func inboxCmd() *cobra.Command {
	ib := &cobra.Command{Use: "inbox", Short: "Capture and triage notes"}

	add := &cobra.Command{
		Use:   "add <text>",
		Short: "Capture a note and triage it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				item, err := a.Inbox.Capture(ctx, viper.GetString("user"), strings.Join(args, " "))
				if err != nil {
					return err
				}
				result, err := a.Inbox.Process(ctx, item.ID)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"item_id": item.ID, "result": result})
			})
		},
	}
	ib.AddCommand(add)

	ib.AddCommand(&cobra.Command{
		Use:   "show <item-id>",
		Short: "Show inbox item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				item, err := r.GetInboxItem(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(item)
			})
		},
	})
	return ib
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				pool := pipeline.NewPool(a.Config.Workers.Count, a.Config.Workers.QueueSize, a.Log)
				pool.Start(ctx)
				defer pool.Shutdown()
				a.Inbox.Defer = func(job func(context.Context) error) {
					if !pool.Enqueue(job) {
						a.Log.Warn("worker queue full, dropping deferred job")
					}
				}
				handler, err := server.New(server.Deps{
					Repo:     a.Repo,
					Pipeline: a.Pipeline,
					Planner:  a.Planner,
					Inbox:    a.Inbox,
					Schedule: a.Schedule,
					Pool:     pool,
					Log:      a.Log,
					BasePath: basePath,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Taskpilot API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

func newID() string { return uuid.New().String() }

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseDay(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(schedule.DateFormat, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
