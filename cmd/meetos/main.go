package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redmonkez12/meetos/cmd/meetos/ui"
	"github.com/redmonkez12/meetos/internal/app"
	"github.com/redmonkez12/meetos/internal/config"
	"github.com/redmonkez12/meetos/internal/database"
	"github.com/redmonkez12/meetos/internal/group"
	"github.com/redmonkez12/meetos/internal/logging"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "meetos",
		Short:         "Maintenance commands for a Meet-OS installation",
		Long:          "Runs database migrations and the administrative tasks that have no web page.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}
	migrateCmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply pending migrations", RunE: runMigrate(database.Migrate, "migrations applied")},
		&cobra.Command{Use: "status", Short: "Show migration status", RunE: runMigrate(database.MigrationStatus, "")},
		&cobra.Command{Use: "down", Short: "Revert the latest migration", RunE: runMigrate(database.Rollback, "latest migration reverted")},
	)

	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect registered users",
	}
	usersListCmd := &cobra.Command{
		Use:   "list",
		Short: "List every user, verified or not",
		RunE:  runUsersList,
	}
	usersListCmd.Flags().Bool("unverified", false, "Only show users who have not verified their email")
	usersCmd.AddCommand(usersListCmd)

	groupsCmd := &cobra.Command{
		Use:   "groups",
		Short: "Manage groups",
	}
	groupsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every group",
		RunE:  runGroupsList,
	})

	// Flags for non-interactive mode (CI/scripting)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a group owned by a verified user",
		RunE:  runGroupsCreate,
	}
	createCmd.Flags().Int64("owner", 0, "uid of the owner")
	createCmd.Flags().String("name", "", "Group name")
	createCmd.Flags().String("location", "", "Group location")
	createCmd.Flags().String("description", "", "Group description (markdown)")
	createCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")
	groupsCmd.AddCommand(createCmd)

	adminsCmd := &cobra.Command{
		Use:   "admins",
		Short: "Show the configured administrator addresses",
		RunE:  runAdmins,
	}

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Print the audit log",
		RunE:  runAudit,
	}

	rootCmd.AddCommand(migrateCmd, usersCmd, groupsCmd, adminsCmd, auditCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	return cfg, logging.NewLoggerWithWriter(os.Stderr, verbose), nil
}

// openApp builds the application without serving it. The caller closes it.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, logger)
}

func runMigrate(step func(db *sql.DB) error, done string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		db, err := app.OpenDB(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := step(db.DB); err != nil {
			return err
		}
		if done != "" {
			ui.PrintSuccess(done)
		}
		return nil
	}
}

func runUsersList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	users, err := a.Users.List(cmd.Context())
	if err != nil {
		return err
	}

	if only, _ := cmd.Flags().GetBool("unverified"); only {
		pending := users[:0]
		for _, u := range users {
			if !u.Verified {
				pending = append(pending, u)
			}
		}
		users = pending
	}

	ui.PrintUsers(users)
	return nil
}

func runGroupsList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	groups, err := a.Groups.List(cmd.Context())
	if err != nil {
		return err
	}
	ui.PrintGroups(groups)
	return nil
}

func runGroupsCreate(cmd *cobra.Command, _ []string) error {
	owner, _ := cmd.Flags().GetInt64("owner")
	name, _ := cmd.Flags().GetString("name")
	location, _ := cmd.Flags().GetString("location")
	description, _ := cmd.Flags().GetString("description")
	yes, _ := cmd.Flags().GetBool("yes")

	f := &ui.GroupForm{
		Owner: owner,
		Input: group.Input{Name: name, Location: location, Description: description},
	}

	// Interactive mode when the required flags are missing
	if owner <= 0 || strings.TrimSpace(name) == "" {
		if err := f.Run(); err != nil {
			return fmt.Errorf("form cancelled: %w", err)
		}
	}

	if !yes {
		ok, err := ui.Confirm(fmt.Sprintf("Create group %q owned by user %d?", f.Input.Name, f.Owner))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	g, err := a.Groups.Create(cmd.Context(), f.Input, f.Owner)
	if err != nil {
		return err
	}

	ui.PrintGroupCreated(g, a.Config.App.BaseURL)
	return nil
}

func runAdmins(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ui.PrintAdmins(cfg.App.Admins)
	return nil
}

func runAudit(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.Store.ListAudit(cmd.Context())
	if err != nil {
		return err
	}
	ui.PrintAudit(entries)
	return nil
}
