package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"familytasks/internal/config"
	"familytasks/internal/database"
	"familytasks/internal/logger"
	"familytasks/internal/repository"
	"familytasks/internal/service"
)

// app is the state shared by subcommands once the database is open
type app struct {
	cfg *config.Config
	db  *database.DB
	log *logrus.Entry
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "familyctl",
		Short:        "Maintenance tool for the family tasks database",
		SilenceUsage: true,
		Long: `familyctl works directly on the database configured by the server's
environment variables (DB_TYPE, DB_PATH, DATABASE_URL, MIGRATIONS_PATH).

Migrations are applied before any command runs.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
	}

	root.AddCommand(a.exportCmd(), a.importCmd(), a.seedSuggestedCmd())
	return root
}

func (a *app) open() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.Init("familyctl", cfg.LogLevel)

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return err
	}
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		db.Close()
		return err
	}
	a.db = db
	return nil
}

// close releases the database. Cobra skips post-run hooks when a command
// fails, so the caller closes explicitly.
func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil && a.log != nil {
		a.log.WithError(err).Warn("failed to close database")
	}
}

func (a *app) exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the database to a JSON file",
		Example: `  familyctl export
  familyctl export --output backups/family.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}
			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			defer f.Close()

			data, err := service.NewBackupService(a.db, a.log).Export(cmd.Context(), f)
			if err != nil {
				return err
			}
			if err := f.Sync(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d families, %d users, %d tasks, %d suggested tasks to %s\n",
				len(data.Families), len(data.Users), len(data.Tasks), len(data.SuggestedTasks), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var (
		input     string
		clearData bool
		yes       bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a JSON backup",
		Example: `  familyctl import --input backup.json
  familyctl import --input backup.json --clear`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", input, err)
			}
			defer f.Close()

			if clearData && !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
				"WARNING: This will delete all existing data. Type 'yes' to confirm: ") {
				fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled")
				return nil
			}

			data, err := service.NewBackupService(a.db, a.log).Import(cmd.Context(), f, clearData)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d families, %d users, %d tasks, %d suggested tasks\n",
				len(data.Families), len(data.Users), len(data.Tasks), len(data.SuggestedTasks))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "backup file to import")
	cmd.Flags().BoolVar(&clearData, "clear", false, "delete existing data before importing")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt for --clear")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (a *app) seedSuggestedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed-suggested",
		Short: "Load suggested tasks",
		Long: `Without --file the built-in suggested tasks are loaded when the table is
empty. With --file every entry of the YAML file is added.`,
		Example: `  familyctl seed-suggested
  familyctl seed-suggested --file extra_tasks.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := service.NewSuggestedTaskService(a.db, repository.NewSuggestedTaskRepository(a.db), nil, a.log)

			if file == "" {
				n, err := svc.SeedDefaults(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d default suggested tasks\n", n)
				return nil
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file, err)
			}
			defer f.Close()

			n, err := svc.ImportYAML(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d suggested tasks from %s\n", n, file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with a suggested_tasks list")
	return cmd
}

// confirm asks prompt and reports whether the answer was "yes"
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(answer) == "yes"
}
