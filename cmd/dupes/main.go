package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"dupes-go/internal/app"
	"dupes-go/internal/config"
	"dupes-go/internal/dupes"
	"dupes-go/internal/web"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a DupesApp. The caller must defer
// app.Close(). operation identifies the CLI command being run (e.g.
// "Process", "DeleteDuplicates") and parameters records its arguments.
func newApp(operation, parameters string) (*app.DupesApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewDupesApp(cfg, operation, parameters)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "dupes",
	Short: "Duplicate file finder",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Generate a new host ID
		hostID := uuid.New().String()

		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:  %s\n", cfg.HostID)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Database: %s (%s)\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Archive:  %s\n", cfg.Archive.Type)
		return nil
	},
}

// process command
var processCmd = &cobra.Command{
	Use:   "process DIRECTORY",
	Short: "Scan a directory and index every file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		skipExisting, _ := cmd.Flags().GetBool("skip-existing")
		threads, _ := cmd.Flags().GetInt("threads")

		a, err := newApp("Process", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.Process(args[0], skipExisting, threads)
		if err != nil {
			a.SetError()
			return fmt.Errorf("processing directory: %w", err)
		}

		fmt.Printf("Indexed %d file(s)\n", count)
		return nil
	},
}

// rescan-duplicates command
var rescanCmd = &cobra.Command{
	Use:   "rescan-duplicates",
	Short: "Re-hash every indexed file that is part of a duplicate group",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RescanDuplicates", "")
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.RescanDuplicates()
		if err != nil {
			a.SetError()
			return fmt.Errorf("rescanning duplicates: %w", err)
		}

		fmt.Printf("Rescanned %d file(s)\n", count)
		return nil
	},
}

// clean-db command
var cleanDBCmd = &cobra.Command{
	Use:   "clean-db",
	Short: "Remove index entries whose files no longer exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CleanDB", "")
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.CleanDB()
		if err != nil {
			a.SetError()
			return fmt.Errorf("cleaning database: %w", err)
		}

		fmt.Printf("Removed %d stale record(s)\n", count)
		return nil
	},
}

// outputWriter opens the -o target, or returns stdout when no file is given.
// The returned cleanup must be called when done.
func outputWriter(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// list-duplicates command
var listDuplicatesCmd = &cobra.Command{
	Use:   "list-duplicates",
	Short: "List duplicate groups with their selected originals",
	RunE: func(cmd *cobra.Command, args []string) error {
		preferDirs, _ := cmd.Flags().GetStringSlice("prefer-directory")
		withinDir, _ := cmd.Flags().GetString("within-directory")
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp("ListDuplicates", "")
		if err != nil {
			return err
		}
		defer a.Close()

		rows, err := a.ListDuplicates(preferDirs, withinDir)
		if err != nil {
			return fmt.Errorf("listing duplicates: %w", err)
		}

		w, cleanup, err := outputWriter(output)
		if err != nil {
			return err
		}
		defer cleanup()

		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%s\n", row.Status, row.Path)
		}
		if output != "" {
			fmt.Printf("Wrote %d row(s) to %s\n", len(rows), output)
		}
		return nil
	},
}

// list-duplicates-csv command
var listDuplicatesCSVCmd = &cobra.Command{
	Use:   "list-duplicates-csv",
	Short: "Export duplicate groups as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		preferDirs, _ := cmd.Flags().GetStringSlice("prefer-directory")
		withinDir, _ := cmd.Flags().GetString("within-directory")
		output, _ := cmd.Flags().GetString("output")

		if output == "" {
			return fmt.Errorf("-o is required for CSV export")
		}

		a, err := newApp("ListDuplicatesCSV", "")
		if err != nil {
			return err
		}
		defer a.Close()

		rows, err := a.ListDuplicates(preferDirs, withinDir)
		if err != nil {
			return fmt.Errorf("listing duplicates: %w", err)
		}

		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()

		rw := dupes.NewReportWriter(f)
		if err := rw.WriteHeader(); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
		for _, row := range rows {
			if err := rw.Write(row); err != nil {
				return fmt.Errorf("writing csv: %w", err)
			}
		}
		if err := rw.Flush(); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}

		fmt.Printf("Wrote %d row(s) to %s\n", len(rows), output)
		return nil
	},
}

// confirmDeletion prompts on the terminal before a real deletion. Returns
// false when the user declines.
func confirmDeletion() (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("refusing to delete without confirmation on a non-terminal; pass --yes")
	}

	fmt.Print("This will permanently delete duplicate files. Continue? [y/N] ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// delete-duplicates command
var deleteDuplicatesCmd = &cobra.Command{
	Use:   "delete-duplicates",
	Short: "Delete duplicate files, keeping one original per group",
	RunE: func(cmd *cobra.Command, args []string) error {
		preferDirs, _ := cmd.Flags().GetStringSlice("prefer-directory")
		withinDir, _ := cmd.Flags().GetString("within-directory")
		output, _ := cmd.Flags().GetString("output")
		overwrite, _ := cmd.Flags().GetBool("overwrite")
		appendLog, _ := cmd.Flags().GetBool("append")
		simulate, _ := cmd.Flags().GetBool("simulate-delete")
		yes, _ := cmd.Flags().GetBool("yes")

		if overwrite && appendLog {
			return fmt.Errorf("--overwrite and --append are mutually exclusive")
		}

		var logWriter *dupes.ReportWriter
		if output != "" {
			_, statErr := os.Stat(output)
			exists := statErr == nil
			if exists && !overwrite && !appendLog {
				return fmt.Errorf("log file %s already exists; pass --overwrite or --append", output)
			}

			flags := os.O_CREATE | os.O_WRONLY
			if appendLog {
				flags |= os.O_APPEND
			} else {
				flags |= os.O_TRUNC
			}
			f, err := os.OpenFile(output, flags, 0644)
			if err != nil {
				return fmt.Errorf("opening log file: %w", err)
			}
			defer f.Close()

			logWriter = dupes.NewReportWriter(f)
			// An appended log already carries a header.
			if !(appendLog && exists) {
				if err := logWriter.WriteHeader(); err != nil {
					return fmt.Errorf("writing log header: %w", err)
				}
			}
		}

		if !simulate && !yes {
			ok, err := confirmDeletion()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted.")
				return nil
			}
		}

		a, err := newApp("DeleteDuplicates", strings.Join(preferDirs, ","))
		if err != nil {
			return err
		}
		defer a.Close()

		rows, err := a.DeleteDuplicates(dupes.DeleteOptions{
			PreferredDirs: preferDirs,
			WithinDir:     withinDir,
			Simulate:      simulate,
			Log:           logWriter,
		})
		if err != nil {
			a.SetError()
			return fmt.Errorf("deleting duplicates: %w", err)
		}

		var deleted, simulated, kept, failed int
		for _, row := range rows {
			switch {
			case row.Status == dupes.StatusDeleted:
				deleted++
			case row.Status == dupes.StatusDeletedSimulated:
				simulated++
			case row.Status == dupes.StatusKept || row.Status == dupes.StatusKeptNoOriginal:
				kept++
			default:
				failed++
			}
			if logWriter == nil {
				fmt.Printf("%s\t%s\n", row.Status, row.Path)
			}
		}

		if simulate {
			fmt.Printf("Simulated deletion of %d file(s), kept %d original(s)\n", simulated, kept)
		} else {
			fmt.Printf("Deleted %d file(s), kept %d original(s), %d failure(s)\n", deleted, kept, failed)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View scan operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History", "")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No scan operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-18s  %s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
			)
		}
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a web view of the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		a, err := newApp("Serve", addr)
		if err != nil {
			return err
		}
		defer a.Close()

		srv, err := web.NewServer(a.Index(), a.Logger())
		if err != nil {
			return fmt.Errorf("creating web server: %w", err)
		}

		fmt.Printf("Serving on http://%s\n", addr)
		if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)

	rootCmd.AddCommand(processCmd)
	processCmd.Flags().Bool("skip-existing", false, "Skip files already present in the index")
	processCmd.Flags().IntP("threads", "t", 0, "Number of hashing workers (default: CPU count)")

	rootCmd.AddCommand(rescanCmd)
	rootCmd.AddCommand(cleanDBCmd)

	rootCmd.AddCommand(listDuplicatesCmd)
	listDuplicatesCmd.Flags().StringP("output", "o", "", "Write the listing to a file instead of stdout")
	listDuplicatesCmd.Flags().StringSlice("prefer-directory", nil, "Preferred directories for original selection, in order")
	listDuplicatesCmd.Flags().String("within-directory", "", "Restrict listing to one directory subtree")

	rootCmd.AddCommand(listDuplicatesCSVCmd)
	listDuplicatesCSVCmd.Flags().StringP("output", "o", "", "Output CSV file (required)")
	listDuplicatesCSVCmd.Flags().StringSlice("prefer-directory", nil, "Preferred directories for original selection, in order")
	listDuplicatesCSVCmd.Flags().String("within-directory", "", "Restrict export to one directory subtree")

	rootCmd.AddCommand(deleteDuplicatesCmd)
	deleteDuplicatesCmd.Flags().StringP("output", "o", "", "Write the deletion log to a file")
	deleteDuplicatesCmd.Flags().Bool("overwrite", false, "Overwrite an existing deletion log")
	deleteDuplicatesCmd.Flags().Bool("append", false, "Append to an existing deletion log")
	deleteDuplicatesCmd.Flags().Bool("simulate-delete", false, "Report what would be deleted without deleting")
	deleteDuplicatesCmd.Flags().StringSlice("prefer-directory", nil, "Preferred directories for original selection, in order")
	deleteDuplicatesCmd.Flags().String("within-directory", "", "Restrict deletion to one directory subtree")
	deleteDuplicatesCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "localhost:8080", "Listen address")
}
