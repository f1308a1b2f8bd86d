package service

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"campusblogs/app/config"
	"campusblogs/app/identity"
	"campusblogs/app/models"
	"campusblogs/app/repositories"
	"campusblogs/app/services"
)

// HandleCommand runs one subcommand and returns its exit code. Exiting is
// left to the caller.
func HandleCommand(args []string) int {
	if len(args) < 1 {
		printHelp()
		return 1
	}

	cmd := args[0]
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printHelp()
		return 0
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "path to the YAML config file")
	yes := fs.Bool("yes", false, "answer yes to confirmation prompts")
	if err := fs.Parse(args[1:]); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	rest := fs.Args()

	switch cmd {
	case "serve", "init", "clean", "backup", "restore", "reconcile", "token":
	default:
		fmt.Printf("Unknown command: %s\n\n", cmd)
		printHelp()
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	var code int
	switch cmd {
	case "serve":
		if err := RunAppServer(cfg); err != nil {
			fmt.Printf("Server error: %v\n", err)
			code = 1
		}
	case "init":
		code = initDb(cfg)
	case "clean":
		code = clean(cfg, *yes)
	case "backup":
		code = backup(cfg)
	case "restore":
		if len(rest) < 1 {
			fmt.Println("Error: backup file path required for restore")
			code = 1
			break
		}
		code = restore(cfg, rest[0], *yes)
	case "reconcile":
		code = reconcile(cfg)
	case "token":
		if len(rest) < 1 {
			fmt.Println("Error: user id required for token")
			code = 1
			break
		}
		code = token(cfg, rest)
	}
	return code
}

// printHelp prints help for subcommands.
func printHelp() {
	helpText := `Usage: campusblogs <command> [-config file] [-yes] [args]

Commands:
  serve                           Run the blog API server
  init                            Initialize a new empty database
  clean                           Remove the database
  backup                          Create a backup of the database
  restore <file>                  Restore the database from a backup
  reconcile                       Recount every post's comments and fix drifted counters
  token <userId> [name] [email]   Issue a signed identity token for development
  help                            Display this help message

Configuration is read from -config or $` + ConfigEnv + `, then overridden by
` + config.EnvPrefix + `* environment variables.
`
	fmt.Println(helpText)
}

// initDb initializes a new empty database.
func initDb(cfg config.Config) int {
	path := cfg.Store.Path
	if storeExists(path) {
		fmt.Println("Database already exists. Use 'clean' first if you want to reinitialize.")
		return 0
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		fmt.Printf("Failed to create database directory: %v\n", err)
		return 1
	}
	if err := os.MkdirAll(cfg.Blobs.Dir, 0o755); err != nil {
		fmt.Printf("Failed to create blob directory: %v\n", err)
		return 1
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		fmt.Printf("Failed to initialize database: %v\n", err)
		return 1
	}
	defer store.Close()

	fmt.Println("Database initialized successfully")
	return 0
}

// clean removes the database.
func clean(cfg config.Config, yes bool) int {
	path := cfg.Store.Path
	if !storeExists(path) {
		fmt.Println("Database is already clean (does not exist)")
		return 0
	}
	if !yes && !confirm("Are you sure you want to clean the database? This cannot be undone.") {
		fmt.Println("Operation cancelled")
		return 0
	}

	if err := os.RemoveAll(path); err != nil {
		fmt.Printf("Failed to clean database: %v\n", err)
		return 1
	}
	fmt.Println("Database cleaned successfully")
	return 0
}

// backup writes a full dump of the database into the backup directory.
func backup(cfg config.Config) int {
	if !storeExists(cfg.Store.Path) {
		fmt.Println("No database exists to backup")
		return 1
	}

	backupDir := cfg.Store.BackupDir
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(cfg.Store.Path), "backups")
	}
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		fmt.Printf("Failed to create backup directory: %v\n", err)
		return 1
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		return 1
	}
	defer store.Close()

	backupFile := filepath.Join(backupDir, fmt.Sprintf("backup_%d.db", time.Now().UnixNano()))
	f, err := os.Create(backupFile)
	if err != nil {
		fmt.Printf("Failed to create backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	if _, err := store.Backup(f); err != nil {
		fmt.Printf("Failed to backup database: %v\n", err)
		return 1
	}

	fmt.Printf("Database backed up successfully to %s\n", backupFile)
	return 0
}

// restore replaces the database with a backup.
func restore(cfg config.Config, backupFile string, yes bool) int {
	fi, err := os.Stat(backupFile)
	if err != nil {
		fmt.Printf("Backup file does not exist: %s\n", backupFile)
		return 1
	}
	if fi.Size() == 0 {
		fmt.Printf("Backup file is empty: %s\n", backupFile)
		return 1
	}

	path := cfg.Store.Path
	if storeExists(path) {
		if !yes && !confirm("Existing database found. Do you want to replace it?") {
			fmt.Println("Operation cancelled")
			return 1
		}
		if err := os.RemoveAll(path); err != nil {
			fmt.Printf("Failed to remove existing database: %v\n", err)
			return 1
		}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		fmt.Printf("Failed to create database directory: %v\n", err)
		return 1
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		return 1
	}
	defer store.Close()

	f, err := os.Open(backupFile)
	if err != nil {
		fmt.Printf("Failed to open backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	if err := store.Restore(f); err != nil {
		fmt.Printf("Failed to restore database: %v\n", err)
		return 1
	}

	fmt.Println("Database restored successfully")
	return 0
}

// reconcile recounts the comments of every post and prints the counters it
// corrected.
func reconcile(cfg config.Config) int {
	if !storeExists(cfg.Store.Path) {
		fmt.Println("No database exists to reconcile")
		return 1
	}
	store, err := openStore(cfg.Store)
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		return 1
	}
	defer store.Close()

	engagement := services.NewEngagementService(
		repositories.NewDocCommentRepository(store),
		repositories.NewDocPostRepository(store),
	)
	corrections, err := engagement.ReconcileAll(context.Background())
	for _, c := range corrections {
		fmt.Printf("post %s: commentsCount %d -> %d\n", c.PostID, c.Before, c.After)
	}
	if err != nil {
		fmt.Printf("Reconcile stopped: %v\n", err)
		return 1
	}
	fmt.Printf("Reconciled comment counts, %d corrected\n", len(corrections))
	return 0
}

// token prints a signed identity token for args: userId [name] [email].
func token(cfg config.Config, args []string) int {
	provider, err := identity.NewJWTProvider(identity.Config{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		TokenTTL: cfg.Auth.TokenTTL,
	})
	if err != nil {
		fmt.Printf("Failed to issue token: %v (set %sAUTH_SECRET)\n", err, config.EnvPrefix)
		return 1
	}

	id := models.Identity{UserID: args[0]}
	if len(args) > 1 {
		id.DisplayName = args[1]
	}
	if len(args) > 2 {
		id.Email = args[2]
	}
	signed, err := provider.Issue(id)
	if err != nil {
		fmt.Printf("Failed to issue token: %v\n", err)
		return 1
	}
	fmt.Println(signed)
	return 0
}
