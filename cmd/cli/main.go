package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/jepicoco/galerie-sub002/internal/appdb"
	"github.com/jepicoco/galerie-sub002/internal/config"
	"github.com/jepicoco/galerie-sub002/internal/store"
)

const usage = "expected 'add-user', 'init-files', 'archive' or 'check' subcommand"

func main() {
	addUserCmd := flag.NewFlagSet("add-user", flag.ExitOnError)
	username := addUserCmd.String("username", "", "Username for the new user")
	password := addUserCmd.String("password", "", "Password for the new user")

	archiveCmd := flag.NewFlagSet("archive", flag.ExitOnError)
	days := archiveCmd.Int("days", 60, "Archive terminal orders older than this many days")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add-user":
		addUserCmd.Parse(os.Args[2:])
		if *username == "" || *password == "" {
			fmt.Println("username and password are required")
			addUserCmd.PrintDefaults()
			os.Exit(1)
		}
		createUser(*username, *password)
	case "init-files":
		initFiles()
	case "archive":
		archiveCmd.Parse(os.Args[2:])
		archiveOrders(*days)
	case "check":
		checkOrders()
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

func openStore() *store.Store {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return store.New(store.Config{
		LivePath:    cfg.LiveOrdersPath(),
		ArchivePath: cfg.ArchiveOrdersPath(),
		PrepPath:    cfg.PreparationPath(),
		LockTimeout: cfg.LockTimeout,
	})
}

func createUser(username, password string) {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := appdb.Open(cfg.AppDBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	// Ensure tables exist if running cli before server
	if err := db.InitSchema(); err != nil {
		log.Fatalf("Failed to init schema: %v", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	if err := db.CreateUser(username, string(hashedPassword)); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("User '%s' created successfully.\n", username)
}

func initFiles() {
	if err := openStore().CreateRequiredFiles(); err != nil {
		log.Fatalf("Failed to create backing files: %v", err)
	}
	fmt.Println("Backing files are in place.")
}

func archiveOrders(days int) {
	moved, err := openStore().ArchiveOlderThan(days)
	if err != nil {
		log.Fatalf("Archiving failed: %v", err)
	}
	fmt.Printf("%d order(s) archived.\n", moved)
}

func checkOrders() {
	report, err := openStore().DetectInconsistencies()
	if err != nil {
		log.Fatalf("Reconciliation scan failed: %v", err)
	}
	if len(report) == 0 {
		fmt.Println("No inconsistencies found.")
		return
	}
	for _, finding := range report {
		fmt.Printf("%s\t%s\t%s\n", finding.Reference, finding.Kind, finding.Detail)
	}
	os.Exit(1)
}
