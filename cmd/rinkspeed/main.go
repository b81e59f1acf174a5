package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/rinkspeed/internal/db"
	"github.com/banshee-data/rinkspeed/internal/version"
)

// DefaultDBFile is used when -db is not given to serve or migrate.
const DefaultDBFile = "rinkspeed.db"

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch command {
	case "process":
		err = runProcess(ctx, args, os.Stdout)
	case "recompute":
		err = runRecompute(args, os.Stdout)
	case "serve":
		err = runServe(ctx, args)
	case "migrate":
		err = runMigrate(args)
	case "version":
		fmt.Printf("rinkspeed version %s (git %s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}

func printUsage() {
	fmt.Println(`rinkspeed - player kinematics for rink tracking data

Usage: rinkspeed <command> [options]

Commands:
  process    Process a clip into frame records, reports and a run
  recompute  Re-derive the metrics of a saved tracking data file
  serve      Serve stored runs and output files over HTTP
  migrate    Manage the database schema (up, down, status, version, force)
  version    Show rinkspeed version
  help       Show this help message

Run 'rinkspeed <command> -h' for the options of a command.

Examples:
  # Process five seconds of a clip from recorded tracker output
  rinkspeed process -video game.mp4 -observations tracks.jsonl -output-dir out

  # Replay tracker output without a video, into a database
  rinkspeed process -observations tracks.jsonl -output-dir out -db runs.db

  # Recompute a run in miles per hour
  rinkspeed recompute -in out/player_detection_data_20240101_120000.json -units mph

  # Browse stored runs
  rinkspeed serve -db runs.db -output-dir out`)
}

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", DefaultDBFile, "Path to the sqlite database")
	fs.Usage = func() { db.PrintMigrateHelp(os.Stderr) }
	fs.Parse(args)
	return db.RunMigrateCommand(fs.Args(), *dbPath, os.Stdout)
}
