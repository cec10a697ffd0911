package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&fetchCmd{}, "data")
	commander.Register(&fomcCmd{}, "data")
	commander.Register(&scenariosCmd{}, "pipeline")
	commander.Register(&valueCmd{}, "pipeline")
	commander.Register(&exportCmd{}, "output")
	commander.Register(&reportCmd{}, "output")
	commander.Register(&checkCmd{}, "")

	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}
