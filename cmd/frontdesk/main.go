package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"github.com/sazonarte/frontdesk/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	defer glog.Flush()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := cli.NewRootCmd()
	// glog registers its flags (-v, -logtostderr, ...) on the default set.
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	_ = flag.CommandLine.Parse([]string{})

	if err := root.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
