package main

import (
	"flag"

	"go.uber.org/fx"

	"github.com/david0ql/helpdeskd/internal/daemon"
	"github.com/david0ql/helpdeskd/internal/workdir"
)

func main() {
	dataDir := flag.String("data-dir", workdir.Base(), "data directory")
	listenAddr := flag.String("listen", "", "bind address (overrides config)")
	flag.Parse()

	app := fx.New(
		daemon.Module(daemon.Params{
			DataDir:    *dataDir,
			ListenAddr: *listenAddr,
		}),
	)

	app.Run()
}
