package main

import (
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/nixxel-company-limited/posprint/adapter"
	"github.com/nixxel-company-limited/posprint/api"
	"github.com/nixxel-company-limited/posprint/config"
	"github.com/nixxel-company-limited/posprint/connection"
	"github.com/nixxel-company-limited/posprint/imaging"
	"github.com/nixxel-company-limited/posprint/logging"
	"github.com/nixxel-company-limited/posprint/printing"
	"github.com/nixxel-company-limited/posprint/server"
)

func options() fx.Option {
	return fx.Options(
		config.Module(),
		logging.Module(),
		logging.WithFxLogger(),
		adapter.Module(),
		connection.Module(),
		imaging.Module(),
		printing.Module(),
		api.Module(),
		server.Module(),
	)
}

func main() {
	app := fx.New(options())
	if err := app.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	app.Run()
}
