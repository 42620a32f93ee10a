package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/edugrade/segma/internal/pkg/batch"
	"github.com/edugrade/segma/internal/pkg/pipeline"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	printBanner()

	files := cfg.GetStringSlice("files")
	if len(files) == 0 {
		goapp.Log.Fatal().Msg("no files, set files=a.mp3,b.mp3")
	}

	client, err := pipeline.NewClient(cfg.GetString("server.url"), cfg.GetInt64("owner"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init pipeline client")
	}

	runner, err := batch.NewOrchestrator(client, files)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init batch")
	}

	ctx, cancelFunc := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelFunc()

	report, err := runner.Run(ctx)
	if err != nil {
		goapp.Log.Fatal().Err(err).Str("report", report.String()).Msg("batch aborted")
	}
	for _, item := range runner.Snapshot() {
		if item.Err != nil {
			goapp.Log.Warn().Str("file", item.Path).Err(item.Err).Msg("failed")
		}
	}
	goapp.Log.Info().Str("report", report.String()).Msg("finished")
	if report.Succeeded < report.Total {
		os.Exit(1)
	}
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
     ____________________  ___
    / ___/ ____/ ____/  |/  /   |
    \__ \/ __/ / / __/ /|_/ / /| |
   ___/ / /___/ /_/ / /  / / ___ |
  /____/_____/\____/_/  /_/_/  |_|  batch v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/edugrade/segma"))
}
