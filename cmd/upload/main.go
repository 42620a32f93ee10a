package main

import (
	"context"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/edugrade/segma/internal/pkg/extractor"
	"github.com/edugrade/segma/internal/pkg/gemini"
	"github.com/edugrade/segma/internal/pkg/miniofs"
	"github.com/edugrade/segma/internal/pkg/postgres"
	"github.com/edugrade/segma/internal/pkg/statushub"
	"github.com/edugrade/segma/internal/pkg/upload"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &upload.Data{}
	data.Port = cfg.GetInt("port")
	var err error

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	addDBLog(dbConfig)

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}

	data.DB = db

	filer, err := miniofs.NewFiler(ctx, miniofs.Options{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"),
		Key: cfg.GetString("filer.key"), SSL: cfg.GetBool("filer.ssl")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init file saver")
	}
	data.Saver = filer

	media, err := gemini.NewClient(cfg.GetString("gemini.url"), cfg.GetString("gemini.key"),
		cfg.GetString("gemini.model"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init media client")
	}

	hub := statushub.NewHub()
	data.WSHandler = hub

	data.Segmenter, err = extractor.NewSegmenter(filer, db, media, hub)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init segmenter")
	}

	err = upload.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
}

func addDBLog(dbConfig *pgxpool.Config) {
	logFunc := goapp.Log.Info().Msg
	dbConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
		logFunc("before connect")
		return nil
	}
	dbConfig.AfterConnect = func(ctx context.Context, c *pgx.Conn) error {
		logFunc("after connect")
		return nil
	}
	dbConfig.BeforeAcquire = func(ctx context.Context, c *pgx.Conn) bool {
		logFunc("before acquire")
		return true
	}
	dbConfig.AfterRelease = func(c *pgx.Conn) bool {
		logFunc("after release")
		return true
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
  /____/_____/\____/_/  /_/_/  |_|  v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/edugrade/segma"))
}
