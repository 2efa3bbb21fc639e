package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/reading-practice/internal/analysis"
	"github.com/iliyamo/reading-practice/internal/config"
	"github.com/iliyamo/reading-practice/internal/database"
	"github.com/iliyamo/reading-practice/internal/handler"
	appmw "github.com/iliyamo/reading-practice/internal/middleware"
	"github.com/iliyamo/reading-practice/internal/queue"
	"github.com/iliyamo/reading-practice/internal/repository"
	"github.com/iliyamo/reading-practice/internal/router"
	queue_publisher "github.com/iliyamo/reading-practice/internal/service"
	"github.com/iliyamo/reading-practice/internal/session"
	"github.com/iliyamo/reading-practice/internal/storage"
	"github.com/iliyamo/reading-practice/internal/telemetry"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(db, cfg.MigrationsPath); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	audio, err := storage.NewAudioStore(cfg.AudioDir)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	telemetry.Init()
	sessions := session.New(cfg.SessionTTL)

	users := repository.NewUserRepo(db)
	classes := repository.NewClassRepo(db)
	stories := repository.NewStoryRepo(db)
	assignments := repository.NewAssignmentRepo(db)
	recordings := repository.NewRecordingRepo(db)
	visualPasswords := repository.NewVisualPasswordRepo(db)

	var transcriber analysis.Transcriber = analysis.Unavailable{}
	if wc := analysis.NewWhisperClient(cfg.WhisperURL); wc != nil {
		transcriber = wc
	} else {
		log.Println("WHISPER_API_URL not set; recordings will fail analysis explicitly")
	}

	// The consumer owns the recording lifecycle past "uploaded". It keeps
	// reconnecting until shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	consumer := &queue.Consumer{
		Recordings:  recordings,
		Stories:     stories,
		Blobs:       audio,
		Transcriber: transcriber,
	}
	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(appmw.Metrics())

	rdb := config.NewRedisClient()
	if rdb != nil {
		e.Use(appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	}

	h := router.Handlers{
		Auth:       handler.NewAuthHandler(cfg, users, sessions),
		Join:       handler.NewJoinHandler(cfg, classes, users, visualPasswords, sessions),
		Users:      handler.NewUserHandler(cfg, users),
		Classes:    handler.NewClassHandler(classes, users),
		Stories:    handler.NewStoryHandler(stories),
		Assigns:    handler.NewAssignmentHandler(assignments, classes, stories),
		Recordings: handler.NewRecordingHandler(recordings, assignments, classes, audio, queue_publisher.Publisher{}),
		Sessions:   sessions,
	}
	if rdb != nil {
		h.CacheVisualPasswords = appmw.NewRedisCache(config.LoadCacheConfig(), rdb)
	}
	router.Register(e, h)

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	sessions.DestroyAll()
}
