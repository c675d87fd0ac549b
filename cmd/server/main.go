package main // Entry point package

import (
    "context"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "hostel-pms/internal/config"
    "hostel-pms/internal/database"
    "hostel-pms/internal/doorlock"
    "hostel-pms/internal/handler"
    "hostel-pms/internal/middleware"
    "hostel-pms/internal/notify"
    "hostel-pms/internal/payment"
    "hostel-pms/internal/queue"
    "hostel-pms/internal/repository"
    "hostel-pms/internal/router"
    "hostel-pms/internal/secrets"
    "hostel-pms/internal/whatsapp"
)

func main() {
    _ = godotenv.Load() // .env is optional; real deployments set env directly
    cfg := config.Load()

    if err := whatsapp.ValidateTemplates(); err != nil {
        log.Fatalf("template catalog: %v", err)
    }
    if _, err := whatsapp.ResolveTemplate(cfg.Queue.TemplateName, cfg.Queue.TemplateLang); err != nil {
        log.Fatalf("invitation template: %v", err)
    }

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }

    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Printf("redis unavailable; rate limiting and job dedup degrade to local fallbacks")
    }

    box, err := secrets.NewBox(cfg.SettingsSecretKey)
    if err != nil {
        log.Fatalf("settings secret key: %v", err)
    }

    reservations := repository.NewReservationRepo(db)
    messages := repository.NewMessageRepo(db)
    settings := repository.NewSettingsRepo(db, box)

    engine := whatsapp.NewEngine(whatsapp.NewClient(), messages, cfg.Queue.TemplateLang)
    orchestrator := notify.NewOrchestrator(
        reservations, settings,
        payment.NewClient(), doorlock.NewClient(), engine,
        cfg.FrontendURL, cfg.Queue.TemplateName,
    )

    qc := queue.NewClient(cfg.AMQPURL, cfg.Queue, rdb)
    if cfg.Queue.Enabled {
        if err := qc.Connect(); err != nil {
            // The gate degrades to inline processing while the broker is
            // down, so a failed initial connect is not fatal.
            log.Printf("queue: initial connect failed, will retry per dispatch: %v", err)
        }
    }

    dispatcher := notify.NewDispatcher(orchestrator, qc, cfg.Queue)

    limiter := queue.NewLimiter(rdb, "workers:notify", cfg.Queue.RatePerSecond)
    pool := queue.NewPool(qc, cfg.Queue, limiter)
    pool.Handle(queue.QueueReservation, orchestrator.HandleJob)
    pool.Handle(queue.QueueGuestContact, orchestrator.HandleJob)
    if cfg.Queue.Enabled {
        pool.Start()
    }

    e := echo.New()
    e.HideBanner = true
    router.RegisterRoutes(e)
    router.RegisterReservations(e,
        handler.NewReservationHandler(reservations, dispatcher, orchestrator),
        middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
    )
    router.RegisterWebhooks(e, handler.NewWebhookHandler(messages))

    go func() {
        addr := ":" + cfg.Port
        log.Printf("listening on %s (env=%s, queue_enabled=%v)", addr, cfg.Env, cfg.Queue.Enabled)
        if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
            log.Fatalf("http server: %v", err)
        }
    }()

    quit := make(chan os.Signal, 1)
    signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
    <-quit
    log.Println("shutting down")

    // Stop accepting HTTP traffic first, then drain workers, then tear down
    // the connections the drained work no longer needs.
    ctx, cancel := context.WithTimeout(context.Background(), cfg.Queue.ShutdownGrace)
    defer cancel()
    if err := e.Shutdown(ctx); err != nil {
        log.Printf("http shutdown: %v", err)
    }
    if cfg.Queue.Enabled {
        if err := pool.Stop(ctx); err != nil {
            log.Printf("worker pool: %v", err)
        }
    }
    if err := qc.Close(); err != nil {
        log.Printf("queue close: %v", err)
    }
    if rdb != nil {
        if err := rdb.Close(); err != nil {
            log.Printf("redis close: %v", err)
        }
    }
    if err := db.Close(); err != nil {
        log.Printf("db close: %v", err)
    }
    log.Println("bye")
}
