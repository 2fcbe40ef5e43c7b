package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"direct-messenger/config"
	"direct-messenger/controller"
	"direct-messenger/database"
	"direct-messenger/event"
	"direct-messenger/event/listener"
	"direct-messenger/hub"
	"direct-messenger/presence"
	"direct-messenger/router"
	"direct-messenger/service"
	"direct-messenger/socketio"
	"direct-messenger/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetPrefix("direct-messenger: ")

	rest := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StrictRouting:         true,
		AppName:               "direct-messenger",
		BodyLimit:             int(storage.DefaultMaxBytes) + 1<<20,
	})

	rest.Use(cors.New(cors.Config{
		AllowOrigins:     config.ConfigDefault("CLIENT_ORIGIN", "*"),
		AllowCredentials: config.Config("CLIENT_ORIGIN") != "",
	}))

	redisClient := tokenClient(database.RedisConnect())

	db, err := database.PostgresConnect()
	if err != nil {
		log.Fatal(err)
	}

	enforcer, err := database.Casbin(db, config.ConfigDefault("RBAC_MODEL", "config/restful_rbac_model.conf"))
	if err != nil {
		log.Fatal(err)
	}

	bus, err := event.Connect([]string{
		// Connect to queues
		event.QueueApi,
		event.QueueBackoffice,
	})
	if err != nil {
		log.Fatal(err)
	}

	store := database.NewStore(db)
	registry := presence.New()
	svc := service.New(store, service.WithPresence(registry))

	// Answer "api" requests
	api := listener.NewApi(bus, registry)
	go api.Run()

	if err := bus.Subscribe([]event.Subscription{
		{
			Queue:   event.QueueApi,
			Channel: api.Channel,
		},
	}); err != nil {
		log.Fatal(err)
	}

	// Replay event logs
	if err := bus.Replay(); err != nil {
		log.Fatal(err)
	}

	socket := socketio.Init(rest, store)
	messenger := hub.New(svc, registry, socketio.NewEmitter(socket), hub.WithPublisher(bus))

	uploader, err := newUploader(rest)
	if err != nil {
		log.Fatal(err)
	}

	h := controller.New(controller.Config{
		Accounts: store,
		Tokens:   database.NewTokenStore(redisClient),
		Policies: enforcer,
		Service:  svc,
		Hub:      messenger,
		Presence: registry,
		Uploader: uploader,
		HealthCheck: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				return err
			}
			return redisClient.Ping(ctx).Err()
		},
	})

	router.Rest(rest, h, enforcer)
	router.Socket(socket, messenger)

	go func() {
		if err := rest.Listen(fmt.Sprintf(":%s", config.ConfigDefault("SERVER_PORT", "3000"))); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	exit := make(chan struct{})
	SignalC := make(chan os.Signal, 1)

	signal.Notify(SignalC, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range SignalC {
			switch s {
			case syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	socket.Close(nil)
	if err := rest.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("shutdown: %v", err)
	}
	registry.Close()
	if err := bus.Close(); err != nil {
		log.Printf("close event bus: %v", err)
	}
	if err := redisClient.Close(); err != nil {
		log.Printf("close redis: %v", err)
	}
	os.Exit(0)
}

// tokenClient picks the lowest configured redis database for refresh tokens.
func tokenClient(clients map[int]*redis.Client) *redis.Client {
	if len(clients) == 0 {
		log.Fatal("no redis database configured")
	}
	dbs := make([]int, 0, len(clients))
	for n := range clients {
		dbs = append(dbs, n)
	}
	sort.Ints(dbs)
	return clients[dbs[0]]
}

func newUploader(app *fiber.App) (*storage.Uploader, error) {
	maxBytes := int64(config.ConfigInt("UPLOAD_MAX_BYTES", int(storage.DefaultMaxBytes)))

	if config.Config("UPLOAD_BACKEND") == "minio" {
		store, err := storage.NewMinioStore(
			config.Config("MINIO_ENDPOINT"),
			config.Config("MINIO_ACCESS_KEY"),
			config.Config("MINIO_SECRET_KEY"),
			config.ConfigDefault("MINIO_BUCKET", "attachments"),
			config.ConfigBool("MINIO_SSL", false),
		)
		if err != nil {
			return nil, err
		}
		return storage.NewUploader(store, maxBytes), nil
	}

	store, err := storage.NewDiskStore(config.ConfigDefault("UPLOAD_DIR", "uploads"), "/uploads")
	if err != nil {
		return nil, err
	}
	app.Static("/uploads", store.Dir())
	return storage.NewUploader(store, maxBytes), nil
}
