package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"washcore/config"
	"washcore/device"
	"washcore/identity"
	"washcore/machinecache"
	"washcore/messaging"
	"washcore/orchestrator"
	"washcore/store"
	"washcore/www"
)

var Version = "dev"

const memoryCacheSize = 4096

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "washcore.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("washcore", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("washcore: database open (%s)", cfg.Database.Driver)

	// Cache: Redis when reachable, bounded in-process LRU otherwise.
	var cache machinecache.Cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("washcore: redis not available (%v), using in-process cache", err)
		memCache, err := machinecache.NewMemoryCache(memoryCacheSize)
		if err != nil {
			log.Fatalf("init memory cache: %v", err)
		}
		cache = memCache
	} else {
		log.Printf("washcore: redis connected (%s)", cfg.Redis.Address)
		cache = machinecache.NewRedisCache(redisClient)
	}
	cancel()
	defer redisClient.Close()

	// Identity provider
	var provider identity.Provider
	switch cfg.Identity.Driver {
	case "http":
		provider = identity.NewHTTPProvider(cfg.Identity.BaseURL, cfg.Identity.Timeout)
		log.Printf("washcore: identity provider http (%s)", cfg.Identity.BaseURL)
	case "local":
		provider = identity.NewLocalProvider(db)
		log.Printf("washcore: identity provider local")
	default:
		log.Fatalf("unknown identity driver: %s", cfg.Identity.Driver)
	}
	guard := orchestrator.NewAccessGuard(provider)

	// Device controller
	var controller device.Controller
	switch cfg.Device.Driver {
	case "http":
		controller = device.NewHTTPController(cfg.Device.BaseURL, cfg.Device.Timeout)
		log.Printf("washcore: device controller http (%s)", cfg.Device.BaseURL)
	case "mqtt":
		mqttController, err := device.NewMQTTController(&cfg.Device.MQTT)
		if err != nil {
			log.Fatalf("device controller mqtt: %v", err)
		}
		defer mqttController.Close()
		controller = mqttController
		log.Printf("washcore: device controller mqtt (%s:%d)", cfg.Device.MQTT.Broker, cfg.Device.MQTT.Port)
	default:
		log.Fatalf("unknown device driver: %s", cfg.Device.Driver)
	}

	// Messaging client + outbox drainer
	msgClient := messaging.NewClient(&cfg.Messaging)
	if err := msgClient.Connect(); err != nil {
		log.Printf("washcore: messaging connect failed (%v), transitions stay queued", err)
	} else {
		log.Printf("washcore: messaging connected (kafka)")
	}
	defer msgClient.Close()

	drainer := messaging.NewOutboxDrainer(db, msgClient, cfg.Messaging.OutboxDrainInterval)
	drainer.Start()
	defer drainer.Stop()

	// Orchestrator
	sink := messaging.NewTransitionSink(db, cfg.Messaging.TransitionsTopic)
	orch := orchestrator.New(db, cache, controller, sink)

	// Web server
	handler := www.NewRouter(www.Config{
		Orchestrator:  orch,
		Guard:         guard,
		DB:            db,
		SessionSecret: cfg.Web.SessionSecret,
		Health: func() map[string]any {
			return map[string]any{
				"database":  cfg.Database.Driver,
				"messaging": msgClient.IsConnected(),
			}
		},
	})

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		log.Printf("washcore: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("washcore: ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("washcore: shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("washcore: stopped")
}
