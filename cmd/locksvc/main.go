package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/openlock/access-services/configs"
	mongodb "github.com/openlock/access-services/internal/db"
	"github.com/openlock/access-services/internal/locksvc/broker"
	lockconfig "github.com/openlock/access-services/internal/locksvc/config"
	"github.com/openlock/access-services/internal/locksvc/db"
	"github.com/openlock/access-services/internal/locksvc/handlers"
	"github.com/openlock/access-services/internal/locksvc/service"
	"github.com/openlock/access-services/internal/locksvc/store"
	"github.com/openlock/access-services/internal/locksvc/ws"
	nats "github.com/openlock/access-services/internal/nats"
)

const SERVICE_NAME = "lock"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {

	// pg connection
	dbpool, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	// mongo holds the identity records with face embeddings
	identityDB, cancelMongo, err := mongodb.ConnectToDB()
	if err != nil {
		log.Fatalf("Failed to connect to mongo: %v", err)
	}
	defer cancelMongo()
	mongodb.CreateUniqueNameIndex(identityDB, "identities")
	log.Printf("mongo connection established successfully")

	deviceStore := store.NewDeviceStore(dbpool)
	cardStore := store.NewCardStore(dbpool)
	bindingStore := store.NewBindingStore(dbpool)
	accessLogStore := store.NewAccessLogStore(dbpool)
	identityStore := store.NewIdentityStore(identityDB)

	policy := lockconfig.LoadPolicy()

	// Connect to NATS
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	hub := ws.NewHub()
	brk := broker.NewBroker(n.Conn)
	dispatcher := service.NewDispatcher()

	access := &service.AccessService{
		Resolver:   service.NewDeviceResolver(deviceStore),
		Sessions:   service.NewSessions(cardStore, bindingStore, policy.EnrollTTL),
		Recognizer: service.NewRecognizer(identityStore, policy.AcceptThreshold, policy.DedupThreshold),
		Cooldown:   service.NewCooldown(policy.FaceCooldown),
		Combined:   service.NewCombinedAuth(policy.AuthWindow),
		Dispatcher: dispatcher,
		Cards:      cardStore,
		Bindings:   bindingStore,
		Devices:    deviceStore,
		Logs:       accessLogStore,
		Notifier:   hub,
		Unlocker:   brk,
	}
	hub.Access = access
	brk.Access = access

	// subscribe to field device subjects
	subs, err := brk.Subscribe()
	if err != nil {
		log.Errorf("Error: unable to subscribe to device subjects %v", err)
		os.Exit(0)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(hub, access, deviceStore, accessLogStore)
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("LOCK_SERVICE_PORT"),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	dispatcher.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
