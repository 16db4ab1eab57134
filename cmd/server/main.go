package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"dashv/internal/adapter"
	"dashv/internal/codec"
	"dashv/internal/config"
	"dashv/internal/domain"
	"dashv/internal/handler"
	"dashv/internal/hub"
	"dashv/internal/repository"
	"dashv/internal/repository/sqlite"
	"dashv/internal/service"
)

func main() {
	configPath := flag.StringP("config", "c", "", "config file (default: search DASHV_CONFIG, ./dashv.yaml, XDG, /etc/dashv)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	mock := flag.Bool("mock", false, "serve canned containers instead of a real cluster")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting DashV server...")

	cfg, loadedFrom, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if loadedFrom != "" {
		log.Printf("Config loaded: %s", loadedFrom)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *mock {
		cfg.Proxmox.Mock = true
	}

	catalog, err := codec.LoadCatalog(cfg.Discovery.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	// Database failures degrade to memory-only mode
	var repo repository.Repository
	if sqliteRepo, err := sqlite.New(cfg.Database.Path); err != nil {
		log.Printf("Warning: database not available, running in memory mode: %v", err)
		repo = repository.Unavailable{}
	} else {
		repo = sqliteRepo
		log.Printf("Database opened: %s", cfg.Database.Path)
	}
	defer repo.Close()

	eventBus := service.NewEventBus()

	sseHub := hub.New()
	hubCtx, hubCancel := context.WithCancel(context.Background())
	go sseHub.Run(hubCtx)

	eventChan := make(chan domain.ChangeEvent, 100)
	eventBus.Subscribe(eventChan)
	go func() {
		for event := range eventChan {
			sseHub.Publish(event)
		}
	}()

	discovery := service.NewDiscovery(service.NewMapper(catalog), eventBus, repo, service.DiscoveryConfig{
		Interval:    cfg.Discovery.Interval.Duration(),
		Concurrency: cfg.Discovery.Concurrency,
	})
	dashboard := service.NewDashboard(discovery, eventBus, repo)
	if err := dashboard.Load(context.Background()); err != nil {
		log.Printf("Warning: dashboard preferences not loaded: %v", err)
	}

	provisioner := adapter.NewProvisioner(adapter.NewSSHRunner(
		cfg.SSH.ConnectTimeout.Duration(),
		cfg.SSH.CommandTimeout.Duration(),
	))
	connections := service.NewConnectionManager(discovery, repo, provisioner, service.ConnectionConfig{
		RequestTimeout: cfg.Discovery.RequestTimeout.Duration(),
		VerifyTLS:      cfg.Proxmox.VerifyTLS,
		Concurrency:    cfg.Discovery.Concurrency,
		SSHPort:        cfg.SSH.Port,
		Account:        cfg.SSH.Account,
		TokenName:      cfg.SSH.TokenName,
	}, nil)

	servicesHandler := handler.NewServicesHandler(dashboard, catalog)
	scanner := adapter.NewPortScanner()
	if scanner.Available() {
		servicesHandler.SetPortProber(scanner)
	} else {
		log.Printf("Warning: nmap not found, port probing disabled")
	}

	mux := http.NewServeMux()
	handler.Routes(mux, servicesHandler, handler.NewProxmoxHandler(connections, discovery), sseHub)

	finalHandler := handler.Chain(mux,
		handler.Recover,
		handler.CORS,
		handler.Logger,
	)

	// No WriteTimeout: the SSE stream and queued discovery triggers are long-lived
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           finalHandler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	var fallback *service.ConnectRequest
	if cfg.Proxmox.Configured() {
		fallback = &service.ConnectRequest{
			Host:    cfg.Proxmox.Host,
			Port:    cfg.Proxmox.Port,
			User:    cfg.Proxmox.User,
			Token:   cfg.Proxmox.Token,
			TokenID: cfg.Proxmox.TokenID,
		}
	}
	restoreCtx, restoreCancel := context.WithTimeout(context.Background(), 30*time.Second)
	connections.Restore(restoreCtx, cfg.Proxmox.Mock, fallback)
	restoreCancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	discovery.Stop()
	hubCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}
