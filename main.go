package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	apihttp "rollcall/internal/api/http"
	attendanceapp "rollcall/internal/attendance/application"
	attendance "rollcall/internal/attendance/domain"
	attendancepg "rollcall/internal/attendance/infrastructure/postgres"
	"rollcall/internal/auth"
	"rollcall/internal/directory"
	"rollcall/internal/engine"
	"rollcall/internal/identity"
	"rollcall/internal/notify"
	"rollcall/internal/observability/metrics"
	presence "rollcall/internal/presence/domain"
	"rollcall/internal/presence/infrastructure/arp"
	"rollcall/internal/presence/infrastructure/static"
	scheduleapp "rollcall/internal/schedule/application"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatalf("timezone error: %v", err)
	}

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
	}

	client, err := directory.NewClient(cfg.DirectoryBaseURL, cfg.DirectoryAPIKey)
	if err != nil {
		logger.Fatalf("directory client error: %v", err)
	}

	m := metrics.New()

	var mirror attendanceapp.Mirror
	var mirrorRepo *attendancepg.Repository
	if db != nil {
		mirrorRepo = attendancepg.NewRepository(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := mirrorRepo.EnsureSchema(ctx); err != nil {
			cancel()
			logger.Fatalf("mirror schema error: %v", err)
		}
		cancel()
		mirror = mirrorRepo
	}

	cache := scheduleapp.NewCache(client, cfg.GroupsPath, logger)
	resolver := identity.NewResolver(client, cfg.GroupsPath, logger)
	recorder := attendanceapp.NewRecorder(client, cfg.AttendanceCollection, cfg.MarkedBy, mirror, m, logger)

	var source presence.Source
	if cfg.StaticStations != "" {
		stations, err := static.ParseStations(cfg.StaticStations)
		if err != nil {
			logger.Fatalf("static stations error: %v", err)
		}
		source = static.NewSource(stations)
	} else {
		sourceOpts := []arp.Option{}
		if cfg.ARPTablePath != "" {
			sourceOpts = append(sourceOpts, arp.WithTablePath(cfg.ARPTablePath))
		}
		if cfg.ARPInterface != "" {
			sourceOpts = append(sourceOpts, arp.WithInterface(cfg.ARPInterface))
		}
		source = arp.NewSource(sourceOpts...)
	}

	clock := engine.NewSystemClock(location)
	eng := engine.New(engine.Config{
		Groups:          cfg.Groups,
		PollInterval:    time.Duration(cfg.PollInterval),
		RefreshInterval: time.Duration(cfg.RefreshInterval),
		SyncInterval:    time.Duration(cfg.SyncInterval),
	}, source, cache, resolver, recorder, clock, m, logger)
	if cfg.AlertWebhookURL != "" {
		eng.SetNotifier(notify.NewWebhookNotifier(cfg.AlertWebhookURL))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go eng.Run(ctx)

	var records apihttp.RecordSource = recorder
	if mirrorRepo != nil {
		records = mirrorRecordSource{repo: mirrorRepo}
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/status", apihttp.NewStatusHandler(eng))
	mux.Handle("/api/v1/devices", apihttp.NewDevicesHandler(eng))
	mux.Handle("/api/v1/attendance", apihttp.NewManualEntryHandler(cache, resolver, recorder, clock))
	mux.Handle("/api/v1/attendance/export", apihttp.NewExportHandler(records, clock))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Printf("http listening on %s", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal(err)
	}
}

// mirrorRecordSource serves exports from the local mirror instead of
// the remote store.
type mirrorRecordSource struct {
	repo *attendancepg.Repository
}

func (s mirrorRecordSource) RecordsForDate(ctx context.Context, date string) ([]attendance.Record, error) {
	return s.repo.ListByDate(ctx, date)
}

type config struct {
	HTTPAddr             string        `yaml:"http_addr"`
	DirectoryBaseURL     string        `yaml:"directory_base_url"`
	DirectoryAPIKey      string        `yaml:"directory_api_key"`
	GroupsPath           string        `yaml:"groups_path"`
	Groups               []string      `yaml:"groups"`
	AttendanceCollection string        `yaml:"attendance_collection"`
	MarkedBy             string        `yaml:"marked_by"`
	Timezone             string   `yaml:"timezone"`
	PollInterval         duration `yaml:"poll_interval"`
	RefreshInterval      duration `yaml:"refresh_interval"`
	SyncInterval         duration `yaml:"sync_interval"`
	ARPTablePath         string   `yaml:"arp_table_path"`
	ARPInterface         string   `yaml:"arp_interface"`
	StaticStations       string   `yaml:"static_stations"`
	DatabaseURL          string   `yaml:"database_url"`
	AlertWebhookURL      string   `yaml:"alert_webhook_url"`
	JWTSecret            string   `yaml:"jwt_secret"`
}

// duration lets yaml carry intervals as "5s" / "5m" strings.
type duration time.Duration

func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// loadConfig reads env first, then lets an optional yaml file named by
// ROLLCALL_CONFIG override.
func loadConfig() config {
	cfg := config{
		HTTPAddr:             getenvDefault("HTTP_ADDR", ":8080"),
		DirectoryBaseURL:     getenvDefault("DIRECTORY_BASE_URL", ""),
		DirectoryAPIKey:      getenvDefault("DIRECTORY_API_KEY", ""),
		GroupsPath:           getenvDefault("GROUPS_PATH", "batches"),
		Groups:               splitCSV(getenvDefault("GROUPS", "")),
		AttendanceCollection: getenvDefault("ATTENDANCE_COLLECTION", "attendance"),
		MarkedBy:             getenvDefault("MARKED_BY", "rollcall-controller"),
		Timezone:             getenvDefault("TIMEZONE", "Local"),
		PollInterval:         duration(getenvDuration("POLL_INTERVAL", engine.DefaultPollInterval)),
		RefreshInterval:      duration(getenvDuration("REFRESH_INTERVAL", engine.DefaultRefreshInterval)),
		SyncInterval:         duration(getenvDuration("SYNC_INTERVAL", engine.DefaultSyncInterval)),
		ARPTablePath:         getenvDefault("ARP_TABLE_PATH", ""),
		ARPInterface:         getenvDefault("ARP_INTERFACE", ""),
		StaticStations:       getenvDefault("STATIC_STATIONS", ""),
		DatabaseURL:          getenvDefault("DATABASE_URL", ""),
		AlertWebhookURL:      getenvDefault("ALERT_WEBHOOK_URL", ""),
		JWTSecret:            getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}

	if path := os.Getenv("ROLLCALL_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("config file error: %v", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("config parse error: %v", err)
		}
	}

	if cfg.DirectoryBaseURL == "" {
		log.Fatal("DIRECTORY_BASE_URL is required")
	}
	if len(cfg.Groups) == 0 {
		log.Fatal("GROUPS is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
