package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yangjihun/FM-COMMIT/handlers"
	"github.com/yangjihun/FM-COMMIT/internal/config"
	"github.com/yangjihun/FM-COMMIT/internal/content"
	contenthandler "github.com/yangjihun/FM-COMMIT/internal/content/handler"
	"github.com/yangjihun/FM-COMMIT/internal/content/repository"
	"github.com/yangjihun/FM-COMMIT/internal/content/service"
	"github.com/yangjihun/FM-COMMIT/internal/database"
	"github.com/yangjihun/FM-COMMIT/internal/oidc"
	"github.com/yangjihun/FM-COMMIT/internal/sessions"
	"github.com/yangjihun/FM-COMMIT/internal/storage"
	"github.com/yangjihun/FM-COMMIT/internal/tokens"
	"github.com/yangjihun/FM-COMMIT/internal/users"
	"github.com/yangjihun/FM-COMMIT/pkg/logger"
	"github.com/yangjihun/FM-COMMIT/pkg/metrics"
	"github.com/yangjihun/FM-COMMIT/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: env=%s mongo=%v redis=%v google=%v minio=%v",
		cfg.Server.Environment, cfg.MongoDB.URI != "", cfg.RedisAddr() != "", cfg.Google.ClientID != "", cfg.MinIO.Endpoint != "")

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := gin.New()
	r.Use(logger.GinMiddleware(), gin.Recovery(), middleware.CORS(cfg.Server.AllowedOrigins))

	codec := tokens.NewCodec(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)

	rdb := connectRedis(ctx, cfg)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	if cfg.RateLimit.Enabled {
		// global, so the key comes from the bearer token rather than Authenticate
		key := middleware.ClientKey(codec)
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win, key))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst, key))
		}
	}
	revocations := sessions.NewRevocations(rdb)

	// Stores: MongoDB when configured and reachable, otherwise in-memory.
	var (
		userRepo    users.Repository                            = users.NewMemoryRepository()
		projectRepo repository.Repository[content.Project]      = repository.NewMemoryRepo[content.Project]()
		regularRepo repository.Repository[content.RegularStudy] = repository.NewMemoryRepo[content.RegularStudy]()
		studyRepo   repository.StudyRepository                  = repository.NewMemoryStudyRepo()
	)
	mongoClient := connectMongo(ctx, cfg)
	if err := checkStoreFallback(cfg, mongoClient != nil); err != nil {
		logger.Fatalf("%v", err)
	}
	if mongoClient != nil {
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		db := mongoClient.Database(cfg.MongoDB.Database)
		if err := database.EnsureIndexes(ctx, db); err != nil {
			logger.Warnf("failed to ensure indexes: %v", err)
		}
		userRepo = users.NewMongoRepository(db.Collection(database.UsersCollection), db.Collection(database.BlockedUsersCollection))
		projectRepo = repository.NewMongoRepo[content.Project](db.Collection(database.ProjectsCollection))
		regularRepo = repository.NewMongoRepo[content.RegularStudy](db.Collection(database.RegularStudyCollection))
		studyRepo = repository.NewMongoStudyRepo(db.Collection(database.StudyCollection))
	} else {
		logger.Warnf("using in-memory stores; data is lost on restart")
	}

	userSvc := users.NewService(userRepo, codec, cfg.Auth.EmailDomain)
	if cfg.Auth.AdminEmail != "" {
		if _, err := userSvc.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminName, cfg.Auth.AdminPassword); err != nil {
			logger.Fatalf("failed to bootstrap admin %s: %v", cfg.Auth.AdminEmail, err)
		}
		logger.Infof("bootstrap admin ready: %s", cfg.Auth.AdminEmail)
	}

	verifier := buildVerifier(ctx, cfg)

	var images *storage.Images
	var objects *storage.MinIOStorage
	if cfg.MinIO.Endpoint != "" {
		objects, err = storage.NewMinIOStorage(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Bucket:    cfg.MinIO.Bucket,
		})
		if err != nil {
			logger.Warnf("image uploads disabled: %v", err)
			objects = nil
		} else {
			images = storage.NewImages(objects, "/api/public/images")
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readiness(cfg, mongoClient, rdb, verifier, objects))

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	authenticate := middleware.Authenticate(codec, userSvc, revocations)
	requireAdmin := middleware.RequireAdmin(userSvc)

	api := r.Group("/api")
	handlers.NewAuthHandler(verifier, userSvc, revocations).Register(api, authenticate)
	handlers.NewUserHandler(userSvc).Register(api, authenticate, requireAdmin)

	ch := &contenthandler.Handler{
		Projects:       service.NewProjects(projectRepo),
		RegularStudies: service.NewRegularStudies(regularRepo),
		Study:          service.NewStudyService(studyRepo),
		Images:         images,
	}
	ch.RegisterAdminRoutes(api.Group("/admin/data", authenticate, requireAdmin))
	ch.RegisterPublicRoutes(api.Group("/public"))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting club site API on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

func connectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	addr := cfg.RedisAddr()
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warnf("failed to connect to Redis (%s): %v; logout revocation and shared rate limits disabled", addr, err)
		_ = client.Close()
		return nil
	}
	logger.Infof("connected to Redis: %s", addr)
	return client
}

// connectMongo retries with backoff to tolerate startup races with the
// database container.
func connectMongo(ctx context.Context, cfg *config.Config) *mongo.Client {
	if cfg.MongoDB.URI == "" {
		return nil
	}
	const maxAttempts = 5
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err == nil {
			logger.Infof("connected to MongoDB database %s", cfg.MongoDB.Database)
			return client
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	logger.Warnf("could not connect to MongoDB after %d attempts: %v", maxAttempts, lastErr)
	return nil
}

// checkStoreFallback refuses in-memory stores outside development when
// MongoDB was configured but could not be reached.
func checkStoreFallback(cfg *config.Config, connected bool) error {
	if connected || cfg.MongoDB.URI == "" || cfg.IsDevelopment() {
		return nil
	}
	return fmt.Errorf("MongoDB is configured but unreachable; refusing in-memory stores in %s", cfg.Server.Environment)
}

// buildVerifier returns nil when Google sign-in is not configured; the
// /auth/google route then answers 503.
func buildVerifier(ctx context.Context, cfg *config.Config) oidc.CredentialVerifier {
	if cfg.Google.AllowInsecure {
		logger.Warn("enabling insecure Google token verifier (integration mode)")
		return oidc.NewInsecureVerifier(cfg.Google.ClientID)
	}
	if cfg.Google.ClientID == "" {
		logger.Warn("GOOGLE_CLIENT_ID not set; Google sign-in disabled")
		return nil
	}
	v, err := oidc.NewVerifier(ctx, cfg.Google.Issuer, cfg.Google.ClientID)
	if err != nil {
		logger.Warnf("failed to initialize Google verifier: %v", err)
		return nil
	}
	return v
}

// readiness reports 200 only when every configured dependency answers.
func readiness(cfg *config.Config, mc *mongo.Client, rdb *redis.Client, verifier oidc.CredentialVerifier, objects *storage.MinIOStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		ready := true
		deps := map[string]bool{}
		check := func(name string, configured bool, ok func() bool) {
			if !configured {
				return
			}
			deps[name] = ok()
			if !deps[name] {
				ready = false
			}
		}
		check("mongodb", cfg.MongoDB.URI != "", func() bool {
			return mc != nil && mc.Ping(ctx, nil) == nil
		})
		check("redis", cfg.RedisAddr() != "", func() bool {
			return rdb != nil && rdb.Ping(ctx).Err() == nil
		})
		check("google", cfg.Google.ClientID != "" || cfg.Google.AllowInsecure, func() bool {
			return verifier != nil
		})
		check("minio", cfg.MinIO.Endpoint != "", func() bool {
			return objects != nil && objects.Ping(ctx) == nil
		})

		body := gin.H{"deps": deps, "uptime": time.Since(startTime).String()}
		if !ready {
			body["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
	}
}
