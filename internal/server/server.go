package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gridline/fraudgraph/backend/internal/cache"
	"github.com/gridline/fraudgraph/backend/internal/queue"
	mid "github.com/gridline/fraudgraph/backend/internal/server/middleware"
	"github.com/gridline/fraudgraph/backend/internal/storage"
	"github.com/gridline/fraudgraph/backend/internal/util"
	"github.com/gridline/fraudgraph/backend/pkg/detect"
	"github.com/gridline/fraudgraph/backend/pkg/logger"
	storepgx "github.com/gridline/fraudgraph/backend/pkg/store/pgx"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// DetectionParams reads the detection thresholds from the environment,
// falling back to the standard defaults.
func DetectionParams() detect.Params {
	d := detect.DefaultParams()
	return detect.Params{
		MinChainLength:   int(util.GetEnvNumeric("DETECT_MIN_CHAIN_LENGTH", d.MinChainLength)),
		MaxInvoices:      int(util.GetEnvNumeric("DETECT_MAX_INVOICES", d.MaxInvoices)),
		MinVolume:        util.GetEnvNumeric("DETECT_MIN_VOLUME", int(d.MinVolume)),
		MinOwnership:     util.GetEnvNumeric("DETECT_MIN_OWNERSHIP", int(d.MinOwnership)),
		MinConcentration: util.GetEnvNumeric("DETECT_MIN_CONCENTRATION", int(d.MinConcentration)),
	}
}

// CentralityCacheFromEnv wires the Redis centrality cache when REDIS_URL is
// set. A nil cache is valid; centrality is then recomputed per analysis.
func CentralityCacheFromEnv() detect.CentralityCache {
	redisURL := util.GetEnv("REDIS_URL")
	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Fatal("Invalid REDIS_URL", "err", err)
	}
	ttl := time.Duration(util.GetEnvNumeric("CENTRALITY_CACHE_TTL_SECONDS", 300)) * time.Second
	return cache.NewCentralityCache(redis.NewClient(opts), ttl)
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	jwksUrl := util.GetEnv("AUTH_URL") + "/jwks"
	k, err := keyfunc.NewDefault([]string{jwksUrl})
	if err != nil {
		logger.Fatal("Failed to load jwks keys", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	s3 := storage.NewS3Client(ctx)

	graphStore := storepgx.NewGraphDBStorageWithConnection(conn)
	analyzer := detect.NewAnalyzer(graphStore, DetectionParams(), CentralityCacheFromEnv())

	masterAPIKey := util.GetEnv("MASTER_API_KEY")
	masterUserID, _ := strconv.ParseInt(util.GetEnv("MASTER_USER_ID"), 10, 64)
	masterUserRole := util.GetEnv("MASTER_USER_ROLE")

	e.Use(mid.AppContextMiddleware(&mid.App{
		DBConn:         conn,
		Queue:          ch,
		Key:            &k,
		S3:             s3,
		Store:          graphStore,
		Analyzer:       analyzer,
		MasterAPIKey:   masterAPIKey,
		MasterUserID:   masterUserID,
		MasterUserRole: masterUserRole,
	}))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
