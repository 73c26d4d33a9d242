// Command judge-worker consumes SubmissionRequest messages off a Kafka
// topic, grades each with internal/pipeline, caches a status snapshot for
// polling clients, and posts the finished result to the request's
// callback URL. Grounded on cmd/judge-service/main.go's wiring order
// (config → logger → cache → storage → compile cache → queue → pipeline
// → HTTP server → graceful shutdown).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"judgeengine/internal/cache"
	"judgeengine/internal/callback"
	"judgeengine/internal/compilecache"
	"judgeengine/internal/model"
	"judgeengine/internal/pipeline"
	"judgeengine/internal/queue"
	"judgeengine/internal/storage"
	"judgeengine/internal/testsource"
	"judgeengine/pkg/apperrors"
	"judgeengine/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/judge_worker.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() { _ = logger.Sync() }()

	statusCache := cache.NewRedis(appCfg.Redis.Addr, appCfg.Redis.Password, appCfg.Redis.DB)
	defer statusCache.Close()

	objStorage, err := storage.NewMinIO(appCfg.MinIO.Endpoint, appCfg.MinIO.AccessKey, appCfg.MinIO.SecretKey, appCfg.MinIO.UseSSL)
	if err != nil {
		logger.Error(context.Background(), "init minio failed", zap.Error(err))
		return
	}

	var compileCache *compilecache.Cache
	if appCfg.MySQL.DSN != "" {
		provider, err := compilecache.NewMySQLProvider(context.Background(), appCfg.MySQL.DSN)
		if err != nil {
			logger.Error(context.Background(), "init compile cache failed", zap.Error(err))
			return
		}
		defer provider.Close()
		compileCache = compilecache.New(provider)
	}

	resolver := testsource.NewConfigResolver(appCfg.Problem.KeyPrefix, []byte(appCfg.Problem.EncryptionKey))
	source := testsource.New(resolver, objStorage, statusCache)

	poster := callback.New()
	pipe := pipeline.New(appCfg.Worker.WorkRoot)
	if compileCache != nil {
		pipe = pipe.WithCompileCache(compileCache)
	}

	worker := &worker{
		pipeline:  pipe,
		source:    source,
		status:    statusCache,
		statusTTL: appCfg.Status.TTL,
		poster:    poster,
		broker:    newProgressBroker(),
		sem:       make(chan struct{}, appCfg.Worker.PoolSize),
	}

	consumer := queue.NewKafkaConsumer(appCfg.Kafka.Brokers, appCfg.Kafka.Topic, appCfg.Kafka.ConsumerGroup)
	defer consumer.Close()

	consumeCtx, cancelConsume := context.WithCancel(context.Background())
	consumeErrCh := make(chan error, 1)
	go func() {
		consumeErrCh <- consumer.Run(consumeCtx, worker.handleMessage)
	}()

	httpServer := buildHTTPServer(appCfg.Server, worker)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		cancelConsume()
		return
	}

	httpErrCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "judge worker http server started", zap.String("addr", appCfg.Server.Addr))
		httpErrCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case err := <-consumeErrCh:
		if err != nil {
			logger.Error(context.Background(), "kafka consumer stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	cancelConsume()
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

// worker grades one submission at a time per sem slot, bounding how many
// goroutines run internal/pipeline concurrently. This lives at the
// cmd/judge-worker layer rather than inside Pipeline.Run itself, since
// Pipeline.Run always grades exactly one submission per call.
type worker struct {
	pipeline  *pipeline.Pipeline
	source    *testsource.Source
	status    cache.Cache
	statusTTL time.Duration
	poster    *callback.Poster
	broker    *progressBroker

	sem chan struct{}
}

func (w *worker) acquireSlot(ctx context.Context) error {
	select {
	case w.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *worker) releaseSlot() {
	select {
	case <-w.sem:
	default:
	}
}

func (w *worker) handleMessage(ctx context.Context, msg queue.Message) error {
	var req model.SubmissionRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		appErr := apperrors.Wrap(err, apperrors.InvalidParams)
		logger.Error(ctx, "discarding malformed submission message", zap.Int("code", int(appErr.Code)), zap.Error(appErr))
		return nil // malformed messages are not retried
	}

	submissionID := string(msg.Key)
	if submissionID == "" {
		submissionID = uuid.NewString()
	}

	if err := w.acquireSlot(ctx); err != nil {
		return err
	}
	defer w.releaseSlot()

	result, err := w.grade(ctx, submissionID, req)
	if err != nil {
		return nil // a rejected request (validation failure) is not retryable
	}

	if req.CallbackURL != "" {
		if err := w.poster.Post(ctx, req.CallbackURL, result); err != nil {
			logger.Error(ctx, "callback delivery failed", zap.String("submission_id", submissionID), zap.Error(err))
		}
	}

	return nil
}

// grade runs one submission through the pipeline, publishing a running ->
// done/error status sequence to the status cache and, frame by frame, to
// any subscriber of submissionID's progress stream. Shared by the Kafka
// consumer path and the synchronous /submit HTTP endpoint.
func (w *worker) grade(ctx context.Context, submissionID string, req model.SubmissionRequest) (model.SubmissionResult, error) {
	w.publishStatus(ctx, submissionID, statusEnvelope{State: "running"})

	result, err := w.pipeline.RunWithProgress(ctx, req, w.source, func(index int, res model.RunResult) {
		w.broker.publish(submissionID, progressFrame{Index: index, Result: res})
	})
	if err != nil {
		appErr := apperrors.Wrap(err, apperrors.InvalidParams)
		logger.Error(ctx, "pipeline run failed", zap.String("submission_id", submissionID), zap.Int("code", int(appErr.Code)), zap.Error(appErr))
		w.publishStatus(ctx, submissionID, statusEnvelope{State: "error", Error: appErr.Error()})
		w.broker.publish(submissionID, progressFrame{Done: true})
		return model.SubmissionResult{}, err
	}

	w.publishStatus(ctx, submissionID, statusEnvelope{State: "done", Result: &result})
	final := result.Overall
	w.broker.publish(submissionID, progressFrame{Done: true, Final: &final})
	return result, nil
}

// statusEnvelope is what the /status/{id} endpoint serves: a submission is
// either still running, failed before grading produced a result, or has a
// finished SubmissionResult. This is intentionally distinct from
// model.SubmissionResult, whose Status taxonomy has no "pending" verdict.
type statusEnvelope struct {
	State  string                  `json:"state"`
	Result *model.SubmissionResult `json:"result,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

func (w *worker) publishStatus(ctx context.Context, submissionID string, env statusEnvelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		return
	}
	if err := w.status.Set(ctx, statusKey(submissionID), string(raw), w.statusTTL); err != nil {
		logger.Warn(ctx, "publish status failed", zap.String("submission_id", submissionID), zap.Error(err))
	}
}

func statusKey(submissionID string) string {
	return "judge:status:" + submissionID
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Debug/ops surface, not a browser-facing API: any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func buildHTTPServer(cfg ServerConfig, w *worker) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/submit", func(c *gin.Context) {
		var req model.SubmissionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, apperrors.Wrap(err, apperrors.InvalidParams))
			return
		}
		submissionID := uuid.NewString()
		result, err := w.grade(c.Request.Context(), submissionID, req)
		if err != nil {
			writeError(c, apperrors.Wrap(err, apperrors.InvalidParams))
			return
		}
		c.JSON(http.StatusOK, gin.H{"submissionId": submissionID, "result": result})
	})

	api := router.Group("/status")
	api.GET("/:id", func(c *gin.Context) {
		raw, err := w.status.Get(c.Request.Context(), statusKey(c.Param("id")))
		if err != nil {
			writeError(c, apperrors.Wrap(err, apperrors.SubmissionNotFound))
			return
		}
		c.Data(http.StatusOK, "application/json", []byte(raw))
	})
	api.GET("/:id/stream", func(c *gin.Context) {
		streamProgress(c, w.broker, c.Param("id"))
	})

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// streamProgress upgrades to a websocket connection and relays submissionID's
// progress frames as the grading goroutine produces them, closing once a
// Done frame (success or pipeline error) arrives.
func streamProgress(c *gin.Context, broker *progressBroker, submissionID string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	frames, unsubscribe := broker.subscribe(submissionID)
	defer unsubscribe()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
			if frame.Done {
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
