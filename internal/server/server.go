package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"storyreel/internal/ai/component"
	"storyreel/internal/config"
	"storyreel/internal/handler"
	storyHandler "storyreel/internal/handler/story"
	"storyreel/internal/pkg/cache"
	"storyreel/internal/pkg/ffmpeg"
	"storyreel/internal/pkg/mongodb"
	"storyreel/internal/pkg/storagefactory"
	"storyreel/internal/pkg/storytools"
	"storyreel/internal/pkg/storytools/providers"
	storyRepo "storyreel/internal/repository/story"
	"storyreel/internal/server/middleware"
	storyService "storyreel/internal/service/story"
)

// Server HTTP 服务器
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	mongo  *mongodb.Client
	redis  *cache.RedisCache
}

// New 创建服务器实例
func New(cfg *config.Config) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	engine := gin.New()

	// 初始化 MongoDB (可选)
	var mongoClient *mongodb.Client
	if cfg.Mongo.URI != "" {
		client, err := mongodb.New(&cfg.Mongo)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to MongoDB, continuing without it")
		} else {
			mongoClient = client
			log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

			// 创建索引
			if err := mongodb.EnsureIndexes(mongoClient.Database()); err != nil {
				log.Warn().Err(err).Msg("failed to ensure indexes")
			}
		}
	}

	// 初始化 Redis (可选)
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without it")
		} else {
			redisCache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	srv := &Server{
		cfg:    cfg,
		engine: engine,
		mongo:  mongoClient,
		redis:  redisCache,
	}

	// 组装生成服务
	storySvc, err := srv.buildStoryService()
	if err != nil {
		log.Warn().Err(err).Msg("story generation disabled")
	}

	// 设置路由
	srv.setupRoutes(storySvc)

	return srv, nil
}

// buildStoryService 按配置组装故事视频生成服务
// 任一必需依赖缺失时返回错误，对应接口不注册
func (s *Server) buildStoryService() (*storyService.StoryService, error) {
	if s.cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("ai.api_key is not configured")
	}

	chatModel, err := component.NewChatModel(context.Background(), &s.cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	llm := providers.NewEinoProvider(chatModel)

	image, err := BuildImageProvider(&s.cfg.Image)
	if err != nil {
		return nil, err
	}

	tts, err := providers.NewOpenAITTSProvider(providers.OpenAITTSConfig{
		APIKey:  s.cfg.TTS.APIKey,
		BaseURL: s.cfg.TTS.BaseURL,
		Model:   s.cfg.TTS.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tts provider: %w", err)
	}

	store, err := storagefactory.NewStorage(context.Background(), &s.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	var repo storyRepo.StoryRepository
	if s.mongo != nil {
		repo = storyRepo.NewStoryRepo(s.mongo.Database())
	}

	return storyService.NewStoryService(
		s.cfg,
		llm,
		image,
		tts,
		ffmpeg.NewClient(),
		store,
		repo,
		s.redis,
	), nil
}

// BuildImageProvider 按配置创建图片生成提供者
func BuildImageProvider(cfg *config.ImageConfig) (storytools.ImageProvider, error) {
	switch cfg.Provider {
	case "ark":
		provider, err := providers.NewArkImageProvider(providers.ArkImageConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ark image provider: %w", err)
		}
		return provider, nil
	case "openai", "":
		provider, err := providers.NewOpenAIImageProvider(providers.OpenAIImageConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create image provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported image provider: %s", cfg.Provider)
	}
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(storySvc *storyService.StoryService) {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	healthHandler := handler.NewHealthHandler()
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1
	v1 := s.engine.Group("/api/v1")
	{
		if storySvc != nil {
			storyHdl := storyHandler.NewHandler(storySvc)
			v1.POST("/stories/generate", storyHdl.Generate)
			v1.GET("/stories/:id", storyHdl.Get)
			v1.GET("/stories", storyHdl.List)
		} else {
			log.Warn().Msg("story service not configured, story endpoints disabled")
		}
	}
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		// 关闭连接
		if s.mongo != nil {
			if err := s.mongo.Close(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to close MongoDB connection")
			}
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
