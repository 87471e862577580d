package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"cashpop-social/apps/relationship-service/dao"
	"cashpop-social/apps/relationship-service/handler"
	"cashpop-social/apps/relationship-service/model"
	"cashpop-social/apps/relationship-service/service"
	"cashpop-social/apps/relationship-service/suggestion"
	syncpkg "cashpop-social/apps/relationship-service/sync"
	"cashpop-social/pkg/lifecycle"
	"cashpop-social/pkg/logger"
	"cashpop-social/pkg/server"
	"cashpop-social/pkg/snowflake"
	"cashpop-social/pkg/telemetry"
	"cashpop-social/pkg/userdir"
)

const serviceName = "relationship-service"

func main() {
	// 本地开发加载.env，部署环境直接用环境变量
	_ = godotenv.Load()

	if err := telemetry.InitGlobal(telemetry.DefaultConfig(serviceName)); err != nil {
		panic("Failed to init telemetry: " + err.Error())
	}
	if err := snowflake.InitGlobalSnowflake(1); err != nil {
		panic("Failed to init snowflake: " + err.Error())
	}

	// 创建应用程序
	app := server.NewApplication(serviceName)
	app.EnableHTTP()

	cfg := app.GetConfig()

	// 初始化PostgreSQL连接
	postgreSQL := app.GetPostgreSQL()

	// 自动迁移数据库表结构
	if err := postgreSQL.AutoMigrate(
		&model.Relationship{},
		&model.FriendSuggestion{},
	); err != nil {
		panic("Failed to migrate database: " + err.Error())
	}

	// 用户目录客户端
	directory := userdir.NewHTTPDirectory(userdir.Config{
		BaseURL:      cfg.Directory.BaseURL,
		Timeout:      cfg.Directory.Timeout,
		CacheTTL:     cfg.Directory.CacheTTL,
		CacheMaxSize: cfg.Directory.CacheMaxSize,
	})

	// 初始化DAO层
	relationshipDAO := dao.NewRelationshipDAO(postgreSQL)
	suggestionDAO := dao.NewSuggestionDAO(postgreSQL)

	// 初始化Service层
	svc := service.NewService(relationshipDAO, suggestionDAO, directory, app.GetRedisClient(), app.GetKafkaProducer(), app.GetLogger())

	// 推荐管理器，注册共同好友策略
	suggestionManager := suggestion.NewManager(relationshipDAO, suggestionDAO, directory, app.GetLogger())
	suggestionManager.Register(suggestion.NewMutualFriendsStrategy(relationshipDAO))

	// 同步管道
	syncer := syncpkg.NewSyncer(svc, directory, suggestionManager, app.GetLogger(), cfg.Sync)

	// 初始化Handler
	httpHandler := handler.NewHTTPHandler(svc, suggestionManager, syncer, app.GetLogger())

	// 注册HTTP路由
	app.RegisterHTTPRoutes(func(engine *gin.Engine) {
		engine.Use(otelgin.Middleware(serviceName))
		httpHandler.RegisterRoutes(engine)
	})

	// 周期清理过期推荐
	if cfg.Suggestion.CleanupInterval > 0 {
		registerCleanupHook(app, suggestionManager, cfg.Suggestion.CleanupInterval, cfg.Suggestion.ExpireAfter)
	}

	app.AddLifecycleHook(lifecycle.Hook{
		Name:     "telemetry",
		Priority: 400,
		OnStop: func(ctx context.Context) error {
			return telemetry.ShutdownGlobal(ctx)
		},
	})

	// 运行应用程序
	if err := app.Run(); err != nil {
		panic(err)
	}
}

// registerCleanupHook 注册推荐清理定时任务
func registerCleanupHook(app *server.Application, manager *suggestion.Manager, interval, expireAfter time.Duration) {
	stopped := make(chan struct{})
	expireDays := int(expireAfter.Hours() / 24)
	if expireDays <= 0 {
		expireDays = 30
	}

	app.AddLifecycleHook(lifecycle.Hook{
		Name:     "suggestion-cleanup",
		Priority: 200,
		OnStart: func(ctx context.Context) error {
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-stopped:
						return
					case <-ticker.C:
						if _, err := manager.CleanupExpired(context.Background(), expireDays); err != nil {
							app.GetLogger().Error(context.Background(), "Suggestion cleanup failed",
								logger.F("error", err.Error()))
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stopped)
			return nil
		},
	})
}
