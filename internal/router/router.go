package router

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/carenest-next/internal/authz"
	"github.com/carenest-next/internal/cache"
	"github.com/carenest-next/internal/config"
	"github.com/carenest-next/internal/constants"
	adminhandlers "github.com/carenest-next/internal/http/handlers/admin"
	"github.com/carenest-next/internal/http/response"
	"github.com/carenest-next/internal/logger"
	"github.com/carenest-next/internal/metrics"
	"github.com/carenest-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	redisClient := cache.Client()
	settlementRunRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:settlement_run", redisPrefix),
		WindowSeconds: cfg.Security.SettlementRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.SettlementRateLimit.MaxRequests,
		Message:       "settlement run triggered too often",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 管理员接口（Token 由外部认证服务签发）
		admin := apiV1.Group("/admin")
		authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey), AdminRBACMiddleware(c.AuthzService))
		{
			// 结算
			authorized.POST("/settlements/run", RateLimitMiddleware(redisClient, settlementRunRule, KeyByAdminAndIP), adminHandler.RunSettlement)
			authorized.GET("/settlements", adminHandler.ListSettlementBatches)
			authorized.GET("/settlements/latest", adminHandler.GetLatestSettlementSummary)
			authorized.GET("/settlements/:id", adminHandler.GetSettlementBatch)

			// 薪资台账与平台收入
			authorized.GET("/salary-ledgers", adminHandler.ListSalaryLedgers)
			authorized.GET("/salary-ledgers/:provider_id", adminHandler.GetSalaryLedger)
			authorized.GET("/revenues", adminHandler.ListRevenues)

			// 扣款比例
			authorized.GET("/deduction-rates", adminHandler.ListDeductionRates)
			authorized.PUT("/deduction-rates/:type", adminHandler.UpsertDeductionRate)

			// 权限
			authorized.GET("/authz/me", adminHandler.GetAuthzMe)
			authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
		}
	}

	// 健康检查
	r.GET("/health", healthHandler)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.NoRoute(notFoundHandler)

	return r
}

func notFoundHandler(c *gin.Context) {
	response.NotFound(c, "route not found")
}

func healthHandler(c *gin.Context) {
	status, redisState := "ok", "disabled"
	if cache.Enabled() {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := cache.Ping(ctx); err != nil {
			status, redisState = "degraded", "unreachable"
			logger.Warnw("health_redis_ping_failed", "error", err)
		} else {
			redisState = "ok"
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "redis": redisState})
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
