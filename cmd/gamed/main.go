package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/xgacha/internal/content"
	"github.com/lk2023060901/xgacha/internal/dispatch"
	"github.com/lk2023060901/xgacha/internal/game"
	"github.com/lk2023060901/xgacha/internal/kv"
	"github.com/lk2023060901/xgacha/internal/kv/bolt"
	"github.com/lk2023060901/xgacha/internal/kv/postgres"
	"github.com/lk2023060901/xgacha/internal/kv/redis"
	"github.com/lk2023060901/xgacha/internal/metrics"
	"github.com/lk2023060901/xgacha/internal/repository"
	"github.com/lk2023060901/xgacha/internal/service"
	"github.com/lk2023060901/xgacha/pkg/config"
	"github.com/lk2023060901/xgacha/pkg/logger"
)

// LedgerConfig 账本后端选择
type LedgerConfig struct {
	// Backend: memory / redis / bolt / postgres
	Backend string `mapstructure:"backend" validate:"omitempty,oneof=memory redis bolt postgres"`
	// Codec: json / msgpack
	Codec      string `mapstructure:"codec" validate:"omitempty,oneof=json msgpack"`
	Compressed bool   `mapstructure:"compressed"`

	BoltPath string          `mapstructure:"bolt_path"`
	Redis    redis.Config    `mapstructure:"redis"`
	Postgres postgres.Config `mapstructure:"postgres"`
}

// OpsConfig 运维端口
type OpsConfig struct {
	Addr string `mapstructure:"addr"`
}

// DispatchConfig 指令调度
type DispatchConfig struct {
	Workers int           `mapstructure:"workers"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ContentRecord 配置文件里的内容条目
type ContentRecord struct {
	CharacterID string `mapstructure:"character_id"`
	MediaID     string `mapstructure:"media_id"`
	Name        string `mapstructure:"name"`
	MediaTitle  string `mapstructure:"media_title"`
	Role        string `mapstructure:"role"`
	Popularity  int    `mapstructure:"popularity"`
}

// ContentConfig 静态内容目录
type ContentConfig struct {
	Records  []ContentRecord `mapstructure:"records"`
	Disabled []string        `mapstructure:"disabled"`
}

// Config gamed 的完整配置
type Config struct {
	Log      logger.Config  `mapstructure:"log"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Ops      OpsConfig      `mapstructure:"ops"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Content  ContentConfig  `mapstructure:"content"`

	// MetricsNamespace 指标命名空间，默认 xgacha
	MetricsNamespace string `mapstructure:"metrics_namespace"`
	// StatsCron 周期性状态日志的 cron 表达式
	StatsCron string `mapstructure:"stats_cron"`
}

func main() {
	configPath := pflag.String("config", "", "path to config file")
	listenAddr := pflag.String("listen", "", "ops listen address override")
	pflag.Parse()

	// 1. 加载配置
	var cfg Config
	mgr := config.NewManager()
	if *configPath != "" {
		if err := mgr.LoadFile(*configPath); err != nil {
			panic(err)
		}
	}
	mgr.BindEnv("XGACHA")
	if err := mgr.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	if *listenAddr != "" {
		cfg.Ops.Addr = *listenAddr
	}
	if cfg.Ops.Addr == "" {
		cfg.Ops.Addr = ":9090"
	}
	if cfg.StatsCron == "" {
		cfg.StatsCron = "@every 1m"
	}

	// 2. 初始化主日志
	l, err := logger.New(&cfg.Log)
	if err != nil {
		panic(err)
	}
	defer l.Sync() //nolint:errcheck

	if err := run(&cfg, l); err != nil {
		l.Error("gamed exited with error", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg *Config, l logger.Logger) error {
	// 3. 打开账本存储并套上指标
	store, err := openStore(cfg.Ledger)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	m := metrics.New(cfg.MetricsNamespace)
	registry := prometheus.NewRegistry()
	if err := m.Register(registry); err != nil {
		return err
	}
	instrumented := metrics.InstrumentStore(store, m)

	codecName := cfg.Ledger.Codec
	if codecName == "" {
		codecName = "json"
	}
	codec, err := kv.NewCodec(codecName, cfg.Ledger.Compressed)
	if err != nil {
		return err
	}

	// 4. 装配仓库、内容目录与服务
	repo := repository.New(instrumented, codec, l)
	resolver := buildResolver(cfg.Content)
	core := service.NewCore(l, repo, game.SystemClock{}, m)
	svcs := service.NewServices(l, core, resolver)

	// 5. 指令调度器
	dispatcher, err := dispatch.New(l, dispatch.Options{
		Workers: cfg.Dispatch.Workers,
		Timeout: cfg.Dispatch.Timeout,
	})
	if err != nil {
		return err
	}
	defer dispatcher.Close()

	// 6. 运维端口
	srv := &http.Server{
		Addr:    cfg.Ops.Addr,
		Handler: opsRouter(l, svcs, registry),
	}

	// 7. 周期性状态日志
	c := cron.New()
	if _, err := c.AddFunc(cfg.StatsCron, func() {
		l.Info("gamed stats", "inflight", dispatcher.Running())
	}); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	// 8. 启动并等待退出信号
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Info("ops server listening", "addr", cfg.Ops.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore 按配置选择账本后端，缺省用内存实现
func openStore(cfg LedgerConfig) (kv.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return kv.NewMemoryStore(), nil
	case "bolt":
		return bolt.Open(cfg.BoltPath)
	case "redis":
		return redis.New(&cfg.Redis)
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return postgres.New(ctx, &cfg.Postgres)
	default:
		return nil, errors.Newf("unknown ledger backend: %s", cfg.Backend)
	}
}

func buildResolver(cfg ContentConfig) content.Resolver {
	records := make([]content.Record, 0, len(cfg.Records))
	for _, r := range cfg.Records {
		records = append(records, content.Record{
			CharacterID: r.CharacterID,
			MediaID:     r.MediaID,
			Name:        r.Name,
			MediaTitle:  r.MediaTitle,
			Role:        content.Role(r.Role),
			Popularity:  r.Popularity,
		})
	}
	resolver := content.NewStaticResolver(records...)
	resolver.Disable(cfg.Disabled...)
	return resolver
}

// opsRouter 运维路由：健康检查、指标、只读的库存视图
func opsRouter(l logger.Logger, svcs *service.Services, registry *prometheus.Registry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	r.GET("/ops/guilds/:guild/players/:discord/inventory", func(c *gin.Context) {
		snap, err := svcs.Economy.Refresh(c.Request.Context(), c.Param("discord"), c.Param("guild"))
		if err != nil {
			l.Warn("inventory view failed", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	return r
}
