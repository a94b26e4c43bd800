package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kasuganosora/sedna-go/pkg/api"
	"github.com/kasuganosora/sedna-go/pkg/config"
	"github.com/kasuganosora/sedna-go/pkg/embedded"
	"github.com/kasuganosora/sedna-go/server/httpapi"
	mcpserver "github.com/kasuganosora/sedna-go/server/mcp"
)

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func main() {
	// 加载配置
	cfg := config.LoadConfigOrDefault()

	logger := api.NewDefaultLogger(api.ParseLogLevel(cfg.Log.Level))
	if cfg.Log.Timestamps {
		logger = logger.WithTimestamps()
	}
	logger.Info("加载配置: store=%s, database=%s", cfg.Embedded.Store, cfg.Connection.Database)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	logger.Info("服务器停止")
}

func run(ctx context.Context, cfg *config.Config, logger api.Logger) error {
	// 嵌入式引擎
	engine, err := embedded.Open(ctx, cfg.Embedded, logger)
	if err != nil {
		return err
	}
	defer engine.Close()
	engine.Register(embedded.DriverName)

	opts := api.OptionsFromConfig(cfg.Connection, logger)

	// 检查默认连接参数是否可用
	if err := api.ConnectFunc(ctx, opts, func(s *api.Session) error { return nil }); err != nil {
		return err
	}

	errCh := make(chan error, 2)
	var servers []shutdowner

	// 条件启动 HTTP API
	if cfg.HTTPAPI.Enabled {
		httpServer := httpapi.NewServer(opts, &cfg.HTTPAPI, logger)
		httpServer.SetMonitor(engine.Metrics(), engine.SlowLog())
		servers = append(servers, httpServer)
		go func() { errCh <- httpServer.Start() }()
		logger.Info("HTTP API 服务器: %s", cfg.GetHTTPAPIAddress())
	}

	// 条件启动 MCP
	if cfg.MCP.Enabled {
		mcpSrv := mcpserver.NewServer(opts, &cfg.MCP, logger)
		mcpSrv.SetMonitor(engine.Metrics(), engine.SlowLog())
		servers = append(servers, mcpSrv)
		go func() { errCh <- mcpSrv.Start() }()
		logger.Info("MCP 服务器: %s", cfg.GetMCPAddress())
	}

	if len(servers) == 0 {
		logger.Info("没有启用任何服务, 退出")
		return nil
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("服务器退出: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("服务器关闭失败: %v", err)
		}
	}
	return nil
}
