// Package http 提供HTTP服务器功能
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const maxRequestBody = 1 << 20

// Server HTTP服务器
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	AllowedOrigins []string
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

// NewHandler 构建带中间件的路由
func NewHandler(config ServerConfig, api *API) http.Handler {
	mux := http.NewServeMux()
	RegisterHandlers(mux, api)

	chain := Chain(
		RecoveryMiddleware(api.logger),
		LoggerMiddleware(api.logger),
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		TimeoutMiddleware(config.Timeout, streamPath),
		RequestSizeMiddleware(maxRequestBody),
	)
	return chain(mux)
}

// NewServer 创建HTTP服务器
func NewServer(config ServerConfig, api *API) *Server {
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.Port),
			Handler:           NewHandler(config, api),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       config.Timeout,
			IdleTimeout:       120 * time.Second,
		},
		config: config,
		logger: api.logger,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		zap.String("addr", s.server.Addr),
		zap.String("stream", "ws://localhost"+s.server.Addr+streamPath),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop 停止服务器
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Addr 返回服务器地址
func (s *Server) Addr() string {
	return s.server.Addr
}
