// Package main 提供 channeld 命令行入口
//
// channeld 启动一个回显服务端，演示引擎的完整装配：
// 事件循环组、统计收集、Prometheus 导出与逐连接的通道链。
//
// 使用方法:
//
//	# 启动服务端（带指标端口）
//	channeld -addr 127.0.0.1:9000 -metrics-addr 127.0.0.1:2112
//
//	# 从配置文件启动
//	channeld -config config.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	channel "github.com/dep2p/go-channel"
	"github.com/dep2p/go-channel/internal/protocol/checksum"
	"github.com/dep2p/go-channel/internal/protocol/compress"
	"github.com/dep2p/go-channel/internal/protocol/framing"
	pkgif "github.com/dep2p/go-channel/pkg/interfaces"
	"github.com/dep2p/go-channel/pkg/lib/log"
	"github.com/dep2p/go-channel/pkg/types"
)

var logger = log.Logger("channel/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
// 命令行参数：运行时覆盖 / 快速测试（「这次运行」想怎么跑）
// JSON 配置文件：持久化配置 / 长期运行（「这个服务」的固定配置）
var (
	addr        = flag.String("addr", "127.0.0.1:9000", "监听地址")
	configFile  = flag.String("config", "", "配置文件路径")
	metricsAddr = flag.String("metrics-addr", "", "Prometheus 指标监听地址（空 = 不导出）")
	loops       = flag.Int("loops", 0, "事件循环数（0 = CPU 核数）")
	withChecks  = flag.Bool("checksum", false, "在通道链上启用校验和处理器")
	withCompr   = flag.Bool("compress", false, "在通道链上启用压缩处理器")
	showVersion = flag.Bool("version", false, "打印版本并退出")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(channel.VersionInfo())
		return
	}

	opts, err := buildOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置错误: %v\n", err)
		os.Exit(1)
	}

	var reg *prometheus.Registry
	if *metricsAddr != "" {
		reg = prometheus.NewRegistry()
		opts = append(opts, channel.WithPrometheusRegistry(reg))
	}

	eng, err := channel.New(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "创建引擎失败: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "启动引擎失败: %v\n", err)
		os.Exit(1)
	}

	listener, err := eng.Listen("tcp", *addr, pkgif.CreationCallbacks{
		OnSetupCompleted: onChannelSetup,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "监听失败: %v\n", err)
		os.Exit(1)
	}
	logger.Info("channeld listening", "addr", listener.Addr().String())

	var metricsSrv *http.Server
	if reg != nil {
		metricsSrv = serveMetrics(*metricsAddr, reg)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		metricsSrv.Shutdown(shutdownCtx)
		cancel()
	}
	listener.Close()
	if err := eng.Stop(ctx); err != nil {
		logger.Error("stop failed", "err", err)
		os.Exit(1)
	}

	if stats, ok := eng.Stats(); ok {
		logger.Info("final stats",
			"messages_read", stats.MessagesRead,
			"messages_written", stats.MessagesWritten,
			"bytes_read", stats.BytesRead,
			"bytes_written", stats.BytesWritten,
		)
	}
}

// buildOptions 合并配置文件与命令行参数
//
// 命令行参数优先于配置文件。
func buildOptions() ([]channel.Option, error) {
	var opts []channel.Option

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		var cfg channel.UserConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		opts = append(opts, cfg.ToOptions()...)
	}

	if *loops > 0 {
		opts = append(opts, channel.WithLoopCount(*loops))
	}
	return opts, nil
}

// onChannelSetup 为每条被接受的连接装配回显通道链
func onChannelSetup(ch pkgif.Channel, errCode int) {
	if errCode != 0 {
		logger.Warn("channel setup failed", "err_code", errCode)
		return
	}

	handlers := []pkgif.Handler{framing.New()}
	if *withCompr {
		handlers = append(handlers, compress.New())
	}
	if *withChecks {
		handlers = append(handlers, checksum.New())
	}
	handlers = append(handlers, &echoHandler{})

	for _, h := range handlers {
		s := ch.NewSlot()
		if err := ch.InsertEnd(s); err != nil {
			logger.Error("slot insert failed", "err", err)
			ch.Shutdown(types.ErrCodeProtocolError)
			return
		}
		if err := s.SetHandler(h); err != nil {
			logger.Error("handler install failed", "err", err)
			ch.Shutdown(types.ErrCodeProtocolError)
			return
		}
	}
}

// serveMetrics 在独立端口上导出 Prometheus 指标
func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "err", err)
		}
	}()
	return srv
}

// ============================================================================
// 处理器
// ============================================================================

// echoHandler 把每条读方向消息原样写回
type echoHandler struct{}

func (h *echoHandler) ProcessReadMessage(slot pkgif.Slot, msg *types.Message) error {
	out, err := slot.Channel().AcquireMessageFromPool(types.MessageApplicationData, msg.Len())
	if err != nil {
		msg.Release()
		return err
	}
	out.Data = append(out.Data, msg.Data...)
	n := uint64(msg.Len())
	msg.Release()

	if err := slot.SendMessage(out, types.DirWrite); err != nil {
		out.Release()
		return err
	}
	return slot.IncrementReadWindow(n)
}

func (h *echoHandler) ProcessWriteMessage(_ pkgif.Slot, msg *types.Message) error {
	msg.Release()
	return types.ErrNoAdjacentSlot
}

func (h *echoHandler) IncrementReadWindow(slot pkgif.Slot, size uint64) error {
	return slot.IncrementReadWindow(size)
}

func (h *echoHandler) Shutdown(slot pkgif.Slot, dir types.Direction, errCode int, freeScarce bool) error {
	return slot.OnHandlerShutdownComplete(dir, errCode, freeScarce)
}

func (h *echoHandler) InitialWindowSize() uint64 { return 1 << 20 }
func (h *echoHandler) MessageOverhead() uint64   { return 0 }
func (h *echoHandler) Destroy()                  {}
