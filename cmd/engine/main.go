// Command engine boots the dark-pool core: the whitelist snapshot, the
// order book registry, the proof worker pool, the settlement coordinator,
// the event bus, Pebble-backed persistence, and the HTTP+WS API server.
// Mirrors the shape of a long-running node process (config load → logger
// → services → signal-context shutdown) wiring dark-pool services instead
// of a consensus engine.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/duskpool/core/params"
	"github.com/duskpool/core/pkg/api"
	"github.com/duskpool/core/pkg/app/engine"
	"github.com/duskpool/core/pkg/errs"
	"github.com/duskpool/core/pkg/eventbus"
	"github.com/duskpool/core/pkg/metrics"
	"github.com/duskpool/core/pkg/proof"
	"github.com/duskpool/core/pkg/settlement"
	"github.com/duskpool/core/pkg/storage"
	"github.com/duskpool/core/pkg/util"
	"github.com/duskpool/core/pkg/whitelist"
)

func main() {
	cfg := params.LoadFromEnv("")

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "data/engine.log"
	}
	logger, err := util.NewLoggerWithFile(logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	participants, err := whitelist.LoadSeed(cfg.Whitelist.SeedPath)
	if err != nil {
		sugar.Fatalw("whitelist_seed_failed", "err", err)
	}
	tree, err := whitelist.Build(participants)
	if err != nil {
		sugar.Fatalw("whitelist_build_failed", "err", err)
	}
	sugar.Infow("whitelist_built", "participants", len(participants), "root", tree.Root().Hex())

	store, err := storage.NewPebbleStore(cfg.Storage.DataDir)
	if err != nil {
		sugar.Fatalw("storage_open_failed", "err", err)
	}
	defer store.Close()
	if err := store.SetWhitelistRoot(tree.Root().Hex()); err != nil {
		sugar.Warnw("persisting whitelist root failed", "err", err)
	}

	m, registry := metrics.New()

	bus := eventbus.New(cfg.EventBus.OutboundQueueSize, m, sugar)

	if err := os.MkdirAll(cfg.Storage.AuditLogDir, 0o755); err != nil {
		sugar.Fatalw("audit_log_dir_failed", "err", err)
	}
	matchLog, err := storage.NewFileAppendLog(filepath.Join(cfg.Storage.AuditLogDir, "matches.log"))
	if err != nil {
		sugar.Fatalw("match_log_open_failed", "err", err)
	}
	defer matchLog.Close()
	settlementLog, err := storage.NewFileAppendLog(filepath.Join(cfg.Storage.AuditLogDir, "settlements.log"))
	if err != nil {
		sugar.Fatalw("settlement_log_open_failed", "err", err)
	}
	defer settlementLog.Close()

	eng := engine.New(tree, store, bus, m, matchLog, sugar)
	if err := eng.RestoreSettlements(); err != nil {
		sugar.Fatalw("settlement_restore_failed", "err", err)
	}
	sink := engine.NewBusSink(bus, settlementLog)
	eng.Coordinator().SetEventSink(sink)

	artifacts, err := proof.LoadArtifacts(cfg.Proof.WasmPath, cfg.Proof.ZkeyPath)
	if err != nil {
		sugar.Fatalw("proof_artifacts_failed", "err", err)
	}
	pool := proof.NewPool(cfg.Proof.PoolSize, artifacts, eng.Queue(), eng.Coordinator(), eng.WhitelistLookup, m, sugar)
	pool.SetEventSink(sink)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool.Run(ctx)
	go drainResults(ctx, pool, m, sugar)
	go runSettlementSink(ctx, eng.Coordinator(), sugar)
	go runSignatureTimeoutChecker(ctx, eng.Coordinator(), cfg.Settlement.SignatureTimeout, sugar)

	apiServer := api.NewServer(eng, bus, registry, cfg.API.CORSOrigin,
		cfg.EventBus.HeartbeatInterval.Milliseconds(), cfg.EventBus.MissedPongLimit, sugar)

	httpServer := &http.Server{Addr: cfg.API.ListenAddr, Handler: apiServer.Handler()}
	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.API.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutdown_signal_received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("api_server_shutdown_error", "err", err)
	}
}

// drainResults logs every proof outcome; the coordinator and event bus have
// already recorded/published it by the time it reaches this channel.
func drainResults(ctx context.Context, pool *proof.Pool, m *metrics.Metrics, sugar *zap.SugaredLogger) {
	for {
		select {
		case <-ctx.Done():
			return
		case result := <-pool.Results():
			if result.Err != nil {
				m.ProofFailures.WithLabelValues(string(result.Err.Kind)).Inc()
				sugar.Warnw("proof_failed", "matchId", result.MatchID, "reason", result.Err.Message)
				continue
			}
			sugar.Infow("proof_generated", "matchId", result.MatchID, "nullifier", result.NullifierHash.Hex())
		}
	}
}

// runSettlementSink stands in for the out-of-scope external settlement
// sink: it builds a packet as soon as both signatures land, then
// immediately reports confirmation with a synthetic transaction hash
// derived from the packet contents. A real deployment replaces this loop
// with an on-chain submitter that reports confirmed/failed from actual
// network activity.
func runSettlementSink(ctx context.Context, coordinator *settlement.Coordinator, sugar *zap.SugaredLogger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, r := range coordinator.All() {
				if r.Status != settlement.StatusSignaturesComplete {
					continue
				}
				packet, err := coordinator.BuildPacket(r.MatchID)
				if err != nil {
					sugar.Warnw("build_packet_failed", "matchId", r.MatchID, "err", err)
					continue
				}
				txHash := syntheticTxHash(packet)
				if err := coordinator.OnConfirmed(r.MatchID, txHash); err != nil {
					sugar.Warnw("on_confirmed_failed", "matchId", r.MatchID, "err", err)
				}
			}
		}
	}
}

func syntheticTxHash(packet settlement.Packet) string {
	data := append([]byte(packet.MatchID), packet.ProofBytes...)
	data = append(data, packet.BuyerSignature...)
	data = append(data, packet.SellerSignature...)
	return crypto.Keccak256Hash(data).Hex()
}

// runSignatureTimeoutChecker sweeps every in-flight record and fails those
// past their signature-rendezvous deadline.
func runSignatureTimeoutChecker(ctx context.Context, coordinator *settlement.Coordinator, timeout time.Duration, sugar *zap.SugaredLogger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	_ = timeout // deadlines are set per-record at Register time; this loop only evaluates them

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			for _, r := range coordinator.All() {
				timedOut, err := coordinator.CheckSignatureTimeout(r.MatchID, now)
				if err != nil {
					continue
				}
				if timedOut {
					sugar.Warnw("signature_timeout", "matchId", r.MatchID,
						"kind", string(errs.SignatureTimeout))
				}
			}
		}
	}
}
