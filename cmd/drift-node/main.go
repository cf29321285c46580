// Command drift-node runs a single Drift mesh node: identity and secrets
// bundle, peer ledger, mesh store, relay engine, three-layer router, and
// the public/control HTTP surfaces.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/driftmesh/drift/internal/config"
	"github.com/driftmesh/drift/internal/ledger"
	"github.com/driftmesh/drift/internal/node"
	"github.com/driftmesh/drift/internal/secrets"
)

func main() {
	cfg, err := config.New(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		mustLog().Fatal("config", zap.Error(err))
	}

	log := mustLog()
	defer log.Sync()

	if err := cfg.EnsureDataDir(); err != nil {
		log.Fatal("data dir", zap.Error(err))
	}

	passphrase := os.Getenv(cfg.EnvPassEnvVar)
	if passphrase == "" {
		log.Fatal("secrets passphrase missing", zap.String("env_var", cfg.EnvPassEnvVar))
	}

	bundle, err := loadOrCreateSecrets(cfg, []byte(passphrase), log)
	if err != nil {
		log.Fatal("secrets", zap.Error(err))
	}

	peerLedger, err := ledger.Load(cfg.LedgerPath())
	if err != nil {
		log.Fatal("ledger load", zap.Error(err))
	}

	outboxKey, err := secrets.DeriveSubkey(bundle.LedgerKey, "drift-outbox-v1")
	if err != nil {
		log.Fatal("outbox key derivation", zap.Error(err))
	}

	n := node.New(cfg, log, bundle.IdentitySeed, peerLedger, outboxKey, cfg.OutboxPath())
	log.Info("node identity", zap.String("pubkey_b64", base64.StdEncoding.EncodeToString(n.Identity())))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan struct{})
	go n.RunMaintenanceLoop(cfg.MinScanInterval, stop)

	publicSrv := &http.Server{Addr: hostPort(cfg.BindIP, cfg.APIPort), Handler: n.PublicHandler()}
	controlSrv := &http.Server{Addr: hostPort("127.0.0.1", cfg.ControlPort), Handler: n.ControlHandler()}

	go func() {
		log.Info("public api listening", zap.String("addr", publicSrv.Addr))
		if err := publicSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("public api", zap.Error(err))
		}
	}()
	go func() {
		log.Info("control api listening", zap.String("addr", controlSrv.Addr))
		if err := controlSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("control api", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")

	close(stop)
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = publicSrv.Shutdown(shutdownCtx)
	_ = controlSrv.Shutdown(shutdownCtx)

	if err := n.Ledger().Save(cfg.LedgerPath(), time.Now()); err != nil {
		log.Error("ledger save", zap.Error(err))
	}
	if err := n.SaveOutbox(); err != nil {
		log.Error("outbox save", zap.Error(err))
	}
}

func loadOrCreateSecrets(cfg *config.Config, passphrase []byte, log *zap.Logger) (*secrets.Bundle, error) {
	if cfg.NewIdentity {
		bundle, err := secrets.GenerateBundle()
		if err != nil {
			return nil, err
		}
		if err := secrets.Seal(cfg.SecretsPath(), passphrase, bundle); err != nil {
			return nil, err
		}
		log.Info("generated new identity", zap.String("path", cfg.SecretsPath()))
		return bundle, nil
	}

	if _, err := os.Stat(cfg.SecretsPath()); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		log.Warn("no secrets bundle found, generating one", zap.String("path", cfg.SecretsPath()))
		bundle, genErr := secrets.GenerateBundle()
		if genErr != nil {
			return nil, genErr
		}
		if sealErr := secrets.Seal(cfg.SecretsPath(), passphrase, bundle); sealErr != nil {
			return nil, sealErr
		}
		return bundle, nil
	}
	return secrets.Open(cfg.SecretsPath(), passphrase)
}

func hostPort(bindIP string, port int) string {
	if bindIP == "" {
		bindIP = "0.0.0.0"
	}
	return bindIP + ":" + strconv.Itoa(port)
}

func mustLog() *zap.Logger {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return log
}
