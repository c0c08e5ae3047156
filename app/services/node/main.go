package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/avisen/ledger/app/services/node/handlers"
	"github.com/avisen/ledger/foundation/blockchain/ledger"
	"github.com/avisen/ledger/foundation/blockchain/network"
	"github.com/avisen/ledger/foundation/blockchain/peer"
	"github.com/avisen/ledger/foundation/blockchain/signature"
	"github.com/avisen/ledger/foundation/blockchain/storage/leveldb"
	"github.com/avisen/ledger/foundation/blockchain/worker"
	"github.com/avisen/ledger/foundation/events"
	"github.com/avisen/ledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			APIHost         string        `conf:"default:0.0.0.0:8080"`
		}
		Node struct {
			Address             string        `conf:"default:http://localhost:8080"`
			Mode                string        `conf:"default:PUBLISHER"`
			NetworkID           string        `conf:"default:avisen"`
			BootNode            string
			PublisherSigningKey string        `conf:"mask"`
			PublisherPublicKey  string
			DBPath              string        `conf:"default:zblock/ledger"`
			RequestTimeout      time.Duration `conf:"default:10s"`
			PeerUpdateInterval  time.Duration `conf:"default:0s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "permissioned article ledger node",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Role Validation

	role, err := peer.ParseRole(cfg.Node.Mode)
	if err != nil {
		return fmt.Errorf("parsing node mode: %w", err)
	}

	if err := peer.ValidateAddress(cfg.Node.Address); err != nil {
		return fmt.Errorf("validating node address: %w", err)
	}

	var signingKey *ecdsa.PrivateKey
	switch role {
	case peer.RolePublisher:
		signingKey, err = loadPublisherKeys(cfg.Node.PublisherSigningKey, cfg.Node.PublisherPublicKey)
		if err != nil {
			return err
		}

	case peer.RoleReplica:
		if cfg.Node.BootNode == "" {
			return errors.New("a boot node is required to run as a replica")
		}
	}

	if cfg.Node.BootNode != "" {
		if err := peer.ValidateAddress(cfg.Node.BootNode); err != nil {
			return fmt.Errorf("validating boot node: %w", err)
		}
	}

	info := peer.Info{
		NetworkID: cfg.Node.NetworkID,
		Node:      peer.New(cfg.Node.Address, role),
	}

	// =========================================================================
	// Blockchain Support

	// The blockchain packages accept a function of this signature to allow the
	// application to log. Viewer messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	var (
		ldgr *ledger.Ledger
		nw   *network.Network
		wrk  *worker.Worker
	)

	// Utility nodes only serve the status and crypto helpers.
	if role != peer.RoleUtility {
		db, err := leveldb.New(cfg.Node.DBPath)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}

		ldgr, err = ledger.New(ledger.Config{
			Storage:      db,
			SigningKey:   signingKey,
			AuthorityKey: cfg.Node.PublisherPublicKey,
			EvHandler:    ev,
		})
		if err != nil {
			db.Close()
			return fmt.Errorf("constructing ledger: %w", err)
		}
		defer ldgr.Close()

		nw, err = network.New(network.Config{
			Self:      info.Node,
			Client:    network.NewClient(cfg.Node.NetworkID, cfg.Node.RequestTimeout),
			Storage:   db,
			EvHandler: ev,
		})
		if err != nil {
			return fmt.Errorf("constructing network: %w", err)
		}

		// The worker owns the broadcasts and the bootstrap sequence.
		wrk = worker.Run(worker.Config{
			Ledger:             ldgr,
			Network:            nw,
			PeerUpdateInterval: cfg.Node.PeerUpdateInterval,
			EvHandler:          ev,
		})
		defer wrk.Shutdown()
	}

	ready := func() bool {
		return wrk == nil || wrk.Phase() == worker.PhaseSynced
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log, ready)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener and the
	// bootstrap. Use a buffered channel so the goroutines can exit if we
	// don't collect the error.
	serverErrors := make(chan error, 2)

	// =========================================================================
	// Start API Service

	log.Infow("startup", "status", "initializing API support", "role", role)

	apiMux := handlers.APIMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Info:     info,
		Ledger:   ldgr,
		Network:  nw,
		Worker:   wrk,
		Evts:     evts,
	})

	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      apiMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Bootstrap

	// The api is already serving so the phase can be followed on /status.
	ctx, cancelBoot := context.WithCancel(context.Background())
	defer cancelBoot()

	if wrk != nil {
		go func() {
			log.Infow("startup", "status", "bootstrap started", "bootnode", cfg.Node.BootNode)
			if err := wrk.Bootstrap(ctx, cfg.Node.BootNode); err != nil {
				serverErrors <- fmt.Errorf("bootstrap: %w", err)
				return
			}
			log.Infow("startup", "status", "bootstrap completed", "phase", wrk.Phase())
		}()
	}

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		api.Close()
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		cancelBoot()

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// loadPublisherKeys decodes the signing key of a publisher node and checks
// it belongs to the configured public key.
func loadPublisherKeys(signingKey string, publicKey string) (*ecdsa.PrivateKey, error) {
	if signingKey == "" || publicKey == "" {
		return nil, errors.New("a publisher signing key and public key are required to run as a publisher")
	}

	privateKey, err := signature.ToPrivateKey(signingKey)
	if err != nil {
		return nil, fmt.Errorf("decoding publisher signing key: %w", err)
	}

	if _, err := signature.ToPublicKey(publicKey); err != nil {
		return nil, fmt.Errorf("decoding publisher public key: %w", err)
	}

	if !strings.EqualFold(signature.PublicKeyString(privateKey.PublicKey), publicKey) {
		return nil, errors.New("publisher public key does not belong to the signing key")
	}

	return privateKey, nil
}
