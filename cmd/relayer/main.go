// Command relayer runs the meta-transaction relayer: pool, chain monitor,
// multi-relayer scheduler and JSON-RPC surface, wired from a TOML
// configuration file.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/urfave/cli/v2"

	"github.com/fstnetwork/relayer/config"
	"github.com/fstnetwork/relayer/core/chainmonitor"
	"github.com/fstnetwork/relayer/core/chainservice"
	"github.com/fstnetwork/relayer/core/machineservice"
	"github.com/fstnetwork/relayer/core/network"
	"github.com/fstnetwork/relayer/core/pool"
	"github.com/fstnetwork/relayer/core/pricer"
	"github.com/fstnetwork/relayer/internal/relayerapi"
)

func main() {
	app := &cli.App{
		Name:   "relayer",
		Usage:  "meta-transaction relayer for delegated ERC-1376-style token transfers",
		Flags:  appFlags,
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Error("relayer: fatal error", "err", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String(ConfigFileFlag.Name))
	if err != nil {
		return err
	}
	if len(cfg.ChainEndpoints) == 0 {
		return fmt.Errorf("relayer: config has no chain_endpoints")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	endpoints := chainservice.NewGroup()
	for _, url := range cfg.ChainEndpoints {
		if err := endpoints.AddEndpoint(ctx, url); err != nil {
			return fmt.Errorf("relayer: dial %s: %w", url, err)
		}
	}

	priceNodeRPC, err := rpc.DialContext(ctx, cfg.ChainEndpoints[0])
	if err != nil {
		return fmt.Errorf("relayer: dial gas-price endpoint: %w", err)
	}
	defer priceNodeRPC.Close()
	gasPricer := pricer.NewNode(priceNodeRPC)

	allowTokens, err := cfg.AllowedTokens()
	if err != nil {
		return err
	}
	var filter pool.TokenFilter
	if len(allowTokens) > 0 {
		filter = pool.NewAllowListFilter(allowTokens)
	}
	params := pool.Params{MaxPerSender: cfg.Pool.MaxPerSender, MaxCount: cfg.Pool.MaxCount}
	if params.MaxCount == 0 {
		params = pool.DefaultParams()
	}
	p := pool.New(pool.NonceAndFeeSelector{}, filter, params, endpoints)

	monitor := chainmonitor.New(endpoints, time.Second)
	go monitor.Run(ctx)

	interval := time.Duration(cfg.TickInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	scheduler := machineservice.New(p, endpoints, gasPricer, monitor, interval)

	dispatcherAddr, err := cfg.DispatcherAddr()
	if err != nil {
		return err
	}
	scheduler.SetDispatcherAddress(dispatcherAddr)
	scheduler.SetChainID(new(big.Int).SetUint64(cfg.ChainID))
	scheduler.SetConfirmationCount(cfg.ConfirmationCount)
	scheduler.SetDryRun(c.Bool(DryRunFlag.Name))

	for _, relayerCfg := range cfg.Relayers {
		keyJSON, err := os.ReadFile(relayerCfg.KeyFile)
		if err != nil {
			return fmt.Errorf("relayer: read keyfile %s: %w", relayerCfg.KeyFile, err)
		}
		passphrase, err := config.ReadPassphrase(relayerCfg.PassphraseFile)
		if err != nil {
			return err
		}
		key, err := keystore.DecryptKey(keyJSON, passphrase)
		if err != nil {
			return fmt.Errorf("relayer: decrypt keyfile %s: %w", relayerCfg.KeyFile, err)
		}
		scheduler.AddRelayer(key.Address, key.PrivateKey)
	}

	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	server := relayerapi.NewServer()
	(&relayerapi.AdminAPI{Scheduler: scheduler, Endpoints: endpoints}).Register(server)
	(&relayerapi.SystemAPI{Pool: p, Scheduler: scheduler}).Register(server)
	(&relayerapi.NetworkAPI{Network: network.New("relayer/1.0")}).Register(server)
	(&relayerapi.PoolAPI{Pool: p}).Register(server)
	(&relayerapi.TokenAPI{Pool: p}).Register(server)
	(&relayerapi.RelayerAPI{Scheduler: scheduler}).Register(server)

	httpAddr := cfg.RPC.HTTPAddr
	if v := c.String(HTTPAddrFlag.Name); v != "" {
		httpAddr = v
	}
	httpServer := relayerapi.NewHTTPServer(server, httpAddr, cfg.RPC.CORSHosts)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("relayer: http server stopped", "err", err)
		}
	}()
	defer httpServer.Close()

	ipcPath := cfg.RPC.IPCPath
	if v := c.String(IPCPathFlag.Name); v != "" {
		ipcPath = v
	}
	if ipcPath != "" {
		go func() {
			if err := relayerapi.ServeIPC(ctx, server, ipcPath); err != nil {
				log.Warn("relayer: ipc server stopped", "err", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	sig := <-sigCh
	log.Info("relayer: shutting down", "signal", sig)
	return nil
}
