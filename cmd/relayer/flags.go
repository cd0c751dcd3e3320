package main

import "github.com/urfave/cli/v2"

// Flags, grouped into []cli.Flag slices consumed by the App.
var (
	ConfigFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "Path to the relayer TOML configuration file",
		Required: true,
	}
	HTTPAddrFlag = &cli.StringFlag{
		Name:  "http.addr",
		Usage: "JSON-RPC HTTP/WS listen address, overrides the config file",
	}
	IPCPathFlag = &cli.StringFlag{
		Name:  "ipc.path",
		Usage: "JSON-RPC IPC (unix socket) path, overrides the config file",
	}
	DryRunFlag = &cli.BoolFlag{
		Name:  "dry-run",
		Usage: "Run every relayer machine in dry-run mode: never broadcast transactions",
	}
)

var appFlags = []cli.Flag{
	ConfigFileFlag,
	HTTPAddrFlag,
	IPCPathFlag,
	DryRunFlag,
}
