// peerlink bootstraps peer connectivity between the members of an
// already-running devnet by driving their admin JSON-RPC endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"

	"golang.org/x/crypto/ssh/terminal"

	"github.com/ethereum/go-ethereum/log"

	"github.com/devnet-tools/peerlink/logutils"
	"github.com/devnet-tools/peerlink/params"
	"github.com/devnet-tools/peerlink/peers"
)

// All general log messages in this package should be routed through this logger.
var logger = log.New("package", "peerlink/cmd/peerlink")

var (
	configPath       = flag.String("config", "", "JSON cluster description (defaults to the local three-node devnet)")
	callTimeout      = flag.Int("timeout", 0, "Timeout for a single RPC call, in seconds (0 keeps the configured value)")
	handshakeWait    = flag.Int("wait", -1, "Seconds to wait for handshakes before verifying peer counts (-1 keeps the configured value)")
	verifyPeers      = flag.Bool("verify", false, "Query net_peerCount on every node after linking")
	strict           = flag.Bool("strict", false, "Validate derived enode URLs before registering them")
	logLevel         = flag.String("log", "INFO", `Log level, one of: "ERROR", "WARN", "INFO", "DEBUG", and "TRACE"`)
	logFile          = flag.String("logfile", "", "Path to the log file")
	logWithoutColors = flag.Bool("log-without-color", false, "Disables log colors")
)

func init() {
	flag.Parse()

	colors := !(*logWithoutColors)
	if colors {
		colors = terminal.IsTerminal(int(os.Stdin.Fd()))
	}

	if err := logutils.OverrideRootLog(*logLevel != "", *logLevel, logutils.FileOptions{Filename: *logFile}, colors); err != nil {
		stdlog.Fatalf("Error initializing logger: %s", err)
	}
}

func main() {
	config, err := makeConfig()
	if err != nil {
		logger.Crit("Invalid cluster configuration", "error", err)
		os.Exit(1)
	}

	zapLogger, err := logutils.NewZapLoggerWithAdapter(log.Root())
	if err != nil {
		logger.Crit("Could not initialize logger adapter", "error", err)
		os.Exit(1)
	}

	connector := peers.NewConnector(config,
		peers.WithLogger(zapLogger.Named("connector")),
		peers.WithStrictValidation(*strict))

	counts, err := connector.Connect(context.Background())
	if err != nil {
		logger.Error("Peer bootstrap failed", "error", err)
		os.Exit(1)
	}

	for _, node := range config.Nodes {
		if count, ok := counts[node.Name]; ok {
			fmt.Printf("%s: %d peers\n", node.Name, count)
		}
	}
	logger.Info("Cluster linked", "nodes", len(config.Nodes), "links", len(config.Links))
}

// makeConfig loads the cluster description and applies flag overrides.
func makeConfig() (*params.Config, error) {
	var config *params.Config
	if *configPath != "" {
		loaded, err := params.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	} else {
		config = params.DevnetConfig()
	}

	if *callTimeout > 0 {
		config.CallTimeout = *callTimeout
	}
	if *handshakeWait >= 0 {
		config.HandshakeWait = *handshakeWait
	}
	if *verifyPeers {
		config.VerifyPeerCount = true
	}

	return config, config.Validate()
}
