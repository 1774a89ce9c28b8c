// Command agad is the AMD GPU node-local control-plane agent. It
// discovers the GPUs a pkg/smi.Adapter reports, serves the RPC API
// described in SPEC_FULL.md §6, and runs until signaled to stop.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/aga-project/aga/pkg/agent"
	"github.com/aga-project/aga/pkg/config"
	"github.com/aga-project/aga/pkg/log"
	"github.com/aga-project/aga/pkg/objkey"
	"github.com/aga-project/aga/pkg/smi"
	"github.com/spf13/cobra"
)

var (
	grpcServerPort int
	rdcServer      string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agad",
	Short: "agad - AMD GPU node-local control-plane agent",
	Long: `agad discovers the AMD GPUs visible to this node, exposes their
configuration and telemetry over gRPC, and applies bounded admin-state,
power, clock, fan and partition mutations on request.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().IntVarP(&grpcServerPort, "grpc-server-port", "p", 0, fmt.Sprintf("gRPC server port (default %d)", config.DefaultGRPCServerPort))
	rootCmd.Flags().StringVarP(&rdcServer, "rdc-server", "s", "", fmt.Sprintf("upstream RDC endpoint host (default %s)", config.DefaultRDCServer))
}

func run(cmd *cobra.Command, args []string) error {
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: false})

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg = cfg.ApplyFlags(grpcServerPort, rdcServer)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Logger.Info().Int("grpc_server_port", cfg.GRPCServerPort).Str("rdc_server", cfg.RDCServer).Msg("agad: starting")

	// No real SMI driver binding ships in this tree (spec Non-goal: the
	// hardware adaptation layer's real driver calls are out of scope).
	// The simulator is the adapter every build uses; swapping in a real
	// binding means satisfying smi.Adapter and passing it here instead.
	adapter := smi.NewSimulator(defaultDevices())

	a := agent.New(cfg, adapter)

	lis, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("agad: listen on %s: %w", cfg.ListenAddr(), err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.Run(lis); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Logger.Info().Msg("agad: shutting down")
	case err := <-errCh:
		return err
	}

	a.Stop()
	return nil
}

func defaultDevices() []smi.DeviceConfig {
	devs := make([]smi.DeviceConfig, 0, 4)
	for i := byte(0); i < 4; i++ {
		var key objkey.Key
		key[0] = i + 1
		devs = append(devs, smi.DeviceConfig{Key: key, Partitions: 1})
	}
	return devs
}
