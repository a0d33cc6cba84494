// devlockctl acquires and inspects devlock pool locks from the command line.
// Holding a lock in one terminal while acquiring it from another exercises
// the cross-process path end to end.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	redis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mirkobrombin/go-devlock/v1/lock"
	"github.com/mirkobrombin/go-devlock/v1/scope"
)

var rootCmd = &cobra.Command{
	Use:   "devlockctl",
	Short: "Acquire and inspect devlock pool locks",
	Long: `devlockctl derives deterministic lock identities from pool names and
acquires them through the configured backend (os, redis or memory).`,
	SilenceUsage: true,
}

var nameCmd = &cobra.Command{
	Use:   "name <pool>",
	Short: "Print the lock identity derived from a pool name",
	Args:  cobra.ExactArgs(1),
	RunE:  runName,
}

var holdCmd = &cobra.Command{
	Use:   "hold <pool>",
	Short: "Acquire a pool lock and hold it until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE:  runHold,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Acquire the driver installation lock and hold it until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runInstall,
}

func init() {
	rootCmd.PersistentFlags().String("backend", "os", "lock backend: os, redis or memory")
	rootCmd.PersistentFlags().String("redis-addr", "localhost:6379", "redis address for the redis backend")
	rootCmd.PersistentFlags().Duration("hold-for", 0, "release automatically after this duration (0 holds until interrupted)")

	viper.SetEnvPrefix("devlock")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("redis_addr", rootCmd.PersistentFlags().Lookup("redis-addr"))
	_ = viper.BindPFlag("hold_for", rootCmd.PersistentFlags().Lookup("hold-for"))

	rootCmd.AddCommand(nameCmd, holdCmd, installCmd)
}

func newBroker() (*lock.Broker, *scope.Manager, error) {
	manager := scope.NewManager()
	var backend lock.Backend
	switch viper.GetString("backend") {
	case "os":
		backend = lock.NewOS(manager)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: viper.GetString("redis_addr")})
		backend = lock.NewRedis(client)
	case "memory":
		backend = lock.NewInMemory()
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", viper.GetString("backend"))
	}
	return lock.NewBroker(manager, backend), manager, nil
}

func runName(cmd *cobra.Command, args []string) error {
	broker, manager, err := newBroker()
	if err != nil {
		return err
	}
	defer func() { _ = manager.Shutdown() }()

	identity, err := broker.PoolIdentity(args[0])
	if err != nil {
		return err
	}
	fmt.Println(identity)
	return nil
}

func runHold(cmd *cobra.Command, args []string) error {
	broker, manager, err := newBroker()
	if err != nil {
		return err
	}
	defer func() { _ = manager.Shutdown() }()

	fmt.Fprintf(os.Stderr, "waiting for pool %q...\n", args[0])
	h, err := broker.AcquirePool(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return holdUntilDone(h)
}

func runInstall(cmd *cobra.Command, args []string) error {
	broker, manager, err := newBroker()
	if err != nil {
		return err
	}
	defer func() { _ = manager.Shutdown() }()

	fmt.Fprintln(os.Stderr, "waiting for the driver installation lock...")
	h, err := broker.AcquireInstallation(cmd.Context())
	if err != nil {
		return err
	}
	return holdUntilDone(h)
}

func holdUntilDone(h *lock.Handle) error {
	fmt.Fprintf(os.Stderr, "holding %s\n", h.Identity())

	ctx := context.Background()
	if d := viper.GetDuration("hold_for"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}

	if err := h.Release(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "released")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
