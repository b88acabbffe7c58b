package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/compute-blade-community/pifan-agent/pkg/agent"
	"github.com/compute-blade-community/pifan-agent/pkg/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	agentAddr    string
	timeout      time.Duration
	outputFormat string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&agentAddr, "addr", envOrDefault("PIFANCTL_ADDR", agent.DefaultAddr), "address of the pifan-agent http api")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "timeout for requests to the agent")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", string(outputText), "output format: text, json or yaml")

	rootCmd.AddCommand(cmdGet)
	rootCmd.AddCommand(cmdDescribe)
}

var rootCmd = &cobra.Command{
	Use:          "pifanctl",
	Short:        "pifanctl reads the fan state published by a running pifan-agent",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		origCtx := cmd.Context()

		if _, err := parseOutputFormat(outputFormat); err != nil {
			return err
		}

		ctx, cancelCtx := context.WithTimeout(origCtx, timeout)

		// setup signal handler channels
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		go func() {
			select {
			case <-ctx.Done():

			case sig := <-sigs:
				switch sig {
				case syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT:
					cancelCtx()

				default:
					log.FromContext(ctx).Warn("Received unknown signal", zap.String("signal", sig.String()))
				}
			}
		}()

		cmd.SetContext(clientIntoContext(ctx, agent.NewClient(agentAddr, timeout)))
		return nil
	},
}

var (
	cmdGet = &cobra.Command{
		Use:   "get",
		Short: "Display the current state of the fan",
	}

	cmdDescribe = &cobra.Command{
		Use:   "describe",
		Short: "Show the control parameters of the fan",
	}
)

func envOrDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
