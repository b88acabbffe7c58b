package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	internal_agent "github.com/compute-blade-community/pifan-agent/internal/agent"
	"github.com/compute-blade-community/pifan-agent/pkg/log"
	"github.com/sierrasoftworks/humane-errors-go"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	Version string
	Commit  string
	Date    string
)

const stopTimeout = 10 * time.Second

func main() {
	flags := pflag.NewFlagSet("pifan-agent", pflag.ExitOnError)
	registerFlags(flags)
	_ = flags.Parse(os.Args[1:])

	config, debug, configErr := loadConfig(viper.New(), flags, configSearchPaths())

	zapLogger, err := log.New(debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()
	zap.ReplaceGlobals(zapLogger)

	if configErr != nil {
		zapLogger.Fatal("Failed to load configuration", humane.Zap(configErr)...)
	}

	ctx, cancelCtx := context.WithCancelCause(log.IntoContext(context.Background(), zapLogger))
	defer cancelCtx(context.Canceled)

	log.FromContext(ctx).Info("Bootstrapping pifan-agent",
		zap.String("version", Version),
		zap.String("commit", Commit),
		zap.String("date", Date),
	)

	// setup signal handler channels
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-ctx.Done():

		case sig := <-sigs:
			log.FromContext(ctx).Info("Received signal, shutting down", zap.String("signal", sig.String()))
			cancelCtx(context.Canceled)
		}
	}()

	fanAgent, err := internal_agent.NewAgent(ctx, config)
	if err != nil {
		var herr humane.Error
		if errors.As(err, &herr) {
			log.FromContext(ctx).Fatal("Failed to create agent", humane.Zap(herr)...)
		}
		log.FromContext(ctx).Fatal("Failed to create agent", zap.Error(err))
	}

	fanAgent.RunAsync(ctx, cancelCtx)
	<-ctx.Done()

	stopCtx, cancelStop := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancelStop()

	exitCode := 0
	if err := fanAgent.GracefulStop(stopCtx); err != nil {
		log.FromContext(ctx).Error("Failed to stop agent cleanly", zap.Error(err))
		exitCode = 1
	}

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		log.FromContext(ctx).Error("Agent stopped with an error", zap.Error(cause))
		exitCode = 1
	}

	log.FromContext(ctx).Info("Exiting")
	if exitCode != 0 {
		_ = zapLogger.Sync()
		os.Exit(exitCode)
	}
}
