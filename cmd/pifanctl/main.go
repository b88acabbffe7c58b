package main

import (
	"context"
	"log"

	"github.com/compute-blade-community/pifan-agent/pkg/agent"
)

type clientContextKey int

const (
	defaultClientContextKey clientContextKey = 0
)

var (
	Version string
	Commit  string
	Date    string
)

func clientIntoContext(ctx context.Context, client *agent.Client) context.Context {
	return context.WithValue(ctx, defaultClientContextKey, client)
}

func clientFromContext(ctx context.Context) *agent.Client {
	client, ok := ctx.Value(defaultClientContextKey).(*agent.Client)
	if !ok {
		panic("agent client not found in context")
	}
	return client
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
