// Package tracing wires optional Langfuse observability into eino's global
// model callbacks, so every generation call (including the grounding retry)
// shows up as a trace with its prompt and latency.
package tracing

import (
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// defaultHost is used when LANGFUSE_HOST is unset. Self-hosted instances
// override it.
const defaultHost = "https://cloud.langfuse.com"

// Setup builds the Langfuse callback handler from LANGFUSE_PUBLIC_KEY,
// LANGFUSE_SECRET_KEY, and LANGFUSE_HOST. When either key is missing it
// reports false and tracing stays off; the answer pipeline runs identically
// either way. The returned flush must run before process exit or the last
// traces are lost.
func Setup() (callbacks.Handler, func(), bool) {
	publicKey := os.Getenv("LANGFUSE_PUBLIC_KEY")
	secretKey := os.Getenv("LANGFUSE_SECRET_KEY")
	if publicKey == "" || secretKey == "" {
		return nil, nil, false
	}

	handler, flush := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      hostOrDefault(),
		PublicKey: publicKey,
		SecretKey: secretKey,
	})
	return handler, flush, true
}

// hostOrDefault resolves the Langfuse endpoint.
func hostOrDefault() string {
	if h := os.Getenv("LANGFUSE_HOST"); h != "" {
		return h
	}
	return defaultHost
}
