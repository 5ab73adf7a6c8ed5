// Package llm is the completion-endpoint client used by the run loop.
//
// It presents a provider-agnostic interface over gollm
// (github.com/teilomillet/gollm): messages are tagged-union content parts,
// responses carry a finish reason and token usage, and every failure is
// classified into a typed error hierarchy so callers can decide what is safe
// to retry.
//
// # Architecture
//
//   - ProviderAdapter: the interface a provider backend implements
//     (GollmAdapter is the production one; tests use stubs).
//   - Client: provider routing by explicit name, default, or model catalog.
//   - Retry: a bounded exponential-backoff loop with jitter; only errors
//     IsRetryable classifies as transient are retried.
//
// # Quick Start
//
//	adapter, _ := llm.NewGollmAdapter("openai", os.Getenv("QUILL_API_KEY"))
//	client := llm.NewClient(llm.WithProvider("openai", adapter))
//
//	resp, _ := client.Complete(ctx, llm.Request{
//	    Model:    "kimi-k2",
//	    Messages: []llm.Message{llm.UserMessage("Hello")},
//	})
//	fmt.Println(resp.Text())
package llm
