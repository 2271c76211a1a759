// Package inference runs prompts against a local model artifact. The model's
// own algorithm is opaque here: a prompt goes in, text comes out.
//
//   - adapter_iface.go: InferenceAdapter/InferSession contracts.
//   - adapter_llama.go: in-process go-llama.cpp adapter, built with `-tags=llama`.
//     adapter_llama_stub.go replaces it in default CGO-free builds.
//   - adapter_llama_server.go: talks to a running llama.cpp server over its
//     OpenAI-compatible /v1/completions endpoint.
//   - admission.go: single in-flight generation with a bounded wait queue.
//   - runner.go: Runner owns the session for the active artifact and applies admission.
//
// Callers must only hand Runner artifacts that passed integrity verification.
package inference
