package types

// Model is a registry entry as exposed over the API, merged with local presence.
type Model struct {
	// Stable identifier for the model.
	// example: phi-3-mini
	ID string `json:"id" example:"phi-3-mini"`
	// Human-friendly name.
	// example: Phi-3 Mini Instruct (Q4_K_M)
	Name string `json:"name" example:"Phi-3 Mini Instruct (Q4_K_M)"`
	// Artifact filename inside the models directory.
	// example: phi-3-mini-4k-instruct.Q4_K_M.gguf
	Filename string `json:"filename" example:"phi-3-mini-4k-instruct.Q4_K_M.gguf"`
	// Expected hex SHA-256 digest.
	Digest string `json:"sha256"`
	// Whether the registry marks this model as trusted.
	Trusted bool `json:"trusted"`
	// Whether the artifact file exists in the models directory.
	Present bool `json:"present"`
	// Whether this artifact is the active model.
	Active bool `json:"active"`
}
