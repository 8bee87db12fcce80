package domain

import (
	"encoding/json"
	"math/big"
)

type Algorithm string

const (
	Recursive Algorithm = "recursive"
	Iterative Algorithm = "iterative"
)

// Provenance diz se o resultado veio do cache (hit) ou foi calculado agora (miss).
type Provenance string

const (
	Hit  Provenance = "hit"
	Miss Provenance = "miss"
)

// ComputeResult é imutável depois de produzido. Result é compartilhado; não altere.
type ComputeResult struct {
	Input      int        `json:"input"`
	Result     *big.Int   `json:"result"`
	Algorithm  Algorithm  `json:"algorithm"`
	Provenance Provenance `json:"provenance"`
}

// BatchItem é uma posição do batch: ou Result, ou Err.
type BatchItem struct {
	Input  any
	Result *ComputeResult
	Err    error
}

func (b BatchItem) MarshalJSON() ([]byte, error) {
	if b.Err != nil {
		return json.Marshal(struct {
			Input any    `json:"input"`
			Error string `json:"error"`
		}{b.Input, b.Err.Error()})
	}
	return json.Marshal(b.Result)
}
