package api

import (
	"fmt"

	"github.com/daverage/TinyLLM/governor"
	pkgerrors "github.com/daverage/TinyLLM/pkg/errors"
)

type emptyReq struct{}

func (r *emptyReq) validate() error {
	return nil
}

type updateConfigReq struct {
	governor.Config
}

func (r *updateConfigReq) validate() error {
	// Field-level validation happens in the service so every entry
	// point shares one rule set.
	return nil
}

type modelReq struct {
	name string
}

func (r *modelReq) validate() error {
	if r.name == "" {
		return pkgerrors.ErrMissingModel
	}

	return nil
}

type benchmarkReq struct {
	name      string
	MaxTokens int `json:"max_tokens"`
}

func (r *benchmarkReq) validate() error {
	if r.name == "" {
		return pkgerrors.ErrMissingModel
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens %d must not be negative", r.MaxTokens)
	}

	return nil
}
