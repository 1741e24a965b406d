// Package service implements the conversion pipeline: upstream text
// acquisition, extraction, repair and document assembly.
package service

import (
	"errors"

	"github.com/xiaot623/gogo/pagegen/internal/adapter/llm"
	"github.com/xiaot623/gogo/pagegen/internal/config"
	"github.com/xiaot623/gogo/pagegen/internal/repository"
	"github.com/xiaot623/gogo/pagegen/policy"
)

// ErrInvalidRequest marks requests rejected before any upstream call.
var ErrInvalidRequest = errors.New("invalid request")

type Service struct {
	store        store.Store
	llmClient    llm.CompletionClient
	runner       *RunOrchestrator
	config       *config.Config
	policyEngine *policy.Engine
	assembler    *Assembler
}

// New creates the service. runner and policyEngine may be nil, which
// disables the run protocol and admission checks respectively.
func New(store store.Store, llmClient llm.CompletionClient, runner *RunOrchestrator, cfg *config.Config, policyEngine *policy.Engine) *Service {
	return &Service{
		store:        store,
		llmClient:    llmClient,
		runner:       runner,
		config:       cfg,
		policyEngine: policyEngine,
		assembler:    NewAssembler(nil),
	}
}

// WithIDGenerator replaces the generator used for document ids.
func (s *Service) WithIDGenerator(ids IDGenerator) *Service {
	s.assembler = NewAssembler(ids)
	return s
}
