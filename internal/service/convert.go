package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/xiaot623/gogo/pagegen/internal/adapter/llm"
	"github.com/xiaot623/gogo/pagegen/internal/domain"
	"github.com/xiaot623/gogo/pagegen/internal/jsontext"
	"github.com/xiaot623/gogo/pagegen/policy"
)

// maxTracedTextChars caps raw text copied into failure traces.
const maxTracedTextChars = 8192

// Convert turns one request into a page document or a typed error.
func (s *Service) Convert(ctx context.Context, req domain.ConversionRequest) (*domain.ConversionResult, error) {
	if req.Protocol == "" {
		req.Protocol = domain.ProtocolStream
	}
	if !req.Protocol.Valid() {
		return nil, fmt.Errorf("%w: unknown protocol %q", ErrInvalidRequest, req.Protocol)
	}
	if err := checkCredential(req.Credential); err != nil {
		return nil, err
	}

	model := s.modelFor(req)
	if err := s.admit(ctx, req, model); err != nil {
		return nil, err
	}

	if s.config.ConversionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ConversionTimeout)
		defer cancel()
	}

	conversionID := "conv_" + uuid.New().String()[:8]
	startedAt := time.Now()
	if err := s.store.CreateConversion(ctx, &domain.Conversion{
		ConversionID: conversionID,
		Protocol:     req.Protocol,
		Model:        model,
		Status:       domain.ConversionStatusRunning,
		StartedAt:    startedAt,
	}); err != nil {
		log.Printf("ERROR: failed to create conversion %s: %v", conversionID, err)
	}
	s.traceEvent(ctx, conversionID, domain.EventTypeConversionStarted, domain.ConversionStartedPayload{
		Protocol:    req.Protocol,
		Model:       model,
		PromptChars: len([]rune(req.Prompt)),
	})

	emit := s.progressSink(ctx, conversionID, req.Progress)
	raw, err := s.fetchText(ctx, conversionID, req, model, emit)
	if err != nil {
		return nil, s.fail(ctx, conversionID, err)
	}

	result, err := s.interpret(ctx, conversionID, raw, req.Title)
	if err != nil {
		return nil, s.fail(ctx, conversionID, err)
	}
	result.ConversionID = conversionID

	latency := time.Since(startedAt).Milliseconds()
	s.traceEvent(ctx, conversionID, domain.EventTypeConversionDone, domain.ConversionDonePayload{
		Widgets:     len(result.Document.Widgets()),
		RepairStage: result.RepairStage,
		LatencyMs:   latency,
	})
	if err := s.store.UpdateConversionCompleted(context.WithoutCancel(ctx), conversionID, domain.ConversionStatusSucceeded, result.RepairStage, "", ""); err != nil {
		log.Printf("ERROR: failed to complete conversion %s: %v", conversionID, err)
	}
	log.Printf("INFO: conversion %s succeeded (protocol=%s, widgets=%d, repair=%s, latency=%dms)",
		conversionID, req.Protocol, len(result.Document.Widgets()), result.RepairStage, latency)
	return result, nil
}

// checkCredential rejects empty credentials and ones that cannot be sent in a header.
func checkCredential(credential string) error {
	if strings.TrimSpace(credential) == "" {
		return &domain.AuthError{Reason: "credential is missing"}
	}
	for _, r := range credential {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return &domain.AuthError{Reason: "credential is malformed"}
		}
	}
	return nil
}

func (s *Service) modelFor(req domain.ConversionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	if req.Protocol == domain.ProtocolRun {
		return s.config.AssistantModel
	}
	return s.config.Model
}

func (s *Service) admit(ctx context.Context, req domain.ConversionRequest, model string) error {
	if s.policyEngine == nil {
		if req.Protocol == domain.ProtocolRun && s.runner == nil {
			return &domain.BlockedError{Reason: "run protocol is not configured"}
		}
		return nil
	}

	decision, reason, err := s.policyEngine.Evaluate(ctx, policy.Input{
		Protocol:            string(req.Protocol),
		Model:               model,
		PromptChars:         len([]rune(req.Prompt)),
		MaxPromptChars:      s.config.MaxPromptChars,
		AssistantConfigured: s.runner != nil,
		AllowedModels:       s.config.AllowedModels,
	})
	if err != nil {
		return fmt.Errorf("failed to evaluate admission policy: %w", err)
	}
	if decision == policy.DecisionBlock {
		log.Printf("WARN: conversion blocked by policy: %s", reason)
		return &domain.BlockedError{Reason: reason}
	}
	return nil
}

// fetchText obtains the raw upstream text for the request's protocol.
func (s *Service) fetchText(ctx context.Context, conversionID string, req domain.ConversionRequest, model string, emit func(domain.Progress) error) (string, error) {
	start := time.Now()
	payload := domain.UpstreamCallDonePayload{Protocol: req.Protocol}

	var text string
	var err error
	switch req.Protocol {
	case domain.ProtocolStream:
		text, err = s.llmClient.StreamCompletion(ctx, req.Credential, s.chatRequest(req.Prompt, model, true), func(ev domain.StreamEvent) error {
			if ev.Kind != domain.StreamEventTextDelta {
				return nil
			}
			payload.Deltas++
			return emit(domain.Progress{Kind: domain.ProgressTextDelta, Text: ev.Text})
		})
	case domain.ProtocolCompletion:
		text, err = s.llmClient.CreateChatCompletion(ctx, req.Credential, s.chatRequest(req.Prompt, model, false))
	case domain.ProtocolRun:
		if s.runner == nil {
			return "", &domain.BlockedError{Reason: "run protocol is not configured"}
		}
		counting := func(p domain.Progress) error {
			if p.Poll > payload.Polls {
				payload.Polls = p.Poll
			}
			return emit(p)
		}
		text, err = s.runner.Run(ctx, req.Prompt, req.Credential, req.Model, counting)
	}
	if err != nil {
		err = contextError(ctx, err, payload.Polls)
		payload.Error = err.Error()
	}

	payload.LatencyMs = time.Since(start).Milliseconds()
	payload.TextChars = len([]rune(text))
	s.traceEvent(ctx, conversionID, domain.EventTypeUpstreamCallDone, payload)
	return text, err
}

func (s *Service) chatRequest(prompt, model string, stream bool) *llm.ChatCompletionRequest {
	var messages []llm.ChatMessage
	if s.config.SystemPrompt != "" {
		messages = append(messages, llm.ChatMessage{Role: "system", Content: s.config.SystemPrompt})
	}
	messages = append(messages, llm.ChatMessage{Role: "user", Content: prompt})
	return &llm.ChatCompletionRequest{
		Model:               model,
		Messages:            messages,
		MaxCompletionTokens: s.config.MaxCompletionTokens,
		Stream:              stream,
	}
}

// interpret runs extraction, sanitizing, parsing, repair and assembly over raw text.
func (s *Service) interpret(ctx context.Context, conversionID, raw, title string) (*domain.ConversionResult, error) {
	candidate, err := jsontext.Extract(raw)
	if err != nil {
		return nil, err
	}

	text := jsontext.Sanitize(candidate)
	stage := domain.RepairStageNone
	if text != candidate {
		stage = domain.RepairStageSanitized
	}

	page, err := parsePage(text)
	if err != nil {
		repaired := jsontext.Repair(text)
		page, err = parsePage(repaired)
		if err != nil {
			return nil, &domain.ParseError{Original: candidate, Repaired: repaired, Err: err}
		}
		text = repaired
		stage = domain.RepairStageRepaired
	}
	if stage != domain.RepairStageNone {
		s.traceEvent(ctx, conversionID, domain.EventTypeRepairApplied, domain.RepairAppliedPayload{
			Stage:        stage,
			OriginalSize: len(candidate),
			RepairedSize: len(text),
		})
	}

	if strings.TrimSpace(title) == "" {
		title = page.Title
	}
	doc, err := s.assembler.Assemble(title, *page.Widgets)
	if err != nil {
		var parseErr *domain.ParseError
		if errors.As(err, &parseErr) {
			parseErr.Original = candidate
			parseErr.Repaired = text
		}
		return nil, err
	}

	return &domain.ConversionResult{
		Document:    doc,
		RepairStage: stage,
		RawText:     raw,
	}, nil
}

// parsePage decodes text as a JSON object holding a widgets array.
func parsePage(text string) (*domain.GeneratedPage, error) {
	var page domain.GeneratedPage
	if err := json.Unmarshal([]byte(text), &page); err != nil {
		return nil, err
	}
	if page.Widgets == nil {
		return nil, errors.New("missing widgets array")
	}
	return &page, nil
}

// fail traces a failed conversion and returns err unchanged.
func (s *Service) fail(ctx context.Context, conversionID string, err error) error {
	kind := domain.KindOf(err)
	payload := domain.ConversionFailedPayload{Kind: kind, Message: err.Error()}
	var parseErr *domain.ParseError
	if errors.As(err, &parseErr) {
		payload.Original = truncate(parseErr.Original, maxTracedTextChars)
		payload.Repaired = truncate(parseErr.Repaired, maxTracedTextChars)
	}
	s.traceEvent(ctx, conversionID, domain.EventTypeConversionFailed, payload)

	if updateErr := s.store.UpdateConversionCompleted(context.WithoutCancel(ctx), conversionID, domain.ConversionStatusFailed, "", kind, err.Error()); updateErr != nil {
		log.Printf("ERROR: failed to complete conversion %s: %v", conversionID, updateErr)
	}
	log.Printf("WARN: conversion %s failed (%s): %v", conversionID, kind, err)
	return err
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
