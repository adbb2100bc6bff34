// File: internal/services/ai/assistant.go
package ai

import (
	"context"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const assistantName = "omnichat"

func (p *OpenAIProvider) CreateThread(ctx context.Context) (string, error) {
	thread, err := p.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", NewProviderError("create_thread", "failed to create thread", err)
	}
	return thread.ID, nil
}

func (p *OpenAIProvider) CreateAssistant(ctx context.Context, cfg AssistantConfig) (string, error) {
	assistant, err := p.client.CreateAssistant(ctx, p.assistantRequest(cfg))
	if err != nil {
		return "", NewProviderError("create_assistant", "failed to create assistant", err)
	}
	return assistant.ID, nil
}

// EnsureAssistant reconciles the stored assistant configuration with the
// desired one. Nothing is pushed when they already match; any drift is
// resolved by overwriting with the desired state, never by failing.
func (p *OpenAIProvider) EnsureAssistant(ctx context.Context, assistantID string, cfg AssistantConfig) error {
	current, err := p.client.RetrieveAssistant(ctx, assistantID)
	if err != nil {
		return NewProviderError("retrieve_assistant", "failed to retrieve assistant", err)
	}

	if !assistantDrifted(current, cfg) {
		p.logger.Debug("assistant configuration unchanged", "assistant_id", assistantID)
		return nil
	}

	if _, err := p.client.ModifyAssistant(ctx, assistantID, p.assistantRequest(cfg)); err != nil {
		return NewProviderError("modify_assistant", "failed to update assistant", err)
	}
	p.logger.Info("assistant configuration updated", "assistant_id", assistantID, "model", cfg.Model)
	return nil
}

func (p *OpenAIProvider) assistantRequest(cfg AssistantConfig) openai.AssistantRequest {
	name := assistantName
	instructions := cfg.Instructions

	req := openai.AssistantRequest{
		Model:        cfg.Model,
		Name:         &name,
		Instructions: &instructions,
		Tools:        assistantTools(cfg),
	}
	if cfg.FileSearch && len(cfg.VectorStoreIDs) > 0 {
		req.ToolResources = &openai.AssistantToolResource{
			FileSearch: &openai.AssistantToolFileSearch{
				VectorStoreIDs: cfg.VectorStoreIDs,
			},
		}
	}
	return req
}

func assistantTools(cfg AssistantConfig) []openai.AssistantTool {
	var tools []openai.AssistantTool
	for _, fn := range cfg.Functions {
		tools = append(tools, openai.AssistantTool{
			Type: openai.AssistantToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  fn.Parameters,
			},
		})
	}
	if cfg.FileSearch {
		tools = append(tools, openai.AssistantTool{Type: openai.AssistantToolTypeFileSearch})
	}
	return tools
}

// assistantDrifted compares the stored assistant against the desired
// configuration: model, instructions and the tool signature. Attachments
// always count as drift because vector store bindings are not readable
// back reliably.
func assistantDrifted(current openai.Assistant, cfg AssistantConfig) bool {
	if cfg.FileSearch && len(cfg.VectorStoreIDs) > 0 {
		return true
	}
	if current.Model != cfg.Model {
		return true
	}

	instructions := ""
	if current.Instructions != nil {
		instructions = *current.Instructions
	}
	if instructions != cfg.Instructions {
		return true
	}

	return toolSignature(current.Tools) != desiredToolSignature(cfg)
}

func toolSignature(tools []openai.AssistantTool) string {
	parts := make([]string, 0, len(tools))
	for _, t := range tools {
		if t.Function != nil {
			parts = append(parts, string(t.Type)+":"+t.Function.Name)
			continue
		}
		parts = append(parts, string(t.Type))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func desiredToolSignature(cfg AssistantConfig) string {
	return toolSignature(assistantTools(cfg))
}

// UploadAttachment stores the file upstream and wraps it in a fresh
// vector store for file search. Both handles are single-use per design.
func (p *OpenAIProvider) UploadAttachment(ctx context.Context, name string, data []byte) (string, string, error) {
	file, err := p.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    name,
		Bytes:   data,
		Purpose: openai.PurposeAssistants,
	})
	if err != nil {
		return "", "", NewProviderError("upload_file", "failed to upload file", err)
	}

	store, err := p.client.CreateVectorStore(ctx, openai.VectorStoreRequest{
		Name:    assistantName + "-" + name,
		FileIDs: []string{file.ID},
	})
	if err != nil {
		return "", "", NewProviderError("create_vector_store", "failed to create vector store", err)
	}
	return file.ID, store.ID, nil
}

// RemoveAttachment deletes the consumed attachment handles. Failures are
// reported but the caller treats removal as best effort.
func (p *OpenAIProvider) RemoveAttachment(ctx context.Context, fileID, vectorStoreID string) error {
	var firstErr error
	if vectorStoreID != "" {
		if _, err := p.client.DeleteVectorStore(ctx, vectorStoreID); err != nil {
			firstErr = NewProviderError("delete_vector_store", "failed to delete vector store", err)
		}
	}
	if fileID != "" {
		if err := p.client.DeleteFile(ctx, fileID); err != nil && firstErr == nil {
			firstErr = NewProviderError("delete_file", "failed to delete file", err)
		}
	}
	return firstErr
}
