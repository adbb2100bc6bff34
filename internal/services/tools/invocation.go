// File: internal/services/tools/invocation.go
package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ksamadi/omnichat/internal/services/ai"
)

// Function names the model calls. Each maps to exactly one Invocation
// variant; anything else is a parse failure for that call only.
const (
	FuncMail     = "mail_tool"
	FuncDocument = "document_tool"
	FuncSearch   = "web_search"
)

type MailInstruction string

const (
	MailRead  MailInstruction = "read"
	MailWrite MailInstruction = "write"
)

type DocumentInstruction string

const (
	DocumentCreate DocumentInstruction = "create"
	DocumentRead   DocumentInstruction = "read"
	DocumentAppend DocumentInstruction = "append"
)

// Invocation is a closed set of parsed tool calls. The dispatcher
// type-switches over the three variants; an unknown function name never
// reaches it.
type Invocation interface {
	CallID() string
	invocation()
}

type MailInvocation struct {
	ID          string
	Instruction MailInstruction
	Address     string
	Content     string
}

type DocumentInvocation struct {
	ID          string
	Instruction DocumentInstruction
	Title       string
	Content     string
}

type SearchInvocation struct {
	ID    string
	Query string
}

func (m MailInvocation) CallID() string     { return m.ID }
func (m MailInvocation) invocation()        {}
func (d DocumentInvocation) CallID() string { return d.ID }
func (d DocumentInvocation) invocation()    {}
func (s SearchInvocation) CallID() string   { return s.ID }
func (s SearchInvocation) invocation()      {}

// Parse converts one requested tool call into its typed invocation.
func Parse(call ai.ToolCall) (Invocation, error) {
	switch call.Name {
	case FuncMail:
		var args struct {
			Instruction string `json:"instruction"`
			Address     string `json:"address"`
			Content     string `json:"content"`
		}
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, NewParseError(FuncMail, "malformed arguments", err)
		}
		instruction := MailInstruction(strings.ToLower(args.Instruction))
		if instruction != MailRead && instruction != MailWrite {
			return nil, NewParseError(FuncMail, fmt.Sprintf("unknown instruction %q", args.Instruction), nil)
		}
		if args.Address == "" {
			return nil, NewParseError(FuncMail, "address is required", nil)
		}
		return MailInvocation{ID: call.ID, Instruction: instruction, Address: args.Address, Content: args.Content}, nil

	case FuncDocument:
		var args struct {
			Instruction string `json:"instruction"`
			Title       string `json:"title"`
			Content     string `json:"content"`
		}
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, NewParseError(FuncDocument, "malformed arguments", err)
		}
		instruction := DocumentInstruction(strings.ToLower(args.Instruction))
		switch instruction {
		case DocumentCreate, DocumentRead, DocumentAppend:
		default:
			return nil, NewParseError(FuncDocument, fmt.Sprintf("unknown instruction %q", args.Instruction), nil)
		}
		if args.Title == "" {
			return nil, NewParseError(FuncDocument, "title is required", nil)
		}
		return DocumentInvocation{ID: call.ID, Instruction: instruction, Title: args.Title, Content: args.Content}, nil

	case FuncSearch:
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, NewParseError(FuncSearch, "malformed arguments", err)
		}
		if args.Query == "" {
			return nil, NewParseError(FuncSearch, "query is required", nil)
		}
		return SearchInvocation{ID: call.ID, Query: args.Query}, nil

	default:
		return nil, NewParseError(call.Name, "unknown tool function", nil)
	}
}

// Definitions returns the function schemas advertised to the assistant
// for the named tool ("mail", "document" or "search").
func Definitions(tool string) []ai.ToolDefinition {
	switch tool {
	case "mail":
		return []ai.ToolDefinition{{
			Name:        FuncMail,
			Description: "Read the latest inbox messages for an address, or write and send a message to an address.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"instruction": map[string]any{
						"type": "string",
						"enum": []string{string(MailRead), string(MailWrite)},
					},
					"address": map[string]any{
						"type":        "string",
						"description": "Email address to read from or send to.",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "Message body. Required for write.",
					},
				},
				"required": []string{"instruction", "address"},
			},
		}}
	case "document":
		return []ai.ToolDefinition{{
			Name:        FuncDocument,
			Description: "Create a named document, read its contents, or append text to it.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"instruction": map[string]any{
						"type": "string",
						"enum": []string{string(DocumentCreate), string(DocumentRead), string(DocumentAppend)},
					},
					"title": map[string]any{
						"type":        "string",
						"description": "Document title.",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "Text to store. Required for create and append.",
					},
				},
				"required": []string{"instruction", "title"},
			},
		}}
	case "search":
		return []ai.ToolDefinition{{
			Name:        FuncSearch,
			Description: "Search the web and return the top result titles and snippets.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Search query.",
					},
				},
				"required": []string{"query"},
			},
		}}
	default:
		return nil
	}
}

// KnownTool reports whether the given tool name has function schemas.
func KnownTool(tool string) bool {
	return len(Definitions(tool)) > 0
}
