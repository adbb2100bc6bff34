// File: internal/services/tools/invocation_test.go
package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksamadi/omnichat/internal/services/ai"
)

func TestParseMailInvocation(t *testing.T) {
	inv, err := Parse(ai.ToolCall{
		ID:        "call_1",
		Name:      FuncMail,
		Arguments: `{"instruction":"Write","address":"a@b.example","content":"hello"}`,
	})
	require.NoError(t, err)

	mail, ok := inv.(MailInvocation)
	require.True(t, ok)
	assert.Equal(t, "call_1", mail.CallID())
	assert.Equal(t, MailWrite, mail.Instruction)
	assert.Equal(t, "a@b.example", mail.Address)
	assert.Equal(t, "hello", mail.Content)
}

func TestParseDocumentInvocation(t *testing.T) {
	inv, err := Parse(ai.ToolCall{
		ID:        "call_2",
		Name:      FuncDocument,
		Arguments: `{"instruction":"append","title":"Notes","content":"more"}`,
	})
	require.NoError(t, err)

	doc, ok := inv.(DocumentInvocation)
	require.True(t, ok)
	assert.Equal(t, DocumentAppend, doc.Instruction)
	assert.Equal(t, "Notes", doc.Title)
}

func TestParseSearchInvocation(t *testing.T) {
	inv, err := Parse(ai.ToolCall{
		ID:        "call_3",
		Name:      FuncSearch,
		Arguments: `{"query":"weather"}`,
	})
	require.NoError(t, err)

	search, ok := inv.(SearchInvocation)
	require.True(t, ok)
	assert.Equal(t, "weather", search.Query)
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		call ai.ToolCall
	}{
		{"unknown function", ai.ToolCall{ID: "c", Name: "nope", Arguments: `{}`}},
		{"malformed json", ai.ToolCall{ID: "c", Name: FuncMail, Arguments: `{`}},
		{"unknown mail instruction", ai.ToolCall{ID: "c", Name: FuncMail, Arguments: `{"instruction":"forward","address":"a@b.example"}`}},
		{"missing address", ai.ToolCall{ID: "c", Name: FuncMail, Arguments: `{"instruction":"read"}`}},
		{"missing title", ai.ToolCall{ID: "c", Name: FuncDocument, Arguments: `{"instruction":"read"}`}},
		{"empty query", ai.ToolCall{ID: "c", Name: FuncSearch, Arguments: `{"query":""}`}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.call)
			require.Error(t, err)

			var toolErr *ToolError
			require.ErrorAs(t, err, &toolErr)
			assert.Equal(t, ErrTypeParse, toolErr.Type)
		})
	}
}

func TestDefinitionsCoverKnownTools(t *testing.T) {
	for _, tool := range []string{"mail", "document", "search"} {
		assert.True(t, KnownTool(tool), tool)
		require.NotEmpty(t, Definitions(tool))
	}
	assert.False(t, KnownTool("calendar"))
	assert.Nil(t, Definitions("calendar"))
}
