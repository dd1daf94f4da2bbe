package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestGeminiHistory_Roles(t *testing.T) {
	got := geminiHistory([]Message{
		{Role: RoleUser, Content: "Would you buy it?"},
		{Role: RoleAssistant, Content: "Only on sale."},
		{Role: RoleUser, Content: "Why?"},
	})

	want := []*genai.Content{
		{Role: "user", Parts: []genai.Part{genai.Text("Would you buy it?")}},
		{Role: "model", Parts: []genai.Part{genai.Text("Only on sale.")}},
		{Role: "user", Parts: []genai.Part{genai.Text("Why?")}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("geminiHistory() mismatch (-want +got):\n%s", diff)
	}

	assert.Nil(t, geminiHistory(nil))
}

func TestSystemInstruction(t *testing.T) {
	assert.Nil(t, systemInstruction(""))

	got := systemInstruction("You are a participant")
	assert.Empty(t, got.Role)
	assert.Equal(t, []genai.Part{genai.Text("You are a participant")}, got.Parts)
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []genai.Part{
			genai.Text("I'd try "),
			genai.Blob{MIMEType: "image/png"},
			genai.Text("it once."),
		}},
	}}}
	assert.Equal(t, "I'd try it once.", responseText(resp))

	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}))
}
