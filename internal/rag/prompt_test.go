package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPromptWithContext(t *testing.T) {
	results := []SearchResult{
		{DocName: "gdpr.pdf", PageNumber: 1, Text: "  Data subjects have the right to erasure.  "},
		{DocName: "gdpr.pdf", PageNumber: 3, Text: "Consent must be freely given."},
	}

	prompt := BuildPrompt("What rights do data subjects have?", results)

	require.Contains(t, prompt, "ONLY the information provided")
	require.Contains(t, prompt, RefusalAnswer)
	require.Contains(t, prompt, "Data subjects have the right to erasure.")
	require.Contains(t, prompt, "Consent must be freely given.")
	require.Contains(t, prompt, "Question:\nWhat rights do data subjects have?")

	// 上下文里的分块去掉首尾空白
	require.NotContains(t, prompt, "  Data subjects")
}

func TestBuildPromptEmptyContext(t *testing.T) {
	prompt := BuildPrompt("Anything?", nil)
	require.Contains(t, prompt, "(No relevant context provided)")
}

func TestIsRefusal(t *testing.T) {
	require.True(t, IsRefusal(RefusalAnswer))
	require.True(t, IsRefusal("  "+RefusalAnswer+"\n"))
	require.False(t, IsRefusal("The answer is on page 3."))
	require.False(t, IsRefusal(strings.ToLower(RefusalAnswer)))
}
