package llm

import (
	"fmt"
	"strings"

	"github.com/matzehuels/scribetree/pkg/notes"
)

// PromptVersion changes whenever the prompts below change in a way that
// should invalidate cached notes.
const PromptVersion = "2"

const notesSystemPrompt = `You are a professional note taker. You are tasked with summarizing a lecture based on its transcript.
Create detailed yet concise notes by summarizing what the speaker says as if you were a high achieving student, almost word by word.
Start with a short summary of the whole lecture and the logistics that were announced (homework, exams, deadlines; an empty string if none).
Then list the main key points, and under each of them as many nested sub key points as necessary, building a tree of knowledge.
Give every key point a unique id, a short title and its content. Mark important terms in the content with **double asterisks**.
Answer with a single JSON object and nothing else.`

const expandSystemPrompt = `You are a patient tutor helping a student review their lecture notes.
Explain the requested passage clearly and concisely, using the surrounding note as context.
Answer with a single JSON object holding one key point with a unique id, a short title, the explanation as content and an empty children list.`

// NotesRequest asks the model to turn a transcript into a notes tree.
func NotesRequest(transcript string, maxTokens int) Request {
	return Request{
		System:     notesSystemPrompt,
		Prompt:     strings.TrimSpace(transcript),
		SchemaName: "lecture_note",
		Schema:     notes.Schema(),
		MaxTokens:  maxTokens,
	}
}

// ExpandRequest asks the model to explain text in the context of a key point.
func ExpandRequest(text, context string, maxTokens int) Request {
	return Request{
		System:     expandSystemPrompt,
		Prompt:     fmt.Sprintf("Explain: %s. Context: %s", strings.TrimSpace(text), strings.TrimSpace(context)),
		SchemaName: "key_point",
		Schema:     notes.ExpansionSchema(),
		MaxTokens:  maxTokens,
	}
}
