package prompt

import (
	"fmt"
	"strings"

	"github.com/saclay-assistant/backend/models"
)

// SystemInstruction pins the model to the retrieved context. RefusalSentence
// is the exact sentence the instruction asks for when the answer is not
// clearly present; honoring it is a prompt-level contract with the backend,
// not something this code can enforce.
const (
	SystemInstruction = "Tu es un assistant pour l'Université Paris-Saclay. " +
		"Utilise UNIQUEMENT le contexte fourni. " +
		"Si l'information n'est pas clairement présente dans le contexte, réponds exactement : " +
		"\"" + RefusalSentence + "\" " +
		"Termine par des sources si possible (utilise les références [1], [2], etc.)."

	RefusalSentence = "Je ne trouve pas l'information dans les sources fournies."

	// NoContextPlaceholder replaces the context block when retrieval found
	// nothing, so the model never sees an empty section.
	NoContextPlaceholder = "(aucun contexte trouvé)"

	entrySeparator = "\n\n---\n\n"

	responseDirective = "# Réponse attendue\n- En français\n- Brève et sourcée\n- Si tu ne sais pas, dis-le clairement"
)

// Message is a single role-tagged turn for chat-style backends.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Bundle carries both renderings of one assembled prompt. Backends differ in
// whether they accept role-tagged turns or a single string; building both up
// front avoids recomputation inside the fallback chain.
type Bundle struct {
	// Messages is the structured form: a system turn plus one user turn.
	Messages []Message

	// Flat is the monolithic form for plain text-completion backends,
	// ending in an explicit answer cue.
	Flat string
}

// Assemble renders the question and its retrieved contexts into both prompt
// forms.
func Assemble(question string, contexts []models.Context) Bundle {
	block := contextBlock(contexts)

	userContent := fmt.Sprintf("# Contexte\n%s\n\n# Question\n%s\n\n%s",
		block, question, responseDirective)

	flat := fmt.Sprintf("%s\n\n%s\n\n# Réponse :", SystemInstruction, userContent)

	return Bundle{
		Messages: []Message{
			{Role: "system", Content: SystemInstruction},
			{Role: "user", Content: userContent},
		},
		Flat: flat,
	}
}

// contextBlock renders the citation-indexed context entries.
func contextBlock(contexts []models.Context) string {
	if len(contexts) == 0 {
		return NoContextPlaceholder
	}

	entries := make([]string, len(contexts))
	for i, c := range contexts {
		entries[i] = fmt.Sprintf("[%d] %s\n(Source: %s — %s)", i+1, c.Content, c.Title, c.SourceURL)
	}
	return strings.Join(entries, entrySeparator)
}

// LastUserText derives a single user-facing text from role-tagged turns: the
// content of the last user turn, which already carries context and question.
// When no user turn exists, all turns are concatenated with role labels.
func LastUserText(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}

	parts := make([]string, len(messages))
	for i, m := range messages {
		parts[i] = fmt.Sprintf("%s: %s", strings.ToUpper(m.Role), m.Content)
	}
	return strings.Join(parts, "\n\n")
}
