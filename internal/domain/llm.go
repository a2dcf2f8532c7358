package domain

import "context"

// Intent classifies what a question needs from the retrieval pipeline.
type Intent string

const (
	// IntentPaperQuestion requires paper context.
	IntentPaperQuestion Intent = "paper_question"
	// IntentChitChat needs no paper context at all.
	IntentChitChat Intent = "chitchat"
	// IntentFollowUp continues the previous exchange; conversation history
	// is enough.
	IntentFollowUp Intent = "followup"
)

// ChatTurn is one prior message in a conversation.
type ChatTurn struct {
	Role    string // "user" | "ai"
	Content string
}

// Entities is the structured output of concept/affiliation extraction.
type Entities struct {
	Concepts     []string `json:"concepts"`
	Affiliations []string `json:"affiliations"`
}

// Answer is the final generated answer with the papers it drew on.
type Answer struct {
	Text    string
	Sources []ContextEntry
}

// CompletionClient is the LLM collaborator. Every method degrades rather
// than halts: a failed summary returns a placeholder, a failed
// classification defaults to IntentPaperQuestion, failed extraction
// returns empty entities.
type CompletionClient interface {
	// SummarizeAbstract condenses an abstract into a short plain-English
	// summary.
	SummarizeAbstract(ctx context.Context, abstract string) (string, error)

	// ClassifyIntent labels a question with one of the Intent values.
	ClassifyIntent(ctx context.Context, question string, history []ChatTurn) (Intent, error)

	// GenerateTitle produces a short chat title from the first message.
	GenerateTitle(ctx context.Context, firstMessage string) (string, error)

	// ExtractEntities pulls concepts and affiliations out of a paper's
	// title and abstract.
	ExtractEntities(ctx context.Context, title, abstract string) (Entities, error)

	// OptimizeInterests turns casual interest text into a search profile.
	OptimizeInterests(ctx context.Context, interestText string, domains []string) (QueryProfile, error)

	// AnswerQuestion generates the final answer from the retrieval context
	// and optional conversation history.
	AnswerQuestion(ctx context.Context, question string, rc *RetrievalContext, history []ChatTurn) (Answer, error)
}
