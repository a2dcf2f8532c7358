package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"paperpulse/internal/domain"
)

const summaryFallback = "Summary could not be generated."

// CompletionClient calls the OpenAI chat completions endpoint. Summary,
// classification and extraction methods degrade to safe defaults on
// failure instead of surfacing errors to their callers.
type CompletionClient struct {
	BaseURL     string
	APIKey      string
	FastModel   string // cheap model for summaries, classification, extraction
	AnswerModel string // flagship model for final answers
	Client      *http.Client
	logger      *slog.Logger
}

func NewCompletionClient(baseURL, apiKey, fastModel, answerModel string, client *http.Client, logger *slog.Logger) *CompletionClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if fastModel == "" {
		fastModel = "gpt-5-mini"
	}
	if answerModel == "" {
		answerModel = "gpt-5.2"
	}
	return &CompletionClient{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIKey:      apiKey,
		FastModel:   fastModel,
		AnswerModel: answerModel,
		Client:      client,
		logger:      logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_completion_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *CompletionClient) complete(ctx context.Context, model string, messages []chatMessage, temperature float64, maxTokens int) (string, error) {
	start := time.Now()

	reqBody := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		c.logger.Warn("completion_failed",
			slog.String("model", model),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return "", fmt.Errorf("failed to call completions endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn("completion_bad_status",
			slog.String("model", model),
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)))
		return "", fmt.Errorf("completions endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var respBody chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(respBody.Choices) == 0 {
		return "", fmt.Errorf("completion response carried no choices")
	}

	return strings.TrimSpace(respBody.Choices[0].Message.Content), nil
}

// SummarizeAbstract condenses an abstract into three plain-English
// sentences. On failure it returns a placeholder so enrichment proceeds.
func (c *CompletionClient) SummarizeAbstract(ctx context.Context, abstract string) (string, error) {
	messages := []chatMessage{
		{Role: "system", Content: "You are a world-class research assistant. " +
			"Summarize the following academic abstract into exactly 3 sentences " +
			"of plain, easy-to-understand English. Preserve key quantitative results " +
			"and findings. Do not use unnecessary jargon."},
		{Role: "user", Content: abstract},
	}

	summary, err := c.complete(ctx, c.FastModel, messages, 1, 1024)
	if err != nil {
		c.logger.Warn("summary_generation_failed", slog.String("error", err.Error()))
		return summaryFallback, nil
	}
	return summary, nil
}

// ClassifyIntent labels a question. Unknown labels and failures default to
// a paper question so retrieval always runs when in doubt.
func (c *CompletionClient) ClassifyIntent(ctx context.Context, question string, history []domain.ChatTurn) (domain.Intent, error) {
	var sb strings.Builder
	sb.WriteString("Classify the user's message into exactly one label:\n")
	sb.WriteString("- paper_question: asks about research papers, findings, methods, or concepts\n")
	sb.WriteString("- chitchat: greeting, thanks, or small talk needing no paper context\n")
	sb.WriteString("- followup: continues the previous exchange and can be answered from the conversation alone\n")
	sb.WriteString("Respond with only the label.\n\n")
	if len(history) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, turn := range recentTurns(history, 4) {
			fmt.Fprintf(&sb, "%s: %s\n", turn.Role, truncate(turn.Content, 300))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Message: %s", question)

	label, err := c.complete(ctx, c.FastModel, []chatMessage{
		{Role: "system", Content: "You are an intent classification system. Return only the label."},
		{Role: "user", Content: sb.String()},
	}, 0, 10)
	if err != nil {
		return domain.IntentPaperQuestion, nil
	}

	switch domain.Intent(strings.ToLower(strings.TrimSpace(label))) {
	case domain.IntentChitChat:
		return domain.IntentChitChat, nil
	case domain.IntentFollowUp:
		return domain.IntentFollowUp, nil
	default:
		return domain.IntentPaperQuestion, nil
	}
}

// GenerateTitle produces a short chat title from the first user message.
func (c *CompletionClient) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	title, err := c.complete(ctx, c.FastModel, []chatMessage{
		{Role: "system", Content: "Generate a concise title (at most 6 words) for a conversation " +
			"that starts with the following message. Return only the title, no quotes."},
		{Role: "user", Content: truncate(firstMessage, 500)},
	}, 0.7, 20)
	if err != nil || title == "" {
		return fallbackTitle(firstMessage), nil
	}
	return strings.Trim(title, `"`), nil
}

// ExtractEntities pulls concepts and affiliations from a paper. Failures
// return empty entities; graph enrichment is strictly best-effort.
func (c *CompletionClient) ExtractEntities(ctx context.Context, title, abstract string) (domain.Entities, error) {
	prompt := fmt.Sprintf(`Extract entities from this paper.

Title: %s
Abstract: %s

Return a JSON object with exactly these fields:
1. "concepts": an array of 3-8 technical concepts, methods, or topics central to the paper
2. "affiliations": an array of research institutions or labs mentioned, empty if none

Return ONLY the JSON object, no markdown, no explanation.`, title, truncate(abstract, 2000))

	raw, err := c.complete(ctx, c.FastModel, []chatMessage{
		{Role: "system", Content: "You are an entity extraction system. Return only valid JSON."},
		{Role: "user", Content: prompt},
	}, 0, 300)
	if err != nil {
		return domain.Entities{}, nil
	}

	var entities domain.Entities
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &entities); err != nil {
		c.logger.Warn("entity_extraction_parse_failed", slog.String("error", err.Error()))
		return domain.Entities{}, nil
	}
	return entities, nil
}

// OptimizeInterests turns casual interest text into a structured search
// profile. The caller supplies the fallback when the error is non-nil.
func (c *CompletionClient) OptimizeInterests(ctx context.Context, interestText string, domains []string) (domain.QueryProfile, error) {
	domainContext := "general science"
	if len(domains) > 0 {
		domainContext = strings.Join(domains, ", ")
	}

	prompt := fmt.Sprintf(`You are an expert academic research librarian. A researcher has described their interests in casual language. Your job is to transform this into optimized search queries that will find the most relevant papers on ArXiv, Semantic Scholar, PubMed, and OpenAlex.

The researcher's domains: %s
The researcher's raw interest description: %q

Return a JSON object with exactly these fields:
1. "search_queries": An array of 3-5 focused search query strings. Each should be 3-6 words using the EXACT technical vocabulary that would appear in paper titles and abstracts (not casual language). Cover different facets/sub-topics of their interest. These will be sent directly to academic search APIs.

2. "keywords": An array of 6-10 individual technical terms or short phrases (1-3 words each) that are the core concepts. Include abbreviations, model names, and method names that researchers in this field would use (e.g., "GNN", "BERT", "CRISPR", "Monte Carlo").

3. "arxiv_categories": An array of the most specific ArXiv sub-categories that match (e.g., "cs.LG", "cs.CL", "q-bio.BM", "stat.ML"). Use 2-5 categories. Only include categories that genuinely match, do not pad.

Rules:
- Use the technical vocabulary of the field, NOT the user's casual words
- Search queries should be what a domain expert would type into Google Scholar
- If the user mentions a broad area, break it into the specific active sub-fields
- Prefer precision over recall
- Return ONLY the JSON object, no markdown, no explanation`, domainContext, interestText)

	raw, err := c.complete(ctx, c.FastModel, []chatMessage{
		{Role: "system", Content: "You are a research query optimization system. Return only valid JSON."},
		{Role: "user", Content: prompt},
	}, 1, 500)
	if err != nil {
		return domain.QueryProfile{}, err
	}

	var profile domain.QueryProfile
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &profile); err != nil {
		return domain.QueryProfile{}, fmt.Errorf("failed to parse query profile: %w", err)
	}

	if len(profile.SearchQueries) > 5 {
		profile.SearchQueries = profile.SearchQueries[:5]
	}
	if len(profile.Keywords) > 10 {
		profile.Keywords = profile.Keywords[:10]
	}
	if len(profile.ArxivCategories) > 5 {
		profile.ArxivCategories = profile.ArxivCategories[:5]
	}
	return profile, nil
}

const answerSystemPrompt = `You are a brilliant research assistant who genuinely understands the papers in the user's library. Your job is to help them actually understand what they're reading, not just parrot back what's written.

HOW TO ANSWER:
- Think about what the user is really asking and what they need to understand.
- Explain concepts in your own words. Use analogies, intuition, and plain language.
- If the user asks to explain something simply, genuinely simplify the ideas, not just the vocabulary. Build up from first principles.
- Don't just list what the paper says. Digest it and re-explain it.
- Only use information from the provided context papers. If you can't answer, say so.
- Refer to papers naturally by name in italics. Never write "(Source: ...)" or "(ID: ...)" since the UI shows sources separately.

FORMATTING:
- The frontend renders full Markdown and LaTeX. Use whatever formatting makes the answer clearest.
- Keep paragraphs short (2-4 sentences) with blank lines between them.

MATH (follow exactly):
- Every math expression MUST be wrapped in LaTeX dollar-sign delimiters.
- Inline math: $E = mc^2$. Display math on its own line between $$ markers.
- NEVER write math as plain text and NEVER use Unicode superscripts or math symbols.`

// AnswerQuestion generates the final answer from the assembled context.
// Unlike the other methods this one surfaces errors: the caller decides
// how to respond to the user.
func (c *CompletionClient) AnswerQuestion(ctx context.Context, question string, rc *domain.RetrievalContext, history []domain.ChatTurn) (domain.Answer, error) {
	var sb strings.Builder
	for _, entry := range rc.Entries {
		fmt.Fprintf(&sb, "Title: %s\n%s\n\n", entry.Title, entry.Text)
	}
	if rc.GraphContext != "" {
		fmt.Fprintf(&sb, "Related context from the knowledge graph:\n%s\n\n", rc.GraphContext)
	}

	messages := []chatMessage{{Role: "system", Content: answerSystemPrompt}}
	for _, turn := range recentTurns(history, 6) {
		role := "user"
		if turn.Role == "ai" {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, chatMessage{
		Role:    "user",
		Content: fmt.Sprintf("Context:\n%s\nQuestion: %s", sb.String(), question),
	})

	start := time.Now()
	text, err := c.complete(ctx, c.AnswerModel, messages, 0.4, 0)
	if err != nil {
		return domain.Answer{}, err
	}

	c.logger.Info("answer_generated",
		slog.String("model", c.AnswerModel),
		slog.Int("context_entry_count", len(rc.Entries)),
		slog.Duration("elapsed", time.Since(start)))

	return domain.Answer{Text: text, Sources: rc.Entries}, nil
}

func recentTurns(history []domain.ChatTurn, n int) []domain.ChatTurn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// stripCodeFences removes a surrounding markdown code fence, which models
// sometimes add despite instructions.
func stripCodeFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	if idx := strings.Index(raw, "\n"); idx >= 0 {
		raw = raw[idx+1:]
	} else {
		raw = raw[3:]
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

func fallbackTitle(firstMessage string) string {
	words := strings.Fields(firstMessage)
	if len(words) > 6 {
		words = words[:6]
	}
	if len(words) == 0 {
		return "New chat"
	}
	return strings.Join(words, " ")
}

var (
	_ domain.CompletionClient = (*CompletionClient)(nil)
	_ domain.Embedder         = (*Embedder)(nil)
)
