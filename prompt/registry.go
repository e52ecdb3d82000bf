package prompt

import (
	"context"
	"fmt"
	"sort"
)

// Template IDs for the campaign workflow. External completion services are
// addressed by template ID so the prompt wording lives in exactly one place.
const (
	TemplateRouter              = "router"
	TemplatePlanner             = "planner"
	TemplateWriter              = "writer"
	TemplateReviewer            = "reviewer"
	TemplateRetrievalGrader     = "retrieval_grader"
	TemplateHallucinationGrader = "hallucination_grader"
	TemplateQueryRewriter       = "query_rewriter"
	TemplateChitChat            = "chitchat"
	TemplateClarification       = "clarification"
)

const routerText = `You are an expert router. Classify the user query into one of the following categories:
- Factual: Queries that require specific facts or data retrieval.
- Analytical: Queries that require analysis, comparisons, or strategic thinking.
- ChitChat: General conversation, greetings, or non-business related queries.
- ClarificationNeeded: Queries that are ambiguous or lack enough information to proceed.

User Query: ${goal}
`

const plannerText = `You are a senior marketing strategist. Given a campaign goal, list the key 3-5 assets needed.
Your output should include your reasoning in the scratchpad before providing the structured plan.

Scratchpad: (Think about the target audience, channels, and objective)

Goal: ${goal}
`

const writerText = `You are a marketing copywriter. Write a ${asset_type} for this goal.
Use the following context/guidelines:
${context}

Reasoning Trace: (Think about the tone, key message, and call to action based on the context)

Goal: ${goal}
Asset Type: ${asset_type}
`

const writerRevisionText = `You are a marketing copywriter revising a ${asset_type} based on reviewer feedback.
Use the following context/guidelines:
${context}

Feedback to address: ${feedback}

Goal: ${goal}
Asset Type: ${asset_type}
`

const reviewerText = `You are a brand compliance officer. Review the text below against these guidelines:
${guidelines}

Reasoning Trace: (Analyze the text for tone, forbidden words, and alignment with guidelines)

Asset: ${asset}
Content: ${content}
`

const retrievalGraderText = `You are a grader assessing relevance of a retrieved document to a user question.
If the document contains keyword(s) or semantic meaning related to the user question, grade it as relevant.
It does not need to be a perfect answer; the goal is to filter out clearly irrelevant documents.

Give a binary score 'yes' or 'no' score to indicate whether the document is relevant to the question.

Retrieved Document:
${document}

User Question: ${question}
`

const hallucinationGraderText = `You are a grader assessing whether an LLM generation is grounded in / supported by a set of retrieved facts.
Give a binary score 'yes' or 'no'. 'yes' means that the answer is grounded in / supported by the set of facts.

Set of Facts:
${documents}

LLM Generation: ${generation}
`

const queryRewriterText = `You are a query rewriter improving a search query that failed to retrieve relevant documents.
Rewrite the query to be more specific about the asset being produced, preserving the original intent.

Original Query: ${goal}
Asset: ${asset}
`

const chitChatText = `You are a friendly marketing assistant. Reply conversationally to the message below.

Message: ${goal}
`

const clarificationText = `The campaign goal below is ambiguous or lacks enough information to plan from.
Ask the user a short, concrete clarifying question.

Goal: ${goal}
`

// TemplateWriterRevision is the writer prompt variant used when regenerating
// an asset after human feedback.
const TemplateWriterRevision = "writer_revision"

// Registry holds the compiled prompt templates for the campaign workflow.
type Registry struct {
	templates map[string]*Template
}

// NewRegistry compiles the built-in prompt set with the given engine. A nil
// engine defaults to Risor with the standard globals.
func NewRegistry(engine Compiler) (*Registry, error) {
	if engine == nil {
		engine = NewRisorEngine(DefaultGlobals())
	}
	texts := map[string]string{
		TemplateRouter:              routerText,
		TemplatePlanner:             plannerText,
		TemplateWriter:              writerText,
		TemplateWriterRevision:      writerRevisionText,
		TemplateReviewer:            reviewerText,
		TemplateRetrievalGrader:     retrievalGraderText,
		TemplateHallucinationGrader: hallucinationGraderText,
		TemplateQueryRewriter:       queryRewriterText,
		TemplateChitChat:            chitChatText,
		TemplateClarification:       clarificationText,
	}
	templates := make(map[string]*Template, len(texts))
	for id, text := range texts {
		template, err := NewTemplate(engine, text)
		if err != nil {
			return nil, fmt.Errorf("failed to compile template %q: %w", id, err)
		}
		templates[id] = template
	}
	return &Registry{templates: templates}, nil
}

// Render renders the named template with the given variables.
func (r *Registry) Render(ctx context.Context, templateID string, vars map[string]any) (string, error) {
	template, ok := r.templates[templateID]
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", templateID)
	}
	return template.Render(ctx, vars)
}

// Template returns the named template.
func (r *Registry) Template(templateID string) (*Template, bool) {
	template, ok := r.templates[templateID]
	return template, ok
}

// TemplateIDs returns the sorted IDs of all registered templates.
func (r *Registry) TemplateIDs() []string {
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
