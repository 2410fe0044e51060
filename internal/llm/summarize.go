// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/research-buddy/pkg/types"
)

// Style selects the shape of a paper summary.
type Style string

const (
	StyleConcise   Style = "concise"
	StyleDetailed  Style = "detailed"
	StyleKeyPoints Style = "key-points"
)

// DefaultBatchSize caps SummarizeBatch to keep hosted rate limits happy.
const DefaultBatchSize = 5

const compareAbstractLimit = 500

var (
	ErrNoAbstract   = errors.New("no abstract available for summarization")
	ErrInvalidStyle = errors.New("invalid summary style (want concise, detailed or key-points)")
)

// ParseStyle maps a flag value to a Style.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "", StyleConcise:
		return StyleConcise, nil
	case StyleDetailed:
		return StyleDetailed, nil
	case StyleKeyPoints:
		return StyleKeyPoints, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStyle, s)
}

// Summarizer produces paper summaries. A nil Client falls back to
// extractive summaries.
type Summarizer struct {
	Client Client
}

func summaryPrompt(r types.PaperRecord, style Style) (string, error) {
	switch style {
	case StyleConcise:
		return fmt.Sprintf(`Summarize this research paper in exactly 3 clear sentences:

Title: %s

Abstract: %s

Provide: 1) Main topic, 2) Method/approach, 3) Key finding.`, r.Title, r.Abstract), nil
	case StyleDetailed:
		return fmt.Sprintf(`Provide a detailed but accessible summary (100-150 words) of this research paper:

Title: %s

Abstract: %s

Focus on: research question, methodology, main results, and significance.`, r.Title, r.Abstract), nil
	case StyleKeyPoints:
		return fmt.Sprintf(`Extract 5 key points from this research paper:

Title: %s

Abstract: %s

Format as bullet points covering: objective, method, results, conclusions, impact.`, r.Title, r.Abstract), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStyle, style)
}

// Summarize summarizes one record in the given style.
func (s *Summarizer) Summarize(ctx context.Context, r types.PaperRecord, style Style) (string, error) {
	if strings.TrimSpace(r.Abstract) == "" {
		return "", ErrNoAbstract
	}
	prompt, err := summaryPrompt(r, style)
	if err != nil {
		return "", err
	}
	if s.Client == nil {
		return Extractive(r.Abstract, 3), nil
	}
	out, err := s.Client.Generate(ctx, prompt, "")
	if err != nil {
		return "", fmt.Errorf("summarizing %s: %w", r.ID, err)
	}
	return out, nil
}

// BatchSummary pairs a record ID with its summary or the error that
// prevented one.
type BatchSummary struct {
	ID      string
	Summary string
	Err     error
}

// SummarizeBatch summarizes at most limit records (DefaultBatchSize when
// limit <= 0). A failed record does not stop the batch.
func (s *Summarizer) SummarizeBatch(ctx context.Context, records []types.PaperRecord, style Style, limit int) []BatchSummary {
	if limit <= 0 {
		limit = DefaultBatchSize
	}
	if len(records) > limit {
		records = records[:limit]
	}
	out := make([]BatchSummary, 0, len(records))
	for _, r := range records {
		text, err := s.Summarize(ctx, r, style)
		out = append(out, BatchSummary{ID: r.ID, Summary: text, Err: err})
	}
	return out
}

// Compare contrasts two papers. Abstracts are cut to 500 characters.
func (s *Summarizer) Compare(ctx context.Context, a, b types.PaperRecord) (string, error) {
	if s.Client == nil {
		return "", errors.New("comparison unavailable: no language model configured")
	}
	prompt := fmt.Sprintf(`Compare these two research papers and highlight key differences:

Paper 1:
Title: %s
Abstract: %s

Paper 2:
Title: %s
Abstract: %s

Provide: 1) Common theme, 2) Key differences in approach, 3) Complementary insights.`,
		a.Title, truncateRunes(a.Abstract, compareAbstractLimit),
		b.Title, truncateRunes(b.Abstract, compareAbstractLimit))
	return s.Client.Generate(ctx, prompt, "")
}

// ResearchReport writes a short literature overview of records on topic.
// Without a client, or when the model fails, it lists extractive summaries
// of each paper and returns the model error alongside.
func (s *Summarizer) ResearchReport(ctx context.Context, topic string, records []types.PaperRecord) (string, error) {
	if len(records) == 0 {
		return "", errors.New("no papers to report on")
	}
	if s.Client != nil {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Write a concise research report on %q based on these papers.\n", topic)
		sb.WriteString("Cover the main themes, notable methods, and open questions. Cite papers by number.\n\n")
		for i, r := range records {
			fmt.Fprintf(&sb, "[%d] %s (%s)\n%s\n\n", i+1, r.Title, yearString(r.Year), truncateRunes(r.Abstract, compareAbstractLimit))
		}
		out, err := s.Client.Generate(ctx, sb.String(), "You are Research Buddy, a helpful assistant specializing in academic research.")
		if err == nil {
			return out, nil
		}
		return extractiveReport(topic, records), err
	}
	return extractiveReport(topic, records), nil
}

func extractiveReport(topic string, records []types.PaperRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Papers on %s:\n", topic)
	for i, r := range records {
		fmt.Fprintf(&sb, "\n[%d] %s (%s)\n", i+1, r.Title, yearString(r.Year))
		if strings.TrimSpace(r.Abstract) != "" {
			sb.WriteString(Extractive(r.Abstract, 2))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Extractive returns the first n ". "-separated sentences of text,
// terminated with a period.
func Extractive(text string, n int) string {
	sentences := strings.Split(strings.TrimSpace(text), ". ")
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	return strings.TrimSuffix(strings.Join(sentences, ". "), ".") + "."
}

func yearString(y *int) string {
	if y == nil {
		return "n.d."
	}
	return fmt.Sprintf("%d", *y)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
