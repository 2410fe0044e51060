// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"strings"
)

const refineSystemPrompt = `You are an expert research assistant. Extract comprehensive research parameters from user queries.
Return only a JSON object with:
{
  "main_topic": "primary research area",
  "techniques": ["method1", "method2"],
  "domains": ["domain1", "domain2"],
  "keywords": ["key1", "key2", "key3"],
  "time_period": "if mentioned",
  "paper_type": "review/survey/experimental/theoretical"
}`

// QueryParameters is the structured reading of a research question.
type QueryParameters struct {
	MainTopic  string   `json:"main_topic" yaml:"main_topic"`
	Techniques []string `json:"techniques,omitempty" yaml:"techniques,omitempty"`
	Domains    []string `json:"domains,omitempty" yaml:"domains,omitempty"`
	Keywords   []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	TimePeriod string   `json:"time_period,omitempty" yaml:"time_period,omitempty"`
	PaperType  string   `json:"paper_type,omitempty" yaml:"paper_type,omitempty"`

	// Refined is false when the parameters came from the fallback.
	Refined bool `json:"-" yaml:"refined"`
}

// SearchText is the query sent to the sources: the main topic, or the
// original text when the model did not name one.
func (p QueryParameters) SearchText(original string) string {
	if t := strings.TrimSpace(p.MainTopic); t != "" {
		return t
	}
	return original
}

// fallbackParameters treats the whole text as the topic and its words as
// keywords.
func fallbackParameters(text string) QueryParameters {
	return QueryParameters{MainTopic: text, Keywords: strings.Fields(text)}
}

// RefineQuery asks the model to structure text. Any failure, including a
// nil client or an unparsable answer, yields the fallback parameters; the
// second return value carries the failure for logging.
func RefineQuery(ctx context.Context, client Client, text string) (QueryParameters, error) {
	if client == nil {
		return fallbackParameters(text), nil
	}
	resp, err := client.Generate(ctx, "Extract parameters from: '"+text+"'", refineSystemPrompt)
	if err != nil {
		return fallbackParameters(text), err
	}
	var p QueryParameters
	if err := json.Unmarshal([]byte(stripFences(resp)), &p); err != nil {
		return fallbackParameters(text), err
	}
	p.Refined = true
	return p, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.HasPrefix(strings.TrimSpace(s[:nl]), "{") {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

var researchKeywords = []string{
	"paper", "research", "study", "article", "publication",
	"find", "search", "looking for", "about", "on",
	"detection", "model", "algorithm", "method", "approach",
}

// IsResearchQuery reports whether text looks like a request for papers
// rather than small talk. Matching is by substring, so "on" matches
// "segmentation".
func IsResearchQuery(text string) bool {
	q := strings.ToLower(text)
	for _, kw := range researchKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return len(strings.Fields(text)) > 3
}
