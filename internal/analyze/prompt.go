// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"strings"
	"text/template"

	"github.com/pdiddy/paper-graph/pkg/types"
)

const promptTemplate = `You are analyzing research papers on the topic "{{.Topic}}".

Papers:
{{range .Papers}}---
id: {{.ID}}
title: {{.Title}}
{{- if .Authors}}
authors: {{join .Authors ", "}}
{{- end}}
year: {{.Year}}
venue: {{.Venue}}
{{- if .Abstract}}
abstract: {{truncate .Abstract 400}}
{{- end}}
{{- if .Keywords}}
keywords: {{join .Keywords ", "}}
{{- end}}
{{end}}---

Identify relationships between these papers. Use only the paper ids
listed above. Allowed relationship types, strongest first:

  Cites, Builds_Upon, Validates, Applies, Compares, Contradicts, Shares_Method

For each relationship give an integer strength from 1 up to the type's
priority: Cites 5, Builds_Upon and Validates 4, Applies and Compares 3,
Contradicts and Shares_Method 2. List the entities (methods, datasets,
concepts) the papers share.

Respond with ONLY a JSON object in this exact shape, no prose:

{"edges": [{"source": "p1", "target": "p2", "relationship_type": "Builds_Upon", "strength": 4, "description": "one sentence", "shared_entities": ["entity"]}]}
`

var promptTmpl = template.Must(template.New("analysis").Funcs(template.FuncMap{
	"join": strings.Join,
	"truncate": func(s string, n int) string {
		if len(s) <= n {
			return s
		}
		return s[:n] + "..."
	},
}).Parse(promptTemplate))

// buildPrompt renders the analysis prompt for one batch of papers.
func buildPrompt(topic string, papers []*types.Paper) (string, error) {
	var sb strings.Builder
	err := promptTmpl.Execute(&sb, struct {
		Topic  string
		Papers []*types.Paper
	}{Topic: topic, Papers: papers})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
