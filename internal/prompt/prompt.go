// Package prompt renders the natural-language requests sent to the content
// generator. Every function here is a pure data-to-text transform.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/danielpatrickdp/adaptive-universe/internal/signals"
	"github.com/danielpatrickdp/adaptive-universe/internal/universe"
)

// #region rules
const authoringRules = `Authoring rules:
- Ground every scenario in ordinary daily-life settings (home, school, neighborhood, stores) unless a tag explicitly asks for something else.
- Aim for 60-80% alignment with the targeted curriculum standards; use at most 40% of the framing for the learner's interests.
- Use concrete, real-world props the learner could actually touch.`

const stepRules = `- Do not reuse any of the previous step's props: {{.PreviousProps}}.
- {{.HorizonRule}}`

var horizonRules = map[universe.Horizon]string{
	universe.HorizonDay:   "Advance time minimally: this is a single school day. Set advanceDay to true.",
	universe.HorizonWeek:  "Summarize the week as a short narrative with one milestone. Only set advanceDay if a single day should be counted.",
	universe.HorizonMonth: "Summarize the month through two or three narrative milestones. Only set advanceDay if a single day should be counted.",
	universe.HorizonYear:  "Summarize the year as a narrative arc with major milestones. Only set advanceDay if a single day should be counted.",
}

// #endregion rules

// #region templates
var briefTmpl = template.Must(template.New("brief").Parse(`You are designing a personalized learning universe.
Subject: {{.Subject}}
Grade band: {{.GradeBand}}
Learner interests: {{.Interests}}

` + authoringRules + `

Respond with JSON only, using this schema:
{"title": string, "synopsis": string, "props": [string], "tags": [string]}
Use 2-4 tags drawn from the learner interests and 2-4 props.`))

var stepTmpl = template.Must(template.New("step").Parse(`You are continuing a personalized learning universe.
Current universe state (JSON):
{{.StateJSON}}

Horizon for this step: {{.Horizon}}
Curriculum standards to target: {{.Standards}}
Engagement signals since the last step: {{.Signals}}

` + authoringRules + `
` + stepRules + `

Respond with JSON only. Every field is optional; include only what changes:
{"title": string, "synopsis": string, "tags": [string], "props": [string],
 "metrics": {"mastery": {standardId: number 0..1}, "engagement": number -1..1},
 "log": [{"t": string, "event": string, "payload": object}],
 "advanceDay": boolean}
If you include mastery, include every standard you want to keep.`))

// #endregion templates

// #region brief
// Brief renders the request for a brand-new universe.
func Brief(subject string, gradeBand universe.GradeBand, interests []string) string {
	joined := strings.Join(interests, ", ")
	if joined == "" {
		joined = "(none yet)"
	}
	return render(briefTmpl, struct {
		Subject   string
		GradeBand universe.GradeBand
		Interests string
	}{subject, gradeBand, joined})
}

// #endregion brief

// #region step
// Step renders the request for an incremental diff.
func Step(st universe.State, horizon universe.Horizon, standards []string, sigs []signals.Signal) string {
	stateJSON, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		stateJSON = []byte("{}")
	}

	rule, ok := horizonRules[horizon]
	if !ok {
		rule = horizonRules[universe.HorizonDay]
	}

	return render(stepTmpl, struct {
		StateJSON     string
		Horizon       universe.Horizon
		Standards     string
		Signals       string
		PreviousProps string
		HorizonRule   string
	}{
		StateJSON:     string(stateJSON),
		Horizon:       horizon,
		Standards:     listOrNone(standards),
		Signals:       formatSignals(sigs),
		PreviousProps: listOrNone(st.Props),
		HorizonRule:   rule,
	})
}

// #endregion step

// #region helpers
func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		// Templates only read plain fields; this cannot happen with the data above.
		return fmt.Sprintf("template %s: %v", t.Name(), err)
	}
	return buf.String()
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

func formatSignals(sigs []signals.Signal) string {
	if len(sigs) == 0 {
		return "(none)"
	}
	parts := make([]string, len(sigs))
	for i, s := range sigs {
		parts[i] = fmt.Sprintf("%s %+.2f", s.Tag, s.Delta)
	}
	return strings.Join(parts, ", ")
}

// #endregion helpers
