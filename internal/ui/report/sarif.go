package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"pyshape/internal/core/app"
	"pyshape/internal/core/ports"
	"pyshape/internal/engine/pipeline"
	"pyshape/internal/shared/version"

	"github.com/pmezard/go-difflib/difflib"
)

// SARIF v2.1.0, see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDFailure = "file-failed"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

// SARIF writes the run as a SARIF document. Every pass that changed a file
// is a warning at the first line that differs, skipped passes are notes and
// failed files are errors. URIs are relative to projectRoot.
func SARIF(w io.Writer, s *app.Summary, projectRoot string) error {
	results := make([]sarifResult, 0)
	used := make(map[string]bool)

	for _, r := range s.Reports {
		uri := relativeURI(projectRoot, r.Path)
		switch r.Outcome {
		case ports.OutcomeChanged:
			line := firstChangedLine(r.Before, r.After)
			for _, pass := range r.Applied {
				used[pass] = true
				results = append(results, sarifResult{
					RuleID:    pass,
					Level:     "warning",
					Message:   sarifMessage{Text: fmt.Sprintf("%s %s this file", pass, passVerb(s.Mode))},
					Locations: []sarifLocation{fileLocation(uri, line)},
				})
			}
		case ports.OutcomeFailed:
			used[ruleIDFailure] = true
			results = append(results, sarifResult{
				RuleID:    ruleIDFailure,
				Level:     "error",
				Message:   sarifMessage{Text: fmt.Sprint(r.Err)},
				Locations: []sarifLocation{fileLocation(uri, 0)},
			})
		}
		for _, skip := range r.Skipped {
			used[skip.Pass] = true
			results = append(results, sarifResult{
				RuleID:    skip.Pass,
				Level:     "note",
				Message:   sarifMessage{Text: fmt.Sprintf("%s skipped: %v", skip.Pass, skip.Err)},
				Locations: []sarifLocation{fileLocation(uri, 0)},
			})
		}
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "pyshape",
						Version: version.Version,
						Rules:   buildSARIFRules(used),
					},
				},
				Results: results,
			},
		},
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(out, '\n'))
	return err
}

func passVerb(mode app.Mode) string {
	if mode == app.ModeWrite {
		return "rewrote"
	}
	return "would rewrite"
}

// buildSARIFRules returns the rules referenced by results, in pass order.
func buildSARIFRules(used map[string]bool) []sarifRule {
	rules := make([]sarifRule, 0, len(used))
	for _, p := range pipeline.Passes() {
		if !used[p.Key] {
			continue
		}
		rules = append(rules, sarifRule{
			ID:               p.Key,
			Name:             ruleName(p.Key),
			ShortDescription: sarifMessage{Text: p.Description},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
		})
	}
	if used[ruleIDFailure] {
		rules = append(rules, sarifRule{
			ID:               ruleIDFailure,
			Name:             "FileFailed",
			ShortDescription: sarifMessage{Text: "The file could not be read, rewritten or written back."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "error"},
		})
	}
	return rules
}

// ruleName turns "order-class-methods" into "OrderClassMethods".
func ruleName(key string) string {
	var b strings.Builder
	for _, part := range strings.Split(key, "-") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return b.String()
}

// firstChangedLine is the 1-based line of before where after first differs,
// or 0 when they are equal.
func firstChangedLine(before, after []byte) int {
	m := difflib.NewMatcher(difflib.SplitLines(string(before)), difflib.SplitLines(string(after)))
	for _, op := range m.GetOpCodes() {
		if op.Tag != 'e' {
			return op.I1 + 1
		}
	}
	return 0
}

func fileLocation(uri string, line int) sarifLocation {
	loc := sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{
				URI:       uri,
				URIBaseID: "%SRCROOT%",
			},
		},
	}
	if line > 0 {
		loc.PhysicalLocation.Region = &sarifRegion{StartLine: line}
	}
	return loc
}

// relativeURI converts an absolute path to a forward-slash URI anchored at
// projectRoot.
func relativeURI(projectRoot, filePath string) string {
	if projectRoot != "" && filepath.IsAbs(filePath) {
		if rel, err := filepath.Rel(projectRoot, filePath); err == nil {
			filePath = rel
		}
	}
	return filepath.ToSlash(filePath)
}
