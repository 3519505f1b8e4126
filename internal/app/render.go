package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/specialistvlad/stageplan/internal/executor"
	"github.com/specialistvlad/stageplan/internal/pipeline"
	"github.com/specialistvlad/stageplan/internal/planner"
)

// theme centralizes the styling of text output.
type theme struct {
	box     lipgloss.Style
	title   lipgloss.Style
	header  lipgloss.Style
	dim     lipgloss.Style
	ok      lipgloss.Style
	failed  lipgloss.Style
	skipped lipgloss.Style
}

func newTheme(w io.Writer) theme {
	r := lipgloss.NewRenderer(w)
	return theme{
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1),
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")),
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#61AFEF")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("#888888")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		failed:  r.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		skipped: r.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
	}
}

// validationResult is the outcome of compiling one pipeline.
type validationResult struct {
	Pipeline   string   `json:"pipeline"`
	SourceFile string   `json:"sourceFile,omitempty"`
	Valid      bool     `json:"valid"`
	Errors     []string `json:"errors,omitempty"`
}

// validationReport pairs each definition with the problems compileErr
// reports for it.
func validationReport(defs []*pipeline.Definition, compileErr error) []validationResult {
	byPipeline := map[string][]string{}
	for _, err := range flatten(compileErr) {
		var perr *PipelineError
		if !errors.As(err, &perr) {
			continue
		}
		var verrs pipeline.ValidationErrors
		if errors.As(perr.Err, &verrs) {
			for _, v := range verrs {
				byPipeline[perr.Pipeline] = append(byPipeline[perr.Pipeline], v.Error())
			}
			continue
		}
		byPipeline[perr.Pipeline] = append(byPipeline[perr.Pipeline], perr.Err.Error())
	}

	results := make([]validationResult, 0, len(defs))
	for _, def := range defs {
		errs := byPipeline[def.Name]
		results = append(results, validationResult{
			Pipeline:   def.Name,
			SourceFile: def.SourceFile,
			Valid:      len(errs) == 0,
			Errors:     errs,
		})
	}
	return results
}

func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

// runResult is the JSON shape of a run summary.
type runResult struct {
	RunID       string         `json:"runId"`
	Pipeline    string         `json:"pipeline"`
	Fingerprint string         `json:"fingerprint"`
	Status      string         `json:"status"`
	StartedAt   time.Time      `json:"startedAt"`
	FinishedAt  time.Time      `json:"finishedAt"`
	DurationMS  int64          `json:"durationMs"`
	Actions     []actionResult `json:"actions"`
	Skipped     []string       `json:"skipped,omitempty"`
}

type actionResult struct {
	Name    string   `json:"actionName"`
	Outcome string   `json:"outcome"`
	Outputs []string `json:"outputs,omitempty"`
	Code    string   `json:"code,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

func newRunResult(s *executor.Summary, order []string) runResult {
	r := runResult{
		RunID:       s.RunID,
		Pipeline:    s.Pipeline,
		Fingerprint: s.Fingerprint,
		Status:      s.Status.String(),
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
		DurationMS:  s.Duration().Milliseconds(),
		Skipped:     s.Skipped,
	}
	for _, name := range order {
		o, ok := s.Outcomes[name]
		if !ok {
			continue
		}
		r.Actions = append(r.Actions, actionResult{
			Name:    name,
			Outcome: o.Kind.String(),
			Outputs: o.Outputs,
			Code:    o.Code,
			Reason:  o.Reason,
		})
	}
	return r
}

// render writes v in the configured output format.
func (a *App) render(v any) error {
	if a.config.Output == OutputJSON {
		enc := json.NewEncoder(a.outW)
		enc.SetIndent("", "  ")
		switch t := v.(type) {
		case []*executor.Summary:
			return enc.Encode(a.runResults(t))
		case []*planner.ExecutionPlan:
			if t == nil {
				t = []*planner.ExecutionPlan{}
			}
			return enc.Encode(t)
		}
		return enc.Encode(v)
	}

	th := newTheme(a.outW)
	var blocks []string
	switch t := v.(type) {
	case []validationResult:
		for _, r := range t {
			blocks = append(blocks, th.validation(r))
		}
	case []*planner.ExecutionPlan:
		for _, p := range t {
			blocks = append(blocks, th.plan(p))
		}
	case []*executor.Summary:
		for _, r := range a.runResults(t) {
			blocks = append(blocks, th.run(r))
		}
	default:
		return fmt.Errorf("cannot render %T", v)
	}
	for _, b := range blocks {
		if _, err := fmt.Fprintln(a.outW, b); err != nil {
			return err
		}
	}
	return nil
}

// runResults orders the outcomes of each summary by plan order.
func (a *App) runResults(summaries []*executor.Summary) []runResult {
	plans := map[string]*planner.ExecutionPlan{}
	for _, p := range a.Plans() {
		plans[p.Pipeline] = p
	}
	results := make([]runResult, 0, len(summaries))
	for _, s := range summaries {
		var order []string
		if p, ok := plans[s.Pipeline]; ok {
			for _, wave := range p.Names() {
				order = append(order, wave...)
			}
		}
		results = append(results, newRunResult(s, order))
	}
	return results
}

func (th theme) validation(r validationResult) string {
	if r.Valid {
		return fmt.Sprintf("%s %s", th.ok.Render("✔"), th.title.Render(r.Pipeline))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", th.failed.Render("✘"), th.title.Render(r.Pipeline))
	if r.SourceFile != "" {
		fmt.Fprintf(&sb, " %s", th.dim.Render(r.SourceFile))
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&sb, "\n  - %s", e)
	}
	return sb.String()
}

func (th theme) plan(p *planner.ExecutionPlan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", th.title.Render(p.Pipeline), th.dim.Render(p.Fingerprint))
	for _, w := range p.Waves {
		fmt.Fprintf(&sb, "\n%s", th.header.Render(fmt.Sprintf("Wave %d", w.Index+1)))
		for _, a := range w.Actions {
			fmt.Fprintf(&sb, "\n  • %s %s", a.Name, th.dim.Render(fmt.Sprintf("[%s/%s]", a.Stage, a.Kind)))
			if a.Uses != "" {
				fmt.Fprintf(&sb, " uses %s", a.Uses)
			}
			for _, in := range a.Inputs {
				fmt.Fprintf(&sb, "\n      ← %s %s", in.ID, th.dim.Render("from "+in.ProducedBy))
			}
			for _, out := range a.Outputs {
				fmt.Fprintf(&sb, "\n      → %s %s", out.ID, th.dim.Render(out.Location))
			}
		}
	}
	return th.box.Render(sb.String())
}

func (th theme) run(r runResult) string {
	var sb strings.Builder
	status := th.ok
	if r.Status != "succeeded" {
		status = th.failed
	}
	fmt.Fprintf(&sb, "%s %s %s", th.title.Render(r.Pipeline), status.Render(r.Status), th.dim.Render(time.Duration(r.DurationMS*int64(time.Millisecond)).String()))
	fmt.Fprintf(&sb, "\n%s", th.dim.Render("run "+r.RunID))
	for _, a := range r.Actions {
		style := th.ok
		if a.Outcome != "succeeded" {
			style = th.failed
		}
		fmt.Fprintf(&sb, "\n  %s %s", style.Render(a.Outcome), a.Name)
		if a.Code != "" {
			fmt.Fprintf(&sb, " %s", th.dim.Render(a.Code+": "+a.Reason))
		}
	}
	for _, name := range r.Skipped {
		fmt.Fprintf(&sb, "\n  %s %s", th.skipped.Render("skipped"), name)
	}
	return th.box.Render(sb.String())
}
