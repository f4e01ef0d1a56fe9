package verify

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/colorstring"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"loraverify/internal/lora"
	"loraverify/pkg/types"
)

// Section groups checks in the text report.
type Section string

const (
	SectionLoad      Section = "load"
	SectionStructure Section = "structure"
	SectionParams    Section = "params"
)

var sectionTitles = map[Section]string{
	SectionStructure: "Model structure check",
	SectionParams:    "Parameter count check",
}

// Status of a check.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// Fact is a labeled value printed ahead of a check's status line.
type Fact struct {
	Label string
	Value string
}

func fact(label, value string) Fact { return Fact{Label: label, Value: value} }

// Check is one executed verification step.
type Check struct {
	Section Section
	Name    string
	Status  Status
	Detail  string
	Facts   []Fact
}

// AdapterModule is an adapter-augmented module found in the model.
type AdapterModule struct {
	Name   string
	Type   string
	Rank   int
	Params int64
}

// ParamCounts holds element counts gathered during the run.
type ParamCounts struct {
	Total            int64
	TrainableBefore  int64
	TrainableAfter   int64
	Adapter          int64
	AdapterTrainable int64
	Ratio            float64
}

// Report collects everything a run observed.
type Report struct {
	Path        string
	Description string
	Threshold   float64
	BiasMode    lora.BiasMode
	Adapters    []AdapterModule
	Params      ParamCounts
	// Leaked lists non-adapter parameters left trainable with bias mode none.
	Leaked []string
	Digest string
	Checks []Check
	// Err and Kind describe the first failed check.
	Err  error
	Kind Kind
}

// Passed reports whether every check succeeded.
func (r *Report) Passed() bool { return r.Err == nil }

func (r *Report) pass(section Section, name, detail string, facts ...Fact) {
	r.Checks = append(r.Checks, Check{Section: section, Name: name, Status: StatusPass, Detail: detail, Facts: facts})
}

var printer = message.NewPrinter(language.English)

// count formats n with thousands separators.
func count(n int64) string { return printer.Sprintf("%d", n) }

// millions formats n the way parameter counts are usually quoted, with the exact value alongside.
func millions(n int64) string {
	return fmt.Sprintf("%.2fM (%s)", float64(n)/1e6, count(n))
}

// WriteText writes the human-readable report. With color unset, no escape
// sequences are emitted.
func (r *Report) WriteText(w io.Writer, color bool) error {
	c := &colorstring.Colorize{Colors: colorstring.DefaultColors, Disable: !color, Reset: true}
	var b strings.Builder
	line := func(format string, a ...any) { fmt.Fprintf(&b, format+"\n", a...) }

	line(c.Color("[bold]--- Verifying LoRA integration ---"))
	line("Loading model from %s...", r.Path)
	section := SectionLoad
	for _, ch := range r.Checks {
		if ch.Section != section {
			section = ch.Section
			line("")
			line("%s:", sectionTitles[section])
			if section == SectionStructure {
				for _, a := range r.Adapters {
					line("  - Found %s at: %s (rank %d, %s adapter params)", a.Type, a.Name, a.Rank, count(a.Params))
				}
			}
		}
		for _, f := range ch.Facts {
			line("  - %s: %s", f.Label, f.Value)
		}
		switch ch.Status {
		case StatusPass:
			line("  - %s: %s", c.Color("[green]SUCCESS"), ch.Detail)
		default:
			line("  - %s: %s", c.Color("[red]FAILED"), ch.Detail)
		}
	}
	line("")
	if r.Passed() {
		line("Result: %s", c.Color("[bold][green]PASS"))
	} else {
		line("Result: %s (%s)", c.Color("[bold][red]FAIL"), r.Kind)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Payload converts the report into its JSON form.
func (r *Report) Payload() types.ReportResponse {
	out := types.ReportResponse{
		Path:            r.Path,
		Description:     r.Description,
		Passed:          r.Passed(),
		FailureKind:     string(r.Kind),
		Threshold:       r.Threshold,
		BiasMode:        string(r.BiasMode),
		Adapters:        make([]types.AdapterModule, 0, len(r.Adapters)),
		TrainableDigest: r.Digest,
		Checks:          make([]types.CheckResult, 0, len(r.Checks)),
		Params: types.ParamCounts{
			Total:            r.Params.Total,
			TrainableBefore:  r.Params.TrainableBefore,
			TrainableAfter:   r.Params.TrainableAfter,
			Adapter:          r.Params.Adapter,
			AdapterTrainable: r.Params.AdapterTrainable,
			Ratio:            r.Params.Ratio,
		},
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	for _, a := range r.Adapters {
		out.Adapters = append(out.Adapters, types.AdapterModule{Name: a.Name, Type: a.Type, Rank: a.Rank, AdapterParams: a.Params})
	}
	for _, ch := range r.Checks {
		out.Checks = append(out.Checks, types.CheckResult{Name: ch.Name, Status: string(ch.Status), Detail: ch.Detail})
	}
	return out
}

// WriteJSON writes the JSON payload followed by a newline.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Payload())
}
