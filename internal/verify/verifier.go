// Package verify checks that low-rank adapters were injected into a model built
// from a description and that freezing leaves only a small trainable fraction.
//
// Run executes a fixed sequence of checks and stops at the first failure:
//
//	load-description -> build-model -> adapters-injected -> initial-trainable ->
//	apply-freezing -> adapter-trainable -> freeze-leak -> freeze-idempotent ->
//	trainable-ratio
//
// Nothing is retried and no state outlives the run.
package verify

import (
	"fmt"

	"github.com/rs/zerolog"

	"loraverify/internal/description"
	"loraverify/internal/lora"
	"loraverify/internal/nn"
	"loraverify/internal/yolo"
)

// Check names, in execution order.
const (
	CheckLoad             = "load-description"
	CheckBuild            = "build-model"
	CheckAdapters         = "adapters-injected"
	CheckInitial          = "initial-trainable"
	CheckFreeze           = "apply-freezing"
	CheckAdapterTrainable = "adapter-trainable"
	CheckLeak             = "freeze-leak"
	CheckIdempotent       = "freeze-idempotent"
	CheckRatio            = "trainable-ratio"
)

// Options configures a Verifier.
type Options struct {
	// Path of the model description.
	Path string
	// Threshold is the exclusive upper bound on trainable/total after freezing.
	Threshold float64
	// BiasMode is the bias policy passed to the freezing step.
	BiasMode lora.BiasMode
	// Logger receives progress and diagnostics; nil disables logging.
	Logger *zerolog.Logger
}

// Verifier runs the adapter checks for one description.
type Verifier struct {
	opts Options
	log  zerolog.Logger
}

// New validates opts and returns a Verifier.
func New(opts Options) (*Verifier, error) {
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("threshold must be in (0,1], got %g", opts.Threshold)
	}
	mode, err := lora.ParseBiasMode(string(opts.BiasMode))
	if err != nil {
		return nil, err
	}
	opts.BiasMode = mode
	v := &Verifier{opts: opts, log: zerolog.Nop()}
	if opts.Logger != nil {
		v.log = opts.Logger.With().Str("component", "verify").Logger()
	}
	return v, nil
}

// Run executes every check in order. The report always describes the checks
// that ran; the error is non-nil when one of them failed.
func (v *Verifier) Run() (*Report, error) {
	r := &Report{Path: v.opts.Path, Threshold: v.opts.Threshold, BiasMode: v.opts.BiasMode}
	v.log.Info().Str("path", v.opts.Path).Msg("loading description")

	desc, err := description.Load(v.opts.Path)
	if err != nil {
		kind := KindConfigParse
		if description.IsNotFound(err) {
			kind = KindConfigNotFound
		}
		return v.fail(r, SectionLoad, CheckLoad, kind, "could not load model description", err)
	}
	r.Description = desc.String()
	r.pass(SectionLoad, CheckLoad, "description loaded",
		fact("Description", r.Description))

	model, err := yolo.Build(desc)
	if err != nil {
		return v.fail(r, SectionLoad, CheckBuild, KindModelBuild, "model construction failed", err)
	}
	root := model.Root
	r.pass(SectionLoad, CheckBuild, "model built",
		fact("Layers", fmt.Sprintf("%d", model.NumLayers())))
	v.log.Debug().Int("layers", model.NumLayers()).Msg("model built")

	for name, m := range lora.FindAdapters(root) {
		r.Adapters = append(r.Adapters, AdapterModule{
			Name:   name,
			Type:   m.Type,
			Rank:   m.Rank,
			Params: nn.Count(m, lora.IsAdapterParam),
		})
	}
	if len(r.Adapters) == 0 {
		return v.fail(r, SectionStructure, CheckAdapters, KindNoAdapters,
			"No "+lora.TypeConv2d+" layers were found in the model.", nil)
	}
	r.pass(SectionStructure, CheckAdapters,
		fmt.Sprintf("LoRA layers have been successfully injected into the model (%d modules).", len(r.Adapters)))

	r.Params.Total = nn.Count(root, nn.All)
	r.Params.Adapter = nn.Count(root, lora.IsAdapterParam)
	r.Params.TrainableBefore = nn.Count(root, nn.Trainable)
	if r.Params.TrainableBefore != r.Params.Total {
		return v.fail(r, SectionParams, CheckInitial, KindNotAllTrainable,
			fmt.Sprintf("%d of %d parameters trainable before freezing", r.Params.TrainableBefore, r.Params.Total), nil)
	}
	r.pass(SectionParams, CheckInitial, "All parameters are trainable before freezing.",
		fact("Total parameters", millions(r.Params.Total)),
		fact("Trainable parameters (before freezing)", millions(r.Params.TrainableBefore)))

	applied, err := lora.MarkOnlyAdapterTrainable(root, v.opts.BiasMode)
	if err != nil {
		return v.fail(r, SectionParams, CheckFreeze, KindFreeze, "freezing policy failed", err)
	}
	r.Params.TrainableAfter = nn.Count(root, nn.Trainable)
	r.Params.AdapterTrainable = nn.Count(root, nn.And(nn.Trainable, lora.IsAdapterParam))
	r.Params.Ratio = float64(r.Params.TrainableAfter) / float64(r.Params.Total)
	r.Digest = applied.DigestString()
	r.pass(SectionParams, CheckFreeze, fmt.Sprintf("Freezing applied (bias=%s).", v.opts.BiasMode),
		fact(fmt.Sprintf("Trainable parameters (after freezing, bias=%s)", v.opts.BiasMode), millions(r.Params.TrainableAfter)),
		fact("Adapter parameters", count(r.Params.Adapter)))
	v.log.Debug().Int64("total", r.Params.Total).Int64("trainable", r.Params.TrainableAfter).
		Str("digest", r.Digest).Msg("freezing applied")

	if r.Params.AdapterTrainable == 0 {
		return v.fail(r, SectionParams, CheckAdapterTrainable, KindNoTrainableAdapter,
			"no adapter parameter is trainable after freezing", nil)
	}
	r.pass(SectionParams, CheckAdapterTrainable,
		fmt.Sprintf("%s adapter parameters remain trainable.", count(r.Params.AdapterTrainable)))

	if v.opts.BiasMode == lora.BiasNone {
		r.Leaked = nn.Names(root, nn.And(nn.Trainable, nn.Not(lora.IsAdapterParam)))
		if len(r.Leaked) > 0 {
			return v.fail(r, SectionParams, CheckLeak, KindFreezeLeak,
				fmt.Sprintf("%d non-adapter parameters still trainable (first: %s)", len(r.Leaked), r.Leaked[0]), nil)
		}
		r.pass(SectionParams, CheckLeak, "Only adapter parameters are trainable.")
	}

	again, err := lora.Plan(root, v.opts.BiasMode)
	if err != nil {
		return v.fail(r, SectionParams, CheckIdempotent, KindFreeze, "re-planning failed", err)
	}
	if !again.Equal(applied) || !nn.Snapshot(root).Equal(applied) {
		return v.fail(r, SectionParams, CheckIdempotent, KindNotIdempotent,
			fmt.Sprintf("second freezing pass changes %d parameters", len(applied.Changed(again))), nil)
	}
	r.pass(SectionParams, CheckIdempotent, "Freezing is idempotent.",
		fact("Trainable set digest", r.Digest))

	limit := float64(r.Params.Total) * v.opts.Threshold
	ratioFact := fact("Trainable ratio", fmt.Sprintf("%.4f%% (limit %.2f%%)", r.Params.Ratio*100, v.opts.Threshold*100))
	if r.Params.TrainableAfter <= 0 || float64(r.Params.TrainableAfter) >= limit {
		return v.fail(r, SectionParams, CheckRatio, KindTrainableRatioOutRange,
			"Parameter freezing did not work as expected.", nil, ratioFact)
	}
	r.pass(SectionParams, CheckRatio, "The number of trainable parameters has been drastically reduced.", ratioFact)

	v.log.Info().Int("adapters", len(r.Adapters)).Float64("ratio", r.Params.Ratio).Msg("verification passed")
	return r, nil
}

func (v *Verifier) fail(r *Report, section Section, check string, kind Kind, msg string, cause error, facts ...Fact) (*Report, error) {
	err := failure{kind: kind, check: check, msg: msg, err: cause}
	detail := msg
	if cause != nil {
		detail += ": " + cause.Error()
	}
	r.Checks = append(r.Checks, Check{Section: section, Name: check, Status: StatusFail, Detail: detail, Facts: facts})
	r.Err = err
	r.Kind = kind
	v.log.Error().Str("check", check).Str("kind", string(kind)).Err(cause).Msg(msg)
	return r, err
}
