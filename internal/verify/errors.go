package verify

import (
	"errors"

	"loraverify/internal/description"
	"loraverify/internal/yolo"
)

// Kind names a class of verification failure.
type Kind string

const (
	KindConfigNotFound         Kind = "ConfigNotFound"
	KindConfigParse            Kind = "ConfigParseError"
	KindModelBuild             Kind = "ModelBuildError"
	KindNoAdapters             Kind = "NoAdaptersInjected"
	KindNotAllTrainable        Kind = "NotAllTrainable"
	KindFreeze                 Kind = "FreezeError"
	KindNoTrainableAdapter     Kind = "NoTrainableAdapterParamsFound"
	KindFreezeLeak             Kind = "FreezeLeak"
	KindNotIdempotent          Kind = "FreezeNotIdempotent"
	KindTrainableRatioOutRange Kind = "TrainableRatioOutOfRange"
)

// failure is the error returned by Run for a failed check.
type failure struct {
	kind  Kind
	check string
	msg   string
	err   error
}

func (e failure) Error() string {
	s := string(e.kind) + ": " + e.msg
	if e.err != nil {
		s += ": " + e.err.Error()
	}
	return s
}

func (e failure) Unwrap() error { return e.err }

// KindOf returns the failure kind carried by err, or "" if err is not a verification failure.
func KindOf(err error) Kind {
	var f failure
	if errors.As(err, &f) {
		return f.kind
	}
	switch {
	case description.IsNotFound(err):
		return KindConfigNotFound
	case description.IsParseError(err):
		return KindConfigParse
	case yolo.IsBuildError(err):
		return KindModelBuild
	}
	return ""
}

// IsFailure reports whether err is a verification failure of the given kind.
func IsFailure(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsNoAdapters reports whether the model was built without any adapter-augmented modules.
func IsNoAdapters(err error) bool { return IsFailure(err, KindNoAdapters) }

// IsRatioOutOfRange reports whether the trainable fraction after freezing was rejected.
func IsRatioOutOfRange(err error) bool { return IsFailure(err, KindTrainableRatioOutRange) }
