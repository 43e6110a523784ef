// internal/inference/decode.go
package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mwiater/nidsbench/internal/comparison"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidPayload marks a response body that is not a model run at all.
var ErrInvalidPayload = errors.New("inference: invalid payload")

// fieldAliases lists the accepted spellings of each result field, preferred first.
var fieldAliases = map[string][]string{
	"sampleId":        {"sampleId", "sample_id", "id"},
	"isMalicious":     {"isMalicious", "is_malicious"},
	"threatType":      {"threatType", "threat_type"},
	"confidence":      {"confidence"},
	"predictionLabel": {"predictionLabel", "prediction_label"},
	"originalLabel":   {"originalLabel", "original_label"},
}

var runAliases = map[string][]string{
	"processingTime": {"processingTime", "processing_time"},
	"model":          {"model", "model_name"},
}

func resultSchema() map[string]any {
	props := map[string]any{}
	for _, k := range fieldAliases["sampleId"] {
		props[k] = map[string]any{"type": "integer"}
	}
	for _, k := range fieldAliases["isMalicious"] {
		props[k] = map[string]any{"type": "boolean"}
	}
	for _, k := range fieldAliases["threatType"] {
		props[k] = map[string]any{"type": "string"}
	}
	props["confidence"] = map[string]any{"type": "number"}
	for _, k := range fieldAliases["predictionLabel"] {
		props[k] = map[string]any{"type": "string"}
	}
	for _, k := range fieldAliases["originalLabel"] {
		props[k] = map[string]any{"type": []any{"string", "null"}}
	}
	return map[string]any{"type": "object", "properties": props}
}

// runSchema accepts either a bare result array or an object holding one.
func runSchema() map[string]any {
	results := map[string]any{"type": "array", "items": resultSchema()}
	return map[string]any{
		"oneOf": []any{
			results,
			map[string]any{
				"type":     "object",
				"required": []any{"results"},
				"properties": map[string]any{
					"results":         results,
					"model":           map[string]any{"type": "string"},
					"model_name":      map[string]any{"type": "string"},
					"processingTime":  map[string]any{"type": "number", "minimum": 0},
					"processing_time": map[string]any{"type": "number", "minimum": 0},
				},
			},
		},
	}
}

func validateSchema(raw []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(runSchema()), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if result.Valid() {
		return nil
	}
	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(details, "; "))
}

// DecodeRun parses one model's response into a ModelRun. name is used when the payload
// does not name its model. Every missing or mistyped field is reported, not guessed.
func DecodeRun(name string, raw []byte) (comparison.ModelRun, error) {
	if err := validateSchema(raw); err != nil {
		return comparison.ModelRun{}, err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return comparison.ModelRun{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	run := comparison.ModelRun{Model: name}
	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		items, _ = v["results"].([]any)
		if model, ok := lookup(v, runAliases["model"]); ok {
			if s, _ := model.(string); strings.TrimSpace(s) != "" && run.Model == "" {
				run.Model = s
			}
		}
		if pt, ok := lookup(v, runAliases["processingTime"]); ok {
			seconds, _ := pt.(float64)
			run.ProcessingTime = secondsToDuration(seconds)
		}
	}
	return decodeResults(run, items)
}

// DecodeCombined parses the combined benchmark document, keyed by model name, that the
// service returns when it scores both models in one call.
func DecodeCombined(raw []byte, modelA, modelB string) (comparison.ModelRun, comparison.ModelRun, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return comparison.ModelRun{}, comparison.ModelRun{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	section := func(model string) (comparison.ModelRun, error) {
		part, ok := doc[model]
		if !ok {
			return comparison.ModelRun{}, fmt.Errorf("%w: no %q section in combined document", ErrInvalidPayload, model)
		}
		return DecodeRun(model, part)
	}
	a, errA := section(modelA)
	b, errB := section(modelB)
	if err := errors.Join(errA, errB); err != nil {
		return comparison.ModelRun{}, comparison.ModelRun{}, err
	}
	return a, b, nil
}

func decodeResults(run comparison.ModelRun, items []any) (comparison.ModelRun, error) {
	var errs []error
	run.Results = make([]comparison.ClassificationResult, 0, len(items))
	for i, item := range items {
		obj, _ := item.(map[string]any)
		missing := func(field string) {
			errs = append(errs, &comparison.MalformedResultError{Model: run.Model, Index: i, Field: field, Reason: "is missing"})
		}

		// The service numbers results by position; a payload without ids keeps that order.
		r := comparison.ClassificationResult{SampleID: i}
		if v, ok := lookup(obj, fieldAliases["sampleId"]); ok {
			f, _ := v.(float64)
			r.SampleID = int(f)
		}
		if v, ok := lookup(obj, fieldAliases["isMalicious"]); ok {
			r.IsMalicious, _ = v.(bool)
		} else {
			missing("isMalicious")
		}
		if v, ok := lookup(obj, fieldAliases["threatType"]); ok {
			r.ThreatType, _ = v.(string)
		} else {
			missing("threatType")
		}
		if v, ok := lookup(obj, fieldAliases["confidence"]); ok {
			r.Confidence, _ = v.(float64)
		} else {
			missing("confidence")
		}
		if v, ok := lookup(obj, fieldAliases["predictionLabel"]); ok {
			r.PredictionLabel, _ = v.(string)
		}
		if v, ok := lookup(obj, fieldAliases["originalLabel"]); ok {
			if s, isString := v.(string); isString {
				r.OriginalLabel = &s
			}
		}
		run.Results = append(run.Results, r)
	}
	if err := errors.Join(errs...); err != nil {
		return comparison.ModelRun{}, err
	}
	return run, nil
}

func lookup(obj map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return comparison.DurationFromSeconds(seconds)
}
