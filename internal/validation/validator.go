// Package validation checks insight payloads before they reach the matching engine.
// Payloads arrive as raw JSON because they may come from a remote agent.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"campaign-engine/internal/model"
)

// Status is the three-state outcome of a validation.
type Status string

const (
	StatusUnavailable Status = "unavailable"
	StatusInvalid     Status = "invalid"
	StatusValid       Status = "valid"
)

// Verdict carries the decoded insight only when Status is StatusValid.
type Verdict[T any] struct {
	Status  Status   `json:"status"`
	Errors  []string `json:"errors,omitempty"`
	Insight *T       `json:"-"`
}

// Valid reports whether the insight can be used.
func (v Verdict[T]) Valid() bool { return v.Status == StatusValid }

var customerRequired = []string{
	"customerId",
	"churnSegment",
	"valueSegment",
	"loyaltyTier",
	"affinityCategory",
	"diversityProfile",
}

var productLists = []string{"heroProducts", "slowMovers", "newProducts", "seasonalProducts"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// go-playground/validator: report json field names instead of Go names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct runs the struct-tag rules on any value. Used for request bodies too.
func Struct(v any) []string {
	return describe(validate.Struct(v))
}

// CustomerInsight validates a CustomerInsightJSON payload.
func CustomerInsight(raw json.RawMessage) Verdict[model.CustomerInsight] {
	if absent(raw) {
		return Verdict[model.CustomerInsight]{Status: StatusUnavailable}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return invalid[model.CustomerInsight]("customerInsight is not a JSON object")
	}

	problems := []string{}
	for _, key := range customerRequired {
		if absent(fields[key]) {
			problems = append(problems, "customerInsight."+key+" missing")
		}
	}
	if len(problems) > 0 {
		return invalid[model.CustomerInsight](problems...)
	}

	var insight model.CustomerInsight
	if err := json.Unmarshal(raw, &insight); err != nil {
		return invalid[model.CustomerInsight](fmt.Sprintf("customerInsight: %v", err))
	}
	if problems := Struct(&insight); len(problems) > 0 {
		return invalid[model.CustomerInsight](problems...)
	}
	return Verdict[model.CustomerInsight]{Status: StatusValid, Insight: &insight}
}

// ProductInsight validates a ProductInsightJSON payload. Every key is optional,
// but list entries must be objects.
func ProductInsight(raw json.RawMessage) Verdict[model.ProductInsight] {
	if absent(raw) {
		return Verdict[model.ProductInsight]{Status: StatusUnavailable}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return invalid[model.ProductInsight]("productInsight is not a JSON object")
	}

	problems := []string{}
	for _, key := range productLists {
		if absent(fields[key]) {
			continue
		}
		var entries []json.RawMessage
		if err := json.Unmarshal(fields[key], &entries); err != nil {
			problems = append(problems, "productInsight."+key+" is not a list")
			continue
		}
		for i, e := range entries {
			if t := bytes.TrimSpace(e); len(t) == 0 || t[0] != '{' {
				problems = append(problems, fmt.Sprintf("productInsight.%s[%d] is not an object", key, i))
			}
		}
	}
	if len(problems) > 0 {
		return invalid[model.ProductInsight](problems...)
	}

	var insight model.ProductInsight
	if err := json.Unmarshal(raw, &insight); err != nil {
		return invalid[model.ProductInsight](fmt.Sprintf("productInsight: %v", err))
	}
	if problems := Struct(&insight); len(problems) > 0 {
		return invalid[model.ProductInsight](problems...)
	}
	return Verdict[model.ProductInsight]{Status: StatusValid, Insight: &insight}
}

func invalid[T any](problems ...string) Verdict[T] {
	return Verdict[T]{Status: StatusInvalid, Errors: problems}
}

func absent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func describe(err error) []string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		if fe.Param() != "" {
			out = append(out, fmt.Sprintf("%s failed %s=%s", ns, fe.Tag(), fe.Param()))
		} else {
			out = append(out, fmt.Sprintf("%s failed %s", ns, fe.Tag()))
		}
	}
	return out
}
