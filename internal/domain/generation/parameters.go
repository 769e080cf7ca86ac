package generation

import (
	"encoding/json"
	"maps"
)

// Well-known parameter keys. OpenAI-compatible backends accept exactly these;
// Ollama also forwards any other key as a model option.
const (
	ParamTemperature      = "temperature"
	ParamMaxTokens        = "max_tokens"
	ParamTopP             = "top_p"
	ParamPresencePenalty  = "presence_penalty"
	ParamFrequencyPenalty = "frequency_penalty"
	ParamStop             = "stop"
	ParamSeed             = "seed"
	ParamN                = "n"
	ParamLogitBias        = "logit_bias"
	ParamUser             = "user"
)

// Parameters are caller-supplied sampling options, passed through verbatim.
type Parameters map[string]any

// WithDefaults returns a copy where every key absent from p is taken from defaults.
// Keys present in p are never overridden.
func (p Parameters) WithDefaults(defaults Parameters) Parameters {
	out := make(Parameters, len(p)+len(defaults))
	maps.Copy(out, defaults)
	maps.Copy(out, p)
	return out
}

// Float returns the parameter as float64 when it is numeric.
func (p Parameters) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Int returns the parameter as int when it is a whole number.
func (p Parameters) Int(key string) (int, bool) {
	f, ok := p.Float(key)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// Strings returns the parameter as a string list (a single string becomes one element).
func (p Parameters) Strings(key string) ([]string, bool) {
	switch v := p[key].(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
