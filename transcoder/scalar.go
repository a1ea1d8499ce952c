package transcoder

import (
	"math"
	"strings"

	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/errors"
	"github.com/wippyai/numbridge/value"
)

// encodeScalar converts a non-container host value. ok is false for arrays,
// buffers and references.
func encodeScalar(v value.Value) (rv engine.Value, ok bool, err error) {
	switch x := v.(type) {
	case nil, value.Null:
		return engine.Nothing{}, true, nil
	case value.Bool:
		return bool(x), true, nil
	case value.Int:
		return int64(x), true, nil
	case value.Float:
		return float64(x), true, nil
	case value.String:
		return string(x), true, nil
	case value.Date:
		return engine.DateTime(x.UnixMilli()), true, nil
	case value.Regex:
		re, err := engine.NewRegex(string(x))
		if err != nil {
			return nil, true, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				HostType("regex").
				Value(string(x)).
				Detail("invalid pattern %q", string(x)).
				Cause(err).
				Build()
		}
		return re, true, nil
	}
	return nil, false, nil
}

// decodeScalar converts a runtime scalar. ok is false for anything that is
// not a scalar.
func decodeScalar(v engine.Value) (value.Value, bool) {
	switch x := v.(type) {
	case engine.Nothing:
		return value.Null{}, true
	case bool:
		return value.Bool(x), true
	case int8:
		return value.Int(x), true
	case uint8:
		return value.Int(x), true
	case int16:
		return value.Int(x), true
	case uint16:
		return value.Int(x), true
	case int32:
		return value.Int(x), true
	case uint32:
		return value.Int(x), true
	case int64:
		return value.Int(x), true
	case uint64:
		if x > math.MaxInt64 {
			return value.Float(float64(x)), true
		}
		return value.Int(x), true
	case float32:
		return value.Float(x), true
	case float64:
		return value.Float(x), true
	case string:
		return value.String(x), true
	case engine.SubString:
		return value.String(strings.Clone(x.String())), true
	case engine.DateTime:
		return value.DateFromUnixMilli(int64(x)), true
	case *engine.Regex:
		return value.Regex(x.Pattern), true
	}
	return nil, false
}

func unsupported(phase errors.Phase, v engine.Value) error {
	return errors.New(phase, errors.KindUnsupported).
		RuntimeType(engine.TypeOf(v).String()).
		Detail("no host representation for %T", v).
		Build()
}
