package transcoder

import (
	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/value"
)

// References connects the codec to the opaque reference table. Encoding
// resolves proxies back to the runtime values they stand for; decoding
// wraps runtime values that have no host form.
type References interface {
	Resolve(ref *value.Ref) (engine.Value, error)
	Wrap(v engine.Value) (*value.Ref, error)
}
