package task

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Request is the wire form of a task submission: a kind tag plus the
// kind-specific parameter object.
type Request struct {
	TaskID string          `json:"task_id"`
	Kind   Kind            `json:"kind"`
	Params json.RawMessage `json:"params"`
}

// DecodeParameters decodes raw into the parameter type registered for
// kind. Unknown fields are rejected so configuration typos fail loudly
// instead of silently running with defaults.
func DecodeParameters(kind Kind, raw json.RawMessage) (Parameters, error) {
	var p Parameters
	switch kind {
	case KindSplitByPages:
		p = &SplitByPagesParameters{}
	case KindSplitEvenOdd:
		p = &SplitEvenOddParameters{}
	case KindSplitByOutline:
		p = &SplitByOutlineParameters{}
	case KindMerge:
		p = &MergeParameters{}
	case KindRotate:
		p = &RotateParameters{}
	case KindSetPageLabels:
		p = &SetPageLabelsParameters{}
	default:
		return nil, &ValidationError{Message: fmt.Sprintf("unknown task kind %q", kind)}
	}
	if len(raw) == 0 {
		return nil, &ValidationError{Message: "missing task parameters"}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("decode %s parameters: %v", kind, err)}
	}
	return p, nil
}
