package framefile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"gopkg.in/yaml.v3"
)

// evalContext exposes the frame size and a few numeric helpers to HCL
// expressions, e.g. width = floor(width / 2).
func evalContext(width, height uint32) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"width":  cty.NumberUIntVal(uint64(width)),
			"height": cty.NumberUIntVal(uint64(height)),
		},
		Functions: map[string]function.Function{
			"min":   stdlib.MinFunc,
			"max":   stdlib.MaxFunc,
			"floor": stdlib.FloorFunc,
			"ceil":  stdlib.CeilFunc,
		},
	}
}

func parseHCL(name string, src []byte, width, height uint32) (*Frame, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, name)
	if diags.HasErrors() {
		return nil, fmt.Errorf("framefile: parse %s: %w", name, diags)
	}

	var f Frame
	diags = gohcl.DecodeBody(file.Body, evalContext(width, height), &f)
	if diags.HasErrors() {
		return nil, fmt.Errorf("framefile: decode %s: %w", name, diags)
	}
	return &f, nil
}

func parseYAML(name string, src []byte) (*Frame, error) {
	var f Frame
	if err := yaml.Unmarshal(src, &f); err != nil {
		return nil, fmt.Errorf("framefile: parse %s: %w", name, err)
	}
	return &f, nil
}
