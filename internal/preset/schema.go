package preset

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const fileSchema = `{
  "type": "object",
  "required": ["presets"],
  "additionalProperties": false,
  "properties": {
    "presets": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["fast_len", "slow_len"],
        "additionalProperties": false,
        "properties": {
          "description":  {"type": "string"},
          "fast_len":     {"type": "integer", "minimum": 1},
          "slow_len":     {"type": "integer", "minimum": 2},
          "kind":         {"type": "string", "enum": ["ema", "sma", "EMA", "SMA"]},
          "interval":     {"type": "string"},
          "fee_bps":      {"type": "number", "minimum": 0},
          "slippage_bps": {"type": "number", "minimum": 0}
        }
      }
    }
  }
}`

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("presets.json", strings.NewReader(fileSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("presets.json")
}

// toJSONValue 把 yaml 解出的通用结构转换为 encoding/json 的表示，供 schema 校验。
func toJSONValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
