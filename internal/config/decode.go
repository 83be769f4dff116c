package config

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/v2"

	"github.com/leapstack-labs/mercury/pkg/threshold"
)

var layerType = reflect.TypeOf(threshold.Layer{})

// ThresholdLayerHook decodes a "thresholds" map into a threshold.Layer,
// accepting numbers, numeric strings from env vars and "off".
func ThresholdLayerHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != layerType {
			return data, nil
		}
		raw, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("thresholds: expected a mapping, got %s", from)
		}
		return threshold.ParseLayer(raw)
	}
}

// Unmarshal decodes the koanf tree at path into out using the koanf tag and
// the threshold hook.
func Unmarshal(k *koanf.Koanf, path string, out any) error {
	return k.UnmarshalWithConf(path, out, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       ThresholdLayerHook(),
			Result:           out,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	})
}
