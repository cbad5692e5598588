package config

// MergeLayers merges configuration layers into one flat structure with
// documented precedence: later layers win. Nested maps merge recursively;
// any non-map value (including slices) replaces the earlier value
// wholesale. Nil layers are skipped. The inputs are never mutated.
//
// Strategy parameters are assembled this way: factory defaults, then the
// per-strategy config file, then run-level overrides.
func MergeLayers(layers ...map[string]any) map[string]any {
	merged := map[string]any{}

	for _, layer := range layers {
		if layer == nil {
			continue
		}

		mergeInto(merged, layer)
	}

	return merged
}

func mergeInto(dst, src map[string]any) {
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		if !srcIsMap {
			dst[key] = value

			continue
		}

		dstMap, dstIsMap := dst[key].(map[string]any)
		if !dstIsMap {
			dstMap = map[string]any{}
		}

		copied := make(map[string]any, len(dstMap))
		for k, v := range dstMap {
			copied[k] = v
		}

		mergeInto(copied, srcMap)
		dst[key] = copied
	}
}
