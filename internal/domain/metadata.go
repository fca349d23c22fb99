package domain

import "encoding/json"

// MergeMetadata implements the metadata deep-merge semantics: object
// keys are merged recursively, arrays and scalars replace the existing
// value outright. existing and patch are JSON-encoded objects (or empty
// strings); the result is re-encoded to a JSON object string.
//
// A nil patch value (JSON null at the top level) clears the field entirely
// rather than merging, matching the nullable/absent distinction used elsewhere.
func MergeMetadata(existing string, patch any) (string, error) {
	var existingMap map[string]any
	if existing != "" {
		if err := json.Unmarshal([]byte(existing), &existingMap); err != nil {
			existingMap = nil
		}
	}
	if existingMap == nil {
		existingMap = map[string]any{}
	}

	if patch == nil {
		return "", nil
	}

	patchBytes, ok := patch.(json.RawMessage)
	var patchMap map[string]any
	if ok {
		if len(patchBytes) == 0 || string(patchBytes) == "null" {
			return "", nil
		}
		if err := json.Unmarshal(patchBytes, &patchMap); err != nil {
			// Non-object patch (array/scalar at top level): spec treats the
			// whole metadata value as replaced.
			return string(patchBytes), nil
		}
	} else {
		raw, err := json.Marshal(patch)
		if err != nil {
			return existing, err
		}
		if string(raw) == "null" {
			return "", nil
		}
		if err := json.Unmarshal(raw, &patchMap); err != nil {
			return string(raw), nil
		}
	}

	merged := deepMergeObject(existingMap, patchMap)
	out, err := json.Marshal(merged)
	if err != nil {
		return existing, err
	}
	return string(out), nil
}

// deepMergeObject merges patch into base: object values merge key-wise and
// recursively, anything else (array, scalar, nil) replaces the base value.
func deepMergeObject(base, patch map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		result[k] = v
	}
	for k, pv := range patch {
		if pv == nil {
			delete(result, k)
			continue
		}
		if pvMap, ok := pv.(map[string]any); ok {
			if bvMap, ok := result[k].(map[string]any); ok {
				result[k] = deepMergeObject(bvMap, pvMap)
				continue
			}
		}
		result[k] = pv
	}
	return result
}
