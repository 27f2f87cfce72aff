package utils

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// JSONToMap converts a jsonb column value into a generic map.
func JSONToMap(jsonData datatypes.JSON) (map[string]any, error) {
	if len(jsonData) == 0 {
		return map[string]any{}, nil
	}
	var result map[string]any
	if err := json.Unmarshal(jsonData, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// MapToJSON converts a map into a jsonb column value.
func MapToJSON(data map[string]any) (datatypes.JSON, error) {
	if data == nil {
		return nil, nil
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return jsonData, nil
}
