// Package common provides configuration, logging and small file utilities.
//
// Configuration values may reference entries of the variables file with the
// {key-name} syntax, keeping credentials out of the main configuration:
//
//	Input:  password = "{sonar-password}"
//	Vars:   {"sonar-password": "s3cret"}
//	Output: password = "s3cret"
//
// Replacement is case-sensitive. Missing keys are logged as warnings and the
// reference is left unchanged.
package common

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/ternarybob/arbor"
)

// keyRefPattern matches {key-name} references in strings
var keyRefPattern = regexp.MustCompile(`\{([a-zA-Z0-9_-]+)\}`)

// ReplaceKeyReferences replaces all {key-name} references in the input string
// with values from kvMap. Unknown references are left unchanged.
func ReplaceKeyReferences(input string, kvMap map[string]string, logger arbor.ILogger) string {
	if input == "" {
		return input
	}

	logUnresolvedKeys(input, kvMap, logger)

	return keyRefPattern.ReplaceAllStringFunc(input, func(match string) string {
		keyName := match[1 : len(match)-1]
		if value, exists := kvMap[keyName]; exists {
			return value
		}
		return match
	})
}

// logUnresolvedKeys finds all {key-name} references and logs warnings for missing keys
func logUnresolvedKeys(input string, kvMap map[string]string, logger arbor.ILogger) {
	matches := keyRefPattern.FindAllStringSubmatch(input, -1)
	for _, match := range matches {
		if len(match) > 1 {
			if _, exists := kvMap[match[1]]; !exists {
				logger.Warn().
					Str("reference", match[0]).
					Str("key", match[1]).
					Msg("Unresolved key reference - key not found in variables")
			}
		}
	}
}

// ReplaceInStruct recursively replaces {key-name} references in a struct's
// string fields, []string fields and map[string]string fields.
// The struct must be passed as a pointer for in-place mutation.
func ReplaceInStruct(v interface{}, kvMap map[string]string, logger arbor.ILogger) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr {
		return fmt.Errorf("ReplaceInStruct requires a pointer, got %T", v)
	}

	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("ReplaceInStruct requires a struct pointer, got pointer to %v", val.Kind())
	}

	return replaceInStructValue(val, kvMap, logger)
}

func replaceInStructValue(val reflect.Value, kvMap map[string]string, logger arbor.ILogger) error {
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			oldValue := field.String()
			if newValue := ReplaceKeyReferences(oldValue, kvMap, logger); oldValue != newValue {
				field.SetString(newValue)
				// Values are usually secrets, log the field only
				logger.Debug().Str("field", fieldType.Name).Msg("Replaced key reference in struct field")
			}

		case reflect.Struct:
			if err := replaceInStructValue(field, kvMap, logger); err != nil {
				return fmt.Errorf("failed to replace in nested struct field '%s': %w", fieldType.Name, err)
			}

		case reflect.Map:
			if field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.String && !field.IsNil() {
				mapVal := field.Interface().(map[string]string)
				for key, value := range mapVal {
					if newValue := ReplaceKeyReferences(value, kvMap, logger); newValue != value {
						mapVal[key] = newValue
						logger.Debug().Str("field", fieldType.Name).Str("key", key).Msg("Replaced key reference in map field")
					}
				}
			}

		case reflect.Slice:
			switch field.Type().Elem().Kind() {
			case reflect.String:
				for j := 0; j < field.Len(); j++ {
					elem := field.Index(j)
					oldValue := elem.String()
					if newValue := ReplaceKeyReferences(oldValue, kvMap, logger); oldValue != newValue {
						elem.SetString(newValue)
						logger.Debug().Str("field", fieldType.Name).Int("index", j).Msg("Replaced key reference in slice field")
					}
				}
			case reflect.Struct:
				for j := 0; j < field.Len(); j++ {
					if err := replaceInStructValue(field.Index(j), kvMap, logger); err != nil {
						return fmt.Errorf("failed to replace in slice field '%s'[%d]: %w", fieldType.Name, j, err)
					}
				}
			}
		}
	}

	return nil
}
