package generation

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldError 带字段路径的校验错误
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors 一次校验产生的全部错误
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationErrors) Error() string {
	switch len(e.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return e.Errors[0].Error()
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Validate 按 schema 校验 JSON 数据，失败时返回 *ValidationErrors
func Validate(data []byte, schema *Schema) error {
	if schema == nil {
		return nil
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return &ValidationErrors{Errors: []FieldError{{Message: fmt.Sprintf("invalid JSON: %v", err)}}}
	}
	return ValidateValue(value, schema)
}

// ValidateValue 校验已解码的值（map[string]any / []any / 基本类型）
func ValidateValue(value any, schema *Schema) error {
	var errs []FieldError
	validateValue(value, schema, "", &errs)
	if len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}
	return nil
}

func validateValue(value any, schema *Schema, path string, errs *[]FieldError) {
	if schema == nil {
		return
	}
	if value == nil && schema.Nullable {
		return
	}

	if len(schema.Enum) > 0 {
		found := false
		for _, candidate := range schema.Enum {
			if equalValues(value, candidate) {
				found = true
				break
			}
		}
		if !found {
			*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("value must be one of: %v", schema.Enum)})
		}
	}

	switch schema.Type {
	case TypeString:
		validateString(value, schema, path, errs)
	case TypeNumber:
		if num, ok := value.(float64); ok {
			validateRange(num, schema, path, errs)
		} else {
			*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected number, got %s", typeName(value))})
		}
	case TypeInteger:
		num, ok := value.(float64)
		if !ok || num != math.Trunc(num) {
			*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected integer, got %s", typeName(value))})
			return
		}
		validateRange(num, schema, path, errs)
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected boolean, got %s", typeName(value))})
		}
	case TypeNull:
		if value != nil {
			*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected null, got %s", typeName(value))})
		}
	case TypeObject:
		validateObject(value, schema, path, errs)
	case TypeArray:
		validateArray(value, schema, path, errs)
	}
}

func validateString(value any, schema *Schema, path string, errs *[]FieldError) {
	str, ok := value.(string)
	if !ok {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected string, got %s", typeName(value))})
		return
	}
	n := utf8.RuneCountInString(str)
	if schema.MinLength != nil && n < *schema.MinLength {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("string length %d is less than minimum %d", n, *schema.MinLength)})
	}
	if schema.MaxLength != nil && n > *schema.MaxLength {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("string length %d exceeds maximum %d", n, *schema.MaxLength)})
	}
	if schema.Pattern != "" {
		re, err := regexp.Compile(schema.Pattern)
		if err != nil {
			*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("invalid pattern %q: %v", schema.Pattern, err)})
		} else if !re.MatchString(str) {
			*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("string does not match pattern %q", schema.Pattern)})
		}
	}
}

func validateRange(num float64, schema *Schema, path string, errs *[]FieldError) {
	if schema.Minimum != nil && num < *schema.Minimum {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("value %v is less than minimum %v", num, *schema.Minimum)})
	}
	if schema.Maximum != nil && num > *schema.Maximum {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("value %v exceeds maximum %v", num, *schema.Maximum)})
	}
}

func validateObject(value any, schema *Schema, path string, errs *[]FieldError) {
	obj, ok := value.(map[string]any)
	if !ok {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected object, got %s", typeName(value))})
		return
	}

	for _, req := range schema.Required {
		val, exists := obj[req]
		if !exists {
			*errs = append(*errs, FieldError{Path: joinPath(path, req), Message: "required field is missing"})
			continue
		}
		if val == nil {
			if prop := schema.Properties[req]; prop == nil || !prop.Nullable {
				*errs = append(*errs, FieldError{Path: joinPath(path, req), Message: "required field must not be null"})
			}
		}
	}

	for _, name := range schema.PropertyNames() {
		val, exists := obj[name]
		if !exists {
			continue
		}
		if val == nil && schema.IsRequired(name) {
			continue
		}
		validateValue(val, schema.Properties[name], joinPath(path, name), errs)
	}

	if schema.AdditionalProperties != nil && !*schema.AdditionalProperties {
		for key := range obj {
			if _, declared := schema.Properties[key]; !declared {
				*errs = append(*errs, FieldError{Path: joinPath(path, key), Message: "additional property is not allowed"})
			}
		}
	}
}

func validateArray(value any, schema *Schema, path string, errs *[]FieldError) {
	arr, ok := value.([]any)
	if !ok {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("expected array, got %s", typeName(value))})
		return
	}
	if schema.MinItems != nil && len(arr) < *schema.MinItems {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("array has %d items, minimum is %d", len(arr), *schema.MinItems)})
	}
	if schema.MaxItems != nil && len(arr) > *schema.MaxItems {
		*errs = append(*errs, FieldError{Path: path, Message: fmt.Sprintf("array has %d items, maximum is %d", len(arr), *schema.MaxItems)})
	}
	if schema.Items != nil {
		for i, item := range arr {
			validateValue(item, schema.Items, fmt.Sprintf("%s[%d]", path, i), errs)
		}
	}
}

// IsRequired 字段是否必填
func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

func equalValues(a, b any) bool {
	if af, ok := a.(float64); ok {
		switch bv := b.(type) {
		case int:
			return af == float64(bv)
		case float64:
			return af == bv
		}
	}
	return a == b
}

func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", value)
	}
}
