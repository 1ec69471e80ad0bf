package generation

import (
	"encoding/json"
	"sort"
)

// SchemaType JSON Schema 类型
type SchemaType string

const (
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
	TypeNull    SchemaType = "null"
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
)

// Schema 是 GenerateObject 使用的 JSON Schema 子集。
// 覆盖模型输出校验所需的关键字：类型、必填、枚举、长度与数值范围。
type Schema struct {
	Type        SchemaType `json:"type,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`

	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`

	Items    *Schema `json:"items,omitempty"`
	MinItems *int    `json:"minItems,omitempty"`
	MaxItems *int    `json:"maxItems,omitempty"`

	Enum []any `json:"enum,omitempty"`

	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`

	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`

	// Nullable 允许值为 null（模型常用 null 表示“未知”）
	Nullable bool `json:"-"`
}

// NewObjectSchema 创建对象 schema
func NewObjectSchema() *Schema {
	return &Schema{Type: TypeObject, Properties: make(map[string]*Schema)}
}

// NewArraySchema 创建数组 schema
func NewArraySchema(items *Schema) *Schema {
	return &Schema{Type: TypeArray, Items: items}
}

func NewStringSchema() *Schema  { return &Schema{Type: TypeString} }
func NewNumberSchema() *Schema  { return &Schema{Type: TypeNumber} }
func NewIntegerSchema() *Schema { return &Schema{Type: TypeInteger} }
func NewBooleanSchema() *Schema { return &Schema{Type: TypeBoolean} }

// NewEnumSchema 创建字符串枚举 schema
func NewEnumSchema(values ...string) *Schema {
	s := &Schema{Type: TypeString}
	for _, v := range values {
		s.Enum = append(s.Enum, v)
	}
	return s
}

// WithDescription 设置描述
func (s *Schema) WithDescription(desc string) *Schema {
	s.Description = desc
	return s
}

// AddProperty 添加属性
func (s *Schema) AddProperty(name string, prop *Schema) *Schema {
	if s.Properties == nil {
		s.Properties = make(map[string]*Schema)
	}
	s.Properties[name] = prop
	return s
}

// AddRequired 标记必填字段
func (s *Schema) AddRequired(names ...string) *Schema {
	s.Required = append(s.Required, names...)
	return s
}

// WithAdditionalProperties 是否允许未声明的字段
func (s *Schema) WithAdditionalProperties(allowed bool) *Schema {
	s.AdditionalProperties = &allowed
	return s
}

func (s *Schema) WithMinLength(n int) *Schema {
	s.MinLength = &n
	return s
}

func (s *Schema) WithMaxLength(n int) *Schema {
	s.MaxLength = &n
	return s
}

func (s *Schema) WithPattern(pattern string) *Schema {
	s.Pattern = pattern
	return s
}

func (s *Schema) WithMinimum(v float64) *Schema {
	s.Minimum = &v
	return s
}

func (s *Schema) WithMaximum(v float64) *Schema {
	s.Maximum = &v
	return s
}

func (s *Schema) WithMinItems(n int) *Schema {
	s.MinItems = &n
	return s
}

func (s *Schema) WithMaxItems(n int) *Schema {
	s.MaxItems = &n
	return s
}

// AsNullable 允许 null
func (s *Schema) AsNullable() *Schema {
	s.Nullable = true
	return s
}

// PropertyNames 返回按字母序排列的属性名
func (s *Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToJSON 序列化 schema，用于嵌入提示词
func (s *Schema) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
