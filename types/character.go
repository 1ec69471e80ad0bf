package types

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ModelClass 模型等级，调用方只声明等级，不指定具体模型
type ModelClass string

const (
	ModelClassSmall     ModelClass = "small"
	ModelClassMedium    ModelClass = "medium"
	ModelClassLarge     ModelClass = "large"
	ModelClassEmbedding ModelClass = "embedding"
	ModelClassImage     ModelClass = "image"
)

// ModelProviderName 模型提供商名称
type ModelProviderName string

const (
	ProviderOpenAI    ModelProviderName = "openai"
	ProviderAnthropic ModelProviderName = "anthropic"
	ProviderOllama    ModelProviderName = "ollama"
	ProviderGroq      ModelProviderName = "groq"
	ProviderDeepSeek  ModelProviderName = "deepseek"
)

// KnowledgeSource 角色知识来源：纯文本、单个文件或目录
type KnowledgeSource struct {
	Text      string `yaml:"-"`
	Path      string `yaml:"path,omitempty"`
	Directory string `yaml:"directory,omitempty"`
	Shared    bool   `yaml:"shared,omitempty"`
}

// IsText 是否为内联文本
func (k KnowledgeSource) IsText() bool {
	return k.Text != "" && k.Path == "" && k.Directory == ""
}

// UnmarshalYAML 支持字符串或 {path|directory, shared} 两种写法
func (k *KnowledgeSource) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		k.Text = value.Value
		return nil
	case yaml.MappingNode:
		type raw KnowledgeSource
		var r raw
		if err := value.Decode(&r); err != nil {
			return err
		}
		if r.Path == "" && r.Directory == "" {
			return fmt.Errorf("knowledge entry at line %d needs path or directory", value.Line)
		}
		*k = KnowledgeSource(r)
		return nil
	default:
		return fmt.Errorf("unsupported knowledge entry at line %d", value.Line)
	}
}

// CharacterTemplates 角色可覆盖的提示模板
type CharacterTemplates struct {
	GoalsTemplate                  Template `yaml:"goalsTemplate,omitempty"`
	FactsTemplate                  Template `yaml:"factsTemplate,omitempty"`
	MessageHandlerTemplate         Template `yaml:"messageHandlerTemplate,omitempty"`
	ShouldRespondTemplate          Template `yaml:"shouldRespondTemplate,omitempty"`
	ContinueMessageHandlerTemplate Template `yaml:"continueMessageHandlerTemplate,omitempty"`
	EvaluationTemplate             Template `yaml:"evaluationTemplate,omitempty"`
}

// CharacterStyle 写作风格
type CharacterStyle struct {
	All  []string `yaml:"all"`
	Chat []string `yaml:"chat"`
	Post []string `yaml:"post"`
}

// CharacterSettings 角色级设置
type CharacterSettings struct {
	Secrets        map[string]string `yaml:"secrets,omitempty"`
	Model          string            `yaml:"model,omitempty"`
	EmbeddingModel string            `yaml:"embeddingModel,omitempty"`
	RAGKnowledge   bool              `yaml:"ragKnowledge,omitempty"`
	Extra          map[string]string `yaml:"extra,omitempty"`
}

// Character 智能体角色定义
type Character struct {
	ID              uuid.UUID          `yaml:"id,omitempty"`
	Name            string             `yaml:"name"`
	Username        string             `yaml:"username,omitempty"`
	Email           string             `yaml:"email,omitempty"`
	System          string             `yaml:"system,omitempty"`
	ModelProvider   ModelProviderName  `yaml:"modelProvider"`
	Templates       CharacterTemplates `yaml:"templates,omitempty"`
	Bio             []string           `yaml:"bio"`
	Lore            []string           `yaml:"lore"`
	MessageExamples [][]MessageExample `yaml:"messageExamples"`
	PostExamples    []string           `yaml:"postExamples"`
	Topics          []string           `yaml:"topics"`
	Adjectives      []string           `yaml:"adjectives"`
	Knowledge       []KnowledgeSource  `yaml:"knowledge,omitempty"`
	Plugins         []string           `yaml:"plugins,omitempty"`
	Settings        CharacterSettings  `yaml:"settings,omitempty"`
	Style           CharacterStyle     `yaml:"style"`
}

// LoadCharacter 从 YAML 解析角色定义
func LoadCharacter(data []byte) (*Character, error) {
	var c Character
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, NewError(ErrConfiguration, "invalid character file").WithCause(err)
	}
	if c.Name == "" {
		return nil, NewError(ErrConfiguration, "character name is required")
	}
	if c.ModelProvider == "" {
		c.ModelProvider = ProviderOpenAI
	}
	if c.ID == uuid.Nil {
		c.ID = StringToUUID(c.Name)
	}
	return &c, nil
}
