package types

import (
	"fmt"

	"github.com/google/uuid"
)

// State is the per-turn snapshot handed to templates and generation. String
// fields are pre-rendered for substitution; the *Data slices carry the same
// information for programmatic access.
type State struct {
	UserID  uuid.UUID `json:"userId"`
	AgentID uuid.UUID `json:"agentId"`
	RoomID  uuid.UUID `json:"roomId"`

	AgentName  string `json:"agentName"`
	SenderName string `json:"senderName"`

	Bio                      string `json:"bio"`
	Lore                     string `json:"lore"`
	System                   string `json:"system"`
	Adjective                string `json:"adjective"`
	Topic                    string `json:"topic"`
	Topics                   string `json:"topics"`
	CharacterPostExamples    string `json:"characterPostExamples"`
	CharacterMessageExamples string `json:"characterMessageExamples"`
	MessageDirections        string `json:"messageDirections"`
	PostDirections           string `json:"postDirections"`

	Actors     string  `json:"actors"`
	ActorsData []Actor `json:"actorsData,omitempty"`

	Goals     string `json:"goals"`
	GoalsData []Goal `json:"goalsData,omitempty"`

	RecentMessages     string   `json:"recentMessages"`
	RecentMessagesData []Memory `json:"recentMessagesData,omitempty"`
	RecentPosts        string   `json:"recentPosts"`

	RecentInteractions     string   `json:"recentInteractions"`
	RecentInteractionsData []Memory `json:"recentInteractionsData,omitempty"`

	AttachmentsText string `json:"attachments"`

	ActionNames    string   `json:"actionNames"`
	Actions        string   `json:"actions"`
	ActionsData    []string `json:"actionsData,omitempty"`
	ActionExamples string   `json:"actionExamples"`

	EvaluatorNames    string   `json:"evaluatorNames"`
	Evaluators        string   `json:"evaluators"`
	EvaluatorsData    []string `json:"evaluatorsData,omitempty"`
	EvaluatorExamples string   `json:"evaluatorExamples"`

	Providers string `json:"providers"`

	Knowledge        string             `json:"knowledge"`
	KnowledgeData    []KnowledgeItem    `json:"knowledgeData,omitempty"`
	RAGKnowledgeData []RAGKnowledgeItem `json:"ragKnowledgeData,omitempty"`

	// Extra holds caller-supplied additional keys, rendered with fmt's %v.
	Extra map[string]any `json:"extra,omitempty"`
}

// Values flattens the string fields into template keys. Extra keys override
// nothing; a key present in both maps keeps the typed field's value.
func (s *State) Values() map[string]string {
	values := map[string]string{
		"userId":                   idString(s.UserID),
		"agentId":                  idString(s.AgentID),
		"roomId":                   idString(s.RoomID),
		"agentName":                s.AgentName,
		"senderName":               s.SenderName,
		"bio":                      s.Bio,
		"lore":                     s.Lore,
		"system":                   s.System,
		"adjective":                s.Adjective,
		"topic":                    s.Topic,
		"topics":                   s.Topics,
		"characterPostExamples":    s.CharacterPostExamples,
		"characterMessageExamples": s.CharacterMessageExamples,
		"messageDirections":        s.MessageDirections,
		"postDirections":           s.PostDirections,
		"actors":                   s.Actors,
		"goals":                    s.Goals,
		"recentMessages":           s.RecentMessages,
		"recentPosts":              s.RecentPosts,
		"recentInteractions":       s.RecentInteractions,
		"attachments":              s.AttachmentsText,
		"actionNames":              s.ActionNames,
		"actions":                  s.Actions,
		"actionExamples":           s.ActionExamples,
		"evaluatorNames":           s.EvaluatorNames,
		"evaluators":               s.Evaluators,
		"evaluatorExamples":        s.EvaluatorExamples,
		"providers":                s.Providers,
		"knowledge":                s.Knowledge,
	}
	for k, v := range s.Extra {
		if _, exists := values[k]; exists {
			continue
		}
		if v == nil {
			values[k] = ""
			continue
		}
		values[k] = fmt.Sprintf("%v", v)
	}
	return values
}

// Set stores an additional key on the state.
func (s *State) Set(key string, value any) {
	if s.Extra == nil {
		s.Extra = make(map[string]any)
	}
	s.Extra[key] = value
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
