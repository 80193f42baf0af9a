package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/sky-inn/backend/internal/analysis/emotion"
	"github.com/zhouzirui/sky-inn/backend/internal/analysis/reply"
	"github.com/zhouzirui/sky-inn/backend/internal/model/persona"
)

// PromptTemplate holds the hand-written parts of a persona prompt.
type PromptTemplate struct {
	SystemPrompt     string
	PersonalityHints []string
	ContextRules     []string
}

// PersonaPromptManager builds system prompts per persona.
type PersonaPromptManager struct {
	templates map[string]*PromptTemplate
}

// NewPersonaPromptManager creates a manager with the built-in templates.
func NewPersonaPromptManager() *PersonaPromptManager {
	manager := &PersonaPromptManager{templates: make(map[string]*PromptTemplate)}
	manager.loadDefaultTemplates()
	return manager
}

// GetPromptTemplate returns the template for a persona.
func (pm *PersonaPromptManager) GetPromptTemplate(personaID string) (*PromptTemplate, error) {
	template, exists := pm.templates[personaID]
	if !exists {
		return nil, fmt.Errorf("prompt template not found for persona: %s", personaID)
	}
	return template, nil
}

// BuildSystemPrompt renders the persona, the scene, the tone the current
// empathy level calls for, and the output format rule.
func (pm *PersonaPromptManager) BuildSystemPrompt(req Request, marker string) string {
	var builder strings.Builder

	p := req.Persona
	template, err := pm.GetPromptTemplate(p.ID)
	if err != nil {
		builder.WriteString(pm.buildBasicSystemPrompt(p))
	} else {
		fmt.Fprintf(&builder, `%s

Информация о персонаже:
- Имя: %s
- Роль: %s
- Характер: %s

Особенности личности:
- %s

Правила диалога:
- %s`,
			template.SystemPrompt,
			p.Name,
			p.Title,
			p.Tone,
			strings.Join(template.PersonalityHints, "\n- "),
			strings.Join(template.ContextRules, "\n- "),
		)
	}

	if scenario := strings.TrimSpace(req.Scenario); scenario != "" {
		builder.WriteString("\n\nТекущий сценарий: ")
		builder.WriteString(scenario)
	}

	builder.WriteString("\n\nОтношение к собеседнику: ")
	builder.WriteString(describeEmpathy(req.Empathy))
	if hint := describeEmotion(req.Emotion); hint != "" {
		builder.WriteString("\nСостояние собеседника: ")
		builder.WriteString(hint)
	}

	fmt.Fprintf(&builder, "\n\nОтвечай одной репликой не длиннее %d символов. Начни ответ с \"%s\".", MaxReplyRunes, marker)
	return builder.String()
}

func (pm *PersonaPromptManager) buildBasicSystemPrompt(p persona.Persona) string {
	return fmt.Sprintf(`Ты %s, %s.

- Характер: %s
- Подсказка: %s

Всегда оставайся в роли.`,
		p.Name,
		p.Title,
		p.Tone,
		p.PromptHint,
	)
}

func (pm *PersonaPromptManager) loadDefaultTemplates() {
	pm.templates[persona.DefaultID] = &PromptTemplate{
		SystemPrompt: `Ты Оданн из аниме "Повар небесной гостиницы". Ты обычная девушка, попавшая в мир духов, и теперь готовишь для ёкаев в гостинице Цунику-ин.`,
		PersonalityHints: []string{
			"с незнакомцами держишься сдержанно и иронично, с теми, кому доверяешь, тепло и заботливо",
			"часто говоришь о еде, рецептах и капризных гостях гостиницы",
			"упряма и наблюдательна, не любишь пустой лести",
			"действия описываешь короткими ремарками в звёздочках, например *помешивает суп*",
		},
		ContextRules: []string{
			"отвечай по-русски от первого лица",
			"не выходи из роли и не упоминай, что ты программа",
			"если собеседнику грустно, сначала прояви участие, потом предложи еду или чай",
			"учитывай сценарий, если он задан",
		},
	}
}

func describeEmpathy(level int) string {
	switch reply.BucketOf(level) {
	case reply.Low:
		return "вы едва знакомы, держись на расстоянии, отвечай суховато и с иронией, добавь ремарку в звёздочках."
	case reply.Mid:
		return "собеседник тебе симпатичен, отвечай дружелюбно и с интересом."
	default:
		return "ты доверяешь собеседнику, будь тёплой, открытой и заботливой."
	}
}

func describeEmotion(tag emotion.Tag) string {
	switch {
	case emotion.HasDistress(tag) && tag.Contains(emotion.Fatigue):
		return "устал и вымотан, предложи отдых и горячую еду, говори мягко."
	case emotion.HasDistress(tag) && tag.Contains(emotion.Worry):
		return "встревожен, успокой его и дай почувствовать безопасность."
	case emotion.HasDistress(tag):
		return "грустит, прояви понимание и заботу."
	case tag.Contains(emotion.Greeting):
		return "здоровается, поприветствуй в ответ."
	case tag.Contains(emotion.Food), tag.Contains(emotion.Cooking):
		return "интересуется едой или готовкой, поделись опытом повара."
	case tag.Contains(emotion.Self):
		return "расспрашивает о тебе, расскажи немного о себе."
	default:
		return ""
	}
}
