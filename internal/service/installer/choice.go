package installer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandevgo/tuskagent/internal/service/ui"
)

type option struct {
	label string
	value string
}

// choiceStep picks one value from a fixed list.
type choiceStep struct {
	title   string
	key     string
	options []option
	cursor  int
	skip    func(*InstallState) bool
}

func (s *choiceStep) Init() tea.Cmd {
	return nil
}

func (s *choiceStep) Skip(state *InstallState) bool {
	return s.skip != nil && s.skip(state)
}

func (s *choiceStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(s.options)-1 {
				s.cursor++
			}
		case "enter":
			state.EnvVars[s.key] = s.options[s.cursor].value
			return nil, nil
		}
	}
	return s, nil
}

func (s *choiceStep) View(state *InstallState) string {
	var b strings.Builder
	b.WriteString(s.title + ":\n\n")
	for i, o := range s.options {
		if s.cursor == i {
			b.WriteString(ui.SelectedStyle.Render(fmt.Sprintf("> %s", o.label)) + "\n")
		} else {
			b.WriteString(ui.ItemStyle.Render(fmt.Sprintf("  %s", o.label)) + "\n")
		}
	}
	b.WriteString("\n" + ui.HintStyle.Render("(press ctrl+c to quit)") + "\n")
	return b.String()
}

func newLanguageStep() Step {
	return &choiceStep{
		title: "Reply language",
		key:   "AGENT_LANGUAGE",
		options: []option{
			{"Egyptian Arabic", "Egyptian Arabic"},
			{"Modern Standard Arabic", "Modern Standard Arabic"},
			{"English", "English"},
		},
	}
}

func newProviderStep() Step {
	return &choiceStep{
		title: "Select your AI Provider",
		key:   "LLM_PROVIDER",
		options: []option{
			{"OpenRouter", "openrouter"},
			{"OpenAI", "openai"},
			{"Anthropic", "anthropic"},
			{"Ollama", "ollama"},
			{"Custom OpenAI-compatible", "custom"},
		},
	}
}

func newStorageStep() Step {
	return &choiceStep{
		title: "Storage",
		key:   "STORAGE_DRIVER",
		options: []option{
			{"SQLite (single process)", "sqlite"},
			{"PostgreSQL (shared)", "postgres"},
		},
	}
}

func newChannelStep() Step {
	return &choiceStep{
		title: "Select your Chat Channel",
		key:   "ENABLE_TELEGRAM",
		options: []option{
			{"Telegram", "true"},
			{"Terminal only", "false"},
		},
	}
}
