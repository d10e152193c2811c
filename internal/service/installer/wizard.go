package installer

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/internal/service/ui"
)

// Step is a single screen of the setup wizard. Update returns nil once the
// step is done.
type Step interface {
	Init() tea.Cmd
	Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd)
	View(state *InstallState) string
}

// conditional steps are skipped when Skip reports true.
type conditional interface {
	Skip(state *InstallState) bool
}

// ModelLister fetches the models available for the answers given so far.
type ModelLister func(ctx context.Context, state *InstallState) ([]core.Model, error)

func getSteps(runtimePath string, models ModelLister) []Step {
	return []Step{
		newTenantStep(),
		newStoreNameStep(),
		newLanguageStep(),
		newProviderStep(),
		newAPIKeyStep("openai", "OPENAI_API_KEY", "OpenAI API Key", "sk-..."),
		newAPIKeyStep("anthropic", "ANTHROPIC_API_KEY", "Anthropic API Key", "sk-ant-..."),
		newAPIKeyStep("openrouter", "OPENROUTER_API_KEY", "OpenRouter API Key", "sk-or-v1-..."),
		newBaseURLStep("ollama", "OLLAMA_BASE_URL", "Ollama URL", "http://localhost:11434"),
		newBaseURLStep("custom", "CUSTOM_OPENAI_BASE_URL", "OpenAI-compatible server URL", "http://localhost:8080"),
		newModelStep(models),
		newStorageStep(),
		newDatabaseURLStep(),
		newChannelStep(),
		newTelegramTokenStep(),
		newSaveEnvStep(runtimePath),
	}
}

type errMsg error
type nextMsg struct{}

// model is the Bubble Tea model that walks through the steps.
type model struct {
	steps       []Step
	currentStep int
	state       *InstallState
	quitting    bool
	err         error
	width       int
	height      int
}

func initialModel(steps []Step) model {
	m := model{steps: steps, state: NewInstallState()}
	m.currentStep = m.nextActive(0)
	return m
}

func (m model) nextActive(from int) int {
	for i := from; i < len(m.steps); i++ {
		if c, ok := m.steps[i].(conditional); ok && c.Skip(m.state) {
			continue
		}
		return i
	}
	return len(m.steps)
}

func (m model) Init() tea.Cmd {
	if m.currentStep < len(m.steps) {
		return m.steps[m.currentStep].Init()
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	if m.currentStep >= len(m.steps) {
		return m, tea.Quit
	}

	next, cmd := m.steps[m.currentStep].Update(msg, m.state, m.width, m.height)
	if next == nil {
		m.currentStep = m.nextActive(m.currentStep + 1)
		if m.currentStep >= len(m.steps) {
			return m, tea.Quit
		}
		return m, m.steps[m.currentStep].Init()
	}

	m.steps[m.currentStep] = next
	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return "Setup cancelled.\n"
	}
	if m.err != nil {
		return ui.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n(press ctrl+c to quit)\n"
	}
	if m.currentStep >= len(m.steps) {
		return "Configuration complete!\n"
	}
	return ui.HeaderStyle.Render("Setting up "+core.AgentName) + "\n\n" + m.steps[m.currentStep].View(m.state)
}

// RunWizard runs the interactive setup and writes <runtimePath>/.env.
func RunWizard(runtimePath string, models ModelLister) (*InstallState, error) {
	p := tea.NewProgram(initialModel(getSteps(runtimePath, models)), tea.WithAltScreen())
	m, err := p.Run()
	if err != nil {
		return nil, err
	}

	final := m.(model)
	if final.quitting {
		return nil, fmt.Errorf("setup interrupted")
	}
	return final.state, nil
}
