package installer

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandevgo/tuskagent/internal/service/ui"
)

// saveEnvStep writes the answers to <runtime>/.env. An existing file is
// never overwritten.
type saveEnvStep struct {
	runtimePath string
	err         error
	saved       bool
}

func newSaveEnvStep(runtimePath string) Step {
	return &saveEnvStep{runtimePath: runtimePath}
}

func (s *saveEnvStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *saveEnvStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if s.saved {
		return nil, nil
	}
	if s.err != nil {
		return s, nil
	}

	if err := SaveEnv(s.runtimePath, state); err != nil {
		s.err = err
		return s, nil
	}
	s.saved = true
	return nil, nil
}

func (s *saveEnvStep) View(state *InstallState) string {
	if s.err != nil {
		return ui.ErrorStyle.Render(fmt.Sprintf("Error: %v", s.err)) + "\n\n(press ctrl+c to quit)\n"
	}
	if s.saved {
		return "Configuration saved successfully!\n"
	}
	return "Saving configuration...\n"
}

func SaveEnv(runtimePath string, state *InstallState) error {
	if err := os.MkdirAll(runtimePath, 0755); err != nil {
		return fmt.Errorf("failed to create runtime directory: %w", err)
	}

	envPath := filepath.Join(runtimePath, ".env")
	if _, err := os.Stat(envPath); err == nil {
		return fmt.Errorf(".env file already exists at %s", envPath)
	}

	content, err := state.Render()
	if err != nil {
		return err
	}
	return os.WriteFile(envPath, []byte(content), 0600)
}
