package installer

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandevgo/tuskagent/internal/service/ui"
)

const modelFetchTimeout = 30 * time.Second

type item struct {
	id    string
	title string
	desc  string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.id }

type modelsMsg []list.Item

// modelStep lists the provider's models. When listing fails the model id
// can be typed instead.
type modelStep struct {
	list     list.Model
	fetch    ModelLister
	manual   *inputStep
	loading  bool
	fetching bool
	err      error
}

func newModelStep(fetch ModelLister) Step {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select AI Model"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = ui.HeaderStyle

	return &modelStep{
		list:    l,
		fetch:   fetch,
		loading: true,
	}
}

func (s *modelStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *modelStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if s.manual != nil {
		next, cmd := s.manual.Update(msg, state, width, height)
		if next == nil {
			return nil, nil
		}
		return s, cmd
	}

	if s.loading && !s.fetching {
		s.fetching = true
		return s, s.load(state)
	}

	s.list.SetSize(width, height-4)

	var cmd tea.Cmd
	switch msg := msg.(type) {
	case modelsMsg:
		s.list.SetItems(msg)
		s.loading = false
		s.fetching = false
		return s, nil

	case errMsg:
		s.loading = false
		s.fetching = false
		s.err = msg
		return s, nil

	case tea.KeyMsg:
		if s.err != nil {
			switch msg.String() {
			case "enter":
				s.err = nil
				s.loading = true
				return s, s.load(state)
			case "m":
				s.manual = &inputStep{
					input:    newInput("model id", false),
					title:    "the model id",
					key:      "LLM_MODEL",
					validate: required("model"),
				}
				return s, s.manual.Init()
			}
			return s, nil
		}

		if msg.String() == "enter" {
			wasFiltering := s.list.FilterState() == list.Filtering
			s.list, cmd = s.list.Update(msg)
			if wasFiltering || s.list.FilterState() == list.Filtering {
				return s, cmd
			}

			if i, ok := s.list.SelectedItem().(item); ok {
				state.EnvVars["LLM_MODEL"] = i.id
				return nil, nil
			}
			return s, cmd
		}
	}

	s.list, cmd = s.list.Update(msg)
	return s, cmd
}

func (s *modelStep) load(state *InstallState) tea.Cmd {
	s.fetching = true
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), modelFetchTimeout)
		defer cancel()

		models, err := s.fetch(ctx, state)
		if err != nil {
			return errMsg(err)
		}

		items := make([]list.Item, 0, len(models))
		for _, m := range models {
			desc := "ID: " + m.ID
			if m.ContextLength > 0 {
				desc = fmt.Sprintf("%s | Context: %d", desc, m.ContextLength)
			}
			items = append(items, item{id: m.ID, title: m.Name, desc: desc})
		}
		return modelsMsg(items)
	}
}

func (s *modelStep) View(state *InstallState) string {
	if s.manual != nil {
		return s.manual.View(state)
	}
	if s.err != nil {
		return ui.ErrorStyle.Render(fmt.Sprintf("Error fetching models: %v", s.err)) +
			"\n\nCheck your API key and network connection.\n\n" +
			ui.HintStyle.Render("(enter to retry, m to type the model id, ctrl+c to quit)") + "\n"
	}
	if s.loading {
		return fmt.Sprintf("Fetching models from %s...\n", state.Get("LLM_PROVIDER"))
	}
	return s.list.View()
}
