package tui

import (
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/datacenter/wiper/internal/config"
	"github.com/datacenter/wiper/internal/provision"
	"github.com/datacenter/wiper/internal/ui/benchmarks"
)

// RunPhase represents one fixed stage of the run for display.
type RunPhase struct {
	Name   string
	Stage  provision.Stage
	Done   bool
	Active bool
	Failed bool
}

// WizardRow represents one wizard prompt for display.
type WizardRow struct {
	Name     string
	Answer   string
	Answered bool
	Repeats  int
}

// Model is the Bubble Tea model for the provisioning dashboard.
type Model struct {
	// Run info
	Target     string
	FabricName string
	Controller string

	// Fixed stages up to the setup wizard
	Phases []RunPhase

	// Wizard prompts that may appear on this controller
	Wizard       []WizardRow
	WizardActive bool

	// Stage the run is currently in
	CurrentStage provision.Stage

	// Power cycles taken after a silent console
	Recoveries []string

	// ETA
	EstimatedRemaining time.Duration
	PerformanceScale   float64
	StartTime          time.Time
	StageStarted       time.Time
	History            []benchmarks.StageRecord

	// Animation
	SpinnerFrame int

	// UI state
	Width  int
	Height int
	Err    error
	Done   bool
}

// NewRunModel creates a model for the run command TUI. The wizard rows
// mirror the prompts this controller can be asked: cluster questions
// only appear on the first controller.
func NewRunModel(cfg *config.Config, profile *provision.Profile) Model {
	var rows []WizardRow
	for _, step := range profile.Steps {
		if step.FirstControllerOnly && !cfg.FirstController() {
			continue
		}
		rows = append(rows, WizardRow{Name: step.Name})
	}

	return Model{
		Target:           cfg.Target,
		FabricName:       cfg.FabricName,
		Controller:       cfg.ControllerName + " (" + strconv.Itoa(cfg.ControllerNumber) + "/" + strconv.Itoa(cfg.NumberOfControllers) + ")",
		StartTime:        time.Now(),
		PerformanceScale: 1.0,
		Wizard:           rows,
		Phases: []RunPhase{
			{Name: "Connect to CIMC", Stage: provision.StageConnecting},
			{Name: "Authenticate", Stage: provision.StageAuthenticating},
			{Name: "Launch Serial Console", Stage: provision.StageLaunchingConsole},
			{Name: "Wipe Configuration", Stage: provision.StageWiping},
			{Name: "Await Reboot", Stage: provision.StageAwaitingReboot},
		},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case StageMsg:
		m.updateStage(msg)

	case StepMsg:
		m.updateStep(msg)

	case RecoveryMsg:
		m.Recoveries = append(m.Recoveries, msg.Message)

	case TickMsg:
		m.SpinnerFrame++
		m.updateETA()
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) updateStage(msg StageMsg) {
	if !msg.Done && !msg.Failed {
		m.CurrentStage = msg.Stage
		m.StageStarted = time.Now()
		if !isPromptStage(msg.Stage) {
			m.History = append(m.History, benchmarks.StageRecord{Stage: msg.Stage, Started: m.StageStarted})
		}
	}
	if msg.Done {
		for i := len(m.History) - 1; i >= 0; i-- {
			if m.History[i].Stage == msg.Stage && m.History[i].Ended.IsZero() {
				m.History[i].Ended = time.Now()
				break
			}
		}
	}

	idx := -1
	for i, phase := range m.Phases {
		if phase.Stage == msg.Stage {
			idx = i
			break
		}
	}
	if idx < 0 {
		// A prompt stage: every fixed phase is behind us.
		if isPromptStage(msg.Stage) {
			for i := range m.Phases {
				m.Phases[i].Done = true
				m.Phases[i].Active = false
			}
			m.WizardActive = true
		}
		return
	}

	// Earlier phases are necessarily done.
	for i := 0; i < idx; i++ {
		m.Phases[i].Done = true
		m.Phases[i].Active = false
	}

	switch {
	case msg.Failed:
		m.Phases[idx].Failed = true
		m.Phases[idx].Active = false
	case msg.Done:
		m.Phases[idx].Done = true
		m.Phases[idx].Active = false
	default:
		m.Phases[idx].Active = true
	}
}

func (m *Model) updateStep(msg StepMsg) {
	for i := range m.Wizard {
		if m.Wizard[i].Name != msg.Step {
			continue
		}
		if msg.Attempt > 0 {
			m.Wizard[i].Repeats = msg.Attempt
			return
		}
		if !msg.Confirmed {
			m.Wizard[i].Answered = true
			m.Wizard[i].Answer = msg.Answer
		}
		return
	}
}

func (m *Model) answeredCount() int {
	count := 0
	for _, row := range m.Wizard {
		if row.Answered {
			count++
		}
	}
	return count
}

func (m *Model) updateETA() {
	if m.Done || m.Err != nil || m.CurrentStage == "" {
		m.EstimatedRemaining = 0
		return
	}

	var stageElapsed time.Duration
	if !m.StageStarted.IsZero() {
		stageElapsed = time.Since(m.StageStarted)
	}

	m.PerformanceScale = benchmarks.PerformanceScale(m.CurrentStage, stageElapsed, m.History)
	m.EstimatedRemaining = benchmarks.EstimateRemainingWithScale(
		m.CurrentStage, stageElapsed, m.answeredCount(), len(m.Wizard), m.History, m.PerformanceScale)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

func isPromptStage(stage provision.Stage) bool {
	return strings.HasPrefix(string(stage), "PROMPT_")
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
