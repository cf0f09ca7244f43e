package viz

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/fourbar/internal/linkage"
	"github.com/san-kum/fourbar/internal/mechanism"
	"github.com/san-kum/fourbar/internal/sim"
)

const (
	width  = 64
	height = 22

	// TickInterval matches the fixed 50 ms animation timer.
	TickInterval = 50 * time.Millisecond

	// AngleStep is the start-angle change per up/down key press in degrees.
	AngleStep = 1.0

	historyCapacity = 600
	gifPath         = "fourbar.gif"
)

type TickMsg time.Time

// Saver stores the run started from start and returns its id.
type Saver func(start float64, r *sim.Result) (string, error)

func tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model drives a Session from the tick and renders the linkage.
type Model struct {
	session  *mechanism.Session
	geometry linkage.Geometry
	start    float64

	canvas   *Canvas
	viewport Viewport
	pose     linkage.Pose
	havePose bool

	running  bool
	ticking  bool
	settled  bool
	skipped  int
	torques  []float64
	theme    Theme
	styles   styles
	showHelp bool

	recording bool
	frames    []*image.Paletted

	save    Saver
	savedID string

	log *slog.Logger
}

// NewModel builds the live view for session and resets the session to
// start.
func NewModel(session *mechanism.Session, geometry linkage.Geometry, start float64) Model {
	canvas := NewCanvas(width, height)
	w, h := canvas.Dots()
	m := Model{
		session:  session,
		geometry: geometry,
		start:    session.Model().Clamp(start),
		canvas:   canvas,
		viewport: FitGeometry(geometry, w, h),
		running:  true,
		torques:  make([]float64, 0, historyCapacity),
		theme:    ThemeClassic,
		styles:   newStyles(ThemeClassic),
		ticking:  true,
		log:      slog.Default(),
	}
	m.restart()
	return m
}

func (m Model) WithLogger(l *slog.Logger) Model {
	m.log = l
	return m
}

// WithSaver enables the save key.
func (m Model) WithSaver(save Saver) Model {
	m.save = save
	return m
}

func (m Model) WithTheme(name string) Model {
	m.theme = GetTheme(name)
	m.styles = newStyles(m.theme)
	return m
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// restart resets the session to the current start angle and draws the
// initial pose.
func (m *Model) restart() {
	m.session.Reset(m.start)
	m.settled = false
	m.skipped = 0
	m.torques = m.torques[:0]
	m.savedID = ""
	m.solve()
	m.log.Debug("restart", "start", m.start)
}

func (m *Model) setStart(angle float64) {
	m.start = m.session.Model().Clamp(angle)
	m.restart()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.recording {
				m.saveGIF()
			}
			return m, tea.Quit
		case "up", "k":
			m.setStart(m.start + AngleStep)
			return m, m.resume()
		case "down", "j":
			m.setStart(m.start - AngleStep)
			return m, m.resume()
		case "r":
			m.restart()
			return m, m.resume()
		case " ":
			m.running = !m.running
		case "t":
			m.theme = nextTheme(m.theme.Name)
			m.styles = newStyles(m.theme)
		case "g":
			if m.recording {
				m.saveGIF()
				m.recording = false
				m.frames = nil
			} else {
				m.recording = true
				m.frames = make([]*image.Paletted, 0)
			}
		case "s":
			m.saveRun()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && !m.settled {
			m.step()
			if m.recording {
				m.captureFrame()
			}
		}
		if m.settled {
			m.ticking = false
			return m, nil
		}
		return m, tick()
	}
	return m, nil
}

// resume restarts the tick if it stopped after the drive settled.
func (m *Model) resume() tea.Cmd {
	m.running = true
	if m.ticking {
		return nil
	}
	m.ticking = true
	return tick()
}

func (m *Model) step() {
	m.settled = m.session.Step()
	if len(m.torques) == historyCapacity {
		m.torques = m.torques[1:]
	}
	m.torques = append(m.torques, m.session.DampingTorque())
	m.solve()
	if m.settled {
		m.log.Info("settled", "t", m.session.Time(), "theta", m.session.Theta(), "clamps", m.session.Clamps())
	}
}

// solve places the linkage for the current angle. A degenerate pose keeps
// the previous drawing.
func (m *Model) solve() {
	pose, err := m.geometry.Solve(m.session.Theta())
	if err != nil {
		if errors.Is(err, linkage.ErrDegenerate) {
			m.skipped++
			m.log.Debug("skip redraw", "theta", m.session.Theta(), "err", err)
			return
		}
		m.log.Warn("solve failed", "theta", m.session.Theta(), "err", err)
		return
	}
	if pose.Fallback {
		m.log.Debug("triangle fallback", "theta", pose.Theta)
	}
	m.pose = pose
	m.havePose = true
	m.canvas.Clear()
	DrawLinkage(m.canvas, m.viewport, pose)
}

func (m *Model) saveRun() {
	if m.save == nil || m.session.Time() == 0 {
		return
	}
	id, err := m.save(m.start, m.session.Result())
	if err != nil {
		m.log.Warn("save run", "err", err)
		return
	}
	m.savedID = id
	m.log.Info("saved run", "id", id, "t", m.session.Time())
}

func (m Model) Settled() bool      { return m.settled }
func (m Model) SavedID() string    { return m.savedID }
func (m Model) Skipped() int       { return m.skipped }
func (m Model) Start() float64     { return m.start }
func (m Model) Pose() linkage.Pose { return m.pose }
func (m Model) Ticking() bool      { return m.ticking }

// settleProgress is 1 at equilibrium and 0 at the start angle.
func (m Model) settleProgress() float64 {
	eq := m.session.Model().EqAngle
	span := math.Abs(m.start - eq)
	if span == 0 {
		return 1
	}
	return 1 - math.Min(1, math.Abs(m.session.Theta()-eq)/span)
}

// View renders the TUI interface.
func (m Model) View() string {
	st := m.styles
	canvasView := st.canvas.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(st.header.Render("FOUR-BAR LINKAGE") + "\n")

	status := st.running.Render("RUNNING")
	switch {
	case m.settled:
		status = st.settled.Render(fmt.Sprintf("SETTLED at %.2fs", m.session.Time()))
	case !m.running:
		status = st.warning.Render("PAUSED")
	}
	s.WriteString(status + "\n\n")

	s.WriteString(st.label.Render("Angle") + st.angle.Render(fmt.Sprintf("%.2f°", m.session.Theta())) + "\n")
	s.WriteString(st.label.Render("Start") + st.value.Render(fmt.Sprintf("%.2f°", m.start)) + "\n")
	s.WriteString(st.label.Render("Omega") + st.value.Render(fmt.Sprintf("%.3f°/s", m.session.Omega())) + "\n")
	s.WriteString(st.label.Render("Time") + st.value.Render(fmt.Sprintf("%.2fs", m.session.Time())) + "\n")
	s.WriteString(st.label.Render("Limit hits") + st.value.Render(fmt.Sprintf("%d", m.session.Clamps())) + "\n")
	if m.havePose {
		s.WriteString(st.label.Render("Output") + st.value.Render(fmt.Sprintf("%.2f°", m.pose.OutputAngle)) + "\n")
		s.WriteString(st.label.Render("Transmission") + st.value.Render(fmt.Sprintf("%.2f°", m.pose.TransmissionAngle)) + "\n")
	}
	s.WriteString(st.label.Render("Linkage") + st.value.Render(string(m.geometry.Grashof())) + "\n")
	if m.skipped > 0 {
		s.WriteString(st.label.Render("Skipped") + st.warning.Render(fmt.Sprintf("%d", m.skipped)) + "\n")
	}
	if m.savedID != "" {
		s.WriteString(st.label.Render("Saved") + st.value.Render(m.savedID) + "\n")
	}
	s.WriteString(st.label.Render("Settle") + st.ProgressBar(m.settleProgress(), 20) + "\n")
	s.WriteString(st.label.Render("Damping") + st.Sparkline(m.torques, 30) + "\n")

	if m.settled {
		if _, thetas := m.session.History(); len(thetas) > 1 {
			chart := asciigraph.Plot(thetas,
				asciigraph.Height(8),
				asciigraph.Width(40),
				asciigraph.Caption("theta (deg) vs time"))
			s.WriteString(st.graph.Render(chart) + "\n")
		}
	}

	rec := ""
	if m.recording {
		rec = "  ● REC"
	}
	s.WriteString(st.help.Render("↑↓:Start angle  R:Restart  SP:Pause\nT:Theme  G:Record  S:Save  ?:Help  Q:Quit" + rec))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.stats.Render(s.String()))
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Up/K     - Start angle +1° & rerun  ║
║  Down/J   - Start angle -1° & rerun  ║
║  R        - Rerun                    ║
║  Space    - Pause/Resume             ║
║  T        - Cycle themes             ║
║  G        - Toggle GIF recording     ║
║  S        - Save run to the store    ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

func (m *Model) captureFrame() {
	charW, charH := 8, 16
	imgW, imgH := m.canvas.Width*charW, m.canvas.Height*charH
	img := image.NewPaletted(image.Rect(0, 0, imgW, imgH), color.Palette{color.Black, color.White})
	w, h := m.canvas.Dots()
	dotW, dotH := charW/2, charH/4
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !m.canvas.IsSet(x, y) {
				continue
			}
			for py := 0; py < dotH; py++ {
				for px := 0; px < dotW; px++ {
					img.SetColorIndex(x*dotW+px, y*dotH+py, 1)
				}
			}
		}
	}
	m.frames = append(m.frames, img)
}

func (m *Model) saveGIF() {
	if len(m.frames) == 0 {
		return
	}
	anim := gif.GIF{LoopCount: 0}
	delay := int(TickInterval / (10 * time.Millisecond))
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, delay)
	}
	f, err := os.Create(gifPath)
	if err != nil {
		m.log.Warn("save gif", "err", err)
		return
	}
	defer f.Close()
	if err := gif.EncodeAll(f, &anim); err != nil {
		m.log.Warn("encode gif", "err", err)
		return
	}
	m.log.Info("saved recording", "path", gifPath, "frames", len(m.frames))
}

// Run starts the live view and blocks until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m).Run()
	return err
}
