package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"

	"github.com/cbegin/polysynth-go"
	"github.com/cbegin/polysynth-go/internal/audio"
	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/engine"
	"github.com/cbegin/polysynth-go/internal/patch"
	"github.com/cbegin/polysynth-go/internal/wavetable"
)

const (
	windowW    = 1024
	windowH    = 640
	minWindowW = 800
	minWindowH = 520

	charW = 7
	lineH = 16

	helpText = "Z..M / Q..P play   PgUp/PgDn octave   arrows edit   Tab overlay   F2 copy   F3 paste   Space panic   Esc quit"
)

var (
	bgColor        = color.RGBA{192, 192, 192, 255}
	panelColor     = color.RGBA{192, 192, 192, 255}
	borderColor    = color.RGBA{128, 128, 128, 255}
	textColor      = color.RGBA{255, 255, 255, 255}
	errorTextColor = color.RGBA{255, 120, 100, 255}
	highlightColor = color.RGBA{0, 0, 128, 255}

	bevelLight  = color.RGBA{255, 255, 255, 255}
	bevelDarker = color.RGBA{64, 64, 64, 255}

	sunkenBgColor   = color.RGBA{24, 24, 32, 255}
	sliderFillColor = color.RGBA{0, 0, 128, 255}

	heldColor    = color.RGBA{60, 170, 90, 255}
	releaseColor = color.RGBA{200, 140, 40, 255}
)

type game struct {
	synth    *polysynth.Synth
	events   <-chan polysynth.Event
	analyzer *analyzer
	face     *text.GoXFace

	scopeImg *ebiten.Image
	scopeW   int
	scopeH   int
	snap     []float32
	specBins []float64
	wavePeak float64

	params   []engine.ParamInfo
	selected int
	showGUI  bool

	octave int
	held   map[ebiten.Key]int
	keys   []ebiten.Key

	clipboardOK bool

	status    string
	statusErr bool

	viewW int
	viewH int
}

func newGame(s *polysynth.Synth, a *analyzer, clipboardOK bool) *game {
	return &game{
		synth:       s,
		events:      s.Watch(),
		analyzer:    a,
		face:        text.NewGoXFace(basicfont.Face7x13),
		params:      engine.ParamList(),
		showGUI:     true,
		held:        make(map[ebiten.Key]int),
		clipboardOK: clipboardOK,
		status:      "Ready",
		viewW:       windowW,
		viewH:       windowH,
	}
}

func (g *game) Update() error {
	g.pollEvents()

	g.keys = inpututil.AppendJustPressedKeys(g.keys[:0])
	for _, k := range g.keys {
		switch k {
		case ebiten.KeyEscape:
			return ebiten.Termination
		case ebiten.KeyTab:
			g.showGUI = !g.showGUI
		case ebiten.KeyPageUp:
			g.shiftOctave(1)
		case ebiten.KeyPageDown:
			g.shiftOctave(-1)
		case ebiten.KeyArrowUp:
			g.selected = (g.selected + len(g.params) - 1) % len(g.params)
		case ebiten.KeyArrowDown:
			g.selected = (g.selected + 1) % len(g.params)
		case ebiten.KeyF2:
			g.copyPatch()
		case ebiten.KeyF3:
			g.pastePatch()
		case ebiten.KeySpace:
			g.allNotesOff()
		default:
			g.keyDown(k)
		}
	}
	g.keys = inpututil.AppendJustReleasedKeys(g.keys[:0])
	for _, k := range g.keys {
		g.keyUp(k)
	}

	if repeatPressed(ebiten.KeyArrowLeft) {
		g.adjust(-1)
	}
	if repeatPressed(ebiten.KeyArrowRight) {
		g.adjust(1)
	}
	return nil
}

func repeatPressed(k ebiten.Key) bool {
	d := inpututil.KeyPressDuration(k)
	return d == 1 || (d > 20 && d%3 == 0)
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)

	l := g.layoutRects()

	g.drawDarkPanel(screen, l.spectrum)
	g.drawSpectrum(screen, l.spectrum)
	g.drawSunkenPanel(screen, l.voices)
	g.drawVoices(screen, l.voices)
	if g.showGUI {
		g.drawPanel(screen, l.params)
		g.drawParams(screen, l.params)
	}
	g.drawSunkenPanel(screen, l.status)
	g.drawStatus(screen, l.status)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.viewW = max(outsideW, minWindowW)
	g.viewH = max(outsideH, minWindowH)
	return g.viewW, g.viewH
}

func (g *game) pollEvents() {
	for {
		select {
		case ev, ok := <-g.events:
			if !ok {
				return
			}
			switch ev.Kind {
			case polysynth.EventReport:
				g.setError(ev.Report.String())
			case polysynth.EventStopped:
				g.setStatus("Audio stopped")
			}
		default:
			return
		}
	}
}

func (g *game) keyDown(k ebiten.Key) {
	p, ok := pitchForKey(k, g.octave)
	if !ok {
		return
	}
	g.held[k] = p
	if err := g.synth.NoteOn(p); err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus("Note " + pitchName(p))
}

// keyUp releases the pitch the key started, even if the octave moved since.
func (g *game) keyUp(k ebiten.Key) {
	p, ok := g.held[k]
	if !ok {
		return
	}
	delete(g.held, k)
	if err := g.synth.NoteOff(p); err != nil {
		g.setError(err.Error())
	}
}

func (g *game) allNotesOff() {
	clear(g.held)
	if err := g.synth.AllNotesOff(); err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus("All notes off")
}

func (g *game) shiftOctave(d int) {
	g.octave = min(max(g.octave+d, octaveMin), octaveMax)
	g.setStatus(fmt.Sprintf("Octave: %+d", g.octave))
}

// adjust nudges the selected parameter. Shift makes steps ten times larger;
// cutoff moves in sixths of an octave.
func (g *game) adjust(dir int) {
	info := g.params[g.selected]
	v, err := g.synth.Get(info.Name)
	if err != nil {
		g.setError(err.Error())
		return
	}
	coarse := ebiten.IsKeyPressed(ebiten.KeyShift)
	switch {
	case info.Integer:
		v += float64(dir)
	case info.Name == "cutoff":
		steps := float64(dir)
		if coarse {
			steps *= 6
		}
		v *= math.Pow(2, steps/6)
	default:
		step := (info.Max - info.Min) / 100
		if coarse {
			step *= 10
		}
		v += float64(dir) * step
	}
	v = clamp(v, info.Min, info.Max)
	if err := g.synth.Set(info.Name, v); err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus(fmt.Sprintf("%s = %s", info.Name, formatParam(info, v)))
}

func (g *game) copyPatch() {
	if !g.clipboardOK {
		g.setError("clipboard unavailable")
		return
	}
	var buf bytes.Buffer
	if err := patch.Encode(&buf, patch.Capture(g.synth.Engine())); err != nil {
		g.setError(err.Error())
		return
	}
	clipboard.Write(clipboard.FmtText, buf.Bytes())
	g.setStatus("Patch copied to clipboard")
}

func (g *game) pastePatch() {
	if !g.clipboardOK {
		g.setError("clipboard unavailable")
		return
	}
	e := g.synth.Engine()
	data := clipboard.Read(clipboard.FmtText)
	if len(bytes.TrimSpace(data)) == 0 {
		g.setError("clipboard is empty")
		return
	}
	p, err := patch.Decode(bytes.NewReader(data), patch.Capture(e))
	if err != nil {
		g.setError(err.Error())
		return
	}
	if err := p.Apply(e); err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus("Patch pasted from clipboard")
}

func formatParam(info engine.ParamInfo, v float64) string {
	switch info.Name {
	case "wave":
		return wavetable.WaveType(v).String()
	case "reverb":
		return effects.Preset(v).String()
	case "cutoff":
		return fmt.Sprintf("%.0f Hz", v)
	case "resonance":
		return fmt.Sprintf("%+.1f dB", v)
	case "attack", "decay", "release":
		return fmt.Sprintf("%.3f s", v)
	default:
		return fmt.Sprintf("%.3f", v)
	}
}

type uiLayout struct {
	spectrum, params image.Rectangle
	voices, status   image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	w, h := g.viewW, g.viewH
	pad := 16
	statusH := 2*lineH + 16
	voicesH := 56

	statusTop := h - pad - statusH
	voicesTop := statusTop - 8 - voicesH
	contentBottom := voicesTop - 8

	spectrumRight := w - pad
	paramsRect := image.Rectangle{}
	if g.showGUI {
		paramsW := 300
		paramsRect = image.Rect(w-pad-paramsW, pad, w-pad, contentBottom)
		spectrumRight = paramsRect.Min.X - 8
	}
	return uiLayout{
		spectrum: image.Rect(pad, pad, spectrumRight, contentBottom),
		params:   paramsRect,
		voices:   image.Rect(pad, voicesTop, w-pad, voicesTop+voicesH),
		status:   image.Rect(pad, statusTop, w-pad, statusTop+statusH),
	}
}

func (g *game) drawParams(screen *ebiten.Image, rect image.Rectangle) {
	g.drawText(screen, "Parameters", rect.Min.X+8, rect.Min.Y+6, textColor)
	top := rect.Min.Y + 12 + lineH
	rowH := lineH + 12
	for i, info := range g.params {
		y := top + i*rowH
		if y+rowH > rect.Max.Y {
			break
		}
		if i == g.selected {
			ebitenutil.DrawRect(screen, float64(rect.Min.X+4), float64(y-2), float64(rect.Dx()-8), float64(rowH-2), highlightColor)
		}
		v, _ := g.synth.Get(info.Name)
		g.drawText(screen, info.Name, rect.Min.X+10, y, textColor)
		g.drawText(screen, formatParam(info, v), rect.Min.X+100, y, textColor)

		trackX := rect.Min.X + 10
		trackW := rect.Dx() - 20
		trackY := y + lineH
		ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW), 4, bevelDarker)
		frac := clamp((v-info.Min)/(info.Max-info.Min), 0, 1)
		if info.Name == "cutoff" {
			frac = clamp(math.Log(v/info.Min)/math.Log(info.Max/info.Min), 0, 1)
		}
		if fillW := int(frac * float64(trackW)); fillW > 0 {
			ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(fillW), 4, sliderFillColor)
		}
	}
}

func (g *game) drawVoices(screen *ebiten.Image, rect image.Rectangle) {
	e := g.synth.Engine()
	states := e.Voices()
	label := fmt.Sprintf("Voices %d/%d", e.ActiveVoices(), len(states))
	g.drawText(screen, label, rect.Min.X+8, rect.Min.Y+6, textColor)
	if len(states) == 0 {
		return
	}
	left := rect.Min.X + 8 + 14*charW
	slotW := (rect.Max.X - 8 - left) / len(states)
	for i, v := range states {
		box := image.Rect(left+i*slotW+2, rect.Min.Y+8, left+(i+1)*slotW-2, rect.Max.Y-8)
		fill := color.Color(sunkenBgColor)
		switch {
		case v.Releasing:
			fill = releaseColor
		case v.Active:
			fill = heldColor
		}
		ebitenutil.DrawRect(screen, float64(box.Min.X), float64(box.Min.Y), float64(box.Dx()), float64(box.Dy()), fill)
		drawSunkenBorder(screen, box)
		if v.Active || v.Releasing {
			g.drawText(screen, pitchName(v.Pitch), box.Min.X+6, box.Min.Y+(box.Dy()-lineH)/2, textColor)
		}
	}
}

func (g *game) drawStatus(screen *ebiten.Image, rect image.Rectangle) {
	maxChars := max(8, (rect.Dx()-16)/charW)
	msg := fmt.Sprintf("Oct %+d   %s", g.octave, g.status)
	clr := color.Color(textColor)
	if g.statusErr {
		clr = errorTextColor
	}
	g.drawText(screen, shortenEnd(msg, maxChars), rect.Min.X+8, rect.Min.Y+6, clr)
	g.drawText(screen, shortenEnd(helpText, maxChars), rect.Min.X+8, rect.Min.Y+8+lineH, textColor)
}

func (g *game) drawSpectrum(screen *ebiten.Image, rect image.Rectangle) {
	inner := image.Rect(rect.Min.X+8, rect.Min.Y+8, rect.Max.X-8, rect.Max.Y-8)
	width := inner.Dx()
	height := inner.Dy()
	if width <= 0 || height <= 0 {
		return
	}
	if g.scopeImg == nil || g.scopeW != width || g.scopeH != height {
		g.scopeW = width
		g.scopeH = height
		g.scopeImg = ebiten.NewImage(width, height)
	}
	g.scopeImg.Fill(color.RGBA{14, 16, 22, 255})

	g.snap = g.analyzer.Snapshot(g.snap, fftSize)

	waveH := int(float64(height) * 0.45)
	g.drawWaveform(g.scopeImg, g.snap, width, waveH)
	ebitenutil.DrawRect(g.scopeImg, 0, float64(waveH), float64(width), 1, color.RGBA{50, 54, 68, 180})
	specY := waveH + 1
	g.drawSpectrumBars(g.scopeImg, g.snap, width, height-specY, specY)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(inner.Min.X), float64(inner.Min.Y))
	screen.DrawImage(g.scopeImg, op)
}

func (g *game) drawWaveform(dst *ebiten.Image, samples []float32, width int, height int) {
	if len(samples) < 2 || width < 2 || height < 4 {
		return
	}
	midY := height / 2
	ebitenutil.DrawRect(dst, 0, float64(midY), float64(width), 1, color.RGBA{40, 44, 58, 100})

	// Auto-gain: track peak with fast attack, slow release.
	peak := 0.0
	for _, s := range samples {
		peak = max(peak, math.Abs(float64(s)))
	}
	target := max(peak, 0.01)
	if target > g.wavePeak {
		g.wavePeak = g.wavePeak*0.3 + target*0.7
	} else {
		g.wavePeak = g.wavePeak*0.995 + target*0.005
	}
	g.wavePeak = max(g.wavePeak, 0.01)
	gain := float64(midY-2) / g.wavePeak

	triggerOffset := findZeroCrossing(samples, len(samples)/4)
	visible := max(len(samples)-triggerOffset, 2)

	waveColor := color.RGBA{80, 200, 255, 220}
	prevX := 0
	prevY := midY - int(float64(samples[triggerOffset])*gain)
	for px := 1; px < width; px++ {
		si := min(triggerOffset+px*visible/width, len(samples)-1)
		y := midY - int(float64(samples[si])*gain)
		ebitenutil.DrawLine(dst, float64(prevX), float64(prevY), float64(px), float64(y), waveColor)
		prevX = px
		prevY = y
	}
}

// findZeroCrossing finds a rising zero-crossing to stabilize the waveform display.
func findZeroCrossing(samples []float32, searchLen int) int {
	searchLen = min(searchLen, len(samples)-2)
	for i := 1; i < searchLen; i++ {
		if samples[i-1] <= 0 && samples[i] > 0 {
			return i
		}
	}
	return 0
}

func (g *game) drawSpectrumBars(dst *ebiten.Image, samples []float32, width int, height int, yOffset int) {
	if width < 4 || height < 4 {
		return
	}
	numBars := min(max(width/4, 16), 256)
	bars := spectrumBars(samples, numBars, g.analyzer.sampleRate, 18000)
	if len(g.specBins) != numBars {
		g.specBins = make([]float64, numBars)
	}
	barW := float64(width) / float64(numBars)
	for i, norm := range bars {
		// Smooth: fast attack, slower decay.
		prev := g.specBins[i]
		if norm > prev {
			g.specBins[i] = prev*0.3 + norm*0.7
		} else {
			g.specBins[i] = prev*0.85 + norm*0.15
		}
		v := g.specBins[i]
		barH := max(v*float64(height-4), 1)
		x := float64(i) * barW
		y := float64(yOffset) + float64(height-2) - barH
		r, gr, b := spectrumColor(v)
		ebitenutil.DrawRect(dst, x+1, y, barW-1, barH, color.RGBA{r, gr, b, 220})
	}
}

func spectrumColor(v float64) (uint8, uint8, uint8) {
	if v < 0.33 {
		t := v / 0.33
		return uint8(30 + 20*t), uint8(80 + 120*t), uint8(200 + 55*t)
	}
	if v < 0.66 {
		t := (v - 0.33) / 0.33
		return uint8(50 + 140*t), uint8(200 + 30*t), uint8(255 - 100*t)
	}
	t := (v - 0.66) / 0.34
	return uint8(190 + 65*t), uint8(230 - 100*t), uint8(155 - 100*t)
}

func (g *game) setError(msg string) {
	g.status = msg
	g.statusErr = true
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}

func (g *game) drawPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), panelColor)
	drawBorder(screen, rect)
}

func (g *game) drawSunkenPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), sunkenBgColor)
	drawSunkenBorder(screen, rect)
}

func (g *game) drawDarkPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), color.RGBA{0, 0, 0, 255})
	drawSunkenBorder(screen, rect)
}

// drawBorder draws a raised 3D bevel (highlight top/left, shadow bottom/right).
func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	x := float64(rect.Min.X)
	y := float64(rect.Min.Y)
	w := float64(rect.Dx())
	h := float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, bevelLight)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, bevelLight)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelDarker)
	ebitenutil.DrawRect(screen, x+1, y+h-2, w-3, 1, borderColor)
	ebitenutil.DrawRect(screen, x+w-2, y+1, 1, h-3, borderColor)
}

// drawSunkenBorder draws a sunken 3D bevel (shadow top/left, highlight bottom/right).
func drawSunkenBorder(screen *ebiten.Image, rect image.Rectangle) {
	x := float64(rect.Min.X)
	y := float64(rect.Min.Y)
	w := float64(rect.Dx())
	h := float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, borderColor)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, borderColor)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelLight)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelLight)
	ebitenutil.DrawRect(screen, x+1, y+1, w-3, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+1, y+2, 1, h-4, bevelDarker)
}

func (g *game) drawText(screen *ebiten.Image, msg string, x int, y int, clr color.Color) {
	if msg == "" {
		return
	}
	// Embossed shadow (dark offset behind text).
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(x+1), float64(y+1))
	op.ColorScale.ScaleWithColor(color.Black)
	text.Draw(screen, msg, g.face, op)

	op = &text.DrawOptions{}
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, msg, g.face, op)
}

func shortenEnd(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	if maxChars <= 3 {
		return string(r[:max(0, maxChars)])
	}
	return string(r[:maxChars-3]) + "..."
}

func clamp(v, minV, maxV float64) float64 {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

var logger = slog.Default()

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func main() {
	var (
		backendName = flag.String("backend", "ebiten", "audio backend: ebiten|oto|portaudio|headless")
		buffer      = flag.Int("buffer", engine.DefaultBufferFrames, "stereo frames per audio block")
		voices      = flag.Int("voices", engine.DefaultVoices, "number of voices")
		patchPath   = flag.String("patch", "", "JSON patch to load at startup")
		debug       = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()
	initLogger(*debug)

	backend, err := audio.ParseBackend(*backendName)
	if err != nil {
		log.Fatal(err)
	}
	params := engine.DefaultParams()
	params.BufferFrames = *buffer
	params.Voices = *voices
	a := newAnalyzer(params.SampleRate)
	s, err := polysynth.New(
		polysynth.WithBackend(backend),
		polysynth.WithParams(params),
		polysynth.WithSampleTap(a.Tap),
		polysynth.WithLogger(logger),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	if *patchPath != "" {
		p, err := patch.Load(*patchPath, patch.Capture(s.Engine()))
		if err != nil {
			log.Fatal(err)
		}
		if err := p.Apply(s.Engine()); err != nil {
			log.Fatal(err)
		}
	}
	if err := s.Start(); err != nil {
		log.Fatal(err)
	}

	clipboardOK := true
	if err := clipboard.Init(); err != nil {
		logger.Warn("clipboard unavailable, patch copy/paste disabled", "err", err)
		clipboardOK = false
	}

	g := newGame(s, a, clipboardOK)
	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("polysynth")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
