// partita-view is an interactive score viewer: staff or jianpu rendering
// with a playback highlight, keyboard strip and audible piano/metronome.
//
// Keys: space play/pause, L loop, M metronome, J notation mode,
// left/right seek by measure, R rewind, 1-6 speed. Click a note to seek.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"time"

	"github.com/bep/debounce"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/kholin/partita"
	"github.com/kholin/partita/internal/audioout"
	"github.com/kholin/partita/internal/geom"
	"github.com/kholin/partita/internal/layout"
	"github.com/kholin/partita/internal/synth"
)

const (
	defaultW     = 1100
	defaultH     = 760
	sideMargin   = 40
	uiSampleRate = 48000
)

var (
	bgColor        = color.RGBA{250, 248, 243, 255}
	staffColor     = color.RGBA{60, 60, 60, 255}
	noteColor      = color.RGBA{20, 20, 20, 255}
	restColor      = color.RGBA{130, 130, 130, 255}
	highlightColor = color.RGBA{214, 69, 65, 255}
	playheadColor  = color.RGBA{214, 69, 65, 140}
	tieColor       = color.RGBA{90, 90, 90, 255}
	keyWhiteColor  = color.RGBA{255, 255, 255, 255}
	keyBlackColor  = color.RGBA{30, 30, 30, 255}
	keyActiveColor = color.RGBA{214, 69, 65, 255}
	keyBorderColor = color.RGBA{120, 120, 120, 255}
)

const (
	modeStaff = iota
	modeJianpu
)

type viewer struct {
	player *partita.Player
	cfg    layout.Config
	mode   int

	loop      bool
	metronome bool

	winW, winH int
	scrollY    float64

	debounced func(func())
}

func newViewer(pl *partita.Player, cfg layout.Config) *viewer {
	return &viewer{
		player:    pl,
		cfg:       cfg,
		winW:      defaultW,
		winH:      defaultH,
		debounced: debounce.New(150 * time.Millisecond),
	}
}

func (v *viewer) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		v.player.Toggle()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyL) {
		v.loop = !v.loop
		v.player.SetLoop(v.loop)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		v.metronome = !v.metronome
		v.player.SetMetronome(v.metronome)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyJ) {
		v.mode = 1 - v.mode
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		v.player.Stop()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyLeft) {
		v.player.SeekToMeasure(v.player.CurrentMeasure() - 1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyRight) {
		v.player.SeekToMeasure(v.player.CurrentMeasure() + 1)
	}
	for i, k := range []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4, ebiten.Key5, ebiten.Key6} {
		if inpututil.IsKeyJustPressed(k) {
			_ = v.player.SetSpeedMultiplier([]float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0}[i])
		}
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		mx, my := ebiten.CursorPosition()
		res := v.player.Layout()
		if res != nil {
			p := geom.Point{X: float64(mx - sideMargin), Y: float64(my) + v.scrollY}
			if i := res.HitTest(p, v.cfg.NoteHeadRadius*2); i >= 0 {
				v.player.SeekTo(res.Notes[i].StartTime)
			}
		}
	}
	_, wy := ebiten.Wheel()
	v.scrollY -= wy * 30
	if v.scrollY < 0 {
		v.scrollY = 0
	}

	if w, h := ebiten.WindowSize(); w != v.winW || h != v.winH {
		v.winW, v.winH = w, h
		// Relayout after the drag settles; the old layout stays valid
		// (and rendered) until the new one is swapped in.
		v.debounced(func() {
			v.player.Resize(float64(v.winW - 2*sideMargin))
		})
	}
	return nil
}

func (v *viewer) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	res := v.player.Layout()
	if res == nil || len(res.Lines) == 0 {
		ebitenutil.DebugPrintAt(screen, "no score loaded", 20, 20)
		return
	}
	highlighted := make(map[int]bool)
	for _, i := range v.player.Highlighted() {
		highlighted[i] = true
	}

	switch v.mode {
	case modeStaff:
		v.drawStaff(screen, res, highlighted)
	case modeJianpu:
		v.drawJianpu(screen, res, highlighted)
	}
	v.drawPlayhead(screen, res)
	if v.cfg.KeyboardHeight > 0 {
		v.drawKeyboard(screen, res, highlighted)
	}
	v.drawHUD(screen)
}

func (v *viewer) tx(x float64) float32 { return float32(x + sideMargin) }
func (v *viewer) ty(y float64) float32 { return float32(y - v.scrollY) }

func (v *viewer) drawStaff(screen *ebiten.Image, res *layout.Result, highlighted map[int]bool) {
	trackBlock := v.cfg.LineSpacing*4 + v.cfg.StaffGap
	lineWidth := func(ln layout.Line) float64 {
		last := res.Measures[ln.FirstMeasure+ln.MeasureCount-1]
		return last.X + last.Width
	}

	for _, ln := range res.Lines {
		w := lineWidth(ln)
		for t := range res.Tracks {
			top := ln.Y + float64(t)*trackBlock
			for i := 0; i < 5; i++ {
				y := v.ty(top + float64(i)*v.cfg.LineSpacing)
				vector.StrokeLine(screen, v.tx(0), y, v.tx(w), y, 1, staffColor, true)
			}
		}
		// Barlines; on a grand staff they span both staves.
		barTop := ln.Y
		barBottom := ln.Y + 4*v.cfg.LineSpacing
		if ln.Braced && len(res.Tracks) == 2 {
			barBottom = ln.Y + trackBlock + 4*v.cfg.LineSpacing
		}
		for m := ln.FirstMeasure; m < ln.FirstMeasure+ln.MeasureCount; m++ {
			box := res.Measures[m]
			x := v.tx(box.X + box.Width)
			vector.StrokeLine(screen, x, v.ty(barTop), x, v.ty(barBottom), 1, staffColor, true)
		}
		if ln.Braced {
			x := v.tx(0)
			vector.StrokeLine(screen, x, v.ty(barTop), x, v.ty(barBottom), 3, staffColor, true)
			vector.StrokeLine(screen, x-4, v.ty(barTop), x-4, v.ty(barBottom), 1, staffColor, true)
		}
	}

	for i := range res.Notes {
		n := &res.Notes[i]
		c := noteColor
		if n.Rest {
			c = restColor
		}
		if highlighted[i] {
			c = highlightColor
		}
		x, y := v.tx(n.X), v.ty(n.Y)
		if n.Rest {
			vector.DrawFilledRect(screen, x-3, y-5, 6, 10, c, true)
			continue
		}
		vector.DrawFilledCircle(screen, x, y, float32(v.cfg.NoteHeadRadius), c, true)
		if n.HasStem {
			vector.StrokeLine(screen, v.tx(n.StemX), y, v.tx(n.StemX), v.ty(n.StemTipY), 1.4, c, true)
		}
		// Ledger lines between the staff edge and the note.
		for k := 1; k <= n.Ledger; k++ {
			pos := -2 * k
			if n.StaffPosition > 8 {
				pos = 8 + 2*k
			}
			ly := v.ty(n.Y + float64(n.StaffPosition-pos)*v.cfg.LineSpacing/2)
			vector.StrokeLine(screen, x-9, ly, x+9, ly, 1, staffColor, true)
		}
	}

	for _, b := range res.Beams {
		for k := 0; k < b.Beams; k++ {
			off := float32(k * 4)
			vector.StrokeLine(screen,
				v.tx(b.Start.X), v.ty(b.Start.Y)+off,
				v.tx(b.End.X), v.ty(b.End.Y)+off,
				3, noteColor, true)
		}
	}

	for _, t := range res.Ties {
		v.strokeCubic(screen, t)
	}
}

func (v *viewer) strokeCubic(screen *ebiten.Image, t layout.Tie) {
	const segments = 16
	prev := t.P0
	for i := 1; i <= segments; i++ {
		pt := geom.CubicAt(t.P0, t.P1, t.P2, t.P3, float64(i)/segments)
		vector.StrokeLine(screen, v.tx(prev.X), v.ty(prev.Y), v.tx(pt.X), v.ty(pt.Y), 1.2, tieColor, true)
		prev = pt
	}
}

// jianpuDigit maps a pitch to a numbered-notation digit (C major reference)
// and an octave mark: positive = dots above, negative = dots below.
func jianpuDigit(pitch int) (digit int, octave int) {
	digits := [12]int{1, 1, 2, 2, 3, 4, 4, 5, 5, 6, 6, 7}
	digit = digits[((pitch%12)+12)%12]
	octave = pitch/12 - 60/12
	return digit, octave
}

func (v *viewer) drawJianpu(screen *ebiten.Image, res *layout.Result, highlighted map[int]bool) {
	trackBlock := v.cfg.LineSpacing*4 + v.cfg.StaffGap
	for i := range res.Notes {
		n := &res.Notes[i]
		ln := res.Lines[res.Measures[n.Measure].Line]
		baseY := ln.Y + float64(n.Track)*trackBlock + 2*v.cfg.LineSpacing
		label := "0"
		if !n.Rest {
			d, oct := jianpuDigit(n.Pitch)
			label = fmt.Sprintf("%d", d)
			for ; oct > 0; oct-- {
				label += "'"
			}
			for ; oct < 0; oct++ {
				label += ","
			}
		}
		x, y := int(v.tx(n.X))-3, int(v.ty(baseY))
		if highlighted[i] {
			vector.DrawFilledRect(screen, float32(x-3), float32(y-2), 18, 18, color.RGBA{255, 220, 216, 255}, false)
		}
		ebitenutil.DebugPrintAt(screen, label, x, y)
	}
	for _, ln := range res.Lines {
		for m := ln.FirstMeasure; m < ln.FirstMeasure+ln.MeasureCount; m++ {
			box := res.Measures[m]
			x := v.tx(box.X + box.Width)
			top := ln.Y + v.cfg.LineSpacing
			vector.StrokeLine(screen, x, v.ty(top), x, v.ty(top+2*v.cfg.LineSpacing), 1, staffColor, true)
		}
	}
}

func (v *viewer) drawPlayhead(screen *ebiten.Image, res *layout.Result) {
	sc := v.player.Score()
	if sc == nil || res.BPM <= 0 || sc.Meta.BeatsPerMeasure <= 0 {
		return
	}
	music := v.player.MusicTime()
	secPerBeat := 60.0 / res.BPM
	m := v.player.CurrentMeasure()
	if m >= len(res.Measures) {
		return
	}
	box := res.Measures[m]
	ln := res.Lines[box.Line]
	beatIn := music/secPerBeat - float64(m*sc.Meta.BeatsPerMeasure)
	frac := geom.Clamp(beatIn/float64(sc.Meta.BeatsPerMeasure), 0, 1)
	x := v.tx(box.X + frac*box.Width)
	vector.StrokeLine(screen, x, v.ty(ln.Y-10), x, v.ty(ln.Y+ln.Height+10), 2, playheadColor, true)
}

func (v *viewer) drawKeyboard(screen *ebiten.Image, res *layout.Result, highlighted map[int]bool) {
	active := make(map[int]bool)
	for i, on := range highlighted {
		if on && !res.Notes[i].Rest {
			active[res.Notes[i].Pitch] = true
		}
	}
	const lowest, highest = 21, 108 // 88 keys
	y := float32(v.winH) - float32(v.cfg.KeyboardHeight)
	h := float32(v.cfg.KeyboardHeight)
	whiteCount := 0
	for p := lowest; p <= highest; p++ {
		if !isBlackKey(p) {
			whiteCount++
		}
	}
	kw := float32(v.winW) / float32(whiteCount)
	// White keys first, black keys on top.
	wx := float32(0)
	for p := lowest; p <= highest; p++ {
		if isBlackKey(p) {
			continue
		}
		c := keyWhiteColor
		if active[p] {
			c = keyActiveColor
		}
		vector.DrawFilledRect(screen, wx, y, kw-1, h, c, false)
		vector.StrokeRect(screen, wx, y, kw-1, h, 1, keyBorderColor, false)
		wx += kw
	}
	wx = 0
	for p := lowest; p <= highest; p++ {
		if isBlackKey(p) {
			c := keyBlackColor
			if active[p] {
				c = keyActiveColor
			}
			vector.DrawFilledRect(screen, wx-kw*0.3, y, kw*0.6, h*0.6, c, false)
			continue
		}
		wx += kw
	}
}

func isBlackKey(pitch int) bool {
	switch pitch % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

func (v *viewer) drawHUD(screen *ebiten.Image) {
	status := "paused"
	if v.player.IsPlaying() {
		status = "playing"
	}
	msg := fmt.Sprintf("%s  t=%.2fs/%.2fs  measure %d  [space] play [J] notation [L] loop [M] metronome [1-6] speed",
		status, v.player.MusicTime(), v.player.TotalDuration(), v.player.CurrentMeasure()+1)
	ebitenutil.DebugPrintAt(screen, msg, 8, v.winH-18)
}

func (v *viewer) Layout(outsideW, outsideH int) (int, int) {
	return outsideW, outsideH
}

func main() {
	scorePath := flag.String("score", "", "path to a JSON score file")
	configPath := flag.String("config", "", "YAML layout config file")
	flag.Parse()
	if *scorePath == "" {
		log.Fatal("usage: partita-view -score <score.json>")
	}

	cfg := layout.DefaultConfig()
	cfg.KeyboardHeight = 90
	if *configPath != "" {
		var err error
		cfg, err = layout.LoadConfig(*configPath)
		if err != nil {
			log.Fatal(err)
		}
	}

	piano := synth.NewPiano(uiSampleRate)
	out, err := audioout.NewOutput(uiSampleRate, piano)
	if err != nil {
		log.Fatal(err)
	}
	out.Start()

	pl := partita.NewPlayer(
		partita.WithLayoutConfig(cfg),
		partita.WithNoteSink(piano),
	)
	if err := pl.LoadScoreFile(*scorePath); err != nil {
		log.Fatal(err)
	}
	pl.Resize(float64(defaultW - 2*sideMargin))

	ebiten.SetWindowSize(defaultW, defaultH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowTitle("partita")
	if err := ebiten.RunGame(newViewer(pl, cfg)); err != nil {
		log.Fatal(err)
	}
}
