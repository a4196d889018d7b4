package main

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"
)

var (
	colorBgDark        = rl.NewColor(24, 24, 32, 235)
	colorBgElement     = rl.NewColor(38, 38, 50, 255)
	colorBgHover       = rl.NewColor(50, 50, 68, 255)
	colorAccent        = rl.NewColor(99, 102, 241, 255)
	colorTextPrimary   = rl.NewColor(235, 235, 245, 255)
	colorTextSecondary = rl.NewColor(160, 160, 180, 255)
)

var panelBounds = rl.Rectangle{X: 10, Y: 10, Width: 300, Height: 330}

func initGuiStyle() {
	gui.SetStyle(gui.DEFAULT, gui.BACKGROUND_COLOR, gui.NewColorPropertyValue(colorBgDark))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_NORMAL, gui.NewColorPropertyValue(colorBgElement))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_FOCUSED, gui.NewColorPropertyValue(colorBgHover))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_PRESSED, gui.NewColorPropertyValue(colorAccent))

	gui.SetStyle(gui.DEFAULT, gui.TEXT_COLOR_NORMAL, gui.NewColorPropertyValue(colorTextSecondary))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_COLOR_FOCUSED, gui.NewColorPropertyValue(colorTextPrimary))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_COLOR_PRESSED, gui.NewColorPropertyValue(colorTextPrimary))

	gui.SetStyle(gui.DEFAULT, gui.BORDER_COLOR_NORMAL, gui.NewColorPropertyValue(rl.NewColor(50, 50, 65, 255)))
	gui.SetStyle(gui.DEFAULT, gui.BORDER_COLOR_FOCUSED, gui.NewColorPropertyValue(colorAccent))

	gui.SetStyle(gui.DEFAULT, gui.TEXT_SIZE, 15)
}

// drawPanel shows tick stats and the solver sliders. Slider changes are
// validated by the world; a rejected value snaps back.
func (v *viewer) drawPanel() {
	rl.DrawRectangleRec(panelBounds, colorBgDark)
	rl.DrawRectangleLinesEx(panelBounds, 1, colorBgHover)

	x := int32(panelBounds.X) + 10
	y := int32(panelBounds.Y) + 10

	frame := v.world.Physics.Frame()
	tree := v.world.Physics.Tree()
	lines := []string{
		fmt.Sprintf("tick %d  step %.2f ms", v.world.Ticks(), v.stepMs),
		fmt.Sprintf("colliders %d  tree height %d", tree.LeafCount(), tree.Height()),
		fmt.Sprintf("pairs %d  contacts %d  impulses %d", len(frame.CandidatePairs), len(frame.Contacts), len(frame.Impulses)),
	}
	if v.paused {
		lines = append(lines, "PAUSED (P resume, N step)")
	}
	if v.hasSelected {
		name := v.world.Scene.EntityName(v.selected)
		if t, ok := v.world.Scene.Transforms.Get(v.selected); ok {
			p := t.Position
			lines = append(lines, fmt.Sprintf("%s (%.2f, %.2f, %.2f)", name, p[0], p[1], p[2]))
		}
	}
	for _, l := range lines {
		rl.DrawText(l, x, y, 16, colorTextPrimary)
		y += 20
	}

	y += 8
	sc := v.solver
	row := func(label string, value, lo, hi float32, format string) float32 {
		rl.DrawText(label, x, y, 14, colorTextSecondary)
		bounds := rl.Rectangle{X: float32(x + 120), Y: float32(y - 2), Width: 120, Height: 16}
		out := gui.Slider(bounds, "", fmt.Sprintf(format, value), value, lo, hi)
		y += 24
		return out
	}
	sc.RestingThreshold = row("Resting", sc.RestingThreshold, 0, 2, "%.2f")
	sc.PenetrationSlop = row("Slop", sc.PenetrationSlop, 0, 0.1, "%.3f")
	sc.CorrectionPercent = row("Correction", sc.CorrectionPercent, 0, 1, "%.2f")
	sc.Iterations = int(math.Round(float64(row("Iterations", float32(sc.Iterations), 1, 16, "%.0f"))))

	if sc != v.solver {
		if err := v.world.Physics.SetSolverConfig(sc); err != nil {
			v.log.Warn("solver config rejected", zap.Error(err))
		} else {
			v.solver = sc
		}
	}

	y += 8
	for _, help := range []string{
		"RMB look, WASD/QE move, Shift fast",
		"LMB pick, Del remove, Space shoot",
		"F2 tree, F3 contacts, R reload, F5 save",
	} {
		rl.DrawText(help, x, y, 14, colorTextSecondary)
		y += 18
	}
}
