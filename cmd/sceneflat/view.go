package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/sceneflat/pkg/export"
	"github.com/taigrr/sceneflat/pkg/render"
)

// snapshot dimensions in pixels
const (
	snapshotWidth  = 320
	snapshotHeight = 240
)

func loadPreview(path string) (*render.Preview, *render.Camera, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	file, err := export.Decode(f)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", path, err)
	}

	preview := render.NewPreview(file)
	camera := render.NewCamera()
	if lo, hi, ok := preview.Bounds(); ok {
		camera.Frame(lo, hi)
	}
	return preview, camera, nil
}

// snapshot renders the export at path into a PNG.
func snapshot(path, pngPath string) error {
	preview, camera, err := loadPreview(path)
	if err != nil {
		return err
	}
	camera.AspectRatio = float64(snapshotWidth) / snapshotHeight
	if lo, hi, ok := preview.Bounds(); ok {
		camera.Frame(lo, hi)
	}

	fb := render.NewFramebuffer(snapshotWidth, snapshotHeight)
	preview.Render(camera, fb)
	return fb.SavePNG(pngPath)
}

// view shows the export at path in the terminal until the user quits or
// ctx is done.
func view(ctx context.Context, path string, fps int) error {
	if err := checkFPS(fps); err != nil {
		return err
	}
	preview, camera, err := loadPreview(path)
	if err != nil {
		return err
	}
	home := *camera

	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	defer func() {
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}()

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// Half-block cells hold two pixel rows each
	fb := render.NewFramebuffer(width, height*2)
	spin := NewSpin(fps)
	status := fmt.Sprintf(" %s  %d parts  %d materials ", filepath.Base(path), len(preview.File.Parts), len(preview.File.Materials))

	const impulse = 0.05
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-term.Events():
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				width, height = ev.Width, ev.Height
				term.Erase()
				term.Resize(width, height)
				fb.Resize(width, height*2)

			case uv.KeyPressEvent:
				switch {
				case ev.MatchString("escape", "q", "ctrl+c"):
					return nil
				case ev.MatchString("w", "up"):
					spin.ApplyImpulse(0, impulse)
				case ev.MatchString("s", "down"):
					spin.ApplyImpulse(0, -impulse)
				case ev.MatchString("a", "left"):
					spin.ApplyImpulse(-impulse, 0)
				case ev.MatchString("d", "right"):
					spin.ApplyImpulse(impulse, 0)
				case ev.MatchString("space"):
					spin.ApplyImpulse(impulse*4, 0)
				case ev.MatchString("+", "="):
					camera.Zoom(0.9)
				case ev.MatchString("-", "_"):
					camera.Zoom(1.1)
				case ev.MatchString("b"):
					preview.ShowBounds = !preview.ShowBounds
				case ev.MatchString("r"):
					spin.Reset()
					*camera = home
				}

			case uv.MouseWheelEvent:
				switch ev.Button {
				case uv.MouseWheelUp:
					camera.Zoom(0.9)
				case uv.MouseWheelDown:
					camera.Zoom(1.1)
				}
			}

		case <-ticker.C:
			spin.Update()
			frame := *camera
			frame.Orbit(spin.Yaw.Position, spin.Pitch.Position)

			preview.Render(&frame, fb)
			area := uv.Rect(0, 0, width, height)
			fb.Draw(term, area)
			drawStatus(term, status, width)
			if err := term.Display(); err != nil {
				return fmt.Errorf("display: %w", err)
			}
		}
	}
}

// drawStatus writes text on the first terminal row.
func drawStatus(scr uv.Screen, text string, width int) {
	col := 0
	for _, r := range text {
		if col >= width {
			return
		}
		scr.SetCell(col, 0, &uv.Cell{
			Content: string(r),
			Width:   1,
			Style:   uv.Style{Fg: render.ColorWhite, Bg: render.ColorBlack},
		})
		col++
	}
}
