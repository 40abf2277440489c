package main

import (
	gomath "math"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/toonview/internal/config"
	"github.com/Faultbox/toonview/internal/engine/camera"
	"github.com/Faultbox/toonview/internal/engine/gpu"
	"github.com/Faultbox/toonview/internal/engine/render"
	"github.com/Faultbox/toonview/internal/engine/scene"
	"github.com/Faultbox/toonview/internal/engine/window"
	"github.com/Faultbox/toonview/pkg/math"
)

// app wires the demo scene, the orbit camera and the render engine into
// the SDL event loop.
type app struct {
	cfg    *config.Config
	win    *window.Window
	dev    *gpu.GLDevice
	engine *render.Engine
	scene  *scene.Scene
	cam    *camera.OrbitCamera

	dragging bool
}

func newApp(cfg *config.Config) (*app, error) {
	win, err := window.New(window.Config{
		Title:      "toonview",
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, err
	}

	dev, err := gpu.NewGL()
	if err != nil {
		win.Close()
		return nil, err
	}

	engine, err := render.New(dev)
	if err != nil {
		win.Close()
		return nil, err
	}

	return &app{
		cfg:    cfg,
		win:    win,
		dev:    dev,
		engine: engine,
		scene:  demoScene(),
		cam:    camera.NewOrbitCamera(),
	}, nil
}

// demoScene builds a small test scene: a ground plane, two cubes and two
// suns at different angles.
func demoScene() *scene.Scene {
	s := scene.New()
	s.AddMesh("ground", scene.Plane(6))
	s.AddMesh("cube", scene.Cube(1))
	s.AddMesh("cube.small", scene.Cube(0.5))
	s.SetTransform("cube", math.Translate(0, 1, 0))
	s.SetTransform("cube.small", math.Translate(2.5, 0.5, -1))

	s.AddSun("sun", math.QuatFromAxisAngle(math.Vec3{X: 1}, -2.4))
	s.AddSun("sun.fill", math.QuatFromAxisAngle(math.Vec3{Y: 1}, 1.1).
		Mul(math.QuatFromAxisAngle(math.Vec3{X: 1}, -1.9)))
	return s
}

// Run drives the host-style loop: flush scene changes into the engine,
// then redraw, until the window closes.
func (a *app) Run() error {
	spin := float32(0)

	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				return nil
			case *sdl.KeyboardEvent:
				if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
					return nil
				}
				if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_o {
					a.cfg.Style.EnableOutline = !a.cfg.Style.EnableOutline
				}
			case *sdl.MouseButtonEvent:
				if e.Button == sdl.BUTTON_LEFT {
					a.dragging = e.Type == sdl.MOUSEBUTTONDOWN
				}
			case *sdl.MouseMotionEvent:
				if a.dragging {
					a.cam.HandleDrag(float32(e.XRel), float32(e.YRel))
				}
			case *sdl.MouseWheelEvent:
				a.cam.HandleZoom(float32(e.Y))
			}
		}

		// Keep one cube moving so transform edits exercise the
		// no-rebuild path every frame.
		spin += 0.01
		a.scene.SetTransform("cube.small", math.RotateY(spin).
			Mul(math.Translate(2.5, 0.5, -1)))

		if a.scene.Dirty() {
			snapshot, updates, first := a.scene.Flush()
			a.engine.SceneChanged(snapshot, updates, first)
		}

		width, height := a.win.GetSize()
		a.dev.Viewport(width, height)
		a.dev.Clear(0.12, 0.12, 0.14, 1.0)

		aspect := float32(width) / float32(gomath.Max(float64(height), 1))
		frame := a.engine.Frame(
			a.cam.ViewMatrix(),
			a.cam.ProjectionMatrix(aspect),
			a.cfg.Style,
		)
		a.engine.Draw(frame)

		a.win.SwapBuffers()
	}
}

// Close releases engine and window resources.
func (a *app) Close() {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.win != nil {
		a.win.Close()
	}
}
