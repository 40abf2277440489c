package render

import (
	"go.uber.org/zap"

	"github.com/Faultbox/toonview/internal/engine/host"
	"github.com/Faultbox/toonview/internal/logger"
)

// Placeholder colors for the offline render path. Real shading only
// exists in the viewport; final renders fill flat.
var (
	previewFill = [4]float32{0.1, 0.2, 0.1, 1.0}
	finalFill   = [4]float32{0.2, 0.1, 0.1, 1.0}
)

// FlatFill produces the placeholder pixel rectangle for a render job.
func FlatFill(job host.RenderJob) (int, int, []float32) {
	width, height := job.ScaledSize()

	color := finalFill
	if job.Preview {
		color = previewFill
	}

	pixels := make([]float32, width*height*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i] = color[0]
		pixels[i+1] = color[1]
		pixels[i+2] = color[2]
		pixels[i+3] = color[3]
	}
	return width, height, pixels
}

// WriteFlat runs the offline render path: one flat-color rectangle
// written to the sink. It needs no GPU device, so headless tools can
// call it directly.
func WriteFlat(job host.RenderJob, sink host.ResultSink) error {
	width, height, pixels := FlatFill(job)
	logger.Info("final render",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Bool("preview", job.Preview),
	)
	return sink.WriteRect(width, height, pixels)
}

// FinalRender is the host-facing final render entry point. The geometry
// cache and draw path are not involved.
func (e *Engine) FinalRender(job host.RenderJob, sink host.ResultSink) error {
	return WriteFlat(job, sink)
}
