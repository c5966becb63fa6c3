package detect

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shaderdex/shaderdex/internal/shader"
)

// benchSource builds GLSL-shaped text where every 16th line touches a
// channel, roughly the density of real shader code.
func benchSource(lines int) string {
	var sb strings.Builder
	for i := 0; i < lines; i++ {
		switch {
		case i%16 == 8:
			fmt.Fprintf(&sb, "    vec4 c%d = texture(iChannel0, uv + %d.0);\n", i, i)
		case i%64 == 32:
			fmt.Fprintf(&sb, "    vec3 n%d = texture(iChannel1, p.xy).rgb;\n", i)
		default:
			fmt.Fprintf(&sb, "    float v%d = sin(p.x * %d.0) * cos(p.y);\n", i, i)
		}
	}
	return sb.String()
}

func BenchmarkDetectorDetect(b *testing.B) {
	for _, lines := range []int{50, 500, 5000} {
		b.Run(fmt.Sprintf("lines_%d", lines), func(b *testing.B) {
			d := New()
			rec := &shader.Record{
				ID:               "bench",
				DeclaredRequires: shader.NewKindSet(shader.KindImage),
				Passes: []shader.RenderPass{
					{Type: "image", Code: benchSource(lines)},
					{Type: "buffer", Code: benchSource(lines / 2)},
				},
			}

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				set := d.Detect(rec)
				if set.Len() == 0 {
					b.Fatal("expected at least one detected kind")
				}
			}
		})
	}
}
