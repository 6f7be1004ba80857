package gpu

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/glviewer/batchview/internal/memory"
)

// program is a linked shader program and its uniform locations.
type program struct {
	id          uint32
	uView       int32
	uProjection int32
	uPointShape int32 // -1 unless the points program

	camera int // camera generation last uploaded
}

// ShaderManager handles shader program compilation, linking, and uniform
// management. There is one program per memory.Shading.
type ShaderManager struct {
	programs [3]*program
}

// Vertex shader shared by every program. Positions arrive in world space;
// alpha and point size are per vertex so objects differing only in those
// share a draw call.
const vertexShaderSource = `
#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec4 aColour;
layout (location = 2) in vec3 aNormal;
layout (location = 3) in float aPointSize;

uniform mat4 uView;
uniform mat4 uProjection;

out vec4 vColour;
out vec3 vNormal;

void main() {
    gl_Position = uProjection * uView * vec4(aPos, 1.0);
    gl_PointSize = aPointSize;
    vColour = aColour;
    vNormal = aNormal;
}
` + "\x00"

// Lit fragment shader: a fixed directional light plus ambient.
const litFragmentShaderSource = `
#version 410 core
in vec4 vColour;
in vec3 vNormal;
out vec4 FragColour;

const vec3 lightDir = normalize(vec3(0.4, 0.6, 1.0));
const float ambient = 0.35;

void main() {
    float diffuse = max(dot(normalize(vNormal), lightDir), 0.0);
    FragColour = vec4(vColour.rgb * (ambient + (1.0 - ambient) * diffuse), vColour.a);
}
` + "\x00"

// Flat fragment shader. Simply applies the vertex colour.
const flatFragmentShaderSource = `
#version 410 core
in vec4 vColour;
in vec3 vNormal;
out vec4 FragColour;

void main() {
    FragColour = vColour;
}
` + "\x00"

// Point fragment shader. Round points discard fragments outside the
// inscribed circle of the point sprite.
const pointFragmentShaderSource = `
#version 410 core
in vec4 vColour;
in vec3 vNormal;
out vec4 FragColour;

uniform int uPointShape;

void main() {
    if (uPointShape == 0 && length(gl_PointCoord - vec2(0.5)) > 0.5) {
        discard;
    }
    FragColour = vColour;
}
` + "\x00"

// NewShaderManager compiles and links every program. Requires a current
// GL context.
func NewShaderManager() (*ShaderManager, error) {
	sm := &ShaderManager{}
	sources := map[memory.Shading]string{
		memory.ShadingLit:    litFragmentShaderSource,
		memory.ShadingFlat:   flatFragmentShaderSource,
		memory.ShadingPoints: pointFragmentShaderSource,
	}
	for shading, fragment := range sources {
		p, err := linkProgram(vertexShaderSource, fragment)
		if err != nil {
			sm.Delete()
			return nil, fmt.Errorf("%s program: %w", shading, err)
		}
		sm.programs[shading] = p
	}
	return sm, nil
}

func (sm *ShaderManager) program(s memory.Shading) *program {
	return sm.programs[s]
}

// Delete frees every program.
func (sm *ShaderManager) Delete() {
	for i, p := range sm.programs {
		if p != nil {
			gl.DeleteProgram(p.id)
			sm.programs[i] = nil
		}
	}
}

func linkProgram(vertexSource, fragmentSource string) (*program, error) {
	vertexShader, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(vertexShader)

	fragmentShader, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(fragmentShader)

	id := gl.CreateProgram()
	gl.AttachShader(id, vertexShader)
	gl.AttachShader(id, fragmentShader)
	gl.LinkProgram(id)

	// Check linking status.
	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(logText))
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("shader linking failed: %s", logText)
	}

	return &program{
		id:          id,
		uView:       gl.GetUniformLocation(id, gl.Str("uView\x00")),
		uProjection: gl.GetUniformLocation(id, gl.Str("uProjection\x00")),
		uPointShape: gl.GetUniformLocation(id, gl.Str("uPointShape\x00")),
		camera:      -1,
	}, nil
}

// compileShader compiles a single shader from source.
func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	// Check compilation status.
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("shader compilation failed: %s", logText)
	}

	return shader, nil
}
