package app

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/glviewer/batchview/internal/geom"
)

const (
	minZoom = 0.1
	maxZoom = 8.0

	baseDistance = 20.0
	maxPitch     = 89 * math.Pi / 180
	fovY         = 45 * math.Pi / 180
	nearPlane    = 0.1
	farPlane     = 1000.0
)

// worldUp is the +Z axis; the ground plane is XY.
var worldUp = mgl32.Vec3{0, 0, 1}

// View is an orbit camera around Target. Yaw and pitch are in radians; the
// camera sits baseDistance/Zoom away from the target.
type View struct {
	Target        mgl32.Vec3
	Yaw, Pitch    float64
	Zoom          float64
	Width, Height int
}

// NewView creates a new view looking at the origin from above at an angle.
func NewView(width, height int) *View {
	return &View{
		Yaw:    -math.Pi / 2,
		Pitch:  math.Pi / 4,
		Zoom:   1.0,
		Width:  width,
		Height: height,
	}
}

// SetZoom sets the zoom level, clamping to valid range.
func (vs *View) SetZoom(zoom float64) {
	if zoom < minZoom {
		vs.Zoom = minZoom
	} else if zoom > maxZoom {
		vs.Zoom = maxZoom
	} else {
		vs.Zoom = zoom
	}
}

// SetViewport updates the viewport dimensions.
func (vs *View) SetViewport(width, height int) {
	vs.Width = width
	vs.Height = height
}

// Orbit rotates the camera around the target. Pitch stays short of the
// poles so the up vector is never parallel to the view direction.
func (vs *View) Orbit(dYaw, dPitch float64) {
	vs.Yaw = math.Mod(vs.Yaw+dYaw, 2*math.Pi)
	vs.Pitch = math.Max(-maxPitch, math.Min(maxPitch, vs.Pitch+dPitch))
}

// Distance returns how far the camera is from the target.
func (vs *View) Distance() float32 {
	return float32(baseDistance / vs.Zoom)
}

// Eye returns the camera position.
func (vs *View) Eye() mgl32.Vec3 {
	cp := math.Cos(vs.Pitch)
	offset := mgl32.Vec3{
		float32(cp * math.Cos(vs.Yaw)),
		float32(cp * math.Sin(vs.Yaw)),
		float32(math.Sin(vs.Pitch)),
	}
	return vs.Target.Add(offset.Mul(vs.Distance()))
}

// Pan moves the target within the view plane by a framebuffer pixel
// offset, so the point under the cursor follows it.
func (vs *View) Pan(dx, dy float64) {
	forward := vs.Target.Sub(vs.Eye()).Normalize()
	right := forward.Cross(worldUp).Normalize()
	up := right.Cross(forward)

	height := float32(vs.Height)
	if height <= 0 {
		height = 1
	}
	perPixel := 2 * vs.Distance() * float32(math.Tan(fovY/2)) / height
	vs.Target = vs.Target.
		Sub(right.Mul(float32(dx) * perPixel)).
		Add(up.Mul(float32(dy) * perPixel))
}

// ResetTo centres the view on box and zooms so that it fits.
func (vs *View) ResetTo(box geom.Box) {
	if box.IsEmpty() {
		vs.Target = mgl32.Vec3{}
		vs.Zoom = 1.0
		return
	}
	vs.Target = box.Center()
	radius := float64(box.Size().Len()) / 2
	if radius <= 0 {
		vs.SetZoom(maxZoom)
		return
	}
	// Distance at which a sphere of this radius fills the vertical FOV.
	vs.SetZoom(baseDistance * math.Sin(fovY/2) / radius)
}

// ViewMatrix returns the world-to-camera matrix.
func (vs *View) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(vs.Eye(), vs.Target, worldUp)
}

// Projection returns the perspective projection for the viewport.
func (vs *View) Projection() mgl32.Mat4 {
	aspect := float32(1)
	if vs.Height > 0 {
		aspect = float32(vs.Width) / float32(vs.Height)
	}
	return mgl32.Perspective(fovY, aspect, nearPlane, farPlane)
}

// Ray returns the world-space ray through framebuffer pixel (x, y), with y
// growing downwards as reported by the window system.
func (vs *View) Ray(x, y float64) (origin, dir mgl32.Vec3, err error) {
	view, projection := vs.ViewMatrix(), vs.Projection()
	winY := float32(float64(vs.Height) - y)
	near, err := mgl32.UnProject(mgl32.Vec3{float32(x), winY, 0}, view, projection, 0, 0, vs.Width, vs.Height)
	if err != nil {
		return origin, dir, err
	}
	far, err := mgl32.UnProject(mgl32.Vec3{float32(x), winY, 1}, view, projection, 0, 0, vs.Width, vs.Height)
	if err != nil {
		return origin, dir, err
	}
	return near, far.Sub(near).Normalize(), nil
}
