package scene

import (
	"math"

	"github.com/achilleasa/sunray/bvh"
	"github.com/achilleasa/sunray/types"
)

// A pinhole camera that generates primary rays for a frame of Width x Height
// pixels.
type Camera struct {
	Position types.Vec3
	LookAt   types.Vec3
	Up       types.Vec3

	// Vertical field of view in degrees.
	FOV float32

	Width  int
	Height int

	// Intersections closer than this distance are ignored by primary rays.
	RayEpsilon float32
}

// Create a camera at the origin looking down the negative Z axis.
func NewCamera(fov float32, width, height int) *Camera {
	return &Camera{
		Position: types.XYZ(0, 0, 0),
		LookAt:   types.XYZ(0, 0, -1),
		Up:       types.XYZ(0, 1, 0),
		FOV:      fov,
		Width:    width,
		Height:   height,
	}
}

// Rotate the camera around its look-at point by yaw degrees around the up
// vector and pitch degrees around the camera right vector.
func (c *Camera) Orbit(yaw, pitch float32) {
	offset := c.Position.Sub(c.LookAt)
	right := c.LookAt.Sub(c.Position).Cross(c.Up).Normalize()

	yawQuat := types.QuatFromAxisAngle(c.Up, yaw*math.Pi/180)
	pitchQuat := types.QuatFromAxisAngle(right, pitch*math.Pi/180)
	offset = yawQuat.Mul(pitchQuat).Rotate(offset)

	c.Position = c.LookAt.Add(offset)
}

// Get the ray through the center of pixel (x, y). Pixel (0, 0) is the top-left
// corner of the frame. The ray direction is normalized.
func (c *Camera) Ray(x, y int) bvh.Ray {
	forward := c.LookAt.Sub(c.Position).Normalize()
	right := forward.Cross(c.Up).Normalize()
	up := right.Cross(forward)

	aspect := float32(c.Width) / float32(c.Height)
	halfHeight := float32(math.Tan(float64(c.FOV) * math.Pi / 360))
	halfWidth := aspect * halfHeight

	// Map the pixel center to [-1, 1] on both axes.
	sx := (2*(float32(x)+0.5)/float32(c.Width) - 1) * halfWidth
	sy := (1 - 2*(float32(y)+0.5)/float32(c.Height)) * halfHeight

	dir := forward.Add(right.Mul(sx)).Add(up.Mul(sy)).Normalize()
	ray := bvh.NewRay(c.Position, dir)
	ray.MinT = c.RayEpsilon
	return ray
}

// Generate the primary rays for all frame pixels in row-major order.
func (c *Camera) Rays() []bvh.Ray {
	rays := make([]bvh.Ray, 0, c.Width*c.Height)
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			rays = append(rays, c.Ray(x, y))
		}
	}
	return rays
}
