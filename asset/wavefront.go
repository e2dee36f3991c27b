package asset

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/sunray/log"
	"github.com/achilleasa/sunray/scene"
	"github.com/achilleasa/sunray/types"
)

type wavefrontMesh struct {
	name      string
	triangles []scene.Triangle
}

type wavefrontReader struct {
	ctx    context.Context
	logger log.Logger
	meshes []*wavefrontMesh

	// List of vertices, normals and uv coords.
	vertexList []types.Vec3
	normalList []types.Vec3
	uvList     []types.Vec2

	// An error stack that provides additional error information when
	// files include other files.
	errStack []string
}

// Read the meshes defined by a wavefront obj file. Each "o" or "g" statement
// starts a new mesh; faces before the first one go to a mesh called "default".
// Polygons are triangulated as fans and "call" statements include other obj
// files relative to the including file. Materials are ignored.
func ReadWavefront(ctx context.Context, location string) ([]*scene.Mesh, error) {
	res, err := OpenResource(ctx, location)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	return readWavefront(ctx, res)
}

func readWavefront(ctx context.Context, res *Resource) ([]*scene.Mesh, error) {
	r := &wavefrontReader{
		ctx:    ctx,
		logger: log.New("wavefront reader"),
	}

	r.logger.Noticef(`parsing meshes from "%s"`, res.Path())
	start := time.Now()
	if err := r.parse(res); err != nil {
		return nil, err
	}

	// An included file may supply the faces of a mesh declared before the
	// include, so empty meshes are only dropped once everything is parsed.
	r.dropEmptyMesh()

	meshes := make([]*scene.Mesh, 0, len(r.meshes))
	for _, wm := range r.meshes {
		mesh, err := scene.NewMesh(wm.name, wm.triangles, types.Ident4())
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, mesh)
	}
	r.logger.Noticef("parsed %d meshes in %d ms", len(meshes), time.Since(start).Nanoseconds()/1e6)
	return meshes, nil
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)
	errMsg := strings.Trim(
		fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n")),
		"\n",
	)
	return fmt.Errorf("%w: %s", ErrInvalidWavefront, errMsg)
}

func (r *wavefrontReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

func (r *wavefrontReader) popFrame() {
	r.errStack = r.errStack[1:]
}

func (r *wavefrontReader) parse(res *Resource) error {
	var lineNum int

	// Included files use 1-based indices relative to their own coordinates.
	relVertexOffset := len(r.vertexList)
	relUvOffset := len(r.uvList)
	relNormalOffset := len(r.normalList)

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "call"; expected 1 argument; got %d`, len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [call]", res.Path(), lineNum))
			incRes, err := OpenRelative(r.ctx, res, lineTokens[1])
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%v", err)
			}
			err = r.parse(incRes)
			incRes.Close()
			if err != nil {
				return err
			}
			r.popFrame()
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%v", err)
			}
			r.vertexList = append(r.vertexList, v)
		case "vn":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%v", err)
			}
			r.normalList = append(r.normalList, v)
		case "vt":
			v, err := parseVec2(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%v", err)
			}
			r.uvList = append(r.uvList, v)
		case "g", "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument for object name; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			r.dropEmptyMesh()
			r.meshes = append(r.meshes, &wavefrontMesh{name: lineTokens[1]})
		case "f":
			tris, err := r.parseFace(lineTokens, relVertexOffset, relUvOffset, relNormalOffset)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%v", err)
			}
			if len(r.meshes) == 0 {
				r.meshes = append(r.meshes, &wavefrontMesh{name: "default"})
			}
			last := r.meshes[len(r.meshes)-1]
			last.triangles = append(last.triangles, tris...)
		}
	}
	if err := scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, "%v", err)
	}
	return nil
}

// Drop the last parsed mesh if it contains no faces.
func (r *wavefrontReader) dropEmptyMesh() {
	last := len(r.meshes) - 1
	if last >= 0 && len(r.meshes[last].triangles) == 0 {
		r.logger.Warningf(`dropping mesh "%s" as it contains no polygons`, r.meshes[last].name)
		r.meshes = r.meshes[:last]
	}
}

// Parse a face with three or more vertices into a triangle fan. Faces without
// normals get the face normal of their first triangle.
func (r *wavefrontReader) parseFace(lineTokens []string, relVertexOffset, relUvOffset, relNormalOffset int) ([]scene.Triangle, error) {
	args := lineTokens[1:]
	if len(args) < 3 {
		return nil, fmt.Errorf(`unsupported syntax for "f"; expected at least 3 arguments; got %d`, len(args))
	}

	vertices := make([]types.Vec3, len(args))
	normals := make([]types.Vec3, len(args))
	uvs := make([]types.Vec2, len(args))
	expIndices := 0
	hasNormals := false
	for arg, token := range args {
		vTokens := strings.Split(token, "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return nil, fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		if vTokens[0] == "" {
			return nil, fmt.Errorf("face argument %d does not include a vertex index", arg)
		}
		offset, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList), relVertexOffset)
		if err != nil {
			return nil, fmt.Errorf("could not parse vertex coord for face argument %d: %w", arg, err)
		}
		vertices[arg] = r.vertexList[offset]

		if expIndices > 1 && vTokens[1] != "" {
			offset, err = selectFaceCoordIndex(vTokens[1], len(r.uvList), relUvOffset)
			if err != nil {
				return nil, fmt.Errorf("could not parse tex coord for face argument %d: %w", arg, err)
			}
			uvs[arg] = r.uvList[offset]
		}

		if expIndices > 2 && vTokens[2] != "" {
			offset, err = selectFaceCoordIndex(vTokens[2], len(r.normalList), relNormalOffset)
			if err != nil {
				return nil, fmt.Errorf("could not parse normal coord for face argument %d: %w", arg, err)
			}
			normals[arg] = r.normalList[offset]
			hasNormals = true
		}
	}

	tris := make([]scene.Triangle, 0, len(args)-2)
	for i := 1; i+1 < len(args); i++ {
		tri := scene.NewTriangle(vertices[0], vertices[i], vertices[i+1])
		tri.UVs = [3]types.Vec2{uvs[0], uvs[i], uvs[i+1]}
		if hasNormals {
			tri.Normals = [3]types.Vec3{normals[0], normals[i], normals[i+1]}
		}
		tris = append(tris, tri)
	}
	return tris, nil
}

// Given an index for a face coord type (vertex, normal, tex) calculate the
// proper offset into the coord list. Negative indices reference elements from
// the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var offset int
	if index < 0 {
		offset = coordListLen + int(index)
	} else {
		offset = relOffset + int(index-1)
	}
	if offset < 0 || offset >= coordListLen {
		return -1, fmt.Errorf("index %d out of bounds", index)
	}
	return offset, nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}

// Parse a Vec2 row.
func parseVec2(lineTokens []string) (types.Vec2, error) {
	if len(lineTokens) < 3 {
		return types.Vec2{}, fmt.Errorf(`unsupported syntax for "%s"; expected 2 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec2{}
	for tokIdx := 1; tokIdx <= 2; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
