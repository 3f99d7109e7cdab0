package loader

import (
	"context"
	"fmt"

	"github.com/Carmen-Shannon/oxy-assets/engine/model"
	"github.com/Carmen-Shannon/oxy-assets/internal/logger"
	"github.com/chewxy/math32"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Attribute labels used in MissingAttributeError and AttributeLengthMismatchError.
const (
	labelPositions  = "positions"
	labelIndices    = "indices"
	labelNormals    = "normals"
	labelTangents   = "tangents"
	labelColors     = "colors"
	labelJoints     = "joints"
	labelWeights    = "weights"
	labelTexCoords0 = "tex_coords0"
	labelTexCoords1 = "tex_coords1"
)

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser           gltfParser
	generateNormals  bool
	generateTangents bool
}

// gltfMeshExtractor defines the interface for assembling glTF mesh primitives into ModelVertex streams.
// Each primitive becomes one ImportedMesh.
type gltfMeshExtractor interface {
	// ExtractMesh assembles every primitive of a single mesh.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh in the document
	//
	// Returns:
	//   - []model.ImportedMesh: one entry per primitive, in primitive order
	//   - error: error if any primitive fails to assemble
	ExtractMesh(meshIndex int) ([]model.ImportedMesh, error)

	// ExtractAllMeshes assembles every primitive of every mesh in parallel.
	// Results are gathered into document order regardless of completion order.
	//
	// Parameters:
	//   - workers: the maximum number of primitives assembled at once (at least 1)
	//
	// Returns:
	//   - []model.ImportedMesh: all primitives in document order
	//   - error: the first error any worker reported
	ExtractAllMeshes(workers int) ([]model.ImportedMesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - generateNormals: compute smooth normals for primitives without a NORMAL attribute
//   - generateTangents: compute tangents for primitives without a TANGENT attribute
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser gltfParser, generateNormals, generateTangents bool) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{
		parser:           parser,
		generateNormals:  generateNormals,
		generateTangents: generateTangents,
	}
}

// primitiveJob addresses one primitive of one mesh.
type primitiveJob struct {
	mesh, prim int
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) ([]model.ImportedMesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, malformed("mesh %d out of range", meshIndex)
	}

	meshes := make([]model.ImportedMesh, len(doc.Meshes[meshIndex].Primitives))
	for i := range meshes {
		mesh, err := e.extractPrimitive(meshIndex, i)
		if err != nil {
			return nil, err
		}
		meshes[i] = mesh
	}
	return meshes, nil
}

func (e *gltfMeshExtractorImpl) ExtractAllMeshes(workers int) ([]model.ImportedMesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	var jobs []primitiveJob
	for m, mesh := range doc.Meshes {
		for p := range mesh.Primitives {
			jobs = append(jobs, primitiveJob{mesh: m, prim: p})
		}
	}

	results := make([]model.ImportedMesh, len(jobs))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(workers, 1))
	for i, job := range jobs {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			mesh, err := e.extractPrimitive(job.mesh, job.prim)
			if err != nil {
				return err
			}
			results[i] = mesh
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// primitiveName returns "<mesh>" for single-primitive meshes and "<mesh>_<i>" otherwise.
func primitiveName(mesh *gltf.Mesh, meshIndex, primIndex int) string {
	name := mesh.Name
	if name == "" {
		name = fmt.Sprintf("mesh_%d", meshIndex)
	}
	if len(mesh.Primitives) > 1 {
		name = fmt.Sprintf("%s_%d", name, primIndex)
	}
	return name
}

func (e *gltfMeshExtractorImpl) extractPrimitive(meshIndex, primIndex int) (model.ImportedMesh, error) {
	doc := e.parser.Document()
	mesh := doc.Meshes[meshIndex]
	prim := mesh.Primitives[primIndex]
	name := primitiveName(mesh, meshIndex, primIndex)

	if prim.Mode != gltf.PrimitiveTriangles {
		return model.ImportedMesh{}, fmt.Errorf("mesh %q: %w: mode %v", name, ErrUnsupportedPrimitiveMode, prim.Mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return model.ImportedMesh{}, &MissingAttributeError{Mesh: name, Attribute: labelPositions}
	}
	if prim.Indices == nil {
		return model.ImportedMesh{}, &MissingAttributeError{Mesh: name, Attribute: labelIndices}
	}

	positions, err := e.parser.ReadVec3(posAccessor)
	if err != nil {
		return model.ImportedMesh{}, fmt.Errorf("mesh %q: positions: %w", name, err)
	}
	vertexCount := len(positions)

	vertices := make([]model.ModelVertex, vertexCount)
	for i, pos := range positions {
		vertices[i] = model.ModelVertex{
			Position: pos,
			Normal:   [3]float32{0, 1, 0},
			Tangent:  [4]float32{1, 0, 0, 1},
			Color:    [4]float32{1, 1, 1, 1},
			Weights:  [4]float32{1, 0, 0, 0},
		}
	}

	mismatch := func(label string, actual int) error {
		return &AttributeLengthMismatchError{Mesh: name, Label: label, Expected: vertexCount, Actual: actual}
	}

	hasNormals := false
	if acr, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := e.parser.ReadVec3(acr)
		if err != nil {
			return model.ImportedMesh{}, fmt.Errorf("mesh %q: normals: %w", name, err)
		}
		if len(normals) != vertexCount {
			return model.ImportedMesh{}, mismatch(labelNormals, len(normals))
		}
		for i, n := range normals {
			vertices[i].Normal = n
		}
		hasNormals = true
	}

	hasTangents := false
	if acr, ok := prim.Attributes["TANGENT"]; ok {
		tangents, err := e.parser.ReadVec4(acr)
		if err != nil {
			return model.ImportedMesh{}, fmt.Errorf("mesh %q: tangents: %w", name, err)
		}
		if len(tangents) != vertexCount {
			return model.ImportedMesh{}, mismatch(labelTangents, len(tangents))
		}
		for i, t := range tangents {
			vertices[i].Tangent = t
		}
		hasTangents = true
	}

	if acr, ok := prim.Attributes["COLOR_0"]; ok {
		colors, err := e.readColors(acr)
		if err != nil {
			return model.ImportedMesh{}, fmt.Errorf("mesh %q: colors: %w", name, err)
		}
		if len(colors) != vertexCount {
			return model.ImportedMesh{}, mismatch(labelColors, len(colors))
		}
		for i, c := range colors {
			vertices[i].Color = c
		}
	}

	if acr, ok := prim.Attributes["JOINTS_0"]; ok {
		joints, err := e.parser.ReadJoints(acr)
		if err != nil {
			return model.ImportedMesh{}, fmt.Errorf("mesh %q: joints: %w", name, err)
		}
		if len(joints) != vertexCount {
			return model.ImportedMesh{}, mismatch(labelJoints, len(joints))
		}
		for i, j := range joints {
			vertices[i].Joints = j
		}
	}

	if acr, ok := prim.Attributes["WEIGHTS_0"]; ok {
		weights, err := e.parser.ReadVec4(acr)
		if err != nil {
			return model.ImportedMesh{}, fmt.Errorf("mesh %q: weights: %w", name, err)
		}
		if len(weights) != vertexCount {
			return model.ImportedMesh{}, mismatch(labelWeights, len(weights))
		}
		for i, w := range weights {
			vertices[i].Weights = normalizeWeights(w)
		}
	}

	for _, uv := range []struct {
		attribute string
		label     string
		set       func(v *model.ModelVertex, uv [2]float32)
	}{
		{"TEXCOORD_0", labelTexCoords0, func(v *model.ModelVertex, uv [2]float32) { v.UV0 = uv }},
		{"TEXCOORD_1", labelTexCoords1, func(v *model.ModelVertex, uv [2]float32) { v.UV1 = uv }},
	} {
		acr, ok := prim.Attributes[uv.attribute]
		if !ok {
			continue
		}
		coords, err := e.parser.ReadVec2(acr)
		if err != nil {
			return model.ImportedMesh{}, fmt.Errorf("mesh %q: %s: %w", name, uv.label, err)
		}
		if len(coords) != vertexCount {
			return model.ImportedMesh{}, mismatch(uv.label, len(coords))
		}
		for i, c := range coords {
			uv.set(&vertices[i], c)
		}
	}

	indices, err := e.parser.ReadIndices(*prim.Indices)
	if err != nil {
		return model.ImportedMesh{}, fmt.Errorf("mesh %q: indices: %w", name, err)
	}
	for i, idx := range indices {
		if int(idx) >= vertexCount {
			return model.ImportedMesh{}, malformed("mesh %q: index %d at %d exceeds vertex count %d", name, idx, i, vertexCount)
		}
	}

	if !hasNormals && e.generateNormals && len(indices) >= 3 {
		generateNormals(vertices, indices)
	}
	if !hasTangents && e.generateTangents && len(indices) >= 3 {
		generateTangents(vertices, indices)
	}

	materialIndex := 0
	if prim.Material != nil {
		materialIndex = int(*prim.Material)
		if materialIndex >= max(len(doc.Materials), 1) {
			return model.ImportedMesh{}, malformed("mesh %q: material %d out of range", name, materialIndex)
		}
	}

	bmin, bmax := calculateBoundingBox(positions)
	logger.Debug("assembled primitive",
		zap.String("mesh", name), zap.Int("vertices", vertexCount), zap.Int("indices", len(indices)))

	return model.ImportedMesh{
		Name:          name,
		SourceMesh:    meshIndex,
		Vertices:      vertices,
		Indices:       indices,
		MaterialIndex: materialIndex,
		BoundingMin:   bmin,
		BoundingMax:   bmax,
	}, nil
}

// readColors reads a COLOR_0 accessor. glTF colors can be VEC3 or VEC4, float or normalized int;
// VEC3 colors get an opaque alpha.
func (e *gltfMeshExtractorImpl) readColors(accessor uint32) ([][4]float32, error) {
	acr, err := e.parser.Accessor(accessor)
	if err != nil {
		return nil, err
	}

	switch acr.Type {
	case gltf.AccessorVec4:
		return e.parser.ReadVec4(accessor)
	case gltf.AccessorVec3:
		rgb, err := e.parser.ReadVec3(accessor)
		if err != nil {
			return nil, err
		}
		result := make([][4]float32, len(rgb))
		for i, c := range rgb {
			result[i] = [4]float32{c[0], c[1], c[2], 1}
		}
		return result, nil
	default:
		return nil, malformed("unsupported color type %v", acr.Type)
	}
}

// normalizeWeights divides the weights by their sum. A zero sum is returned unchanged.
func normalizeWeights(w [4]float32) [4]float32 {
	sum := w[0] + w[1] + w[2] + w[3]
	if sum <= 0 {
		return w
	}
	return [4]float32{w[0] / sum, w[1] / sum, w[2] / sum, w[3] / sum}
}

// calculateBoundingBox computes the axis-aligned bounding box for positions.
func calculateBoundingBox(positions [][3]float32) ([3]float32, [3]float32) {
	if len(positions) == 0 {
		return [3]float32{}, [3]float32{}
	}

	bmin := [3]float32{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32}
	bmax := [3]float32{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32}
	for _, pos := range positions {
		for j := range 3 {
			bmin[j] = math32.Min(bmin[j], pos[j])
			bmax[j] = math32.Max(bmax[j], pos[j])
		}
	}
	return bmin, bmax
}

// generateNormals computes smooth vertex normals from the triangle geometry. Each face normal
// (the cross product of two edges, so area weighted) is accumulated onto its three vertices
// and the sums are normalized. Degenerate vertices keep the up vector.
//
// Parameters:
//   - vertices: the vertex slice to write normal data into
//   - indices: the triangle index buffer
func generateNormals(vertices []model.ModelVertex, indices []uint32) {
	accum := make([][3]float32, len(vertices))

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0, p1, p2 := vertices[i0].Position, vertices[i1].Position, vertices[i2].Position

		edge1 := sub3(p1, p0)
		edge2 := sub3(p2, p0)
		face := cross3(edge1, edge2)
		for _, idx := range [3]uint32{i0, i1, i2} {
			accum[idx] = add3(accum[idx], face)
		}
	}

	for i := range vertices {
		if n, ok := normalize3(accum[i]); ok {
			vertices[i].Normal = n
		} else {
			vertices[i].Normal = [3]float32{0, 1, 0}
		}
	}
}

// generateTangents computes per-vertex tangents from UV gradients. Per-triangle tangents and
// bitangents are accumulated, then each tangent is orthonormalized against the vertex normal;
// W stores the handedness (±1).
//
// Parameters:
//   - vertices: the vertex slice to write tangent data into
//   - indices: the triangle index buffer
func generateTangents(vertices []model.ModelVertex, indices []uint32) {
	tan := make([][3]float32, len(vertices))
	btan := make([][3]float32, len(vertices))

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0, p1, p2 := vertices[i0].Position, vertices[i1].Position, vertices[i2].Position
		uv0, uv1, uv2 := vertices[i0].UV0, vertices[i1].UV0, vertices[i2].UV0

		edge1 := sub3(p1, p0)
		edge2 := sub3(p2, p0)
		duv1 := [2]float32{uv1[0] - uv0[0], uv1[1] - uv0[1]}
		duv2 := [2]float32{uv2[0] - uv0[0], uv2[1] - uv0[1]}

		det := duv1[0]*duv2[1] - duv1[1]*duv2[0]
		if det == 0 {
			continue
		}
		inv := 1 / det

		t := [3]float32{
			inv * (duv2[1]*edge1[0] - duv1[1]*edge2[0]),
			inv * (duv2[1]*edge1[1] - duv1[1]*edge2[1]),
			inv * (duv2[1]*edge1[2] - duv1[1]*edge2[2]),
		}
		b := [3]float32{
			inv * (-duv2[0]*edge1[0] + duv1[0]*edge2[0]),
			inv * (-duv2[0]*edge1[1] + duv1[0]*edge2[1]),
			inv * (-duv2[0]*edge1[2] + duv1[0]*edge2[2]),
		}
		for _, idx := range [3]uint32{i0, i1, i2} {
			tan[idx] = add3(tan[idx], t)
			btan[idx] = add3(btan[idx], b)
		}
	}

	for i := range vertices {
		n := vertices[i].Normal
		// Gram-Schmidt: T' = normalize(T - N * dot(N, T))
		d := dot3(n, tan[i])
		ortho, ok := normalize3([3]float32{tan[i][0] - n[0]*d, tan[i][1] - n[1]*d, tan[i][2] - n[2]*d})
		if !ok {
			vertices[i].Tangent = [4]float32{1, 0, 0, 1}
			continue
		}
		w := float32(1)
		if dot3(cross3(n, ortho), btan[i]) < 0 {
			w = -1
		}
		vertices[i].Tangent = [4]float32{ortho[0], ortho[1], ortho[2], w}
	}
}

func add3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func sub3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func dot3(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize3(v [3]float32) ([3]float32, bool) {
	length := math32.Sqrt(dot3(v, v))
	if length < 1e-6 {
		return v, false
	}
	return [3]float32{v[0] / length, v[1] / length, v[2] / length}, true
}
